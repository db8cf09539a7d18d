package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sdejongh/greenbox/pkg/api"
	"github.com/sdejongh/greenbox/pkg/manager"
	"github.com/sdejongh/greenbox/pkg/models"
	"github.com/spf13/cobra"
)

// open loads the listing of folder (root when empty) and the tree
func open(ctx context.Context, m *manager.Manager, folder string) error {
	if folder != "" {
		return notified(m.OpenFolder(ctx, models.ID(folder)))
	}
	return notified(m.Refresh(ctx))
}

// prefetch loads the listing and tree used to name files in prompts and to
// check targets. Only a missing session stops the command; other failures
// have been notified and the operation goes ahead without names.
func prefetch(ctx context.Context, m *manager.Manager) error {
	if err := m.Refresh(ctx); errors.Is(err, api.ErrUnauthenticated) {
		return notified(err)
	}
	return nil
}

func newListCommand(flags *GlobalFlags) *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List files",
		Args:    cobra.NoArgs,
	}

	cmd.Flags().StringVar(&folder, "folder", "", "folder id (default: all files)")

	cmd.RunE = withApp(flags, func(ctx context.Context, app *App, args []string) error {
		m := app.newManager(managerOptions{})
		if err := open(ctx, m, folder); err != nil {
			return err
		}
		return app.formatter.Files(app.out, m.Files(), app.cfg.StorageURL())
	})

	return cmd
}

func newTreeCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show the folder tree",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(ctx context.Context, app *App, args []string) error {
			m := app.newManager(managerOptions{})
			if err := open(ctx, m, ""); err != nil {
				return err
			}
			return app.formatter.Tree(app.out, m.Tree())
		}),
	}
}

func newRemoveCommand(flags *GlobalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm ID...",
		Aliases: []string{"delete"},
		Short:   "Delete files",
		Long: `Delete one file, or several files in a single batch request.
You are asked for confirmation unless --yes is given.`,
		Args: cobra.MinimumNArgs(1),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.RunE = withApp(flags, func(ctx context.Context, app *App, args []string) error {
		m := app.newManager(managerOptions{assumeYes: yes})
		if err := prefetch(ctx, m); err != nil {
			return err
		}

		ids := models.IDs(args...)
		if len(ids) == 1 {
			return notified(m.Delete(ctx, ids[0]))
		}
		m.Select(ids...)
		return notified(m.BatchDelete(ctx))
	})

	return cmd
}

func newMoveCommand(flags *GlobalFlags) *cobra.Command {
	var (
		target string
		yes    bool
	)

	cmd := &cobra.Command{
		Use:     "mv ID... --to FOLDER",
		Aliases: []string{"move"},
		Short:   "Move files into a folder",
		Args:    cobra.MinimumNArgs(1),
	}

	cmd.Flags().StringVar(&target, "to", "", "target folder id (required)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.MarkFlagRequired("to")

	cmd.RunE = withApp(flags, func(ctx context.Context, app *App, args []string) error {
		if target == "" {
			return errors.New("--to must name a folder")
		}
		m := app.newManager(managerOptions{assumeYes: yes})
		if err := prefetch(ctx, m); err != nil {
			return err
		}
		// an empty tree means it could not be loaded; the backend decides then
		if tree := m.Tree(); len(tree) > 0 && models.FindFolder(tree, models.ID(target)) == nil {
			return fmt.Errorf("folder %s not found", target)
		}

		ids := models.IDs(args...)
		if len(ids) == 1 {
			return notified(m.Move(ctx, ids[0], models.ID(target)))
		}
		m.Select(ids...)
		return notified(m.BatchMove(ctx, models.ID(target)))
	})

	return cmd
}

func newShareCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "share ID...",
		Short: "Share files",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(flags, func(ctx context.Context, app *App, args []string) error {
			m := app.newManager(managerOptions{})

			ids := models.IDs(args...)
			if len(ids) == 1 {
				_, err := m.Share(ctx, ids[0])
				return notified(err)
			}
			m.Select(ids...)
			return notified(m.BatchShare(ctx))
		}),
	}
}
