package cli

import (
	"context"
	"fmt"

	"github.com/sdejongh/greenbox/internal/platform"
	"github.com/sdejongh/greenbox/pkg/logging"
	"github.com/sdejongh/greenbox/pkg/manager"
	"github.com/sdejongh/greenbox/pkg/models"
	"github.com/sdejongh/greenbox/pkg/session"
	"github.com/sdejongh/greenbox/pkg/storage"
	"github.com/sdejongh/greenbox/pkg/transfer"
	"github.com/sdejongh/greenbox/pkg/watch"
	"github.com/spf13/cobra"
)

// TransferFlags holds flags shared by upload, download and watch
type TransferFlags struct {
	Folder    string
	Bandwidth string
	Exclude   []string
}

func addTransferFlags(cmd *cobra.Command, flags *TransferFlags) {
	cmd.Flags().StringVarP(&flags.Bandwidth, "bandwidth", "b", "", "bandwidth limit per transfer (e.g., \"512K\", \"10M\")")
}

// report prints the command report and maps its status to the exit code
func (a *App) report(report *models.OperationReport) error {
	if err := a.formatter.Report(a.out, report); err != nil {
		return err
	}
	return statusError(report.Status)
}

func newUploadCommand(flags *GlobalFlags) *cobra.Command {
	var tf TransferFlags

	cmd := &cobra.Command{
		Use:   "upload PATH...",
		Short: "Upload files and directories",
		Long: `Upload files. Directories are uploaded recursively; the backend keeps
no directory structure, so every file is stored under its base name.`,
		Args: cobra.MinimumNArgs(1),
	}

	cmd.Flags().StringVar(&tf.Folder, "folder", "", "target folder id")
	cmd.Flags().StringSliceVar(&tf.Exclude, "exclude", nil, "glob patterns to exclude")
	addTransferFlags(cmd, &tf)

	cmd.RunE = withApp(flags, func(ctx context.Context, app *App, args []string) error {
		limiter, err := app.limiter(tf.Bandwidth)
		if err != nil {
			return err
		}

		paths := make([]string, len(args))
		for i, p := range args {
			paths[i] = platform.NormalizePath(p)
		}
		tasks, err := transfer.Collect(ctx, paths, app.matcher(tf.Exclude))
		if err != nil {
			return err
		}

		progress := app.progress(len(tasks), transfer.TotalSize(tasks))
		m := app.newManager(managerOptions{limiter: limiter, observer: progress})
		report := m.UploadFiles(ctx, tasks, models.ID(tf.Folder))
		if progress != nil {
			progress.Finish()
		}

		return app.report(report)
	})

	return cmd
}

func newDownloadCommand(flags *GlobalFlags) *cobra.Command {
	var (
		tf  TransferFlags
		dir string
	)

	cmd := &cobra.Command{
		Use:   "download ID...",
		Short: "Download files into a local directory",
		Args:  cobra.MinimumNArgs(1),
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "destination directory (created if missing)")
	cmd.Flags().StringVar(&tf.Folder, "folder", "", "folder id the files are listed in")
	addTransferFlags(cmd, &tf)

	cmd.RunE = withApp(flags, func(ctx context.Context, app *App, args []string) error {
		limiter, err := app.limiter(tf.Bandwidth)
		if err != nil {
			return err
		}

		dir = platform.NormalizePath(dir)
		if err := platform.ValidatePath(dir); err != nil {
			return err
		}
		dest, err := storage.CreateLocal(ctx, dir)
		if err != nil {
			return fmt.Errorf("failed to create destination directory: %w", err)
		}
		defer dest.Close()

		// records are looked up in the listing to resolve their links
		lookup := app.newManager(managerOptions{})
		if err := open(ctx, lookup, tf.Folder); err != nil {
			return err
		}

		var (
			files []models.FileRecord
			total int64
		)
		for _, id := range models.IDs(args...) {
			f, ok := lookup.File(id)
			if !ok {
				app.notify(manager.LevelWarning, fmt.Sprintf("file %s not found", id))
				continue
			}
			files = append(files, f)
			total += f.Size
		}

		progress := app.progress(len(files), total)
		m := app.newManager(managerOptions{limiter: limiter, observer: progress})
		report := m.Download(ctx, files, dest)
		if progress != nil {
			progress.Finish()
		}

		return app.report(report)
	})

	return cmd
}

func newWatchCommand(flags *GlobalFlags) *cobra.Command {
	var tf TransferFlags

	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Upload files as they appear in a directory",
		Long: `Watch DIR recursively and upload every file created or rewritten in it,
once the file has been quiet for a moment. Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
	}

	cmd.Flags().StringVar(&tf.Folder, "folder", "", "target folder id")
	cmd.Flags().StringSliceVar(&tf.Exclude, "exclude", nil, "glob patterns to exclude")
	addTransferFlags(cmd, &tf)

	cmd.RunE = withApp(flags, func(ctx context.Context, app *App, args []string) error {
		if err := session.Require(app.sessions.Current()); err != nil {
			app.notify(manager.LevelError, "please log in first")
			return notified(err)
		}

		limiter, err := app.limiter(tf.Bandwidth)
		if err != nil {
			return err
		}

		m := app.newManager(managerOptions{})
		w, err := watch.New(watch.Config{
			Root:     platform.NormalizePath(args[0]),
			FolderID: models.ID(tf.Folder),
			Matcher:  app.matcher(tf.Exclude),
			Limiter:  limiter,
			Logger:   app.logger,
		}, m)
		if err != nil {
			return err
		}

		app.notify(manager.LevelInfo, fmt.Sprintf("watching %s, press Ctrl+C to stop", args[0]))
		if err := w.Run(ctx); err != nil {
			return err
		}
		app.logger.Info(ctx, "watch stopped", logging.Fields{"root": args[0]})
		return nil
	})

	return cmd
}
