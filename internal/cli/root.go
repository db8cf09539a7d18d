package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// runFunc is a command body with the wired application
type runFunc func(ctx context.Context, app *App, args []string) error

// withApp builds the application for one command run and closes it after
func withApp(flags *GlobalFlags, fn runFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		app, err := newApp(cmd, flags)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(ctx, app, args)
	}
}

// NewRootCommand assembles the greenbox command tree
func NewRootCommand() *cobra.Command {
	flags := &GlobalFlags{}

	rootCmd := &cobra.Command{
		Use:   "greenbox",
		Short: "Personal cloud storage client",
		Long: `greenbox is a command-line client for a personal cloud storage service.
It logs in to the backend, lists files and folders, uploads, downloads,
moves, shares and deletes files, one at a time or in batches.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(rootCmd, flags)

	rootCmd.AddCommand(
		newRegisterCommand(flags),
		newLoginCommand(flags),
		newLogoutCommand(flags),
		newWhoamiCommand(flags),
		newListCommand(flags),
		newTreeCommand(flags),
		newUploadCommand(flags),
		newRemoveCommand(flags),
		newMoveCommand(flags),
		newShareCommand(flags),
		newDownloadCommand(flags),
		newWatchCommand(flags),
		NewConfigCommand(flags),
		NewVersionCommand(),
	)

	return rootCmd
}
