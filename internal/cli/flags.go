package cli

import (
	"github.com/spf13/cobra"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Server     string
	Output     string
	Verbose    bool
	Quiet      bool
}

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVar(
		&flags.ConfigFile,
		"config",
		"",
		"config file (default is $HOME/.config/greenbox/config.yaml)",
	)
	cmd.PersistentFlags().StringVar(
		&flags.Server,
		"server",
		"",
		"backend base URL (overrides server.base_url)",
	)
	cmd.PersistentFlags().StringVarP(
		&flags.Output,
		"output",
		"o",
		"",
		"output format: human, json",
	)
	cmd.PersistentFlags().BoolVarP(
		&flags.Verbose,
		"verbose",
		"v",
		false,
		"verbose output",
	)
	cmd.PersistentFlags().BoolVarP(
		&flags.Quiet,
		"quiet",
		"q",
		false,
		"suppress non-error output",
	)
}
