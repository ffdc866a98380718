package main

import (
	"context"
	"fmt"

	"github.com/skyline93/dope/internal/config"
	"github.com/spf13/cobra"
)

var cmdConfig = &cobra.Command{
	Use:   "config [flags]",
	Short: "Print or write the effective configuration",
	Long: `
The "config" command prints the settings that result from the defaults, the
config file, DOPE_* environment variables and the command line flags as YAML.
With --output the settings are written to a file instead, which can be used
as dope.yaml later on.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	Args:              cobra.NoArgs,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfig(cmd.Context(), configOptions, globalOptions)
	},
}

// ConfigOptions bundles all options for the config command.
type ConfigOptions struct {
	Output string
}

var configOptions ConfigOptions

func init() {
	cmdRoot.AddCommand(cmdConfig)

	f := cmdConfig.Flags()
	f.StringVarP(&configOptions.Output, "output", "o", "", "write the configuration to `file`")
}

func runConfig(_ context.Context, opts ConfigOptions, gopts GlobalOptions) error {
	if opts.Output != "" {
		return config.WriteFile(gopts.Config, opts.Output)
	}

	data, err := config.Marshal(gopts.Config)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(gopts.stdout, string(data))
	return err
}
