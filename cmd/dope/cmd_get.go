package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/skyline93/dope/internal/hashtable"
	"github.com/spf13/cobra"
)

var cmdGet = &cobra.Command{
	Use:   "get [flags] key",
	Short: "Print the value stored under a key",
	Long: `
The "get" command prints the value stored under key.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if the key was
not present or there was any other error.
`,
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGet(cmd.Context(), globalOptions, args[0])
	},
}

func init() {
	cmdRoot.AddCommand(cmdGet)
}

func runGet(ctx context.Context, gopts GlobalOptions, key string) error {
	t, err := open(ctx, gopts)
	if err != nil {
		return err
	}
	defer t.Close()

	value, err := t.Get(hashtable.String(key))
	if err != nil {
		return errors.Wrapf(err, "get %q", key)
	}

	_, err = fmt.Fprintln(gopts.stdout, value)
	return err
}
