package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/skyline93/dope/internal/hashtable"
	"github.com/spf13/cobra"
)

var cmdInsert = &cobra.Command{
	Use:   "insert [flags] key value",
	Short: "Insert a key/value pair",
	Long: `
The "insert" command stores value under key. If the key is already present,
its value is replaced.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	Args:              cobra.ExactArgs(2),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInsert(cmd.Context(), globalOptions, args[0], args[1])
	},
}

func init() {
	cmdRoot.AddCommand(cmdInsert)
}

func runInsert(ctx context.Context, gopts GlobalOptions, key, value string) error {
	t, err := open(ctx, gopts)
	if err != nil {
		return err
	}
	defer t.Close()

	if err := t.Insert(hashtable.String(key), value); err != nil {
		return errors.Wrapf(err, "insert %q", key)
	}

	return t.Save(ctx)
}
