package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/skyline93/dope/internal/hashtable"
	"github.com/spf13/cobra"
)

var cmdDelete = &cobra.Command{
	Use:   "delete [flags] key",
	Short: "Remove a key",
	Long: `
The "delete" command removes key and its value from the table.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if the key was
not present or there was any other error.
`,
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDelete(cmd.Context(), globalOptions, args[0])
	},
}

func init() {
	cmdRoot.AddCommand(cmdDelete)
}

func runDelete(ctx context.Context, gopts GlobalOptions, key string) error {
	t, err := open(ctx, gopts)
	if err != nil {
		return err
	}
	defer t.Close()

	if err := t.Delete(hashtable.String(key)); err != nil {
		return errors.Wrapf(err, "delete %q", key)
	}

	return t.Save(ctx)
}
