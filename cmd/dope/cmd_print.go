package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/skyline93/dope/internal/repository"
	"github.com/spf13/cobra"
)

var cmdPrint = &cobra.Command{
	Use:   "print [flags]",
	Short: "Print all buckets of the table",
	Long: `
The "print" command prints the table bucket by bucket, one line per bucket.
Empty buckets are printed as "-----". The last line summarizes how the entries
are spread over the buckets.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	Args:              cobra.NoArgs,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrint(cmd.Context(), globalOptions)
	},
}

func init() {
	cmdRoot.AddCommand(cmdPrint)
}

func runPrint(ctx context.Context, gopts GlobalOptions) error {
	t, err := open(ctx, gopts)
	if err != nil {
		return err
	}
	defer t.Close()

	var sb strings.Builder
	sb.WriteString("========== Table ==========\n")

	err = t.EachBucket(func(_ int, chain []repository.Entry) error {
		if len(chain) == 0 {
			sb.WriteString("-----\n")
			return nil
		}
		for _, e := range chain {
			fmt.Fprintf(&sb, "Key: %q, Value: %q, ", string(e.Key), e.Value)
		}
		sb.WriteString("\n")
		return nil
	})
	if err != nil {
		return err
	}

	s := t.Stats()
	fmt.Fprintf(&sb, "%d entries in %d buckets, %d used, longest chain %d, load factor %.2f\n",
		s.Size, s.Capacity, s.UsedBuckets, s.LongestChain, t.LoadFactor())

	_, err = fmt.Fprint(gopts.stdout, sb.String())
	return err
}
