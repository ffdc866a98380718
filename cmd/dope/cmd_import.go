package main

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/skyline93/dope/internal/fs"
	"github.com/skyline93/dope/internal/repository"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var cmdImport = &cobra.Command{
	Use:   "import [flags] file.csv [file.csv...]",
	Short: "Insert all rows of CSV files",
	Long: `
The "import" command reads plain "key,value" CSV files with a header line and
inserts every row into the table. Files are parsed concurrently and inserted
in the order given, so a key present in several files ends up with the value
of the last one.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
If any file cannot be parsed, the table is left unchanged.
`,
	Args:              cobra.MinimumNArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), importOptions, globalOptions, args)
	},
}

// ImportOptions bundles all options for the import command.
type ImportOptions struct {
	ReadConcurrency uint
}

var importOptions ImportOptions

func init() {
	cmdRoot.AddCommand(cmdImport)

	f := cmdImport.Flags()
	f.UintVar(&importOptions.ReadConcurrency, "read-concurrency", 2, "read `n` files concurrently")
}

func readCSVFile(ctx context.Context, name string) ([]repository.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := fs.Open(name)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer func() { _ = f.Close() }()

	entries, err := repository.ReadEntries(f)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}

	log.Debugf("read %d rows from %v", len(entries), name)
	return entries, nil
}

func runImport(ctx context.Context, opts ImportOptions, gopts GlobalOptions, files []string) error {
	if opts.ReadConcurrency == 0 {
		opts.ReadConcurrency = 1
	}

	rows := make([][]repository.Entry, len(files))

	wg, wgCtx := errgroup.WithContext(ctx)
	wg.SetLimit(int(opts.ReadConcurrency))
	for i, name := range files {
		i, name := i, name
		wg.Go(func() error {
			entries, err := readCSVFile(wgCtx, name)
			rows[i] = entries
			return err
		})
	}
	if err := wg.Wait(); err != nil {
		return err
	}

	t, err := open(ctx, gopts)
	if err != nil {
		return err
	}
	defer t.Close()

	for i, entries := range rows {
		for _, e := range entries {
			if err := t.Insert(e.Key, e.Value); err != nil {
				return errors.Wrapf(err, "%v: insert %q", files[i], e.Key)
			}
		}
		log.Infof("imported %d rows from %v", len(entries), files[i])
	}

	return t.Save(ctx)
}
