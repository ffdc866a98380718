package repository

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/skyline93/dope/internal/hashtable"
)

// header is the first row of every table file.
var header = []string{"key", "value"}

// ParseError is returned when a table file contains a malformed row.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error on line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ReadEntries parses CSV from rd. The first row is a header and is skipped,
// every other row must consist of exactly a key and a value.
//
// Line breaks inside quoted fields are returned as "\n", so a key or value
// containing "\r\n" comes back with a bare "\n" after a save and load.
func ReadEntries(rd io.Reader) ([]Entry, error) {
	cr := csv.NewReader(rd)
	// field counts are checked below to report the line of the bad row
	cr.FieldsPerRecord = -1

	var entries []Entry
	for first := true; ; first = false {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}

		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, &ParseError{Line: perr.StartLine, Err: perr.Err}
		}
		if err != nil {
			return nil, errors.Wrap(err, "csv.Read")
		}

		if first {
			continue
		}

		if len(rec) != len(header) {
			line, _ := cr.FieldPos(0)
			return nil, &ParseError{
				Line: line,
				Err:  errors.Errorf("want %d fields (key, value), got %d", len(header), len(rec)),
			}
		}

		entries = append(entries, Entry{Key: hashtable.String(rec[0]), Value: rec[1]})
	}

	return entries, nil
}

// WriteEntries writes the header followed by one row per entry of t, in
// enumeration order, and flushes the output.
func WriteEntries(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "csv.Write")
	}

	err := t.Each(func(e Entry) error {
		return cw.Write([]string{string(e.Key), e.Value})
	})
	if err != nil {
		return errors.Wrap(err, "csv.Write")
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "csv.Flush")
}
