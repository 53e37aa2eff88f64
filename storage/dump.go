package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nasdf/meeple/record"

	"github.com/ipld/go-ipld-prime/codec/dagjson"
)

// Dump writes every collection whose name starts with prefix and all of its records to w.
//
// Records are rendered as DAG-JSON, one per line, in enumeration order.
func Dump(ctx context.Context, s Storage, w io.Writer, prefix string) error {
	names, err := s.Collections(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		entries, err := s.Scan(ctx, name)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "[%s]: %d records\n", strings.TrimPrefix(name, prefix), len(entries))
		if err != nil {
			return err
		}
		for _, e := range entries {
			err = dumpEntry(e, w)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func dumpEntry(e Entry, w io.Writer) error {
	n, err := record.RecordNode(e.Record)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "  %s ", e.ID)
	if err != nil {
		return err
	}
	err = dagjson.Encode(n, w)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// DropPrefix removes every collection whose name starts with prefix.
func DropPrefix(ctx context.Context, s Storage, prefix string) error {
	names, err := s.Collections(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		err = s.Drop(ctx, name)
		if err != nil {
			return err
		}
	}
	return nil
}
