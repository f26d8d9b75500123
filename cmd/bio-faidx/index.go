package main

import (
	"context"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/faidx/encoding/fasta"
)

type indexFlags struct {
	// out is the index path. If empty, fastapath+".fai" is used.
	out string
	// continueOnMismatch skips malformed records instead of failing.
	continueOnMismatch bool
	// trailingBlankLines is passed to fasta.OptTrailingBlankLines.
	trailingBlankLines int
}

func (f indexFlags) opts() []fasta.Opt {
	opts := []fasta.Opt{fasta.OptTrailingBlankLines(f.trailingBlankLines)}
	if f.continueOnMismatch {
		opts = append(opts, fasta.OptContinueOnMismatch())
	}
	return opts
}

// buildIndex scans the FASTA file at path and returns its entries.
func buildIndex(ctx context.Context, path string, opts ...fasta.Opt) (entries []fasta.Entry, err error) {
	s, err := fasta.OpenIndexScanner(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := s.Close(); e != nil && err == nil {
			err = e
		}
	}()
	var e fasta.Entry
	for s.Scan(&e) {
		entries = append(entries, e)
	}
	if err = s.Err(); err != nil {
		return nil, err
	}
	for _, a := range s.Anomalies() {
		log.Printf("%s: %v", path, a)
	}
	if n := s.Skipped(); n > 0 {
		log.Printf("%s: skipped %d record(s)", path, n)
	}
	log.Debug.Printf("%s: scanned %d bytes", path, s.BytesRead())
	return entries, nil
}

// runIndex writes the index of the FASTA file at path. Nothing is written if
// the file is malformed.
func runIndex(ctx context.Context, flags indexFlags, path string) (err error) {
	entries, err := buildIndex(ctx, path, flags.opts()...)
	if err != nil {
		return err
	}
	out := indexPathFor(path, flags.out)
	f, err := file.Create(ctx, out)
	if err != nil {
		return err
	}
	defer closeFile(ctx, f, &err)
	if err = fasta.WriteEntries(f.Writer(ctx), entries); err != nil {
		return err
	}
	log.Printf("%s: indexed %d sequence(s) into %s", path, len(entries), out)
	return nil
}
