package main

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/faidx/encoding/fasta/faistat"
)

func runStats(ctx context.Context, w io.Writer, fastaPath string, plotHeight int) error {
	entries, err := loadEntries(ctx, fastaPath, "")
	if err != nil {
		return err
	}
	if err := faistat.Compute(entries).Write(w); err != nil {
		return err
	}
	if plotHeight <= 0 {
		return nil
	}
	_, err = fmt.Fprintln(w, faistat.Plot(entries, plotHeight))
	return err
}
