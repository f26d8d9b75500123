package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/faidx/encoding/fasta"
	"github.com/grailbio/faidx/interval"
)

type getFlags struct {
	// index is the index path. If empty, fastapath+".fai" is used when it
	// exists, and the index is built in memory otherwise.
	index string
	// width is the number of bases per output line. 0 disables wrapping.
	width int
	// bed, if set, names a BED file whose intervals are extracted after the
	// regions given on the command line.
	bed string
	// oneBased interprets bed as 1-based closed intervals.
	oneBased bool
	// reverseComplement prints the reverse complement of each region.
	reverseComplement bool
}

func loadEntries(ctx context.Context, fastaPath, indexPath string) ([]fasta.Entry, error) {
	path := indexPathFor(fastaPath, indexPath)
	if indexPath == "" {
		if _, err := file.Stat(ctx, path); err != nil {
			return buildIndex(ctx, fastaPath)
		}
	}
	data, err := file.ReadFile(ctx, path)
	if err != nil {
		return nil, errors.E(errors.Unavailable, err, "read index", path)
	}
	return fasta.ReadIndex(bytes.NewReader(data))
}

func runGet(ctx context.Context, w io.Writer, flags getFlags, fastaPath string, regionArgs []string) (err error) {
	regions := make([]interval.Entry, len(regionArgs))
	for i, arg := range regionArgs {
		if regions[i], err = interval.ParseRegion(arg); err != nil {
			return err
		}
	}
	if flags.bed != "" {
		u, err := interval.NewBEDUnionFromPath(ctx, flags.bed, interval.NewBEDOpts{OneBasedInput: flags.oneBased})
		if err != nil {
			return err
		}
		regions = append(regions, u.Entries()...)
	}
	entries, err := loadEntries(ctx, fastaPath, flags.index)
	if err != nil {
		return err
	}
	in, err := file.Open(ctx, fastaPath)
	if err != nil {
		return errors.E(errors.Unavailable, err, "open FASTA", fastaPath)
	}
	defer closeFile(ctx, in, &err)
	fa, err := fasta.NewIndexedEntries(in.Reader(ctx), entries)
	if err != nil {
		return err
	}
	for _, r := range regions {
		n, err := fa.Len(r.Name)
		if err != nil {
			return err
		}
		var seq string
		if clipped, ok := r.Clip(n); ok {
			if seq, err = fa.Get(r.Name, clipped.Start, clipped.End); err != nil {
				return err
			}
		}
		name := r.String()
		if flags.reverseComplement {
			b := []byte(seq)
			reverseComp8Inplace(b)
			seq, name = string(b), name+"/rc"
		}
		if err := writeRecord(w, name, seq, flags.width); err != nil {
			return err
		}
	}
	return nil
}

func writeRecord(w io.Writer, name, seq string, width int) error {
	if _, err := fmt.Fprintf(w, ">%s\n", name); err != nil {
		return err
	}
	if width <= 0 {
		width = len(seq)
	}
	for len(seq) > 0 {
		n := width
		if n > len(seq) {
			n = len(seq)
		}
		if _, err := fmt.Fprintf(w, "%s\n", seq[:n]); err != nil {
			return err
		}
		seq = seq[n:]
	}
	return nil
}
