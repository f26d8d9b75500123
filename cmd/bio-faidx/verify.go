package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/faidx/encoding/fasta"
)

// runVerify rebuilds the index of the FASTA file and compares it, byte for
// byte, with the stored one.
func runVerify(ctx context.Context, w io.Writer, fastaPath, indexPath string) error {
	path := indexPathFor(fastaPath, indexPath)
	stored, err := file.ReadFile(ctx, path)
	if err != nil {
		return errors.E(errors.Unavailable, err, "read index", path)
	}
	entries, err := buildIndex(ctx, fastaPath)
	if err != nil {
		return err
	}
	var rebuilt bytes.Buffer
	if err := fasta.WriteEntries(&rebuilt, entries); err != nil {
		return err
	}
	storedSum, rebuiltSum := seahash.Sum64(stored), seahash.Sum64(rebuilt.Bytes())
	if _, err := fmt.Fprintf(w, "%s\t%016x\n%s\t%016x\n", path, storedSum, fastaPath, rebuiltSum); err != nil {
		return err
	}
	if bytes.Equal(stored, rebuilt.Bytes()) {
		return nil
	}
	storedEntries, err := fasta.ReadIndex(bytes.NewReader(stored))
	if err != nil {
		log.Error.Printf("%s: %v", path, err)
		return errDiffer
	}
	for i := range entries {
		if i >= len(storedEntries) {
			log.Error.Printf("%s: missing %s", path, entries[i])
			break
		}
		want, got := entries[i].String(), storedEntries[i].String()
		if want != got {
			log.Error.Printf("%s: line %d is %q, expected %q", path, i+1, got, want)
			break
		}
	}
	return errDiffer
}
