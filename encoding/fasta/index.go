package fasta

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// Entry describes one FASTA record. The first five fields make up a line
// of a .fai index.
type Entry struct {
	// Name is the header text between '>' and the first whitespace.
	Name string
	// Length is the number of bases, excluding line terminators and other
	// whitespace.
	Length uint64
	// Offset is the byte position of the first base.
	Offset uint64
	// LineBases is the number of bases on each full line.
	LineBases uint64
	// LineWidth is the number of bytes in each full line, including the line
	// terminator.
	LineWidth uint64

	// HeaderOffset is the byte position of the record's '>'.
	HeaderOffset uint64
	// End is the number of bytes consumed through the end of the record. It
	// is the HeaderOffset of the next record.
	End uint64
}

// String returns e as a .fai line, without the trailing newline.
func (e Entry) String() string {
	return fmt.Sprintf("%s\t%d\t%d\t%d\t%d", e.Name, e.Length, e.Offset, e.LineBases, e.LineWidth)
}

// GenerateIndex generates an index (*.fai) from FASTA.  The index can be later
// passed to NewIndexed() to random-access the FASTA file quickly.
//
// The index format is defined by "samtool faidx"
// (http://www.htslib.org/doc/faidx.html).
func GenerateIndex(out io.Writer, in io.Reader, opts ...Opt) error {
	var (
		tsvOut = tsv.NewWriter(out)
		s      = NewIndexScanner(in, opts...)
		e      Entry
	)
	for s.Scan(&e) {
		if err := writeEntry(tsvOut, e); err != nil {
			return err
		}
	}
	if err := s.Err(); err != nil {
		return err
	}
	return tsvOut.Flush()
}

// WriteEntries writes entries in .fai format.
func WriteEntries(out io.Writer, entries []Entry) error {
	tsvOut := tsv.NewWriter(out)
	for _, e := range entries {
		if err := writeEntry(tsvOut, e); err != nil {
			return err
		}
	}
	return tsvOut.Flush()
}

func writeEntry(w *tsv.Writer, e Entry) error {
	w.WriteString(e.Name)
	w.WriteInt64(int64(e.Length))
	w.WriteInt64(int64(e.Offset))
	w.WriteInt64(int64(e.LineBases))
	w.WriteInt64(int64(e.LineWidth))
	return w.EndLine()
}

// ReadIndex parses a .fai index. HeaderOffset and End are not stored in the
// index and are left zero.
func ReadIndex(r io.Reader) ([]Entry, error) {
	var (
		entries []Entry
		scanner = bufio.NewScanner(r)
		lineNum int
	)
	for scanner.Scan() {
		lineNum++
		matches := indexRegExp.FindStringSubmatch(scanner.Text())
		if len(matches) != 6 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("invalid index line %d: %q", lineNum, scanner.Text()))
		}
		var (
			e      = Entry{Name: matches[1]}
			fields = []*uint64{&e.Length, &e.Offset, &e.LineBases, &e.LineWidth}
			err    error
		)
		for i, field := range fields {
			if *field, err = strconv.ParseUint(matches[i+2], 10, 64); err != nil {
				return nil, errors.E(errors.Invalid, err, fmt.Sprintf("index line %d", lineNum))
			}
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(err, "couldn't read FASTA index")
	}
	return entries, nil
}

// Index maps sequence names to their entries, remembering file order.
type Index struct {
	entries []Entry
	names   map[string]int
}

// NewIndex builds an Index. Sequence names must be unique.
func NewIndex(entries []Entry) (*Index, error) {
	idx := &Index{entries: entries, names: make(map[string]int, len(entries))}
	for i, e := range entries {
		if _, ok := idx.names[e.Name]; ok {
			return nil, errors.E(errors.Invalid, "duplicate sequence name", e.Name)
		}
		idx.names[e.Name] = i
	}
	return idx, nil
}

// Lookup returns the entry for the named sequence.
func (idx *Index) Lookup(name string) (Entry, bool) {
	i, ok := idx.names[name]
	if !ok {
		return Entry{}, false
	}
	return idx.entries[i], true
}

// Entries returns all entries in file order.
func (idx *Index) Entries() []Entry { return idx.entries }

// FaiToReferenceLengths reads in a fasta fai file and returns a map of
// reference name to reference length. This doesn't require reading in the fasta
// itself.
func FaiToReferenceLengths(index io.Reader) (map[string]uint64, error) {
	entries, err := ReadIndex(index)
	if err != nil {
		return nil, err
	}
	lengths := make(map[string]uint64, len(entries))
	for _, e := range entries {
		lengths[e.Name] = e.Length
	}
	return lengths, nil
}
