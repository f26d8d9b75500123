package interval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/klauspost/compress/gzip"
)

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// NewBEDOpts defines behavior of this package's BED-loading function(s).
type NewBEDOpts struct {
	// OneBasedInput interprets the BED interval boundaries as one-based [start,
	// end] instead of the usual zero-based [start, end).
	OneBasedInput bool
}

// BEDUnion is a collection of length-2N endpoint sequences, one per sequence
// name, where the start of interval #k is in element [2k] and its end is in
// element [2k+1]. Intervals are disjoint and stored in increasing order.
type BEDUnion struct {
	nameMap map[string][]uint64
	// names lists the keys of nameMap in BED order.
	names []string
	// bases is the number of covered positions.
	bases uint64
}

// Contains checks whether the (0-based) position pos of the named sequence is
// covered.
func (u *BEDUnion) Contains(name string, pos uint64) bool {
	endpoints := u.nameMap[name]
	return sort.Search(len(endpoints), func(i int) bool { return endpoints[i] > pos })&1 == 1
}

// Entries returns the merged intervals, grouped by sequence in BED order.
func (u *BEDUnion) Entries() []Entry {
	var entries []Entry
	for _, name := range u.names {
		endpoints := u.nameMap[name]
		for i := 0; i < len(endpoints); i += 2 {
			entries = append(entries, Entry{Name: name, Start: endpoints[i], End: endpoints[i+1]})
		}
	}
	return entries
}

// Bases returns the number of positions covered by u.
func (u *BEDUnion) Bases() uint64 { return u.bases }

func scanBEDUnion(scanner *bufio.Scanner, opts NewBEDOpts) (*BEDUnion, error) {
	u := &BEDUnion{nameMap: make(map[string][]uint64)}
	var startSubtract uint64
	if opts.OneBasedInput {
		startSubtract++
	}
	var (
		tokens    [3][]byte
		lineIdx   int
		prevChr   string
		intervals []uint64
	)
	flush := func() {
		if prevChr != "" {
			u.nameMap[prevChr] = intervals
		}
	}
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken == 0 || curLine[0] == '#' || hasPrefix(curLine, "track") || hasPrefix(curLine, "browser") {
			continue
		}
		if nToken != 3 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("BED line %d has fewer tokens than expected", lineIdx))
		}
		start, err := strconv.ParseUint(gunsafe.BytesToString(tokens[1]), 10, 64)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("BED line %d", lineIdx))
		}
		if start < startSubtract {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("BED line %d: start coordinate out of range", lineIdx))
		}
		start -= startSubtract
		end, err := strconv.ParseUint(gunsafe.BytesToString(tokens[2]), 10, 64)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("BED line %d", lineIdx))
		}
		if end < start {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("BED line %d: invalid coordinate pair", lineIdx))
		}
		if prevChr != gunsafe.BytesToString(tokens[0]) {
			flush()
			// tokens[0] aliases the scanner's buffer.
			prevChr = string(tokens[0])
			if _, found := u.nameMap[prevChr]; found {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("unsorted BED input (split sequence %s)", prevChr))
			}
			u.names = append(u.names, prevChr)
			intervals = nil
		}
		if end == start {
			continue
		}
		n := len(intervals)
		switch {
		case n == 0 || start > intervals[n-1]:
			intervals = append(intervals, start, end)
			u.bases += end - start
		case start < intervals[n-2]:
			return nil, errors.E(errors.Invalid, fmt.Sprintf("unsorted BED input at line %d", lineIdx))
		case end > intervals[n-1]:
			u.bases += end - intervals[n-1]
			intervals[n-1] = end
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	log.Printf("BED loaded, %d base(s) covered.", u.bases)
	return u, nil
}

func hasPrefix(b []byte, prefix string) bool {
	return len(b) >= len(prefix) && gunsafe.BytesToString(b[:len(prefix)]) == prefix
}

// NewBEDUnion loads the intervals from a sorted (by first coordinate) BED,
// merging touching/overlapping intervals and eliminating empty ones in the
// process.
func NewBEDUnion(reader io.Reader, opts NewBEDOpts) (*BEDUnion, error) {
	return scanBEDUnion(bufio.NewScanner(reader), opts)
}

// NewBEDUnionFromPath is a wrapper for NewBEDUnion that takes a path instead
// of an io.Reader. Gzipped files are detected by their extension.
func NewBEDUnionFromPath(ctx context.Context, path string, opts NewBEDOpts) (u *BEDUnion, err error) {
	infile, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(errors.Unavailable, err, "open BED", path)
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, "read BED", path)
		}
		defer gz.Close() // nolint: errcheck
		reader = gz
	}
	return NewBEDUnion(reader, opts)
}
