package fasta

import (
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

type indexedFasta struct {
	seqs      map[string]Entry
	seqNames  []string // returned by SeqNames()
	reader    io.ReadSeeker
	bufOff    int64
	buf       []byte // caches file contents starting at bufOff.
	resultBuf []byte // temp for concatenating multi-line sequences.
	mutex     sync.Mutex
}

// NewIndexed creates a new Fasta that can perform efficient random lookups
// using the provided index, without reading the data into memory.
func NewIndexed(fasta io.ReadSeeker, index io.Reader) (Fasta, error) {
	entries, err := ReadIndex(index)
	if err != nil {
		return nil, err
	}
	return NewIndexedEntries(fasta, entries)
}

// NewIndexedEntries is like NewIndexed, but takes index entries that are
// already in memory, e.g. from an IndexScanner.
func NewIndexedEntries(fasta io.ReadSeeker, entries []Entry) (Fasta, error) {
	f := &indexedFasta{seqs: make(map[string]Entry, len(entries)), reader: fasta}
	for _, e := range entries {
		if _, ok := f.seqs[e.Name]; ok {
			return nil, errors.Errorf("duplicate sequence name in index: %s", e.Name)
		}
		if e.Length > 0 && (e.LineBases == 0 || e.LineWidth < e.LineBases) {
			return nil, errors.Errorf("invalid line geometry for sequence %s: %d bases, %d bytes per line",
				e.Name, e.LineBases, e.LineWidth)
		}
		f.seqs[e.Name] = e
		f.seqNames = append(f.seqNames, e.Name)
	}
	sort.SliceStable(f.seqNames, func(i, j int) bool {
		return f.seqs[f.seqNames[i]].Offset < f.seqs[f.seqNames[j]].Offset
	})
	return f, nil
}

// Len implements Fasta.Len().
func (f *indexedFasta) Len(seqName string) (uint64, error) {
	ent, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found in index: %s", seqName)
	}
	return ent.Length, nil
}

// Read range [off, off+n) from the underlying fasta file.
func (f *indexedFasta) read(off int64, n int) ([]byte, error) {
	limit := off + int64(n)
	if off < f.bufOff || limit > f.bufOff+int64(len(f.buf)) {
		if newOffset, err := f.reader.Seek(off, io.SeekStart); err != nil || newOffset != off {
			return nil, errors.Errorf("failed to seek to offset %d: %d, %v", off, newOffset, err)
		}
		bufSize := 8192
		if bufSize < n {
			bufSize = n
		}
		f.resizeBuf(&f.buf, bufSize)
		bytesRead, err := io.ReadAtLeast(f.reader, f.buf, n)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, errors.Errorf("encountered unexpected end of file at offset %d (bad index?)", off+int64(bytesRead))
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read at offset %d", off)
		}
		f.bufOff = off
		f.buf = f.buf[:bytesRead]
	}
	return f.buf[off-f.bufOff : limit-f.bufOff], nil
}

func (f *indexedFasta) resizeBuf(buf *[]byte, n int) {
	if cap(*buf) < n {
		*buf = make([]byte, n)
	} else {
		*buf = (*buf)[0:n]
	}
}

// Get implements Fasta.Get().
func (f *indexedFasta) Get(seqName string, start uint64, end uint64) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if end <= start {
		return "", errors.Errorf("start must be less than end")
	}
	ent, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found in index: %s", seqName)
	}
	if end > ent.Length {
		return "", errors.Errorf("end is past end of sequence %s: %d", seqName, ent.Length)
	}

	// Start the read at a byte offset allowing for the presence of newline
	// characters.
	charsPerNewline := ent.LineWidth - ent.LineBases
	offset := ent.Offset + start + charsPerNewline*(start/ent.LineBases)

	// Figure out how many characters (including newlines) we should read,
	// and read them.
	firstLineBases := ent.LineBases - (start % ent.LineBases)
	newlinesToRead := uint64(0)
	if end-start > firstLineBases {
		newlinesToRead = 1 + (end-start-firstLineBases-1)/ent.LineBases
	}
	capacity := end - start + newlinesToRead*charsPerNewline

	buffer, err := f.read(int64(offset), int(capacity))
	if err != nil {
		return "", err
	}

	// Traverse the bytes we just read and copy the non-newline characters
	// to the result.
	f.resizeBuf(&f.resultBuf, int(end-start))
	linePos := (offset - ent.Offset) % ent.LineWidth
	resultPos := 0
	for i := range buffer {
		if linePos < ent.LineBases {
			f.resultBuf[resultPos] = buffer[i]
			resultPos++
		}
		linePos++
		if linePos == ent.LineWidth {
			linePos = 0
		}
	}
	return string(f.resultBuf), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *indexedFasta) SeqNames() []string {
	return f.seqNames
}
