package fasta

import (
	"bufio"
	"bytes"
	"context"
	goerrors "errors"
	"io"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

const defaultBufferSize = 64 * 1024

// ErrEmpty is reported by IndexScanner.Err when the input holds no record
// marker at all.
var ErrEmpty = errors.E(errors.Invalid, "empty FASTA file")

var errEOF = goerrors.New("eof")

type opts struct {
	base               uint64
	continueOnMismatch bool
	trailingBlankLines int
	bufferSize         int
}

// Opt configures an IndexScanner.
type Opt func(*opts)

// OptBaseOffset tells the scanner that its reader is positioned at byte n of
// the underlying file, so that offsets are reported relative to the start of
// the file rather than the start of the reader.
func OptBaseOffset(n uint64) Opt {
	return func(o *opts) { o.base = n }
}

// OptContinueOnMismatch makes the scanner skip records with inconsistent line
// widths instead of stopping. Skipped records are reported by Anomalies.
func OptContinueOnMismatch() Opt {
	return func(o *opts) { o.continueOnMismatch = true }
}

// OptTrailingBlankLines sets the number of blank lines tolerated at the end
// of a sequence body. A negative value (the default) tolerates any number.
func OptTrailingBlankLines(n int) Opt {
	return func(o *opts) { o.trailingBlankLines = n }
}

// OptBufferSize sets the size of the read buffer. Lines longer than the
// buffer are consumed in pieces and never held in memory as a whole.
func OptBufferSize(n int) Opt {
	return func(o *opts) { o.bufferSize = n }
}

func parseOpts(optList []Opt) opts {
	o := opts{trailingBlankLines: -1, bufferSize: defaultBufferSize}
	for _, opt := range optList {
		opt(&o)
	}
	if o.bufferSize < 16 {
		o.bufferSize = 16
	}
	return o
}

// LeadingOffset returns the number of bytes that precede the first '>' in r.
// It returns 0 if r starts with '>', and the length of r if r contains no
// '>'. If r is an io.Seeker, its read position is restored before
// returning.
func LeadingOffset(r io.Reader) (int64, error) {
	var (
		seeker, seekable = r.(io.Seeker)
		start            int64
		err              error
	)
	if seekable {
		if start, err = seeker.Seek(0, io.SeekCurrent); err != nil {
			return 0, err
		}
	}
	n, _, _, err := skipToMarker(bufio.NewReaderSize(r, defaultBufferSize))
	if seekable {
		if _, e := seeker.Seek(start, io.SeekStart); e != nil && err == nil {
			err = e
		}
	}
	return n, err
}

// LeadingOffsetPath is LeadingOffset for the file at path.
func LeadingOffsetPath(ctx context.Context, path string) (n int64, err error) {
	f, err := openSource(ctx, path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if e := f.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	return LeadingOffset(f.Reader(ctx))
}

// skipToMarker discards the bytes that precede the next '>', leaving the
// marker itself unread. It reports the number of bytes discarded, the number
// of newlines among them, and whether a marker was found.
func skipToMarker(r *bufio.Reader) (n int64, newlines int, found bool, err error) {
	for {
		if _, err = r.Peek(1); err != nil {
			if err == io.EOF {
				err = nil
			}
			return
		}
		buf, _ := r.Peek(r.Buffered())
		i := bytes.IndexByte(buf, '>')
		if i >= 0 {
			buf = buf[:i]
		}
		newlines += bytes.Count(buf, []byte{'\n'})
		n += int64(len(buf))
		if _, err = r.Discard(len(buf)); err != nil {
			return
		}
		if i >= 0 {
			found = true
			return
		}
	}
}

func openSource(ctx context.Context, path string) (file.File, error) {
	f, err := file.Open(ctx, path)
	if err == nil {
		return f, nil
	}
	if errors.Is(errors.NotExist, err) || goerrors.Is(err, os.ErrNotExist) {
		return nil, errors.E(errors.NotExist, err, "open FASTA", path)
	}
	return nil, errors.E(errors.Unavailable, err, "open FASTA", path)
}

type scanState int

const (
	stateLeading scanState = iota
	stateRecord
	stateEnd
)

// IndexScanner reads a FASTA stream once and produces one Entry per record,
// in file order. Scanners are not threadsafe.
//
// Records whose header carries no name are consumed but not produced; they
// are counted by Skipped and listed by Anomalies. A record whose sequence
// lines are not of uniform width stops the scan with a *LineWidthError,
// since no later offset can be trusted; OptContinueOnMismatch turns this
// into a skip.
type IndexScanner struct {
	r       *bufio.Reader
	closeFn func() error
	opts    opts
	state   scanState
	err     error

	// pos is the running byte count; line is the 1-based number of the line
	// that starts at pos.
	pos  uint64
	line int
	eof  bool

	name      []byte
	skipped   int
	anomalies []error
}

// NewIndexScanner creates a scanner that reads FASTA data from r. The caller
// retains ownership of r.
func NewIndexScanner(r io.Reader, optList ...Opt) *IndexScanner {
	o := parseOpts(optList)
	return &IndexScanner{
		r:    bufio.NewReaderSize(r, o.bufferSize),
		opts: o,
		pos:  o.base,
		line: 1,
	}
}

// OpenIndexScanner creates a scanner over the file at path. The file is
// closed when the scan ends or when Close is called, whichever comes first.
func OpenIndexScanner(ctx context.Context, path string, optList ...Opt) (*IndexScanner, error) {
	f, err := openSource(ctx, path)
	if err != nil {
		return nil, err
	}
	s := NewIndexScanner(f.Reader(ctx), optList...)
	s.closeFn = func() error { return f.Close(ctx) }
	return s, nil
}

// Scan reads the next record into e. Scan returns false once the stream is
// exhausted or an error occurs, and never returns true again. The caller
// should then check Err.
func (s *IndexScanner) Scan(e *Entry) bool {
	for s.err == nil {
		switch s.state {
		case stateLeading:
			n, newlines, found, err := skipToMarker(s.r)
			s.pos += uint64(n)
			s.line += newlines
			switch {
			case err != nil:
				s.fail(err)
			case !found:
				s.fail(ErrEmpty)
			default:
				if n > 0 {
					log.Debug.Printf("fasta: skipped %d leading bytes", n)
				}
				s.state = stateRecord
			}
		case stateRecord:
			if s.eof {
				s.state = stateEnd
				continue
			}
			emitted, err := s.scanRecord(e)
			if err != nil {
				s.fail(err)
				continue
			}
			if emitted {
				return true
			}
		case stateEnd:
			s.fail(errEOF)
		}
	}
	return false
}

// Err returns the error that stopped the scan, or nil if the scan reached
// the end of the stream.
func (s *IndexScanner) Err() error {
	if s.err == errEOF {
		return nil
	}
	return s.err
}

// Skipped returns the number of records that were consumed but not
// produced by Scan.
func (s *IndexScanner) Skipped() int { return s.skipped }

// Anomalies returns every *EmptyNameError and *LineWidthError encountered so
// far, in stream order.
func (s *IndexScanner) Anomalies() []error { return s.anomalies }

// BytesRead returns the number of bytes consumed so far, including the base
// offset.
func (s *IndexScanner) BytesRead() uint64 { return s.pos }

// Close releases the underlying file if the scanner opened it. It is safe to
// call Close more than once, and after the scan has ended. Closing a scan
// that has not ended stops it without an error: Err then returns nil, as
// after a clean end of stream, so callers that abandon a scan must track
// that themselves.
func (s *IndexScanner) Close() error {
	if s.err == nil {
		s.err = errEOF
	}
	return s.release()
}

func (s *IndexScanner) fail(err error) {
	s.err = err
	s.state = stateEnd
	if e := s.release(); e != nil && s.err == errEOF {
		s.err = e
	}
}

func (s *IndexScanner) release() error {
	if s.closeFn == nil {
		return nil
	}
	closeFn := s.closeFn
	s.closeFn = nil
	return closeFn()
}

// scanRecord consumes one record. The reader must be positioned at the '>'
// that opens the record's header line.
func (s *IndexScanner) scanRecord(e *Entry) (bool, error) {
	var (
		headerOffset = s.pos
		headerLine   = s.line
		g            = geometry{maxBlank: s.opts.trailingBlankLines}
	)
	s.name = s.name[:0]
	inName, marker := true, true
	if _, err := s.readLine(func(frag []byte) {
		if marker {
			frag, marker = frag[1:], false
		}
		if !inName {
			return
		}
		if i := indexSpace(frag); i >= 0 {
			frag, inName = frag[:i], false
		}
		s.name = append(s.name, frag...)
	}); err != nil {
		return false, err
	}
	offset := s.pos
	for !s.eof {
		b, err := s.r.Peek(1)
		if err == io.EOF {
			s.eof = true
			break
		}
		if err != nil {
			return false, err
		}
		if b[0] == '>' {
			break
		}
		var (
			lineOffset = s.pos
			lineNum    = s.line
			residues   uint64
		)
		ln, err := s.readLine(func(frag []byte) {
			residues += countResidues(frag)
		})
		if err != nil {
			return false, err
		}
		ln.residues = residues
		if mismatch := g.add(ln, lineNum, lineOffset); mismatch != nil {
			if done, err := s.mismatch(mismatch); done {
				return false, err
			}
		}
	}
	if mismatch := g.finish(); mismatch != nil {
		if done, err := s.mismatch(mismatch); done {
			return false, err
		}
	}
	if g.bad {
		s.skipped++
		return false, nil
	}
	if len(s.name) == 0 {
		s.anomalies = append(s.anomalies, &EmptyNameError{Line: headerLine, Offset: headerOffset})
		s.skipped++
		log.Error.Printf("fasta: skipping record with empty name at line %d", headerLine)
		return false, nil
	}
	*e = Entry{
		Name:         string(s.name),
		Length:       g.length,
		Offset:       offset,
		LineBases:    g.lineBases,
		LineWidth:    g.lineWidth,
		HeaderOffset: headerOffset,
		End:          s.pos,
	}
	return true, nil
}

// mismatch records a line width anomaly for the current record. It returns
// true if scanning must stop.
func (s *IndexScanner) mismatch(m *LineWidthError) (bool, error) {
	m.Name = string(s.name)
	s.anomalies = append(s.anomalies, m)
	if !s.opts.continueOnMismatch {
		return true, m
	}
	log.Error.Printf("%v; skipping record", m)
	return false, nil
}

type lineInfo struct {
	width      uint64 // bytes, including the terminator
	bases      uint64 // bytes, excluding the terminator
	residues   uint64 // non-whitespace bytes
	terminated bool
}

// readLine consumes one line, passing it to fn in pieces no larger than the
// read buffer, and advances the running counters. It sets s.eof if the
// stream ends before or at the end of the line.
func (s *IndexScanner) readLine(fn func([]byte)) (ln lineInfo, err error) {
	var prev byte
	for {
		frag, e := s.r.ReadSlice('\n')
		n := len(frag)
		ln.width += uint64(n)
		s.pos += uint64(n)
		if n > 0 {
			fn(frag)
		}
		switch e {
		case bufio.ErrBufferFull:
			prev = frag[n-1]
			continue
		case nil:
			ln.terminated = true
			s.line++
			term := uint64(1)
			if (n >= 2 && frag[n-2] == '\r') || (n == 1 && prev == '\r') {
				term = 2
			}
			ln.bases = ln.width - term
		case io.EOF:
			s.eof = true
			ln.bases = ln.width
			if n > 0 && frag[n-1] == '\r' || n == 0 && prev == '\r' {
				ln.bases--
			}
		default:
			err = e
		}
		return
	}
}

// geometry tracks the line layout of one sequence body.
type geometry struct {
	maxBlank int

	lineBases, lineWidth uint64 // taken from the first line with bases
	length               uint64
	lines                int // lines with bases
	bad                  bool

	// Pending run of blank lines; they are only an error if more bases follow.
	blank       int
	blankLine   int
	blankOffset uint64
	blankWidth  uint64
	// Position of the (maxBlank+1)th blank line of the current run.
	excessLine   int
	excessOffset uint64
	excessWidth  uint64

	// A line that differs from the reference must be the last one.
	short       bool
	shortLine   int
	shortOffset uint64
	shortWidth  uint64
	shortBases  uint64
}

func (g *geometry) add(ln lineInfo, line int, offset uint64) *LineWidthError {
	if g.bad {
		return nil
	}
	if ln.residues == 0 {
		if g.blank == 0 {
			g.blankLine, g.blankOffset, g.blankWidth = line, offset, ln.width
		}
		if g.blank == g.maxBlank {
			g.excessLine, g.excessOffset, g.excessWidth = line, offset, ln.width
		}
		g.blank++
		return nil
	}
	g.length += ln.residues
	if ln.residues != ln.bases {
		// Whitespace among the bases.
		want, wantBases := g.lineWidth, g.lineBases
		if g.lines == 0 {
			want, wantBases = ln.width, ln.bases
		}
		return g.fail(line, offset, want, ln.width, wantBases, ln.residues)
	}
	if g.lines == 0 {
		g.lines++
		g.lineBases, g.lineWidth = ln.bases, ln.width
		if g.blank > 0 {
			return g.fail(g.blankLine, g.blankOffset, ln.width, g.blankWidth, ln.bases, 0)
		}
		return nil
	}
	g.lines++
	switch {
	case g.short:
		return g.fail(g.shortLine, g.shortOffset, g.lineWidth, g.shortWidth, g.lineBases, g.shortBases)
	case g.blank > 0:
		return g.fail(g.blankLine, g.blankOffset, g.lineWidth, g.blankWidth, g.lineBases, 0)
	case ln.bases > g.lineBases:
		return g.fail(line, offset, g.lineWidth, ln.width, g.lineBases, ln.bases)
	case ln.bases < g.lineBases || ln.width != g.lineWidth:
		g.short = true
		g.shortLine, g.shortOffset = line, offset
		g.shortWidth, g.shortBases = ln.width, ln.bases
	}
	return nil
}

// finish applies the trailing blank line policy once the body has ended.
func (g *geometry) finish() *LineWidthError {
	if g.bad || g.maxBlank < 0 || g.blank <= g.maxBlank {
		return nil
	}
	return g.fail(g.excessLine, g.excessOffset, g.lineWidth, g.excessWidth, g.lineBases, 0)
}

func (g *geometry) fail(line int, offset, want, got, wantBases, gotBases uint64) *LineWidthError {
	g.bad = true
	return &LineWidthError{Line: line, Offset: offset, Want: want, Got: got, WantBases: wantBases, GotBases: gotBases}
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func indexSpace(b []byte) int {
	for i, c := range b {
		if isSpace(c) {
			return i
		}
	}
	return -1
}

func countResidues(b []byte) (n uint64) {
	for _, c := range b {
		if !isSpace(c) {
			n++
		}
	}
	return
}
