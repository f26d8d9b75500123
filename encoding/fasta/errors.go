package fasta

import "fmt"

// EmptyNameError reports a record whose header line has no name. The
// record's bytes are consumed but no Entry is produced for it.
type EmptyNameError struct {
	// Line is the 1-based line number of the header.
	Line int
	// Offset is the byte position of the header's '>'.
	Offset uint64
}

func (e *EmptyNameError) Error() string {
	return fmt.Sprintf("fasta: record at line %d (byte %d) has an empty name", e.Line, e.Offset)
}

// LineWidthError reports a sequence line whose width or base count differs
// from the first line of its record, where only the final line may be
// narrower. A line holding whitespace between its bases is also reported,
// since the index cannot address it. Offsets of
// records that follow it cannot be trusted.
type LineWidthError struct {
	// Name of the offending record.
	Name string
	// Line is the 1-based line number of the offending line.
	Line int
	// Offset is the byte position at which the line starts.
	Offset uint64
	// Want and Got are line widths in bytes, terminators included.
	Want, Got uint64
	// WantBases and GotBases are the corresponding base counts. Lines of
	// equal width may still differ here, e.g. when terminators are mixed.
	WantBases, GotBases uint64
}

func (e *LineWidthError) Error() string {
	return fmt.Sprintf("fasta: sequence %s: line %d (byte %d) has %d bases in %d bytes, expected %d bases in %d bytes",
		e.Name, e.Line, e.Offset, e.GotBases, e.Got, e.WantBases, e.Want)
}
