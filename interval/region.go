package interval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// Entry represents a single interval on a named sequence, with 0-based
// half-open coordinates. End == 0 extends the interval to the end of the
// sequence.
type Entry struct {
	Name       string
	Start, End uint64
}

// String returns e in the 1-based closed form accepted by ParseRegion.
func (e Entry) String() string {
	if e.End == 0 {
		return e.Name
	}
	return fmt.Sprintf("%s:%d-%d", e.Name, e.Start+1, e.End)
}

// Clip limits e to a sequence of the given length. It returns false if
// nothing is left.
func (e Entry) Clip(length uint64) (Entry, bool) {
	if e.End == 0 || e.End > length {
		e.End = length
	}
	return e, e.Start < e.End
}

// ParseRegion parses a region string of one of the forms
//   [name]:[1-based first pos]-[last pos]
//   [name]:[1-based pos]
//   [name]
// Thousands separators are ignored. Sequence names may contain ':'; a suffix
// that does not start with a number is treated as part of the name.
func ParseRegion(region string) (Entry, error) {
	if len(region) == 0 {
		return Entry{}, errors.E(errors.Invalid, "empty region string")
	}
	colonPos := strings.LastIndexByte(region, ':')
	if colonPos == -1 {
		return Entry{Name: region}, nil
	}
	rangeStr := strings.Replace(region[colonPos+1:], ",", "", -1)
	start1Str, endStr := rangeStr, rangeStr
	if dashPos := strings.IndexByte(rangeStr, '-'); dashPos >= 0 {
		start1Str, endStr = rangeStr[:dashPos], rangeStr[dashPos+1:]
	}
	start1, err := strconv.ParseUint(start1Str, 10, 64)
	if err != nil {
		return Entry{Name: region}, nil
	}
	if colonPos == 0 {
		return Entry{}, errors.E(errors.Invalid, "empty sequence name in region", region)
	}
	end, err := strconv.ParseUint(endStr, 10, 64)
	if err != nil || start1 == 0 || end < start1 {
		return Entry{}, errors.E(errors.Invalid, "invalid range in region", region)
	}
	return Entry{Name: region[:colonPos], Start: start1 - 1, End: end}, nil
}
