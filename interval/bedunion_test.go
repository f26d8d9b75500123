package interval

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

const testBED = `track name=test
chr1	10	20
chr1	15	30
chr1	30	35
chr1	40	40
chr1	50	60
# comment
chr2	0	5
chr3	7	7
`

func TestLoadSortedBEDIntervals(t *testing.T) {
	u, err := NewBEDUnion(strings.NewReader(testBED), NewBEDOpts{})
	assert.NoError(t, err)
	expect.EQ(t, u.Entries(), []Entry{
		{Name: "chr1", Start: 10, End: 35},
		{Name: "chr1", Start: 50, End: 60},
		{Name: "chr2", Start: 0, End: 5},
	})
	expect.EQ(t, u.Bases(), uint64(40))
	expect.EQ(t, u.names, []string{"chr1", "chr2", "chr3"})

	u, err = NewBEDUnion(strings.NewReader("chr1\t11\t20\n"), NewBEDOpts{OneBasedInput: true})
	assert.NoError(t, err)
	expect.EQ(t, u.Entries(), []Entry{{Name: "chr1", Start: 10, End: 20}})
}

func TestContains(t *testing.T) {
	u, err := NewBEDUnion(strings.NewReader(testBED), NewBEDOpts{})
	assert.NoError(t, err)
	for _, tt := range []struct {
		name string
		pos  uint64
		want bool
	}{
		{"chr1", 9, false},
		{"chr1", 10, true},
		{"chr1", 34, true},
		{"chr1", 35, false},
		{"chr1", 59, true},
		{"chr1", 60, false},
		{"chr2", 0, true},
		{"chr3", 7, false},
		{"chrX", 0, false},
	} {
		expect.EQ(t, u.Contains(tt.name, tt.pos), tt.want, "%s:%d", tt.name, tt.pos)
	}
}

func TestLoadInvalidBED(t *testing.T) {
	for _, bed := range []string{
		"chr1\t10\n",
		"chr1\t20\t10\n",
		"chr1\tx\t10\n",
		"chr1\t10\t20\nchr2\t0\t5\nchr1\t30\t40\n",
		"chr1\t10\t20\nchr1\t5\t8\n",
	} {
		_, err := NewBEDUnion(strings.NewReader(bed), NewBEDOpts{})
		expect.HasSubstr(t, err.Error(), "BED", "bed %q", bed)
	}
	_, err := NewBEDUnion(strings.NewReader("chr1\t0\t10\n"), NewBEDOpts{OneBasedInput: true})
	expect.Regexp(t, err, "out of range")
}

func TestNewBEDUnionFromPath(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	path := filepath.Join(tmpdir, "test.bed.gz")
	f, err := os.Create(path)
	assert.NoError(t, err)
	w := gzip.NewWriter(f)
	_, err = w.Write([]byte(testBED))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, f.Close())

	u, err := NewBEDUnionFromPath(ctx, path, NewBEDOpts{})
	assert.NoError(t, err)
	expect.EQ(t, len(u.Entries()), 3)

	_, err = NewBEDUnionFromPath(ctx, filepath.Join(tmpdir, "missing.bed"), NewBEDOpts{})
	expect.Regexp(t, err, "open BED")
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		region string
		want   Entry
		err    bool
	}{
		{"chr1:1-1000", Entry{Name: "chr1", Start: 0, End: 1000}, false},
		{"chr1:1000", Entry{Name: "chr1", Start: 999, End: 1000}, false},
		{"chr1", Entry{Name: "chr1"}, false},
		{"chr1:1,000-2,000", Entry{Name: "chr1", Start: 999, End: 2000}, false},
		{"HLA:A*01", Entry{Name: "HLA:A*01"}, false},
		{"", Entry{}, true},
		{":1-5", Entry{}, true},
		{"chr1:5-x", Entry{}, true},
		{"chr1:0-4", Entry{}, true},
		{"chr1:5-4", Entry{}, true},
	}
	for _, tt := range tests {
		result, err := ParseRegion(tt.region)
		if tt.err {
			expect.NotNil(t, err, tt.region)
			continue
		}
		expect.NoError(t, err, tt.region)
		expect.EQ(t, result, tt.want)
	}
	expect.EQ(t, Entry{Name: "chr1", Start: 1, End: 4}.String(), "chr1:2-4")
	expect.EQ(t, Entry{Name: "chr1"}.String(), "chr1")
}

func TestClip(t *testing.T) {
	e, ok := Entry{Name: "s", Start: 2}.Clip(10)
	expect.True(t, ok)
	expect.EQ(t, e, Entry{Name: "s", Start: 2, End: 10})
	e, ok = Entry{Name: "s", Start: 2, End: 100}.Clip(10)
	expect.True(t, ok)
	expect.EQ(t, e.End, uint64(10))
	_, ok = Entry{Name: "s", Start: 10, End: 12}.Clip(10)
	expect.False(t, ok)
}
