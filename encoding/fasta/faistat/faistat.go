// Package faistat summarizes the sequence lengths recorded in a FASTA index.
package faistat

import (
	"fmt"
	"io"
	"sort"

	"github.com/grailbio/faidx/encoding/fasta"
	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/stat"
)

// Stats describes the length distribution of the sequences in an index.
type Stats struct {
	// Count is the number of sequences; Degenerate counts those with no
	// bases.
	Count, Degenerate int
	// Total is the sum of all sequence lengths.
	Total uint64
	// Min and Max are the extreme sequence lengths.
	Min, Max uint64
	// Mean and StdDev of the sequence lengths.
	Mean, StdDev float64
	// N50 and N90 are the lengths L such that sequences of length >= L cover
	// 50% (resp. 90%) of all bases.
	N50, N90 uint64
	// AuN is the area under the Nx curve, sum(len^2)/sum(len).
	AuN float64
}

// Compute summarizes entries.
func Compute(entries []fasta.Entry) Stats {
	var s Stats
	if len(entries) == 0 {
		return s
	}
	lengths := make([]uint64, len(entries))
	xs := make([]float64, len(entries))
	var sumSq float64
	s.Min = entries[0].Length
	for i, e := range entries {
		lengths[i], xs[i] = e.Length, float64(e.Length)
		s.Total += e.Length
		sumSq += xs[i] * xs[i]
		if e.Length == 0 {
			s.Degenerate++
		}
		if e.Length < s.Min {
			s.Min = e.Length
		}
		if e.Length > s.Max {
			s.Max = e.Length
		}
	}
	s.Count = len(entries)
	s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
	if s.Count == 1 {
		s.StdDev = 0
	}
	if s.Total > 0 {
		s.AuN = sumSq / float64(s.Total)
	}
	sort.Slice(lengths, func(i, j int) bool { return lengths[i] > lengths[j] })
	s.N50 = nx(lengths, s.Total, 50)
	s.N90 = nx(lengths, s.Total, 90)
	return s
}

// nx returns the Nx statistic of lengths, which must be sorted in decreasing
// order.
func nx(lengths []uint64, total uint64, x uint64) uint64 {
	var cum uint64
	for _, l := range lengths {
		cum += l
		if cum*100 >= total*x {
			return l
		}
	}
	return 0
}

// Write prints s in a human-readable layout.
func (s Stats) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "sequences\t%d\ndegenerate\t%d\nbases\t%d\nmin\t%d\nmax\t%d\nmean\t%.2f\nstddev\t%.2f\nN50\t%d\nN90\t%d\nauN\t%.2f\n",
		s.Count, s.Degenerate, s.Total, s.Min, s.Max, s.Mean, s.StdDev, s.N50, s.N90, s.AuN)
	return err
}

// Plot renders the sequence lengths, in file order, as an ASCII chart of the
// given height. It returns "" if there is nothing to plot.
func Plot(entries []fasta.Entry, height int) string {
	if len(entries) == 0 {
		return ""
	}
	data := make([]float64, len(entries))
	for i, e := range entries {
		data[i] = float64(e.Length)
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Precision(0),
		asciigraph.Caption(fmt.Sprintf("sequence length (%d sequences)", len(entries))))
}
