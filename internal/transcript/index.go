// Package transcript provides per-transcript structure bookkeeping: exon
// numbering and intron inference.
package transcript

import (
	"sort"

	"github.com/inodb/vibe-isoforms/internal/table"
)

// exonIndex answers overlap and flanking-exon queries for the exons of one
// transcript using a sorted slice and a running maximum of exon ends.
type exonIndex struct {
	exons  []numberedExon
	maxEnd []int64 // maxEnd[i] = max(end) for exons[:i+1]
}

type numberedExon struct {
	start  int64
	end    int64
	strand string
	number table.ExonNumber
}

func buildExonIndex(exons []numberedExon) *exonIndex {
	sorted := make([]numberedExon, len(exons))
	copy(sorted, exons)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].start < sorted[j].start
	})

	maxEnd := make([]int64, len(sorted))
	for i, e := range sorted {
		maxEnd[i] = e.end
		if i > 0 && maxEnd[i-1] > maxEnd[i] {
			maxEnd[i] = maxEnd[i-1]
		}
	}
	return &exonIndex{exons: sorted, maxEnd: maxEnd}
}

// minOverlapping returns the smallest exon number among exons overlapping
// [start, end], or a null number when none overlap.
func (x *exonIndex) minOverlapping(start, end int64) table.ExonNumber {
	// Candidates are exons starting at or before end.
	hi := sort.Search(len(x.exons), func(i int) bool {
		return x.exons[i].start > end
	})

	var best table.ExonNumber
	for i := hi - 1; i >= 0; i-- {
		// No exon in exons[:i+1] reaches start.
		if x.maxEnd[i] < start {
			break
		}
		e := x.exons[i]
		if e.end < start || !e.number.Valid {
			continue
		}
		if !best.Valid || e.number.Value < best.Value {
			best = e.number
		}
	}
	return best
}

// preceding returns the number of the same-strand exon with the largest end
// not after pos. Ties resolve to the smallest exon number.
func (x *exonIndex) preceding(pos int64, strand string) table.ExonNumber {
	var best table.ExonNumber
	var bestEnd int64
	found := false
	for _, e := range x.exons {
		if e.strand != strand || e.end > pos {
			continue
		}
		if !found || e.end > bestEnd || (e.end == bestEnd && lessNumber(e.number, best)) {
			best, bestEnd, found = e.number, e.end, true
		}
	}
	return best
}

// following returns the number of the same-strand exon with the smallest
// start not before pos. Ties resolve to the smallest exon number.
func (x *exonIndex) following(pos int64, strand string) table.ExonNumber {
	lo := sort.Search(len(x.exons), func(i int) bool {
		return x.exons[i].start >= pos
	})

	var best table.ExonNumber
	var bestStart int64
	found := false
	for _, e := range x.exons[lo:] {
		if e.strand != strand {
			continue
		}
		if found && e.start > bestStart {
			break
		}
		if !found || lessNumber(e.number, best) {
			best, bestStart, found = e.number, e.start, true
		}
	}
	return best
}

func lessNumber(a, b table.ExonNumber) bool {
	if !a.Valid {
		return false
	}
	return !b.Valid || a.Value < b.Value
}
