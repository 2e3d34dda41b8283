package shorten

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/inodb/vibe-isoforms/internal/table"
)

// Interval is an inclusive genomic interval.
type Interval struct {
	Start int64
	End   int64
}

// Width returns the inclusive length of the interval.
func (iv Interval) Width() int64 {
	return iv.End - iv.Start + 1
}

// Contains reports whether o lies within iv.
func (iv Interval) Contains(o Interval) bool {
	return o.Start >= iv.Start && o.End <= iv.End
}

// Gaps merges overlapping exons of every transcript into blocks and returns
// the uncovered intervals between consecutive blocks, sorted by start.
// All exons must share one chromosome and strand.
func Gaps(exons []table.Feature) ([]Interval, error) {
	if err := checkRegion(exons); err != nil {
		return nil, err
	}

	sorted := slices.Clone(exons)
	slices.SortStableFunc(sorted, func(a, b table.Feature) int {
		return cmp.Compare(a.Start, b.Start)
	})

	// A block starts wherever an exon begins after the largest end seen so far.
	var blocks []Interval
	var cummax int64
	for i, e := range sorted {
		if i == 0 || e.Start > cummax {
			blocks = append(blocks, Interval{Start: e.Start, End: e.End})
		} else if last := &blocks[len(blocks)-1]; e.End > last.End {
			last.End = e.End
		}
		cummax = max(cummax, e.End)
	}

	var gaps []Interval
	for i := 1; i < len(blocks); i++ {
		g := Interval{Start: blocks[i-1].End + 1, End: blocks[i].Start - 1}
		if g.Start <= g.End {
			gaps = append(gaps, g)
		}
	}
	return gaps, nil
}

func checkRegion(exons []table.Feature) error {
	if len(exons) == 0 {
		return ErrNoExons
	}
	seqnames, strand := exons[0].Seqnames, exons[0].Strand
	for _, e := range exons[1:] {
		if e.Seqnames != seqnames || e.Strand != strand {
			return fmt.Errorf("%w: found %s%s and %s%s",
				ErrMixedRegion, seqnames, strand, e.Seqnames, e.Strand)
		}
	}
	return nil
}

// StartGap spans from the first exon start of the whole region to the first
// exon start of one transcript.
type StartGap struct {
	Transcript string
	Interval
}

// TranscriptStartGaps returns one start gap per transcript, in order of first
// appearance.
func TranscriptStartGaps(exons []table.Feature, groupColumn string) []StartGap {
	if len(exons) == 0 {
		return nil
	}

	globalStart := exons[0].Start
	firstStart := make(map[string]int64)
	var order []string
	for _, e := range exons {
		globalStart = min(globalStart, e.Start)
		k := e.Get(groupColumn)
		s, ok := firstStart[k]
		if !ok {
			order = append(order, k)
			firstStart[k] = e.Start
			continue
		}
		firstStart[k] = min(s, e.Start)
	}

	gaps := make([]StartGap, len(order))
	for i, k := range order {
		gaps[i] = StartGap{
			Transcript: k,
			Interval:   Interval{Start: globalStart, End: firstStart[k]},
		}
	}
	return gaps
}
