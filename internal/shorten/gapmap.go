package shorten

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/biogo/store/interval"
)

// GapHit pairs a reference gap index with an interval index.
type GapHit struct {
	Gap      int
	Interval int
}

// GapMap classifies intervals against the reference gaps.
type GapMap struct {
	// Equal holds intervals whose coordinates match a gap exactly.
	Equal []GapHit
	// PureWithin holds gaps strictly contained in an interval.
	PureWithin []GapHit
}

// gapNode is a reference gap stored in the interval tree using half-open
// coordinates.
type gapNode struct {
	start, end int
	id         uintptr
}

func (g gapNode) Overlap(b interval.IntRange) bool {
	return g.end > b.Start && g.start < b.End
}

func (g gapNode) ID() uintptr { return g.id }

func (g gapNode) Range() interval.IntRange {
	return interval.IntRange{Start: g.start, End: g.end}
}

// query is a half-open search window.
type query struct {
	start, end int
}

func (q query) Overlap(b interval.IntRange) bool {
	return b.End > q.start && b.Start < q.end
}

// MapGaps returns, for each interval, the gaps it equals and the gaps it
// strictly contains. An interval that equals a gap is not reported as
// containing it.
func MapGaps(intervals, gaps []Interval) (GapMap, error) {
	var gm GapMap
	if len(gaps) == 0 || len(intervals) == 0 {
		return gm, nil
	}

	tree := &interval.IntTree{}
	for i, g := range gaps {
		n := gapNode{start: int(g.Start), end: int(g.End) + 1, id: uintptr(i)}
		if err := tree.Insert(n, true); err != nil {
			return GapMap{}, fmt.Errorf("index gap %d-%d: %w", g.Start, g.End, err)
		}
	}
	tree.AdjustRanges()

	for j, iv := range intervals {
		if iv.Start > iv.End {
			continue
		}
		var ids []int
		for _, hit := range tree.Get(query{start: int(iv.Start), end: int(iv.End) + 1}) {
			ids = append(ids, int(hit.ID()))
		}
		slices.Sort(ids)

		for _, i := range ids {
			g := gaps[i]
			switch {
			case g == iv:
				gm.Equal = append(gm.Equal, GapHit{Gap: i, Interval: j})
			case iv.Contains(g):
				gm.PureWithin = append(gm.PureWithin, GapHit{Gap: i, Interval: j})
			}
		}
	}

	slices.SortFunc(gm.Equal, func(a, b GapHit) int {
		if c := cmp.Compare(a.Gap, b.Gap); c != 0 {
			return c
		}
		return cmp.Compare(a.Interval, b.Interval)
	})
	return gm, nil
}

// ShortenWidths returns the shortened width of every interval. Intervals that
// equal a gap wider than target shrink to target. Intervals containing gaps
// lose the width removed from each contained gap. All others keep their
// width.
func ShortenWidths(intervals, gaps []Interval, gm GapMap, target int64) []int64 {
	widths := make([]int64, len(intervals))
	for i, iv := range intervals {
		widths[i] = iv.Width()
	}

	for _, h := range gm.Equal {
		if widths[h.Interval] > target {
			widths[h.Interval] = target
		}
	}

	removed := make(map[int]int64)
	for _, h := range gm.PureWithin {
		gw := gaps[h.Gap].Width()
		removed[h.Interval] += gw - min(gw, target)
	}
	for i, d := range removed {
		widths[i] = intervals[i].Width() - d
	}
	return widths
}
