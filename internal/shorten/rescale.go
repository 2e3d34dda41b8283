package shorten

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/inodb/vibe-isoforms/internal/table"
)

// Segment is an exon or intron placed on the rescaled axis.
type Segment struct {
	Feature table.Feature
	// Span is the interval used for tiling. It differs from the feature's
	// coordinates for introns whose ends touch the flanking exons.
	Span Interval
	// Width is the rescaled width of the segment.
	Width int64
	// TouchStart and TouchEnd mark intron ends that sit on an exon boundary.
	TouchStart bool
	TouchEnd   bool
}

// Rescale lays out the segments of every transcript end to end. Within a
// transcript, segments are ordered by genomic start and end, and each
// transcript is shifted right by its offset. Segments of transcripts without
// an offset are returned unplaced.
func Rescale(segments []Segment, offsets map[string]int64, groupColumn string) []table.Feature {
	sorted := slices.Clone(segments)
	slices.SortStableFunc(sorted, func(a, b Segment) int {
		if c := cmp.Compare(a.Feature.Get(groupColumn), b.Feature.Get(groupColumn)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Span.Start, b.Span.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Span.End, b.Span.End)
	})

	out := make([]table.Feature, 0, len(sorted))
	cum := make(map[string]int64)
	for _, s := range sorted {
		f := s.Feature
		k := f.Get(groupColumn)
		offset, ok := offsets[k]
		if !ok {
			f.Rescaled = false
			out = append(out, f)
			continue
		}

		cum[k] += s.Width
		f.RescaledEnd = cum[k] + offset
		f.RescaledStart = f.RescaledEnd - s.Width + 1
		f.Rescaled = true

		if s.TouchStart {
			f.RescaledStart--
		}
		if s.TouchEnd {
			f.RescaledEnd++
		}
		out = append(out, f)
	}
	return out
}

// RescaleNested places features nested inside exons, such as CDS, UTRs and
// codons, at the same offsets within their rescaled parent exon. A CDS
// without a containing exon is an error; other feature types without one are
// returned unplaced.
func RescaleNested(nested, exons []table.Feature, groupColumn string) ([]table.Feature, error) {
	type exonKey struct {
		group, seqnames, strand string
	}
	byKey := make(map[exonKey][]table.Feature)
	for _, e := range exons {
		if !e.Rescaled {
			continue
		}
		k := exonKey{e.Get(groupColumn), e.Seqnames, e.Strand}
		byKey[k] = append(byKey[k], e)
	}

	out := make([]table.Feature, 0, len(nested))
	for _, f := range nested {
		group := f.Get(groupColumn)
		if group == "" {
			if f.Is(table.TypeCDS) {
				return nil, fmt.Errorf("%w: %s %s:%d-%d has no %s",
					ErrNoJoinKey, f.Type, f.Seqnames, f.Start, f.End, groupColumn)
			}
			f.Rescaled = false
			out = append(out, f)
			continue
		}

		parent, ok := parentExon(f, byKey[exonKey{group, f.Seqnames, f.Strand}])
		if !ok {
			if f.Is(table.TypeCDS) {
				return nil, fmt.Errorf("%w: %s %s:%d-%d in %s",
					ErrOrphanCDS, f.Type, f.Seqnames, f.Start, f.End, group)
			}
			f.Rescaled = false
			out = append(out, f)
			continue
		}

		diffStart := abs(parent.Start - f.Start)
		diffEnd := abs(parent.End - f.End)
		f.RescaledStart = parent.RescaledStart + diffStart
		f.RescaledEnd = parent.RescaledEnd - diffEnd
		f.Rescaled = true
		out = append(out, f)
	}
	return out, nil
}

// parentExon returns the exon containing f, preferring one with the same exon
// number when both carry one.
func parentExon(f table.Feature, exons []table.Feature) (table.Feature, bool) {
	var fallback table.Feature
	found := false
	for _, e := range exons {
		if !e.Contains(f) {
			continue
		}
		if f.ExonNumber.Valid && e.ExonNumber.Valid && e.ExonNumber == f.ExonNumber {
			return e, true
		}
		if !found {
			fallback, found = e, true
		}
	}
	return fallback, found
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
