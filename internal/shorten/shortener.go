package shorten

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/inodb/vibe-isoforms/internal/table"
	"github.com/inodb/vibe-isoforms/internal/transcript"
)

// Shortener rescales transcript annotations of one chromosome and strand.
type Shortener struct {
	opts   Options
	logger *zap.Logger
}

// NewShortener creates a shortener with the given options.
func NewShortener(opts Options) *Shortener {
	return &Shortener{
		opts:   opts,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for debug and warning messages.
func (s *Shortener) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Shorten returns a copy of t with rescaled_start and rescaled_end columns.
//
// Gaps between the merged exons of all transcripts are shortened to at most
// the target gap width; exon and CDS widths are preserved. Existing intron
// rows are reused, otherwise introns are inferred from the exons. Rows are
// returned grouped by transcript in order of first appearance in t, and by
// start and end within a transcript.
func (s *Shortener) Shorten(t *table.Table) (*table.Table, error) {
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}
	col := s.opts.TranscriptIDColumn
	if err := t.Require(table.ColStart, table.ColEnd, table.ColType, table.ColStrand, table.ColSeqnames, col); err != nil {
		return nil, err
	}

	gaps, err := Gaps(t.OfType(table.TypeExon))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("discovered gaps",
		zap.Int("exons", len(t.OfType(table.TypeExon))),
		zap.Int("gaps", len(gaps)))

	order := t.Unique(col)

	if t.HasType(table.TypeIntron) {
		s.logger.Debug("reusing introns from annotation")
	} else {
		if t, err = transcript.ToIntron(t, col); err != nil {
			return nil, fmt.Errorf("infer introns: %w", err)
		}
	}

	exons := t.OfType(table.TypeExon)
	segments := make([]Segment, 0, t.Len())
	for _, e := range exons {
		segments = append(segments, Segment{
			Feature: e,
			Span:    Interval{Start: e.Start, End: e.End},
			Width:   e.Width(),
		})
	}

	introns := intronSegments(t.OfType(table.TypeIntron), exons, col)
	spans := make([]Interval, len(introns))
	for i, seg := range introns {
		spans[i] = seg.Span
	}
	gm, err := MapGaps(spans, gaps)
	if err != nil {
		return nil, err
	}
	widths := ShortenWidths(spans, gaps, gm, s.opts.TargetGapWidth)
	for i := range introns {
		introns[i].Width = widths[i]
	}
	segments = append(segments, introns...)
	s.logger.Debug("shortened introns",
		zap.Int("introns", len(introns)),
		zap.Int("equal", len(gm.Equal)),
		zap.Int("pure_within", len(gm.PureWithin)))

	offsets, err := s.startOffsets(exons, gaps)
	if err != nil {
		return nil, err
	}

	placed := Rescale(segments, offsets, col)
	for _, f := range placed {
		if !f.Rescaled {
			s.logger.Warn("feature has no exons in its transcript",
				zap.String(col, f.Get(col)),
				zap.String("type", f.Type),
				zap.Int64("start", f.Start),
				zap.Int64("end", f.End))
		}
	}

	var placedExons []table.Feature
	for _, f := range placed {
		if f.Is(table.TypeExon) {
			placedExons = append(placedExons, f)
		}
	}
	nested, err := RescaleNested(t.Filter(func(f table.Feature) bool {
		return !f.Is(table.TypeExon) && !f.Is(table.TypeIntron)
	}).Rows(), placedExons, col)
	if err != nil {
		return nil, err
	}

	rows := append(placed, nested...)
	rank := make(map[string]int, len(order))
	for i, k := range order {
		rank[k] = i
	}
	slices.SortStableFunc(rows, func(a, b table.Feature) int {
		if c := cmp.Compare(rank[a.Get(col)], rank[b.Get(col)]); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})

	return t.WithRows(rows, table.ColRescaledStart, table.ColRescaledEnd), nil
}

// startOffsets shortens each transcript's start gap and returns its width,
// keyed by transcript.
func (s *Shortener) startOffsets(exons []table.Feature, gaps []Interval) (map[string]int64, error) {
	startGaps := TranscriptStartGaps(exons, s.opts.TranscriptIDColumn)
	spans := make([]Interval, len(startGaps))
	for i, g := range startGaps {
		spans[i] = g.Interval
	}
	gm, err := MapGaps(spans, gaps)
	if err != nil {
		return nil, err
	}
	widths := ShortenWidths(spans, gaps, gm, s.opts.TargetGapWidth)

	offsets := make(map[string]int64, len(startGaps))
	for i, g := range startGaps {
		offsets[g.Transcript] = widths[i]
	}
	return offsets, nil
}

// intronSegments narrows introns whose ends sit on a flanking exon boundary so
// that every intron tiles the space strictly between its exons.
func intronSegments(introns, exons []table.Feature, groupColumn string) []Segment {
	type boundary struct {
		group string
		pos   int64
	}
	exonEnds := make(map[boundary]bool)
	exonStarts := make(map[boundary]bool)
	for _, e := range exons {
		k := e.Get(groupColumn)
		exonEnds[boundary{k, e.End}] = true
		exonStarts[boundary{k, e.Start}] = true
	}

	segments := make([]Segment, len(introns))
	for i, f := range introns {
		k := f.Get(groupColumn)
		seg := Segment{
			Feature:    f,
			Span:       Interval{Start: f.Start, End: f.End},
			TouchStart: exonEnds[boundary{k, f.Start}],
			TouchEnd:   exonStarts[boundary{k, f.End}],
		}
		if seg.TouchStart {
			seg.Span.Start++
		}
		if seg.TouchEnd {
			seg.Span.End--
		}
		seg.Width = seg.Span.Width()
		segments[i] = seg
	}
	return segments
}
