// Package table provides the schema-checked feature table shared by every
// pipeline stage.
package table

import (
	"maps"
	"math"
	"strconv"
)

// Core column names.
const (
	ColSeqnames      = "seqnames"
	ColStart         = "start"
	ColEnd           = "end"
	ColStrand        = "strand"
	ColType          = "type"
	ColExonNumber    = "exon_number"
	ColRescaledStart = "rescaled_start"
	ColRescaledEnd   = "rescaled_end"

	DefaultTranscriptIDColumn = "transcript_id"
)

// Feature types understood by the pipeline. Any other value is passed through.
const (
	TypeExon   = "exon"
	TypeCDS    = "CDS"
	TypeIntron = "intron"
)

// Strand values.
const (
	StrandForward = "+"
	StrandReverse = "-"
)

// ExonNumber is a nullable exon ordinal. Introns carry half-integral values
// that sort between their flanking exons.
type ExonNumber struct {
	Value float64
	Valid bool
}

// IntExonNumber returns a valid, integral exon number.
func IntExonNumber(n int) ExonNumber {
	return ExonNumber{Value: float64(n), Valid: true}
}

// ParseExonNumber parses an exon number. Empty, "NA" and "." are null.
func ParseExonNumber(s string) (ExonNumber, error) {
	switch s {
	case "", "NA", ".", "null":
		return ExonNumber{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ExonNumber{}, err
	}
	return ExonNumber{Value: v, Valid: true}, nil
}

// String formats integral numbers without a fraction and null as "NA".
func (n ExonNumber) String() string {
	if !n.Valid {
		return "NA"
	}
	if n.Value == math.Trunc(n.Value) {
		return strconv.FormatInt(int64(n.Value), 10)
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// Feature is a single annotation row.
type Feature struct {
	Seqnames   string
	Start      int64 // 1-based
	End        int64 // 1-based, inclusive
	Strand     string
	Type       string
	ExonNumber ExonNumber

	// Rescaled coordinates are only meaningful when Rescaled is set.
	RescaledStart int64
	RescaledEnd   int64
	Rescaled      bool

	// Attrs holds every non-core column. Treat as read-only; use Clone before
	// modifying.
	Attrs map[string]string
}

// Width returns the inclusive length of the feature.
func (f Feature) Width() int64 {
	return f.End - f.Start + 1
}

// Is reports whether the feature has the given type.
func (f Feature) Is(featureType string) bool {
	return f.Type == featureType
}

// Get returns the string value of a column, core or attribute.
func (f Feature) Get(column string) string {
	switch column {
	case ColSeqnames:
		return f.Seqnames
	case ColStart:
		return strconv.FormatInt(f.Start, 10)
	case ColEnd:
		return strconv.FormatInt(f.End, 10)
	case ColStrand:
		return f.Strand
	case ColType:
		return f.Type
	case ColExonNumber:
		return f.ExonNumber.String()
	case ColRescaledStart:
		if !f.Rescaled {
			return "NA"
		}
		return strconv.FormatInt(f.RescaledStart, 10)
	case ColRescaledEnd:
		if !f.Rescaled {
			return "NA"
		}
		return strconv.FormatInt(f.RescaledEnd, 10)
	}
	return f.Attrs[column]
}

// Clone returns a copy that shares no attribute storage with f.
func (f Feature) Clone() Feature {
	c := f
	c.Attrs = maps.Clone(f.Attrs)
	if c.Attrs == nil {
		c.Attrs = make(map[string]string)
	}
	return c
}

// Overlaps reports whether two inclusive intervals share at least one base.
func (f Feature) Overlaps(o Feature) bool {
	return f.Start <= o.End && f.End >= o.Start
}

// Contains reports whether o lies entirely within f.
func (f Feature) Contains(o Feature) bool {
	return f.Start <= o.Start && o.End <= f.End
}

// isCore reports whether a column is stored in a typed Feature field.
func isCore(column string) bool {
	switch column {
	case ColSeqnames, ColStart, ColEnd, ColStrand, ColType, ColExonNumber,
		ColRescaledStart, ColRescaledEnd:
		return true
	}
	return false
}
