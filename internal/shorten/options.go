// Package shorten compresses intronic gaps of transcript annotations into a
// compact coordinate space while preserving exon and CDS lengths.
package shorten

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-isoforms/internal/table"
)

// DefaultTargetGapWidth is the default maximum width of a shortened gap.
const DefaultTargetGapWidth int64 = 100

var (
	// ErrInvalidTargetGapWidth is returned for target gap widths below 1.
	ErrInvalidTargetGapWidth = errors.New("target gap width must be at least 1")
	// ErrNoExons is returned when an annotation holds no exon rows.
	ErrNoExons = errors.New("annotation contains no exons")
	// ErrMixedRegion is returned when exons span several chromosomes or strands.
	ErrMixedRegion = errors.New("exons must be from a single chromosome and strand")
	// ErrNoJoinKey is returned when a CDS row has no key to associate it with
	// an exon.
	ErrNoJoinKey = errors.New("no common columns to join on")
	// ErrOrphanCDS is returned when a CDS row lies outside every exon of its
	// transcript.
	ErrOrphanCDS = errors.New("CDS not contained in any exon")
)

// Options configures a shortening run.
type Options struct {
	// TranscriptIDColumn groups features into transcripts.
	TranscriptIDColumn string
	// TargetGapWidth is the maximum width of any shortened gap.
	TargetGapWidth int64
}

// DefaultOptions returns a fresh set of default options.
func DefaultOptions() Options {
	return Options{
		TranscriptIDColumn: table.DefaultTranscriptIDColumn,
		TargetGapWidth:     DefaultTargetGapWidth,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.TranscriptIDColumn == "" {
		return errors.New("transcript id column must not be empty")
	}
	if o.TargetGapWidth < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidTargetGapWidth, o.TargetGapWidth)
	}
	return nil
}
