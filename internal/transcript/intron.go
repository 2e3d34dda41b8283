package transcript

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/inodb/vibe-isoforms/internal/table"
)

var (
	// ErrIntronsPresent is returned by ToIntron when the table already holds
	// intron rows.
	ErrIntronsPresent = errors.New("annotation already contains introns")
	// ErrDuplicateExon is returned when a transcript lists the same exon
	// coordinates twice.
	ErrDuplicateExon = errors.New("duplicate exon coordinates")
	// ErrOverlappingExons is returned when exons of one transcript overlap,
	// which would produce a negative-length intron.
	ErrOverlappingExons = errors.New("overlapping exons")
)

// ToIntron adds one intron row between each pair of consecutive exons of every
// transcript. Introns span [previous end + 1, next start - 1]; adjacent exons
// produce no intron. Each intron is numbered halfway between its flanking
// exons and copies the remaining attributes of the transcript's first exon.
//
// Exon numbers are calculated first when the table has no exon_number column.
func ToIntron(t *table.Table, groupColumn string) (*table.Table, error) {
	if err := t.Require(table.ColSeqnames, table.ColStart, table.ColEnd, table.ColType, groupColumn); err != nil {
		return nil, err
	}
	if t.HasType(table.TypeIntron) {
		return nil, ErrIntronsPresent
	}
	if !t.Has(table.ColExonNumber) {
		var err error
		if t, err = CalculateExonNumber(t, groupColumn); err != nil {
			return nil, fmt.Errorf("calculate exon numbers: %w", err)
		}
	}

	var keys []string
	byGroup := make(map[string][]table.Feature)
	for _, f := range t.OfType(table.TypeExon) {
		k := f.Get(groupColumn)
		if _, ok := byGroup[k]; !ok {
			keys = append(keys, k)
		}
		byGroup[k] = append(byGroup[k], f)
	}

	rows := t.Rows()
	for _, k := range keys {
		exons := byGroup[k]
		slices.SortStableFunc(exons, func(a, b table.Feature) int {
			if c := cmp.Compare(a.Start, b.Start); c != 0 {
				return c
			}
			return cmp.Compare(a.End, b.End)
		})

		first := exons[0]
		for i := 1; i < len(exons); i++ {
			prev, cur := exons[i-1], exons[i]
			if cur.Start == prev.Start && cur.End == prev.End {
				return nil, fmt.Errorf("%w: transcript %s: %d-%d", ErrDuplicateExon, k, cur.Start, cur.End)
			}
			if cur.Start <= prev.End {
				return nil, fmt.Errorf("%w: transcript %s: %d-%d and %d-%d",
					ErrOverlappingExons, k, prev.Start, prev.End, cur.Start, cur.End)
			}
			if cur.Start == prev.End+1 {
				continue
			}

			intron := first.Clone()
			intron.Start = prev.End + 1
			intron.End = cur.Start - 1
			intron.Type = table.TypeIntron
			intron.ExonNumber = midpoint(prev.ExonNumber, cur.ExonNumber)
			rows = append(rows, intron)
		}
	}

	slices.SortStableFunc(rows, func(a, b table.Feature) int {
		if c := cmp.Compare(a.Seqnames, b.Seqnames); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Get(groupColumn), b.Get(groupColumn)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(a.End, b.End); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})

	return t.WithRows(rows), nil
}

func midpoint(a, b table.ExonNumber) table.ExonNumber {
	if !a.Valid || !b.Valid {
		return table.ExonNumber{}
	}
	return table.ExonNumber{Value: min(a.Value, b.Value) + 0.5, Valid: true}
}
