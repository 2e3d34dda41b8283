package transcript

import (
	"cmp"
	"slices"
	"sort"

	"github.com/inodb/vibe-isoforms/internal/table"
)

// CalculateExonNumber assigns exon numbers to the exon, CDS and intron rows of
// each transcript grouped by groupColumn.
//
// Exons are dense-ranked by start on the forward strand and by descending end
// on the reverse strand. A CDS takes the smallest number of the exons it
// overlaps. An intron takes the number of the exon preceding it in
// transcription order. Rows of other types keep their current value.
func CalculateExonNumber(t *table.Table, groupColumn string) (*table.Table, error) {
	if err := t.Require(table.ColStart, table.ColEnd, groupColumn, table.ColType, table.ColStrand); err != nil {
		return nil, err
	}

	rows := t.Rows()

	exonRows := make(map[string][]int)
	for i, f := range rows {
		if f.Is(table.TypeExon) {
			k := f.Get(groupColumn)
			exonRows[k] = append(exonRows[k], i)
		}
	}

	indexes := make(map[string]*exonIndex, len(exonRows))
	for key, idx := range exonRows {
		startRank := denseRank(idx, rows, func(f table.Feature) int64 { return f.Start }, false)
		endRank := denseRank(idx, rows, func(f table.Feature) int64 { return f.End }, true)

		exons := make([]numberedExon, 0, len(idx))
		for _, i := range idx {
			f := &rows[i]
			if f.Strand == table.StrandForward {
				f.ExonNumber = table.IntExonNumber(startRank[f.Start])
			} else {
				f.ExonNumber = table.IntExonNumber(endRank[f.End])
			}
			exons = append(exons, numberedExon{start: f.Start, end: f.End, strand: f.Strand, number: f.ExonNumber})
		}
		indexes[key] = buildExonIndex(exons)
	}

	for i := range rows {
		f := &rows[i]
		switch f.Type {
		case table.TypeCDS:
			f.ExonNumber = table.ExonNumber{}
			if x, ok := indexes[f.Get(groupColumn)]; ok {
				f.ExonNumber = x.minOverlapping(f.Start, f.End)
			}
		case table.TypeIntron:
			f.ExonNumber = table.ExonNumber{}
			x, ok := indexes[f.Get(groupColumn)]
			if !ok {
				continue
			}
			switch f.Strand {
			case table.StrandForward:
				f.ExonNumber = x.preceding(f.Start, f.Strand)
			case table.StrandReverse:
				f.ExonNumber = x.following(f.End, f.Strand)
			}
		}
	}

	slices.SortStableFunc(rows, func(a, b table.Feature) int {
		if c := cmp.Compare(a.Get(groupColumn), b.Get(groupColumn)); c != 0 {
			return c
		}
		return cmp.Compare(a.Start, b.Start)
	})

	return t.WithRows(rows, table.ColExonNumber), nil
}

// denseRank maps each distinct key of the selected rows to its 1-based dense
// rank.
func denseRank(idx []int, rows []table.Feature, key func(table.Feature) int64, descending bool) map[int64]int {
	values := make([]int64, 0, len(idx))
	for _, i := range idx {
		values = append(values, key(rows[i]))
	}
	sort.Slice(values, func(i, j int) bool {
		if descending {
			return values[i] > values[j]
		}
		return values[i] < values[j]
	})
	values = slices.Compact(values)

	rank := make(map[int64]int, len(values))
	for i, v := range values {
		rank[v] = i + 1
	}
	return rank
}
