package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-isoforms/internal/table"
)

var testColumns = []string{"seqnames", "start", "end", "strand", "type", "transcript_id"}

func feature(tx, strand, typ string, start, end int64) table.Feature {
	return table.Feature{
		Seqnames: "chr1",
		Start:    start,
		End:      end,
		Strand:   strand,
		Type:     typ,
		Attrs:    map[string]string{"transcript_id": tx},
	}
}

func newTable(t *testing.T, columns []string, rows ...table.Feature) *table.Table {
	t.Helper()
	tbl, err := table.New(columns, rows)
	require.NoError(t, err)
	return tbl
}

func exonNumbers(tbl *table.Table, typ string) []string {
	var out []string
	for _, f := range tbl.OfType(typ) {
		out = append(out, f.ExonNumber.String())
	}
	return out
}

func TestCalculateExonNumber_Strand(t *testing.T) {
	tests := []struct {
		name   string
		strand string
		want   []string
	}{
		{"forward", "+", []string{"1", "2", "3"}},
		{"reverse", "-", []string{"3", "2", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := newTable(t, testColumns,
				feature("tx1", tt.strand, "exon", 200, 250),
				feature("tx1", tt.strand, "exon", 100, 150),
				feature("tx1", tt.strand, "exon", 300, 350),
			)

			got, err := CalculateExonNumber(tbl, "transcript_id")
			require.NoError(t, err)

			// Output is sorted by start.
			assert.Equal(t, tt.want, exonNumbers(got, "exon"))
			assert.True(t, got.Has("exon_number"))
		})
	}
}

func TestCalculateExonNumber_DenseTies(t *testing.T) {
	tbl := newTable(t, testColumns,
		feature("tx1", "+", "exon", 100, 150),
		feature("tx1", "+", "exon", 100, 170),
		feature("tx1", "+", "exon", 300, 350),
		feature("tx2", "-", "exon", 100, 150),
		feature("tx2", "-", "exon", 120, 150),
		feature("tx2", "-", "exon", 300, 350),
	)

	got, err := CalculateExonNumber(tbl, "transcript_id")
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "1", "2", "2", "2", "1"}, exonNumbers(got, "exon"))
}

func TestCalculateExonNumber_CDSAndIntrons(t *testing.T) {
	tbl := newTable(t, testColumns,
		feature("tx1", "+", "exon", 100, 150),
		feature("tx1", "+", "intron", 151, 199),
		feature("tx1", "+", "exon", 200, 250),
		feature("tx1", "+", "CDS", 120, 150),
		feature("tx1", "+", "CDS", 140, 220), // spans two exons
		feature("tx1", "+", "CDS", 160, 190), // intronic, no overlap
		feature("tx2", "-", "exon", 100, 150),
		feature("tx2", "-", "intron", 151, 199),
		feature("tx2", "-", "exon", 200, 250),
		feature("tx1", "+", "UTR", 100, 110),
	)

	got, err := CalculateExonNumber(tbl, "transcript_id")
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "1", "NA"}, exonNumbers(got, "CDS"))
	assert.Equal(t, []string{"1", "1"}, exonNumbers(got, "intron"))
	assert.Equal(t, []string{"NA"}, exonNumbers(got, "UTR"))
	assert.Equal(t, tbl.Len(), got.Len())
}

func TestCalculateExonNumber_NoIntronsOrCDS(t *testing.T) {
	tbl := newTable(t, testColumns, feature("tx1", "+", "exon", 100, 150))

	got, err := CalculateExonNumber(tbl, "transcript_id")
	require.NoError(t, err)
	assert.Empty(t, got.OfType("intron"))
	assert.Equal(t, []string{"1"}, exonNumbers(got, "exon"))
}

func TestCalculateExonNumber_Empty(t *testing.T) {
	got, err := CalculateExonNumber(newTable(t, testColumns), "transcript_id")
	require.NoError(t, err)
	assert.Zero(t, got.Len())
}

func TestCalculateExonNumber_MissingColumns(t *testing.T) {
	tbl := newTable(t, []string{"start", "type", "transcript_id"})

	_, err := CalculateExonNumber(tbl, "transcript_id")
	var schemaErr *table.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"end", "strand"}, schemaErr.Missing)
}

func TestToIntron_Simple(t *testing.T) {
	tbl := newTable(t, testColumns,
		feature("tx1", "+", "exon", 300, 350),
		feature("tx1", "+", "exon", 100, 150),
		feature("tx1", "+", "exon", 200, 250),
	)

	got, err := ToIntron(tbl, "transcript_id")
	require.NoError(t, err)

	introns := got.OfType("intron")
	require.Len(t, introns, 2)
	assert.Equal(t, int64(151), introns[0].Start)
	assert.Equal(t, int64(199), introns[0].End)
	assert.Equal(t, int64(251), introns[1].Start)
	assert.Equal(t, int64(299), introns[1].End)

	// exon_number was derived because the column was absent.
	assert.Equal(t, []string{"1", "2", "3"}, exonNumbers(got, "exon"))
	assert.Equal(t, []string{"1.5", "2.5"}, exonNumbers(got, "intron"))
	assert.Equal(t, "tx1", introns[0].Get("transcript_id"))
	assert.Equal(t, "chr1", introns[0].Seqnames)
}

func TestToIntron_ReverseStrandNumbering(t *testing.T) {
	tbl := newTable(t, testColumns,
		feature("tx1", "-", "exon", 300, 350),
		feature("tx1", "-", "exon", 100, 150),
	)

	got, err := ToIntron(tbl, "transcript_id")
	require.NoError(t, err)

	introns := got.OfType("intron")
	require.Len(t, introns, 1)
	assert.Equal(t, "1.5", introns[0].ExonNumber.String())
}

func TestToIntron_MultipleTranscripts(t *testing.T) {
	tbl := newTable(t, testColumns,
		feature("tx1", "+", "exon", 100, 150),
		feature("tx1", "+", "exon", 200, 250),
		feature("tx2", "+", "exon", 150, 200),
		feature("tx2", "+", "exon", 250, 300),
		feature("tx3", "+", "exon", 100, 200),
	)

	got, err := ToIntron(tbl, "transcript_id")
	require.NoError(t, err)

	introns := got.OfType("intron")
	require.Len(t, introns, 2)
	assert.Equal(t, "tx1", introns[0].Get("transcript_id"))
	assert.Equal(t, [2]int64{151, 199}, [2]int64{introns[0].Start, introns[0].End})
	assert.Equal(t, "tx2", introns[1].Get("transcript_id"))
	assert.Equal(t, [2]int64{201, 249}, [2]int64{introns[1].Start, introns[1].End})
}

func TestToIntron_PassthroughAndAdjacent(t *testing.T) {
	tbl := newTable(t, testColumns,
		feature("tx1", "+", "exon", 100, 150),
		feature("tx1", "+", "exon", 151, 200), // adjacent, no intron
		feature("tx1", "+", "exon", 300, 350),
		feature("tx1", "+", "CDS", 120, 150),
	)

	got, err := ToIntron(tbl, "transcript_id")
	require.NoError(t, err)

	introns := got.OfType("intron")
	require.Len(t, introns, 1)
	assert.Equal(t, [2]int64{201, 299}, [2]int64{introns[0].Start, introns[0].End})
	assert.Len(t, got.OfType("CDS"), 1)
	assert.Equal(t, 5, got.Len())
}

func TestToIntron_Errors(t *testing.T) {
	tests := []struct {
		name string
		rows []table.Feature
		want error
	}{
		{
			name: "introns present",
			rows: []table.Feature{
				feature("tx1", "+", "exon", 100, 150),
				feature("tx1", "+", "intron", 151, 199),
				feature("tx1", "+", "exon", 200, 250),
			},
			want: ErrIntronsPresent,
		},
		{
			name: "duplicate exon",
			rows: []table.Feature{
				feature("tx1", "+", "exon", 100, 150),
				feature("tx1", "+", "exon", 100, 150),
			},
			want: ErrDuplicateExon,
		},
		{
			name: "overlapping exons",
			rows: []table.Feature{
				feature("tx1", "+", "exon", 100, 150),
				feature("tx1", "+", "exon", 140, 200),
			},
			want: ErrOverlappingExons,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToIntron(newTable(t, testColumns, tt.rows...), "transcript_id")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestToIntron_MissingExonNumberAndStrand(t *testing.T) {
	columns := []string{"seqnames", "start", "end", "type", "transcript_id"}
	tbl := newTable(t, columns, feature("tx1", "", "exon", 100, 200))

	_, err := ToIntron(tbl, "transcript_id")
	var schemaErr *table.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"strand"}, schemaErr.Missing)
}

func TestToIntron_CustomGroupColumn(t *testing.T) {
	columns := []string{"seqnames", "start", "end", "strand", "type", "gene_id", "exon_number"}
	a := feature("", "+", "exon", 100, 150)
	a.Attrs = map[string]string{"gene_id": "g1"}
	a.ExonNumber = table.IntExonNumber(1)
	b := feature("", "+", "exon", 200, 250)
	b.Attrs = map[string]string{"gene_id": "g1"}
	b.ExonNumber = table.IntExonNumber(2)

	got, err := ToIntron(newTable(t, columns, a, b), "gene_id")
	require.NoError(t, err)

	introns := got.OfType("intron")
	require.Len(t, introns, 1)
	assert.Equal(t, "g1", introns[0].Get("gene_id"))
	assert.Equal(t, "1.5", introns[0].ExonNumber.String())
}
