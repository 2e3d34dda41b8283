package gtf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-isoforms/internal/table"
)

const krasGTF = `##description: Test GTF
chr12	HAVANA	gene	25205246	25250929	.	-	.	gene_id "ENSG00000133703.14"; gene_type "protein_coding"; gene_name "KRAS";
chr12	HAVANA	transcript	25205246	25250929	.	-	.	gene_id "ENSG00000133703.14"; transcript_id "ENST00000311936.8"; gene_name "KRAS"; transcript_type "protein_coding";
chr12	HAVANA	exon	25250751	25250929	.	-	.	gene_id "ENSG00000133703.14"; transcript_id "ENST00000311936.8"; gene_name "KRAS"; transcript_name "KRAS-201"; transcript_type "protein_coding"; exon_number "1";
chr12	HAVANA	exon	25245274	25245395	.	-	.	gene_id "ENSG00000133703.14"; transcript_id "ENST00000311936.8"; gene_name "KRAS"; transcript_name "KRAS-201"; transcript_type "protein_coding"; exon_number "2";
chr12	HAVANA	CDS	25250751	25250808	.	-	0	gene_id "ENSG00000133703.14"; transcript_id "ENST00000311936.8"; gene_name "KRAS"; transcript_name "KRAS-201"; transcript_type "protein_coding"; exon_number "1";
chr12	HAVANA	CDS	25245274	25245395	.	-	2	gene_id "ENSG00000133703.14"; transcript_id "ENST00000311936.8"; gene_name "KRAS"; transcript_name "KRAS-201"; transcript_type "protein_coding"; exon_number "2";
chr12	HAVANA	start_codon	25250806	25250808	.	-	0	gene_id "ENSG00000133703.14"; transcript_id "ENST00000311936.8"; gene_name "KRAS";
chr1	HAVANA	exon	100000	100100	.	+	.	gene_id "ENSG00000000001"; transcript_id "ENST00000000001"; gene_name "TEST"; transcript_biotype "lncRNA"; exon_number "1";
`

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]string
	}{
		{
			name:  "basic attributes",
			input: `gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_name "KRAS";`,
			expected: map[string]string{
				"gene_id":       "ENSG00000133703",
				"transcript_id": "ENST00000311936",
				"gene_name":     "KRAS",
			},
		},
		{
			name:  "repeated key",
			input: `gene_id "ENSG00000133703"; tag "Ensembl_canonical"; tag "MANE_Select";`,
			expected: map[string]string{
				"gene_id": "ENSG00000133703",
				"tag":     "MANE_Select",
			},
		},
		{
			name:     "empty",
			input:    "",
			expected: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseAttributes(tt.input))
		})
	}
}

func TestStripVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ENST00000311936.8", "ENST00000311936"},
		{"ENSG00000133703.14", "ENSG00000133703"},
		{"ENST00000311936", "ENST00000311936"},
		{"ENSG00000002586.20_PAR_Y", "ENSG00000002586_PAR_Y"},
		{"ENST00000381192.10_PAR_Y", "ENST00000381192_PAR_Y"},
		{"ENSG00000002586_PAR_Y", "ENSG00000002586_PAR_Y"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, stripVersion(tt.input), "stripVersion(%q)", tt.input)
	}
}

func TestReader_Parse(t *testing.T) {
	r := NewReader("")
	tbl, err := r.Parse(strings.NewReader(krasGTF))
	require.NoError(t, err)

	assert.Equal(t, Columns, tbl.Columns())
	require.Equal(t, 5, tbl.Len())
	assert.Len(t, tbl.OfType(table.TypeExon), 3)
	assert.Len(t, tbl.OfType(table.TypeCDS), 2)

	first := tbl.Row(0)
	assert.Equal(t, "chr12", first.Seqnames)
	assert.Equal(t, int64(25250751), first.Start)
	assert.Equal(t, "-", first.Strand)
	assert.Equal(t, "ENST00000311936.8", first.Get("transcript_id"))
	assert.Equal(t, "KRAS-201", first.Get("transcript_name"))
	assert.Equal(t, "protein_coding", first.Get("transcript_biotype"))
	assert.Equal(t, "1", first.Get("exon_number"))

	last := tbl.Row(4)
	assert.Equal(t, "lncRNA", last.Get("transcript_biotype"))
	assert.Equal(t, "", last.Get("transcript_name"))
}

func TestReader_Options(t *testing.T) {
	r := NewReader("")
	r.SetStripVersion(true)
	r.SetChromosome("chr12")
	r.SetTypes([]string{table.TypeExon, "start_codon"})

	tbl, err := r.Parse(strings.NewReader(krasGTF))
	require.NoError(t, err)

	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"ENST00000311936"}, tbl.Unique("transcript_id"))
	assert.Equal(t, []string{"ENSG00000133703"}, tbl.Unique("gene_id"))
	assert.True(t, tbl.HasType("start_codon"))
}

func TestReader_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too few fields", "chr1\tHAVANA\texon\t100\n"},
		{"bad start", "chr1\tHAVANA\texon\tx\t200\t.\t+\t.\tgene_id \"g\";\n"},
		{"bad exon number", "chr1\tHAVANA\texon\t100\t200\t.\t+\t.\texon_number \"one\";\n"},
		{"start after end", "chr1\tHAVANA\texon\t300\t200\t.\t+\t.\tgene_id \"g\";\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader("").Parse(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, table.ErrInvalidInput)
		})
	}
}

func TestReader_ReadGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kras.gtf.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(krasGTF))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	tbl, err := NewReader(path).Read()
	require.NoError(t, err)
	assert.Equal(t, 5, tbl.Len())
}

func TestReader_ReadMissing(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.gtf")).Read()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
