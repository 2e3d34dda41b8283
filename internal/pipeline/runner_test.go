package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/inodb/vibe-isoforms/internal/duckdb"
	"github.com/inodb/vibe-isoforms/internal/shorten"
	"github.com/inodb/vibe-isoforms/internal/table"
)

var columns = []string{"seqnames", "start", "end", "strand", "type", "gene_name", "transcript_id"}

func exon(gene, tx, seqnames string, start, end int64) table.Feature {
	return table.Feature{
		Seqnames: seqnames,
		Start:    start,
		End:      end,
		Strand:   "+",
		Type:     "exon",
		Attrs:    map[string]string{"gene_name": gene, "transcript_id": tx},
	}
}

func geneGroups(t *testing.T, n int) []table.Group {
	t.Helper()
	var rows []table.Feature
	for i := range n {
		gene := fmt.Sprintf("G%d", i)
		rows = append(rows,
			exon(gene, gene+"-201", "chr1", 100, 200),
			exon(gene, gene+"-201", "chr1", 1000, 1100),
		)
	}
	tbl, err := table.New(columns, rows)
	require.NoError(t, err)

	groups, err := table.SplitBy(tbl, "gene_name")
	require.NoError(t, err)
	return groups
}

func collect(t *testing.T, results <-chan Result) []Result {
	t.Helper()
	var out []Result
	require.NoError(t, OrderedCollect(results, func(r Result) error {
		out = append(out, r)
		return nil
	}))
	return out
}

func TestRunner_Ordered(t *testing.T) {
	r := NewRunner(shorten.Options{TranscriptIDColumn: "transcript_id", TargetGapWidth: 50}, 4)
	r.SetLogger(zaptest.NewLogger(t))

	groups := geneGroups(t, 20)
	got := collect(t, r.Run(context.Background(), groups))

	require.Len(t, got, 20)
	for i, res := range got {
		assert.Equal(t, i, res.Seq)
		assert.Equal(t, groups[i].Key, res.Gene)
		require.NoError(t, res.Err)
		assert.Equal(t, 3, res.Table.Len())
		assert.False(t, res.Cached)
	}
}

func TestRunner_GeneError(t *testing.T) {
	tbl, err := table.New(columns, []table.Feature{
		exon("A", "A-201", "chr1", 100, 200),
		exon("B", "B-201", "chr1", 100, 200),
		exon("B", "B-202", "chr2", 100, 200),
	})
	require.NoError(t, err)
	groups, err := table.SplitBy(tbl, "gene_name")
	require.NoError(t, err)

	got := collect(t, NewRunner(shorten.DefaultOptions(), 2).Run(context.Background(), groups))
	require.Len(t, got, 2)
	assert.NoError(t, got[0].Err)
	assert.ErrorIs(t, got[1].Err, shorten.ErrMixedRegion)
}

func TestRunner_Cache(t *testing.T) {
	store, err := duckdb.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	groups := geneGroups(t, 3)

	r := NewRunner(shorten.DefaultOptions(), 2)
	r.SetCache(store)

	first := collect(t, r.Run(context.Background(), groups))
	for _, res := range first {
		require.NoError(t, res.Err)
		assert.False(t, res.Cached)
	}

	keys, err := store.Keys("")
	require.NoError(t, err)
	assert.Len(t, keys, 3)

	second := collect(t, r.Run(context.Background(), groups))
	for i, res := range second {
		require.NoError(t, res.Err)
		assert.True(t, res.Cached)

		_, want := first[i].Table.Records()
		_, got := res.Table.Records()
		assert.Equal(t, want, got)
	}
}

func TestRunner_CacheFilteredGene(t *testing.T) {
	store, err := duckdb.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tbl, err := table.New(columns, []table.Feature{
		exon("G", "G-201", "chr1", 100, 200),
		exon("G", "G-201", "chr1", 1000, 1100),
		exon("G", "G-202", "chr1", 150, 250),
		exon("G", "G-202", "chr1", 2000, 2100),
	})
	require.NoError(t, err)

	r := NewRunner(shorten.DefaultOptions(), 1)
	r.SetCache(store)

	full := collect(t, r.Run(context.Background(), []table.Group{{Key: "G", Table: tbl}}))
	require.Len(t, full, 1)
	require.NoError(t, full[0].Err)
	assert.Equal(t, []string{"G-201", "G-202"}, full[0].Table.Unique("transcript_id"))

	// Same gene after dropping a transcript, as an expression filter does.
	filtered := tbl.Filter(func(f table.Feature) bool { return f.Get("transcript_id") == "G-201" })
	got := collect(t, r.Run(context.Background(), []table.Group{{Key: "G", Table: filtered}}))
	require.Len(t, got, 1)
	require.NoError(t, got[0].Err)
	assert.False(t, got[0].Cached)
	assert.Equal(t, []string{"G-201"}, got[0].Table.Unique("transcript_id"))
	assert.Equal(t, 3, got[0].Table.Len())

	again := collect(t, r.Run(context.Background(), []table.Group{{Key: "G", Table: filtered}}))
	require.NoError(t, again[0].Err)
	assert.True(t, again[0].Cached)
	assert.Equal(t, []string{"G-201"}, again[0].Table.Unique("transcript_id"))

	keys, err := store.Keys("G")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := collect(t, NewRunner(shorten.DefaultOptions(), 1).Run(ctx, geneGroups(t, 5)))
	assert.Less(t, len(got), 5)
}

func TestOrderedCollect_StopsOnError(t *testing.T) {
	results := make(chan Result, 3)
	results <- Result{Seq: 1}
	results <- Result{Seq: 0}
	results <- Result{Seq: 2}
	close(results)

	var seen []int
	err := OrderedCollect(results, func(r Result) error {
		seen = append(seen, r.Seq)
		if r.Seq == 1 {
			return fmt.Errorf("stop")
		}
		return nil
	})
	assert.EqualError(t, err, "stop")
	assert.Equal(t, []int{0, 1}, seen)
}
