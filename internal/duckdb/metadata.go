package duckdb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/inodb/vibe-isoforms/internal/table"
)

// TableDigest returns a hex digest of the columns and rows of t. Tables that
// differ in any cell, in row order or in schema have different digests.
func TableDigest(t *table.Table) string {
	h := xxh3.New()
	header, records := t.Records()
	writeRecord(h, header)
	for _, rec := range records {
		writeRecord(h, rec)
	}
	sum := h.Sum128()
	return fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo)
}

func writeRecord(h *xxh3.Hasher, fields []string) {
	_, _ = h.WriteString(strings.Join(fields, "\t"))
	_, _ = h.WriteString("\n")
}

// CacheKey identifies one rescaled table: the gene table that was shortened
// and every option that changes the result. Content is the TableDigest of the
// input, so any filtering applied before shortening is part of the key.
type CacheKey struct {
	Content            string
	Gene               string
	TranscriptIDColumn string
	TargetGapWidth     int64
}

// String returns a stable hex digest of the key.
func (k CacheKey) String() string {
	parts := []string{
		k.Content,
		k.Gene,
		k.TranscriptIDColumn,
		strconv.FormatInt(k.TargetGapWidth, 10),
	}
	h := xxh3.HashString128(strings.Join(parts, "\x00"))
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}
