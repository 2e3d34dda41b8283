// Package gtf reads GENCODE and Ensembl GTF annotations into feature tables.
package gtf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/inodb/vibe-isoforms/internal/table"
)

// Columns is the schema of tables produced by Reader.
var Columns = []string{
	table.ColSeqnames,
	table.ColStart,
	table.ColEnd,
	table.ColStrand,
	table.ColType,
	"gene_id",
	"gene_name",
	"transcript_id",
	"transcript_name",
	"transcript_biotype",
	table.ColExonNumber,
}

// DefaultTypes are the feature types kept by default.
var DefaultTypes = []string{table.TypeExon, table.TypeCDS, table.TypeIntron}

// Reader loads transcript features from a GTF file.
type Reader struct {
	path         string
	types        []string
	stripVersion bool
	filterChrom  string
}

// NewReader creates a reader for the file at path. Files ending in .gz are
// decompressed.
func NewReader(path string) *Reader {
	return &Reader{path: path, types: DefaultTypes}
}

// SetTypes sets the feature types to keep. Rows of other types are skipped.
func (r *Reader) SetTypes(types []string) {
	r.types = types
}

// SetStripVersion strips version suffixes such as ".8" from gene and
// transcript IDs.
func (r *Reader) SetStripVersion(strip bool) {
	r.stripVersion = strip
}

// SetChromosome restricts reading to one chromosome.
func (r *Reader) SetChromosome(chrom string) {
	r.filterChrom = chrom
}

// Read opens the file and parses it.
func (r *Reader) Read() (*table.Table, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(r.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return r.Parse(reader)
}

// Parse reads GTF records from rd. Comment lines and records of unwanted
// types are skipped; malformed records are an error.
func (r *Reader) Parse(rd io.Reader) (*table.Table, error) {
	scanner := bufio.NewScanner(rd)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var rows []table.Feature
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		f, err := r.parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", table.ErrInvalidInput, lineNum, err)
		}
		if !slices.Contains(r.types, f.Type) {
			continue
		}
		if r.filterChrom != "" && f.Seqnames != r.filterChrom {
			continue
		}
		rows = append(rows, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}

	return table.New(Columns, rows)
}

// parseLine parses a single GTF record.
func (r *Reader) parseLine(line string) (table.Feature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return table.Feature{}, fmt.Errorf("expected 9 fields, got %d", len(fields))
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return table.Feature{}, fmt.Errorf("parse start: %w", err)
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return table.Feature{}, fmt.Errorf("parse end: %w", err)
	}

	attrs := parseAttributes(fields[8])
	exonNumber, err := table.ParseExonNumber(attrs["exon_number"])
	if err != nil {
		return table.Feature{}, fmt.Errorf("parse exon_number: %w", err)
	}

	f := table.Feature{
		Seqnames:   fields[0],
		Start:      start,
		End:        end,
		Strand:     fields[6],
		Type:       fields[2],
		ExonNumber: exonNumber,
		Attrs:      make(map[string]string, 5),
	}
	for _, col := range Columns[5:10] {
		v := attrs[col]
		// GENCODE names the biotype transcript_type.
		if col == "transcript_biotype" && v == "" {
			v = attrs["transcript_type"]
		}
		if r.stripVersion && (col == "gene_id" || col == "transcript_id") {
			v = stripVersion(v)
		}
		f.Attrs[col] = v
	}
	return f, nil
}

// parseAttributes parses the GTF attribute column.
// Format: key "value"; key "value"; ...
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)
	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		idx := strings.Index(part, " ")
		if idx == -1 {
			continue
		}
		key := part[:idx]
		attrs[key] = strings.Trim(strings.TrimSpace(part[idx+1:]), "\"")
	}
	return attrs
}

// parYSuffix marks the chrY copy of a pseudoautosomal gene in GENCODE.
const parYSuffix = "_PAR_Y"

// stripVersion removes the version suffix from an Ensembl ID, keeping the
// _PAR_Y suffix so chrX and chrY copies stay distinct.
func stripVersion(id string) string {
	base, suffix := id, ""
	if strings.HasSuffix(id, parYSuffix) {
		base, suffix = strings.TrimSuffix(id, parYSuffix), parYSuffix
	}
	if idx := strings.LastIndex(base, "."); idx != -1 {
		base = base[:idx]
	}
	return base + suffix
}
