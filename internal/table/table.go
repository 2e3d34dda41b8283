package table

import (
	"fmt"
	"slices"
	"strconv"
)

// Table is an ordered set of features sharing one column schema.
// Tables are never modified after construction; every stage builds a new one.
type Table struct {
	columns []string
	rows    []Feature
}

// New validates rows against columns and returns a table.
// Coordinates must satisfy start <= end and strands must be "+" or "-" when
// those columns are part of the schema.
func New(columns []string, rows []Feature) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("%w: empty column name", ErrInvalidInput)
		}
		if seen[c] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidInput, c)
		}
		seen[c] = true
	}

	checkCoords := seen[ColStart] && seen[ColEnd]
	checkStrand := seen[ColStrand]
	for i, f := range rows {
		if checkCoords && f.Start > f.End {
			return nil, fmt.Errorf("%w: row %d: start %d > end %d", ErrInvalidInput, i, f.Start, f.End)
		}
		if checkStrand && f.Strand != StrandForward && f.Strand != StrandReverse {
			return nil, fmt.Errorf("%w: row %d: strand %q", ErrInvalidInput, i, f.Strand)
		}
	}

	return &Table{
		columns: slices.Clone(columns),
		rows:    slices.Clone(rows),
	}, nil
}

// FromRecords converts string records into a table. Core columns are parsed
// into typed fields; all others become attributes.
func FromRecords(header []string, records [][]string) (*Table, error) {
	rows := make([]Feature, 0, len(records))
	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%w: record %d: expected %d fields, got %d",
				ErrInvalidInput, i+1, len(header), len(rec))
		}
		f := Feature{Attrs: make(map[string]string)}
		for j, col := range header {
			if err := setField(&f, col, rec[j]); err != nil {
				return nil, fmt.Errorf("%w: record %d: column %s: %v", ErrInvalidInput, i+1, col, err)
			}
		}
		rows = append(rows, f)
	}
	return New(header, rows)
}

func setField(f *Feature, col, val string) error {
	var err error
	switch col {
	case ColSeqnames:
		f.Seqnames = val
	case ColStart:
		f.Start, err = strconv.ParseInt(val, 10, 64)
	case ColEnd:
		f.End, err = strconv.ParseInt(val, 10, 64)
	case ColStrand:
		f.Strand = val
	case ColType:
		f.Type = val
	case ColExonNumber:
		f.ExonNumber, err = ParseExonNumber(val)
	case ColRescaledStart, ColRescaledEnd:
		if val == "" || val == "NA" {
			return nil
		}
		var v int64
		if v, err = strconv.ParseInt(val, 10, 64); err != nil {
			return err
		}
		if col == ColRescaledStart {
			f.RescaledStart = v
		} else {
			f.RescaledEnd = v
		}
		f.Rescaled = true
	default:
		f.Attrs[col] = val
	}
	return err
}

// Records returns the header and the string form of every row.
func (t *Table) Records() ([]string, [][]string) {
	out := make([][]string, len(t.rows))
	for i, f := range t.rows {
		rec := make([]string, len(t.columns))
		for j, col := range t.columns {
			rec[j] = f.Get(col)
		}
		out[i] = rec
	}
	return t.Columns(), out
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// Has reports whether the schema contains a column.
func (t *Table) Has(column string) bool {
	return slices.Contains(t.columns, column)
}

// Require returns a *SchemaError naming every listed column absent from t.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !t.Has(c) && !slices.Contains(missing, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns row i.
func (t *Table) Row(i int) Feature {
	return t.rows[i]
}

// Rows returns a copy of the row slice. Attribute maps are shared.
func (t *Table) Rows() []Feature {
	return slices.Clone(t.rows)
}

// HasType reports whether any row has the given feature type.
func (t *Table) HasType(featureType string) bool {
	for _, f := range t.rows {
		if f.Type == featureType {
			return true
		}
	}
	return false
}

// Filter returns a table with the rows for which keep returns true.
func (t *Table) Filter(keep func(Feature) bool) *Table {
	var rows []Feature
	for _, f := range t.rows {
		if keep(f) {
			rows = append(rows, f)
		}
	}
	return &Table{columns: t.columns, rows: rows}
}

// OfType returns the rows with the given feature type, in table order.
func (t *Table) OfType(featureType string) []Feature {
	var out []Feature
	for _, f := range t.rows {
		if f.Type == featureType {
			out = append(out, f)
		}
	}
	return out
}

// WithRows returns a table sharing t's schema, extended by any extra columns
// not yet present. Rows built by pipeline stages are trusted and not
// revalidated.
func (t *Table) WithRows(rows []Feature, extra ...string) *Table {
	columns := slices.Clone(t.columns)
	for _, c := range extra {
		if !slices.Contains(columns, c) {
			columns = append(columns, c)
		}
	}
	return &Table{columns: columns, rows: rows}
}

// Unique returns the distinct values of a column in first-appearance order.
func (t *Table) Unique(column string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range t.rows {
		v := f.Get(column)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
