// Package output provides feature table output formatters.
package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/inodb/vibe-isoforms/internal/table"
)

// TabWriter writes feature tables in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a tab-delimited writer for the given columns.
func NewTabWriter(w io.Writer, columns []string) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: columns,
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single feature. Empty values are written as NA.
func (tw *TabWriter) Write(f table.Feature) error {
	values := make([]string, len(tw.columns))
	for i, col := range tw.columns {
		v := f.Get(col)
		if v == "" {
			v = "NA"
		}
		values[i] = v
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteRows writes every row of t.
func (tw *TabWriter) WriteRows(t *table.Table) error {
	for i := 0; i < t.Len(); i++ {
		if err := tw.Write(t.Row(i)); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// WriteTable writes t with a header and flushes.
func WriteTable(w io.Writer, t *table.Table) error {
	tw := NewTabWriter(w, t.Columns())
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	if err := tw.WriteRows(t); err != nil {
		return err
	}
	return tw.Flush()
}
