package table

import (
	"errors"
	"strings"
)

// ErrInvalidInput is returned when data handed to the table boundary cannot be
// represented as a feature table.
var ErrInvalidInput = errors.New("invalid input")

// ErrGeneNotFound is returned when a gene filter matches no rows.
var ErrGeneNotFound = errors.New("gene not found")

// SchemaError reports required columns absent from a table.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}
