// Package expression matches transcript expression matrices against
// annotations.
package expression

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrNoMatchingTranscripts is returned when no matrix row belongs to the
	// annotation.
	ErrNoMatchingTranscripts = errors.New("no transcripts in expression matrix match the annotation")
	// ErrInvalidMatrix is returned for malformed matrix input.
	ErrInvalidMatrix = errors.New("invalid expression matrix")
)

// Matrix holds per-sample expression values keyed by transcript.
type Matrix struct {
	// IDColumn names the identifier column.
	IDColumn string
	// Samples are the sample column names in input order.
	Samples []string
	ids     []string
	values  [][]float64
}

// Len returns the number of transcripts.
func (m *Matrix) Len() int {
	return len(m.ids)
}

// IDs returns the transcript identifiers in row order.
func (m *Matrix) IDs() []string {
	return append([]string(nil), m.ids...)
}

// Mean returns the mean expression of row i across samples.
func (m *Matrix) Mean(i int) float64 {
	if len(m.values[i]) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m.values[i] {
		sum += v
	}
	return sum / float64(len(m.values[i]))
}

// subset returns a matrix with the given rows, in the given order.
func (m *Matrix) subset(rows []int) *Matrix {
	out := &Matrix{IDColumn: m.IDColumn, Samples: m.Samples}
	for _, i := range rows {
		out.ids = append(out.ids, m.ids[i])
		out.values = append(out.values, m.values[i])
	}
	return out
}

// ReadMatrix reads a tab-separated matrix whose first column holds transcript
// identifiers and whose remaining columns hold numeric sample values.
// "NA" and empty cells are read as zero.
func ReadMatrix(r io.Reader) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var m *Matrix
	seen := make(map[string]bool)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		if m == nil {
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: header needs an id column and at least one sample", ErrInvalidMatrix)
			}
			m = &Matrix{IDColumn: fields[0], Samples: fields[1:]}
			continue
		}

		if len(fields) != len(m.Samples)+1 {
			return nil, fmt.Errorf("%w: line %d: expected %d fields, got %d",
				ErrInvalidMatrix, lineNum, len(m.Samples)+1, len(fields))
		}
		id := fields[0]
		if seen[id] {
			return nil, fmt.Errorf("%w: line %d: duplicate transcript %s", ErrInvalidMatrix, lineNum, id)
		}
		seen[id] = true

		values := make([]float64, len(m.Samples))
		for j, s := range fields[1:] {
			if s == "" || s == "NA" {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: sample %s: %v", ErrInvalidMatrix, lineNum, m.Samples[j], err)
			}
			values[j] = v
		}
		m.ids = append(m.ids, id)
		m.values = append(m.values, values)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan expression matrix: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidMatrix)
	}
	return m, nil
}
