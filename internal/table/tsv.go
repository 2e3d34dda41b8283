package table

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadTSV reads a tab-delimited table whose first line is the header.
// Empty lines are skipped.
func ReadTSV(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var header []string
	var records [][]string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if header == nil {
			header = fields
			continue
		}
		records = append(records, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan table: %w", err)
	}
	if header == nil {
		return nil, fmt.Errorf("%w: empty table", ErrInvalidInput)
	}
	return FromRecords(header, records)
}
