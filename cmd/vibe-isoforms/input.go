package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/inodb/vibe-isoforms/internal/gtf"
	"github.com/inodb/vibe-isoforms/internal/table"
)

// annotationInput controls how an annotation file is read.
type annotationInput struct {
	format       string
	stripVersion bool
	types        []string
	chrom        string
}

// detectFormat detects the annotation format from the file extension.
func detectFormat(path string) string {
	lowerPath := strings.ToLower(path)
	lowerPath = strings.TrimSuffix(lowerPath, ".gz")
	if strings.HasSuffix(lowerPath, ".gtf") || strings.HasSuffix(lowerPath, ".gff2") {
		return "gtf"
	}
	return "tsv"
}

// read reads a GTF or tab-separated annotation. "-" reads a
// tab-separated table from stdin.
func (in annotationInput) read(path string, stdin io.Reader) (*table.Table, error) {
	format := in.format
	if format == "" {
		format = detectFormat(path)
	}

	switch format {
	case "gtf":
		if path == "-" {
			return nil, usageError{fmt.Errorf("GTF input cannot be read from stdin")}
		}
		r := gtf.NewReader(path)
		r.SetStripVersion(in.stripVersion)
		if len(in.types) > 0 {
			r.SetTypes(in.types)
		}
		r.SetChromosome(in.chrom)
		return r.Read()
	case "tsv":
		t, err := readTSV(path, stdin)
		if err != nil || in.chrom == "" {
			return t, err
		}
		return t.Filter(func(f table.Feature) bool { return f.Seqnames == in.chrom }), nil
	default:
		return nil, usageError{fmt.Errorf("unknown input format %q", format)}
	}
}

func readTSV(path string, stdin io.Reader) (*table.Table, error) {
	if path == "-" {
		return table.ReadTSV(stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open annotation: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}
	return table.ReadTSV(reader)
}

// createOutput returns stdout when path is empty, otherwise a new file.
func createOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}
