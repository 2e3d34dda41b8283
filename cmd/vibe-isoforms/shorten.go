package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-isoforms/internal/duckdb"
	"github.com/inodb/vibe-isoforms/internal/expression"
	"github.com/inodb/vibe-isoforms/internal/output"
	"github.com/inodb/vibe-isoforms/internal/pipeline"
	"github.com/inodb/vibe-isoforms/internal/shorten"
	"github.com/inodb/vibe-isoforms/internal/table"
)

type shortenFlags struct {
	input      annotationInput
	assembly   string
	gene       string
	output     string
	expression string
	topN       int
}

func (a *app) newShortenCmd() *cobra.Command {
	var f shortenFlags

	cmd := &cobra.Command{
		Use:   "shorten [flags] [annotation]",
		Short: "Add rescaled coordinates with shortened introns",
		Long: `Shorten intronic gaps and add rescaled_start and rescaled_end columns.

The annotation is a GTF file or a tab-separated table with at least the
columns seqnames, start, end, strand, type and the transcript id column.
Every gene is shortened separately; all exons of a gene must be on one
chromosome and strand. Use '-' to read a table from stdin. Without an
annotation, the GENCODE GTF fetched by download is used.`,
		Example: `  vibe-isoforms shorten --gene KRAS
  vibe-isoforms shorten gencode.v46.annotation.gtf.gz --gene KRAS
  vibe-isoforms shorten --target-gap-width 50 -o rescaled.tsv exons.tsv
  vibe-isoforms shorten --expression counts.tsv --top-n 5 --gene TP53 genes.gtf`,
		Args: rangeArgs(0, 1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.bindFlags(cmd, map[string]string{
				keyTargetGapWidth:     "target-gap-width",
				keyTranscriptIDColumn: "transcript-column",
				keyGeneColumn:         "gene-column",
				keyWorkers:            "workers",
				keyCache:              "cache",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := annotationPath(args, f.assembly)
			if err != nil {
				return err
			}
			return a.runShorten(cmd, path, f)
		},
	}

	flags := cmd.Flags()
	flags.Int64("target-gap-width", shorten.DefaultTargetGapWidth, "Maximum width of a shortened gap")
	flags.String("transcript-column", table.DefaultTranscriptIDColumn, "Column grouping features into transcripts")
	flags.String("gene-column", "gene_name", "Column grouping transcripts into genes")
	flags.Int("workers", 0, "Number of genes shortened in parallel (default: number of CPUs)")
	flags.String("cache", "", "DuckDB file caching rescaled genes")
	flags.StringVar(&f.assembly, "assembly", "GRCh38", "Assembly of the downloaded annotation used without an argument")
	flags.StringVar(&f.gene, "gene", "", "Only shorten this gene")
	flags.StringVarP(&f.output, "output", "o", "", "Output file (default: stdout)")
	flags.StringVar(&f.expression, "expression", "", "Expression matrix restricting the transcripts")
	flags.IntVar(&f.topN, "top-n", 0, "Keep the n most expressed transcripts (requires --expression)")
	flags.StringVar(&f.input.format, "input-format", "", "Input format: gtf, tsv (auto-detected if not specified)")
	flags.BoolVar(&f.input.stripVersion, "strip-version", false, "Strip version suffixes from GTF gene and transcript IDs")
	flags.StringSliceVar(&f.input.types, "types", nil, "GTF feature types to keep (default: exon,CDS,intron)")
	flags.StringVar(&f.input.chrom, "chrom", "", "Only read features on this chromosome")

	return cmd
}

func (a *app) runShorten(cmd *cobra.Command, path string, f shortenFlags) error {
	opts := shorten.Options{
		TranscriptIDColumn: a.v.GetString(keyTranscriptIDColumn),
		TargetGapWidth:     a.v.GetInt64(keyTargetGapWidth),
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if f.topN > 0 && f.expression == "" {
		return usageError{fmt.Errorf("--top-n requires --expression")}
	}
	geneColumn := a.v.GetString(keyGeneColumn)

	t, err := f.input.read(path, cmd.InOrStdin())
	if err != nil {
		return err
	}
	a.logger.Debug("read annotation", zap.String("path", path), zap.Int("rows", t.Len()))

	if f.expression != "" {
		if t, err = a.restrictToExpressed(t, f, opts.TranscriptIDColumn); err != nil {
			return err
		}
	}

	groups, err := splitGenes(t, geneColumn, f.gene)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(opts, a.v.GetInt(keyWorkers))
	runner.SetLogger(a.logger)
	if cachePath := a.v.GetString(keyCache); cachePath != "" {
		closeCache, err := a.enableCache(runner, cachePath)
		if err != nil {
			return err
		}
		defer closeCache()
	}

	out, closeOut, err := createOutput(f.output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() { _ = closeOut() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var (
		writer  *output.TabWriter
		failed  []pipeline.Result
		written int
		cached  int
	)
	err = pipeline.OrderedCollect(runner.Run(ctx, groups), func(r pipeline.Result) error {
		if r.Err != nil {
			a.logger.Warn("failed to shorten gene", zap.String("gene", r.Gene), zap.Error(r.Err))
			failed = append(failed, r)
			return nil
		}
		if writer == nil {
			writer = output.NewTabWriter(out, r.Table.Columns())
			if err := writer.WriteHeader(); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
		}
		if err := writer.WriteRows(r.Table); err != nil {
			return fmt.Errorf("write gene %s: %w", r.Gene, err)
		}
		written++
		if r.Cached {
			cached++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if writer != nil {
		if err := writer.Flush(); err != nil {
			return fmt.Errorf("flush output: %w", err)
		}
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	a.logger.Info("shortened genes",
		zap.Int("genes", written),
		zap.Int("cached", cached),
		zap.Int("failed", len(failed)))

	switch {
	case len(failed) == 0:
		return nil
	case len(groups) == 1:
		return failed[0].Err
	default:
		return fmt.Errorf("%d of %d genes failed; first: %s: %w",
			len(failed), len(groups), failed[0].Gene, failed[0].Err)
	}
}

// annotationPath returns the annotation argument, or the downloaded GENCODE
// annotation when none is given.
func annotationPath(args []string, assembly string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	path, ok := findGENCODEFile(assembly)
	if !ok {
		return "", usageError{fmt.Errorf("no annotation given and no GENCODE annotation found for %s; "+
			"download one with: vibe-isoforms download --assembly %s", assembly, assembly)}
	}
	return path, nil
}

// restrictToExpressed keeps the annotation rows of transcripts present in the
// expression matrix, optionally only the most expressed ones.
func (a *app) restrictToExpressed(t *table.Table, f shortenFlags, column string) (*table.Table, error) {
	file, err := os.Open(f.expression)
	if err != nil {
		return nil, fmt.Errorf("open expression matrix: %w", err)
	}
	defer file.Close()

	m, err := expression.ReadMatrix(file)
	if err != nil {
		return nil, err
	}

	matcher := expression.NewMatcher(column)
	matcher.SetLogger(a.logger)
	if m, err = matcher.Match(t, m); err != nil {
		return nil, err
	}
	if f.topN > 0 {
		m = matcher.TopN(m, f.topN)
	}
	return matcher.Filter(t, m), nil
}

// splitGenes returns one group per gene, or the single requested gene. Tables
// without a gene column are treated as one gene.
func splitGenes(t *table.Table, geneColumn, gene string) ([]table.Group, error) {
	if gene != "" {
		g, err := table.FilterGene(t, geneColumn, gene)
		if err != nil {
			return nil, err
		}
		return []table.Group{{Key: gene, Table: g}}, nil
	}
	if !t.Has(geneColumn) {
		return []table.Group{{Table: t}}, nil
	}
	return table.SplitBy(t, geneColumn)
}

func (a *app) enableCache(runner *pipeline.Runner, cachePath string) (func(), error) {
	store, err := duckdb.Open(cachePath)
	if err != nil {
		return nil, err
	}
	runner.SetCache(store)
	a.logger.Debug("using cache", zap.String("path", cachePath))
	return func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("close cache", zap.Error(err))
		}
	}, nil
}
