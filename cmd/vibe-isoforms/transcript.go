package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-isoforms/internal/output"
	"github.com/inodb/vibe-isoforms/internal/table"
	"github.com/inodb/vibe-isoforms/internal/transcript"
)

type transcriptFlags struct {
	input  annotationInput
	gene   string
	output string
}

func (a *app) newExonNumberCmd() *cobra.Command {
	return a.newTranscriptCmd(&cobra.Command{
		Use:   "exon-number [flags] <annotation>",
		Short: "Number exons in transcription order",
		Long: `Add an exon_number column. Exons are numbered 1..n in transcription order,
CDS rows take the number of the exon they overlap and introns the number of
their upstream exon.`,
		Example: `  vibe-isoforms exon-number exons.tsv
  vibe-isoforms exon-number --gene KRAS gencode.v46.annotation.gtf.gz`,
	}, transcript.CalculateExonNumber)
}

func (a *app) newIntronsCmd() *cobra.Command {
	return a.newTranscriptCmd(&cobra.Command{
		Use:   "introns [flags] <annotation>",
		Short: "Add intron rows between consecutive exons",
		Long: `Add one intron row between every pair of consecutive, non-adjacent exons
of a transcript. Introns are numbered halfway between their flanking exons.`,
		Example: `  vibe-isoforms introns exons.tsv
  vibe-isoforms introns --gene KRAS -o kras_introns.tsv gencode.v46.annotation.gtf.gz`,
	}, transcript.ToIntron)
}

// newTranscriptCmd completes a command that applies a per-transcript
// transformation to the whole annotation.
func (a *app) newTranscriptCmd(cmd *cobra.Command, transform func(*table.Table, string) (*table.Table, error)) *cobra.Command {
	var f transcriptFlags

	cmd.Args = exactArgs(1)
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		return a.bindFlags(cmd, map[string]string{
			keyTranscriptIDColumn: "transcript-column",
			keyGeneColumn:         "gene-column",
		})
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		t, err := f.input.read(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		if f.gene != "" {
			if t, err = table.FilterGene(t, a.v.GetString(keyGeneColumn), f.gene); err != nil {
				return err
			}
		}

		column := a.v.GetString(keyTranscriptIDColumn)
		t, err = transform(t, column)
		if err != nil {
			return err
		}
		a.logger.Debug("transformed annotation",
			zap.String("command", cmd.Name()),
			zap.Int("rows", t.Len()))

		out, closeOut, err := createOutput(f.output, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if err := output.WriteTable(out, t); err != nil {
			closeOut()
			return err
		}
		return closeOut()
	}

	flags := cmd.Flags()
	flags.String("transcript-column", table.DefaultTranscriptIDColumn, "Column grouping features into transcripts")
	flags.String("gene-column", "gene_name", "Column used by --gene")
	flags.StringVar(&f.gene, "gene", "", "Only process this gene")
	flags.StringVarP(&f.output, "output", "o", "", "Output file (default: stdout)")
	flags.StringVar(&f.input.format, "input-format", "", "Input format: gtf, tsv (auto-detected if not specified)")
	flags.BoolVar(&f.input.stripVersion, "strip-version", false, "Strip version suffixes from GTF gene and transcript IDs")
	flags.StringSliceVar(&f.input.types, "types", nil, "GTF feature types to keep (default: exon,CDS,intron)")
	flags.StringVar(&f.input.chrom, "chrom", "", "Only read features on this chromosome")

	return cmd
}
