// Package main provides the vibe-isoforms command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-isoforms/internal/shorten"
	"github.com/inodb/vibe-isoforms/internal/table"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Configuration keys.
const (
	keyTargetGapWidth     = "target_gap_width"
	keyTranscriptIDColumn = "transcript_id_column"
	keyGeneColumn         = "gene_column"
	keyWorkers            = "workers"
	keyCache              = "cache"
)

const configName = ".vibe-isoforms.yaml"

// usageError marks errors caused by invalid command-line usage.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// app holds state shared by all subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
	logger  *zap.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{v: viper.New(), logger: zap.NewNop()}
	defer func() { _ = a.logger.Sync() }()

	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			return ExitUsage
		}
		var se *table.SchemaError
		if errors.As(err, &se) || errors.Is(err, shorten.ErrInvalidTargetGapWidth) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vibe-isoforms",
		Short: "Shorten intronic gaps of transcript annotations",
		Long: `vibe-isoforms rescales transcript annotations so that long introns are
compressed to a fixed maximum width while exon and CDS lengths are kept.
The rescaled coordinates are added as rescaled_start and rescaled_end columns.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			return a.initLogger()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default: ~/"+configName+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(a.newShortenCmd())
	root.AddCommand(a.newExonNumberCmd())
	root.AddCommand(a.newIntronsCmd())
	root.AddCommand(a.newCacheCmd())
	root.AddCommand(a.newDownloadCmd())
	root.AddCommand(a.newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vibe-isoforms version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// initConfig reads the config file and environment.
func (a *app) initConfig() error {
	a.v.SetDefault(keyTargetGapWidth, shorten.DefaultTargetGapWidth)
	a.v.SetDefault(keyTranscriptIDColumn, table.DefaultTranscriptIDColumn)
	a.v.SetDefault(keyGeneColumn, "gene_name")
	a.v.SetDefault(keyWorkers, 0)
	a.v.SetDefault(keyCache, "")

	a.v.SetEnvPrefix("VIBE_ISOFORMS")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		a.v.SetConfigFile(filepath.Join(home, configName))
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func (a *app) initLogger() error {
	var cfg zap.Config
	if a.verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.OutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.logger = l
	return nil
}

// bindFlags binds command flags to config keys. Flags set on the command line
// take precedence over the environment and the config file.
func (a *app) bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// rangeArgs wraps cobra.RangeArgs so that argument errors exit with ExitUsage.
func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.RangeArgs(lo, hi)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// exactArgs wraps cobra.ExactArgs so that argument errors exit with ExitUsage.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
