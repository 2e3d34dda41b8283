package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-isoforms/internal/duckdb"
)

func (a *app) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the rescaled-gene cache",
		Long: `List or remove the rescaled genes stored in the DuckDB cache used by
shorten --cache. The cache file is taken from --cache or the cache config key.`,
		Example: `  vibe-isoforms cache list --cache rescaled.duckdb
  vibe-isoforms cache list --gene KRAS
  vibe-isoforms cache clear`,
		Args: cobra.NoArgs,
	}
	cmd.PersistentFlags().String("cache", "", "DuckDB cache file")

	for _, sub := range []*cobra.Command{a.newCacheListCmd(), a.newCacheClearCmd()} {
		sub.PreRunE = func(cmd *cobra.Command, args []string) error {
			return a.bindFlags(cmd, map[string]string{keyCache: "cache"})
		}
		cmd.AddCommand(sub)
	}
	return cmd
}

func (a *app) newCacheListCmd() *cobra.Command {
	var gene string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCache(func(store *duckdb.Store) error {
				keys, err := store.Keys(gene)
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&gene, "gene", "", "Only list entries of this gene")
	return cmd
}

func (a *app) newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached gene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCache(func(store *duckdb.Store) error {
				if err := store.ClearRescaled(); err != nil {
					return fmt.Errorf("clear cache: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", store.Path())
				return nil
			})
		},
	}
}

func (a *app) withCache(fn func(*duckdb.Store) error) error {
	path := a.v.GetString(keyCache)
	if path == "" {
		return usageError{fmt.Errorf("no cache file: set --cache or the %s config key", keyCache)}
	}
	store, err := duckdb.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
