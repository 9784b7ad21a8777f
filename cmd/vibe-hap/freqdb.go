package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-hap/internal/gnomad"
	"github.com/inodb/vibe-hap/internal/vcf"
)

func newFreqDBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "freqdb",
		Short: "Manage population frequency databases",
		Long: `Build DuckDB databases from gnomAD or ExAC VCFs. Passing a database to
"phase --gnomad" avoids re-reading the VCF on every run.`,
	}
	cmd.AddCommand(newFreqDBImportCmd(a))
	cmd.AddCommand(newFreqDBInfoCmd())
	return cmd
}

func newFreqDBImportCmd(a *app) *cobra.Command {
	var (
		outputPath string
		pop        string
		replace    bool
	)

	cmd := &cobra.Command{
		Use:   "import <vcf>...",
		Short: "Import gnomAD/ExAC VCFs into a DuckDB database",
		Example: `  # One database from per-chromosome files
  vibe-hap freqdb import -o gnomad.duckdb gnomad.exomes.chr1.vcf.bgz gnomad.exomes.chr2.vcf.bgz

  # Report non-Finnish European frequencies
  vibe-hap freqdb import -o gnomad_nfe.duckdb --pop NFE gnomad.exomes.vcf.bgz`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFreqDBImport(cmd, a.logger, args, outputPath, pop, replace)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output DuckDB file path")
	cmd.Flags().StringVar(&pop, "pop", gnomad.DefaultPopulation, "Population whose AF_<pop> values are stored")
	cmd.Flags().BoolVar(&replace, "replace", false, "Remove an existing output file first")
	return cmd
}

func runFreqDBImport(cmd *cobra.Command, logger *zap.Logger, inputs []string, outputPath, pop string, replace bool) error {
	if outputPath == "" {
		return &usageError{err: fmt.Errorf("--output is required")}
	}
	// Ensure output has .duckdb extension
	if !gnomad.IsDatabase(outputPath) {
		outputPath = outputPath + ".duckdb"
	}
	if replace {
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove existing database: %w", err)
		}
	}

	store, err := gnomad.Open(outputPath)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, in := range inputs {
		stdin := in == "-"
		done := false
		if !stdin {
			if done, err = store.Imported(in); err != nil {
				return fmt.Errorf("import %s: %w", in, err)
			}
		}
		if done {
			logger.Info("skipping already imported file", zap.String("input", in))
			continue
		}
		logger.Info("importing frequencies", zap.String("input", in), zap.String("pop", pop))
		p, err := vcf.NewParser(in)
		if err != nil {
			return err
		}
		n, err := store.Import(p, pop)
		p.Close()
		if err != nil {
			return fmt.Errorf("import %s: %w", in, err)
		}
		if !stdin {
			if err := store.RecordImport(in, n); err != nil {
				return err
			}
		}
		logger.Info("imported alleles", zap.String("input", in), zap.Int64("alleles", n))
	}

	count, err := store.Count()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d alleles to %s\n", count, outputPath)
	if stat, err := os.Stat(outputPath); err == nil {
		logger.Debug("database size", zap.String("path", filepath.Clean(outputPath)), zap.Int64("bytes", stat.Size()))
	}
	return nil
}

func newFreqDBInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <database>",
		Short: "Show the population, allele count and imported files of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("open frequency database: %w", err)
			}
			store, err := gnomad.Open(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			pop, err := store.Population()
			if err != nil {
				return err
			}
			count, err := store.Count()
			if err != nil {
				return err
			}
			files, err := store.Imports()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "population: %s\nalleles: %d\n", pop, count)
			for _, f := range files {
				fmt.Fprintf(w, "source: %s (%d alleles)\n", f.Path, f.Alleles)
			}
			return nil
		},
	}
}
