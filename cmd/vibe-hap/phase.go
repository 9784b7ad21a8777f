package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-hap/internal/exclude"
	"github.com/inodb/vibe-hap/internal/gnomad"
	"github.com/inodb/vibe-hap/internal/gtfilter"
	"github.com/inodb/vibe-hap/internal/pedigree"
	"github.com/inodb/vibe-hap/internal/region"
	"github.com/inodb/vibe-hap/internal/vcf"
)

type phaseOptions struct {
	input   string
	ped     string
	samples []string
	variant string
	output  string
}

func newPhaseCmd(a *app) *cobra.Command {
	var opts phaseOptions

	cmd := &cobra.Command{
		Use:   "phase",
		Short: "Write the haplotype table around an index variant",
		Long: `Phase the samples of interest at the index variant using their parents'
genotypes, then report every biallelic SNV within --flanks bases on either side
in the same parent-of-origin order.`,
		Example: `  vibe-hap phase -i trio.vcf.gz -p family.ped -s child -v 1:1000-A/G
  vibe-hap phase -i cohort.vcf.gz -p cohort.ped -s c1 -s c2 -v chr7:140453136-A/T \
      --flanks 500000 --informative-only -g gnomad.duckdb --min-other-allele-freq 0.01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhase(cmd, a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "Input VCF (plain or gzipped, sorted by position)")
	f.StringVarP(&opts.ped, "ped", "p", "", "PED file describing the samples' families")
	f.StringSliceVarP(&opts.samples, "samples", "s", nil, "Samples to report haplotypes for")
	f.StringVarP(&opts.variant, "variant", "v", "", "Index variant as chrom:pos-REF/ALT")
	f.StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout)")

	f.Int64P("flanks", "f", region.DefaultFlanks, "Bases either side of the index variant to scan")
	f.StringSliceP("gnomad", "g", nil, "gnomAD/ExAC VCFs or freqdb databases to annotate and filter with")
	f.String("gnomad-pop", gnomad.DefaultPopulation, "Population to report AF_<pop> for")
	f.Float64("min-other-allele-freq", 0, "Skip variants covering all samples whose non-haplotype allele is rarer than this")
	f.Int("gq", 0, "Minimum genotype quality")
	f.Int("dp", 0, "Minimum depth")
	f.Float64("het-ab", 0, "Minimum ALT allele balance (0.0-0.5) for heterozygous calls")
	f.Float64("hom-ab", 0, "Minimum ALT allele balance (0.5-1.0) for homozygous ALT calls")
	f.Bool("informative-only", false, "Only output variants phased in at least one sample")
	f.Bool("phased-in-all", false, "Only output variants phased in every sample")
	f.Int("max-no-calls", 0, "Skip variants with more no-call samples than this")
	f.Bool("output-alleles", false, "Write two allele columns per sample")
	f.String("exclude-regions", "", "BED file of regions whose variants are skipped")

	for key, flag := range map[string]string{
		"flanks":                       "flanks",
		"gnomad.sources":               "gnomad",
		"gnomad.pop":                   "gnomad-pop",
		"gnomad.min_other_allele_freq": "min-other-allele-freq",
		"filter.gq":                    "gq",
		"filter.dp":                    "dp",
		"filter.het_ab":                "het-ab",
		"filter.hom_ab":                "hom-ab",
		"informative_only":             "informative-only",
		"phased_in_all":                "phased-in-all",
		"max_no_calls":                 "max-no-calls",
		"output_alleles":               "output-alleles",
		"exclude_regions":              "exclude-regions",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}

	return cmd
}

// phaseConfig assembles the scan configuration from flags, the config file
// and the environment.
func phaseConfig(opts phaseOptions) region.Config {
	cfg := region.Config{
		Variant: opts.variant,
		Samples: opts.samples,
		Flanks:  viper.GetInt64("flanks"),
		Filter: gtfilter.Filter{
			GQ:    viper.GetInt("filter.gq"),
			DP:    viper.GetInt("filter.dp"),
			HetAB: viper.GetFloat64("filter.het_ab"),
			HomAB: viper.GetFloat64("filter.hom_ab"),
		},
		InformativeOnly:  viper.GetBool("informative_only"),
		PhasedInAll:      viper.GetBool("phased_in_all"),
		OutputAlleles:    viper.GetBool("output_alleles"),
		FrequencySources: viper.GetStringSlice("gnomad.sources"),
		Population:       viper.GetString("gnomad.pop"),
		Invocation:       strings.Join(os.Args, " "),
	}
	if viper.IsSet("max_no_calls") {
		n := viper.GetInt("max_no_calls")
		cfg.MaxNoCalls = &n
	}
	if viper.IsSet("gnomad.min_other_allele_freq") {
		f := viper.GetFloat64("gnomad.min_other_allele_freq")
		cfg.MinOtherAlleleFreq = &f
	}
	return cfg
}

func runPhase(cmd *cobra.Command, a *app, opts phaseOptions) error {
	var missing []string
	for _, req := range []struct{ name, val string }{
		{"input", opts.input},
		{"ped", opts.ped},
		{"variant", opts.variant},
	} {
		if req.val == "" {
			missing = append(missing, "--"+req.name)
		}
	}
	if len(opts.samples) == 0 {
		missing = append(missing, "--samples")
	}
	if len(missing) > 0 {
		return &usageError{err: fmt.Errorf("required flags not set: %s", strings.Join(missing, ", "))}
	}

	cfg := phaseConfig(opts)
	if err := cfg.Validate(); err != nil {
		return &usageError{err: err}
	}
	if cfg.MinOtherAlleleFreq != nil && len(cfg.FrequencySources) == 0 {
		a.logger.Warn("--min-other-allele-freq has no effect without --gnomad")
	}

	ped, err := pedigree.Load(opts.ped)
	if err != nil {
		return err
	}
	a.logger.Debug("loaded pedigree", zap.String("path", opts.ped), zap.Int("individuals", ped.Len()))

	var ex *exclude.Regions
	if path := viper.GetString("exclude_regions"); path != "" {
		ex, err = exclude.Load(path)
		if err != nil {
			return err
		}
		a.logger.Info("loaded exclusion regions", zap.String("path", path), zap.Int("regions", ex.Len()))
	}

	out, closeOut, err := openOutput(cmd, opts.output)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	input := opts.input
	if idx := vcf.IndexPath(input); idx != "" {
		a.logger.Debug("reading regions through index", zap.String("index", idx))
	} else {
		a.logger.Debug("no tabix or CSI index, scanning input", zap.String("input", input))
	}
	open := func() (vcf.RecordSource, error) {
		p, err := vcf.NewParser(input)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	session := region.NewSession(cfg, open, ped, out)
	session.SetExclude(ex)
	session.SetLogger(a.logger)
	_, runErr := session.Run(ctx)
	if err := closeOut(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close output: %w", err)
	}
	return runErr
}

// openOutput returns the output stream: a file, or stdout for "" and "-".
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}
