package region

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/inodb/vibe-hap/internal/exclude"
	"github.com/inodb/vibe-hap/internal/freq"
	"github.com/inodb/vibe-hap/internal/gnomad"
	"github.com/inodb/vibe-hap/internal/output"
	"github.com/inodb/vibe-hap/internal/pedigree"
	"github.com/inodb/vibe-hap/internal/phase"
	"github.com/inodb/vibe-hap/internal/vcf"
)

var (
	// ErrSampleNotInVCF is returned for a sample of interest missing from
	// the VCF header.
	ErrSampleNotInVCF = errors.New("sample is not in VCF file")

	// ErrIndexNotFound is returned when no record carries the index allele.
	ErrIndexNotFound = errors.New("could not find matching variant")

	// ErrIndexNotBiallelic is returned when the index record has more than
	// one ALT allele.
	ErrIndexNotBiallelic = errors.New("can only phase around biallelic variants")

	// ErrIndexNotPhaseable is returned when the index variant is an indel
	// or no sample of interest carries its ALT allele.
	ErrIndexNotPhaseable = errors.New("index variant cannot be phased")
)

// Summary reports the outcome of a scan.
type Summary struct {
	Left  Stats
	Right Stats
	// Reversed is the number of samples reported maternal allele first.
	Reversed int
}

// Session runs one scan around an index variant.
type Session struct {
	cfg     Config
	open    Opener
	ped     *pedigree.File
	exclude *exclude.Regions
	out     io.Writer
	logger  *zap.Logger
}

// NewSession creates a session writing the haplotype table to out. open is
// called once per pass over the VCF.
func NewSession(cfg Config, open Opener, ped *pedigree.File, out io.Writer) *Session {
	return &Session{cfg: cfg, open: open, ped: ped, out: out, logger: zap.NewNop()}
}

// SetExclude sets regions whose variants are skipped.
func (s *Session) SetExclude(r *exclude.Regions) {
	s.exclude = r
}

// SetLogger sets the logger passed to the engine and walkers.
func (s *Session) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Run validates the samples, phases the index variant, then writes the
// left flank, the index row and the right flank.
func (s *Session) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	if err := s.cfg.Validate(); err != nil {
		return sum, err
	}
	spec, err := vcf.ParseVariantSpec(s.cfg.Variant)
	if err != nil {
		return sum, err
	}

	src, err := s.open()
	if err != nil {
		return sum, err
	}
	names := src.SampleNames()
	columns := src.SampleIndex()
	if err := s.checkSamples(columns); err != nil {
		src.Close()
		return sum, err
	}
	unrelated := Unrelated(names, s.cfg.Samples, s.ped)
	s.logger.Debug("background samples", zap.Int("unrelated", len(unrelated)))

	s.logger.Info("searching input VCF for index variant", zap.Stringer("variant", spec))
	index, err := findIndex(src, spec)
	src.Close()
	if err != nil {
		return sum, err
	}

	orientation := phase.NewOrientation()
	engine := phase.NewEngine(s.cfg.Samples, unrelated, columns, s.ped, s.cfg.Filter, orientation)
	engine.SetLogger(s.logger)
	if s.cfg.Filter.Enabled() {
		s.logger.Debug("genotype filter", zap.Strings("format_fields", s.cfg.Filter.Fields()))
	}
	res, err := engine.Phase(index, phase.EstablishOrientation)
	if err != nil {
		return sum, err
	}
	if res == nil {
		return sum, fmt.Errorf("%w: %s", ErrIndexNotPhaseable, spec)
	}
	sum.Reversed = orientation.Len()

	left, right := Window(spec.Pos, s.cfg.Flanks)

	dbs, closeDBs, err := s.openFrequencySources(spec.Chrom, left.Start, right.End)
	if err != nil {
		return sum, err
	}
	defer closeDBs()
	annotator := freq.NewAnnotator(dbs, len(s.cfg.Samples))
	annotator.SetLogger(s.logger)
	if s.cfg.MinOtherAlleleFreq != nil {
		annotator.SetMinOtherAlleleFreq(*s.cfg.MinOtherAlleleFreq)
	}

	writer := output.NewTabWriter(s.out, s.cfg.Samples, s.cfg.OutputAlleles, annotator.Enabled())
	if s.cfg.Invocation != "" {
		if err := writer.WriteComment(s.cfg.Invocation); err != nil {
			return sum, fmt.Errorf("write output: %w", err)
		}
	}
	if err := writer.WriteHeader(); err != nil {
		return sum, fmt.Errorf("write output: %w", err)
	}

	walker := NewWalker(s.open, engine, s.exclude, annotator, writer, s.cfg.Policy(), s.cfg.MaxNoCalls)
	walker.SetLogger(s.logger)

	sum.Left, err = walker.Walk(ctx, spec.Chrom, left.Start, left.End)
	if err != nil {
		writer.Flush()
		return sum, err
	}
	if _, err := walker.emit(res.IndexRow(), index, false); err != nil {
		writer.Flush()
		return sum, err
	}
	sum.Right, err = walker.Walk(ctx, spec.Chrom, right.Start, right.End)
	if err != nil {
		writer.Flush()
		return sum, err
	}
	if err := writer.Flush(); err != nil {
		return sum, fmt.Errorf("write output: %w", err)
	}

	var total Stats
	total.add(sum.Left)
	total.add(sum.Right)
	s.logger.Info("finished",
		zap.Int("parsed", total.Parsed),
		zap.Int("written", total.Written),
		zap.Int("left_written", sum.Left.Written),
		zap.Int("right_written", sum.Right.Written),
		zap.Int("excluded", total.Excluded),
		zap.Int("suppressed", total.Suppressed))
	return sum, nil
}

func (s *Session) checkSamples(columns map[string]int) error {
	for _, smp := range s.cfg.Samples {
		if _, ok := columns[smp]; !ok {
			return fmt.Errorf("%w: %q", ErrSampleNotInVCF, smp)
		}
		if _, err := s.ped.Individual(smp); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) openFrequencySources(chrom string, start, end int64) ([]freq.Database, func(), error) {
	var stores []*gnomad.Store
	closeAll := func() {
		for _, st := range stores {
			st.Close()
		}
	}
	dbs := make([]freq.Database, 0, len(s.cfg.FrequencySources))
	for _, path := range s.cfg.FrequencySources {
		s.logger.Info("loading frequency source", zap.String("path", path))
		st, err := gnomad.OpenSource(path, s.cfg.Population, chrom, start, end)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		stores = append(stores, st)
		dbs = append(dbs, st)
		if n, err := st.Count(); err == nil {
			s.logger.Debug("frequency source ready", zap.String("source", st.Source()), zap.Int64("alleles", n))
		}
	}
	return dbs, closeAll, nil
}

// Unrelated returns the background samples: VCF samples absent from the
// pedigree plus one sample per family not represented by the samples of
// interest, in VCF order.
func Unrelated(vcfSamples, samples []string, ped *pedigree.File) []string {
	families := make(map[string]bool)
	for _, s := range samples {
		if ind, err := ped.Individual(s); err == nil {
			families[ind.FamilyID] = true
		}
	}
	var out []string
	for _, s := range vcfSamples {
		if !ped.Has(s) {
			out = append(out, s)
			continue
		}
		ind, _ := ped.Individual(s)
		if !families[ind.FamilyID] {
			out = append(out, s)
			families[ind.FamilyID] = true
		}
	}
	return out
}

// findIndex returns the first record overlapping the spec whose decomposed
// alleles include it exactly.
func findIndex(src vcf.RecordSource, spec vcf.Spec) (*vcf.Variant, error) {
	src.SetRegion(spec.Chrom, spec.Pos, spec.End())
	for {
		v, err := src.Next()
		if err != nil {
			return nil, fmt.Errorf("search index variant: %w", err)
		}
		if v == nil {
			return nil, fmt.Errorf("%w for %s", ErrIndexNotFound, spec)
		}
		for _, a := range v.Decompose() {
			if !spec.Matches(a) {
				continue
			}
			if !v.IsBiallelic() {
				return nil, fmt.Errorf("%w: index variant has %d alleles", ErrIndexNotBiallelic, len(v.Alleles()))
			}
			return v, nil
		}
	}
}
