// Package phase infers parent-of-origin haplotypes from trio genotypes.
package phase

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-hap/internal/pedigree"
	"github.com/inodb/vibe-hap/internal/vcf"
)

// Mode selects whether phasing a variant may set orientation flags.
type Mode int

const (
	// UseOrientation reads the orientation memory without changing it.
	UseOrientation Mode = iota
	// EstablishOrientation records each sample's orientation; used once,
	// for the index variant.
	EstablishOrientation
)

// Pedigree looks up a sample's parents.
type Pedigree interface {
	Individual(id string) (*pedigree.Individual, error)
}

// Admissibility decides whether a genotype call can be trusted for an allele.
type Admissibility interface {
	OK(g vcf.Genotype, allele int) bool
}

// Engine phases samples of interest at one variant at a time.
type Engine struct {
	samples     []string
	unrelated   []string
	columns     map[string]int // sample name -> genotype column
	ped         Pedigree
	filter      Admissibility
	orientation *Orientation
	logger      *zap.Logger
}

// NewEngine creates an engine for the given samples of interest and
// unrelated background samples. columns maps every VCF sample to its
// genotype column.
func NewEngine(samples, unrelated []string, columns map[string]int, ped Pedigree, filter Admissibility, orientation *Orientation) *Engine {
	return &Engine{
		samples:     samples,
		unrelated:   unrelated,
		columns:     columns,
		ped:         ped,
		filter:      filter,
		orientation: orientation,
		logger:      zap.NewNop(),
	}
}

// SetLogger sets the logger for skip and de novo messages.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Phase phases every sample of interest at v. It returns nil, nil when the
// variant cannot be used: not biallelic, an indel, or no sample of interest
// carries an admissible ALT allele.
func (e *Engine) Phase(v *vcf.Variant, mode Mode) (*Result, error) {
	alleles := v.Alleles()
	if len(alleles) != 2 {
		e.logger.Debug("skipping non-biallelic variant",
			zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos))
		return nil, nil
	}
	if len(alleles[0]) != len(alleles[1]) {
		e.logger.Debug("skipping indel variant",
			zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos))
		return nil, nil
	}

	gts, err := v.Genotypes()
	if err != nil {
		return nil, fmt.Errorf("genotypes at %s:%d: %w", v.Chrom, v.Pos, err)
	}

	res := &Result{
		Variant: v,
		Alleles: alleles,
		Calls:   make([]Call, 0, len(e.samples)),
		nSample: len(e.samples),
	}
	withAlt := false
	for _, s := range e.samples {
		call, hasAlt, err := e.phaseSample(v, gts, s, mode)
		if err != nil {
			return nil, err
		}
		withAlt = withAlt || hasAlt
		res.Calls = append(res.Calls, call)
	}
	if !withAlt {
		e.logger.Debug("skipping variant without ALT allele in samples",
			zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos))
		return nil, nil
	}

	res.Background = e.background(gts)
	res.tally()
	return res, nil
}

// phaseSample returns the call for one sample and whether it carries an
// admissible ALT allele.
func (e *Engine) phaseSample(v *vcf.Variant, gts []vcf.Genotype, s string, mode Mode) (Call, bool, error) {
	call := Call{Sample: s, Kind: NoCall}

	g, ok := e.genotype(gts, s)
	if !ok || !diploid(g) || !e.filter.OK(g, 0) || !e.filter.OK(g, 1) {
		return call, false, nil
	}
	hasAlt := g.Contains(1)

	if g.IsHomozygous() {
		call.Kind = Phased
		call.Paternal, call.Maternal = g.GT[0], g.GT[0]
		return call, hasAlt, nil
	}

	call.Kind = Unphased
	call.Genotype = g

	ind, err := e.ped.Individual(s)
	if err != nil {
		return call, hasAlt, err
	}
	fgt, fok := e.parentGenotype(gts, ind.Father)
	mgt, mok := e.parentGenotype(gts, ind.Mother)
	if !fok && !mok {
		return call, hasAlt, nil
	}

	pat, mat := vcf.Missing, vcf.Missing
	if fok {
		pat = transmitted(fgt, mgt, mok)
	}
	if mok {
		mat = transmitted(mgt, fgt, fok)
	}
	switch {
	case pat == vcf.Missing && mat == vcf.Missing:
		return call, hasAlt, nil
	case mat == vcf.Missing:
		mat = complement(pat)
	case pat == vcf.Missing:
		pat = complement(mat)
	}
	if pat == mat {
		e.logger.Warn("apparent de novo variant",
			zap.String("sample", s),
			zap.String("variant", fmt.Sprintf("%s:%d-%s/%s", v.Chrom, v.Pos, v.Ref, v.Alt)))
		return call, hasAlt, nil
	}

	if mode == EstablishOrientation {
		e.orientation.establish(s, pat, mat)
	}
	call.Kind = Phased
	call.Paternal, call.Maternal = pat, mat
	call.Reversed = e.orientation.Reversed(s)
	return call, hasAlt, nil
}

// transmitted infers which allele a parent passed on, or vcf.Missing when
// the parent is heterozygous and the other parent cannot settle it. A
// parent transmits ALT when it carries no REF, or when the other parent is
// usable and carries no ALT.
func transmitted(parent, other vcf.Genotype, otherOK bool) int {
	if parent.Contains(1) {
		if !parent.Contains(0) || (otherOK && !other.Contains(1)) {
			return 1
		}
		return vcf.Missing
	}
	return 0
}

func complement(allele int) int {
	if allele == 0 {
		return 1
	}
	return 0
}

// parentGenotype returns a parent's call if it is in the VCF, fully called
// and admissible for its highest allele.
func (e *Engine) parentGenotype(gts []vcf.Genotype, id string) (vcf.Genotype, bool) {
	if id == "" {
		return vcf.Genotype{}, false
	}
	g, ok := e.genotype(gts, id)
	if !ok || !diploid(g) || !e.filter.OK(g, g.MaxAllele()) {
		return vcf.Genotype{}, false
	}
	return g, true
}

func (e *Engine) genotype(gts []vcf.Genotype, s string) (vcf.Genotype, bool) {
	i, ok := e.columns[s]
	if !ok || i >= len(gts) {
		return vcf.Genotype{}, false
	}
	return gts[i], true
}

// diploid returns true for a fully called biallelic diploid genotype.
func diploid(g vcf.Genotype) bool {
	return len(g.GT) == 2 && !g.HasMissing() && g.MaxAllele() <= 1
}

// background tallies called, admissible genotypes of unrelated samples.
func (e *Engine) background(gts []vcf.Genotype) Background {
	var b Background
	for _, u := range e.unrelated {
		g, ok := e.genotype(gts, u)
		if !ok || !diploid(g) || !e.filter.OK(g, g.MaxAllele()) {
			continue
		}
		switch g.GT[0] + g.GT[1] {
		case 0:
			b.HomRef++
		case 1:
			b.Het++
		default:
			b.HomAlt++
		}
	}
	return b
}
