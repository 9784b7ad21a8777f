package phase

import "github.com/inodb/vibe-hap/internal/vcf"

// unknownHaplotype is reported when no allele dominates the phased samples.
const unknownHaplotype = "?"

// Background counts genotypes of unrelated samples.
type Background struct {
	HomRef int
	Het    int
	HomAlt int
}

// AlleleNumber returns the number of called alleles.
func (b Background) AlleleNumber() int {
	return 2 * (b.HomRef + b.Het + b.HomAlt)
}

// AltFrequency returns the ALT allele frequency, or 0 with no calls.
func (b Background) AltFrequency() float64 {
	an := b.AlleleNumber()
	if an == 0 {
		return 0
	}
	return float64(b.Het+2*b.HomAlt) / float64(an)
}

// Result is the outcome of phasing one variant.
type Result struct {
	Variant *vcf.Variant
	Alleles []string
	Calls   []Call // one per sample of interest, in order

	// Haplotype is the allele index carried by most phased samples, or
	// vcf.Missing on a tie or when nothing was phased.
	Haplotype  int
	InPhase    int // N_IN_PHASE
	Compatible int // N_COMPAT
	Background Background

	Informative bool // at least one sample phased
	AllPhased   bool // every sample of interest phased
	NoCalls     int

	nSample int
}

// tally computes the haplotype allele, N_IN_PHASE, N_COMPAT and the
// informativeness flags from the calls.
func (r *Result) tally() {
	var ref, alt int
	for _, c := range r.Calls {
		switch {
		case c.Kind == NoCall:
			r.NoCalls++
		case c.Kind != Phased:
		case c.First() == 0:
			ref++
		default:
			alt++
		}
	}

	r.Haplotype = vcf.Missing
	switch {
	case ref > alt:
		r.Haplotype = 0
	case alt > ref:
		r.Haplotype = 1
	}
	r.InPhase = max(ref, alt)
	r.Compatible = r.InPhase

	if r.Haplotype != vcf.Missing {
		for _, c := range r.Calls {
			if c.Kind == NoCall || (c.Kind == Unphased && c.Genotype.Contains(r.Haplotype)) {
				r.Compatible++
			}
		}
	}

	phased := ref + alt
	r.Informative = phased > 0
	r.AllPhased = phased == r.nSample
}

// HaplotypeAllele returns the haplotype allele sequence, or "?".
func (r *Result) HaplotypeAllele() string {
	if r.InPhase == 0 || r.Haplotype == vcf.Missing {
		return unknownHaplotype
	}
	return r.Alleles[r.Haplotype]
}

// Row is one line of the haplotype table.
type Row struct {
	Chrom        string
	Pos          int64
	ID           string
	Ref          string
	Alt          string
	Hap          string
	InPhase      int
	Compatible   int
	Calls        []Call
	Alleles      []string
	AlleleNumber int
	AltFrequency float64
}

// Row builds the table row for a flanking variant.
func (r *Result) Row() Row {
	return r.row(r.Variant.ID)
}

// IndexRow builds the table row for the index variant, marking its ID.
func (r *Result) IndexRow() Row {
	return r.row(r.Variant.ID + "|INDEX")
}

func (r *Result) row(id string) Row {
	return Row{
		Chrom:        r.Variant.Chrom,
		Pos:          r.Variant.Pos,
		ID:           id,
		Ref:          r.Variant.Ref,
		Alt:          r.Variant.Alt,
		Hap:          r.HaplotypeAllele(),
		InPhase:      r.InPhase,
		Compatible:   r.Compatible,
		Calls:        r.Calls,
		Alleles:      r.Alleles,
		AlleleNumber: r.Background.AlleleNumber(),
		AltFrequency: r.Background.AltFrequency(),
	}
}

// SampleColumns renders the per-sample columns: one genotype column per
// sample, or two allele columns per sample when split is true.
func (row Row) SampleColumns(split bool) []string {
	if !split {
		cols := make([]string, len(row.Calls))
		for i, c := range row.Calls {
			cols[i] = c.Text(row.Alleles)
		}
		return cols
	}
	cols := make([]string, 0, 2*len(row.Calls))
	for _, c := range row.Calls {
		a, b := c.AlleleTexts(row.Alleles)
		cols = append(cols, a, b)
	}
	return cols
}
