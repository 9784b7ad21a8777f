package phase

import "github.com/inodb/vibe-hap/internal/vcf"

// Kind tags the outcome of phasing one sample at one variant.
type Kind int

const (
	// NoCall means the genotype was missing or failed the admissibility filter.
	NoCall Kind = iota
	// Unphased means the genotype is known but its parental origin is not.
	Unphased
	// Phased means parental origin is known (always true for homozygous calls).
	Phased
)

func (k Kind) String() string {
	switch k {
	case NoCall:
		return "NoCall"
	case Unphased:
		return "Unphased"
	case Phased:
		return "Phased"
	default:
		return "Unknown"
	}
}

// noCallText is written for samples without a usable call.
const noCallText = "NoCall"

// Call is the phasing outcome of one sample at one variant.
type Call struct {
	Sample string
	Kind   Kind

	// Phased: allele indices inherited from each parent, and whether the
	// sample reports maternal first.
	Paternal int
	Maternal int
	Reversed bool

	// Unphased: the called genotype.
	Genotype vcf.Genotype
}

// First returns the allele index reported first; this is the sample's
// in-phase allele. Only meaningful for Phased calls.
func (c Call) First() int {
	if c.Reversed {
		return c.Maternal
	}
	return c.Paternal
}

// Second returns the allele index reported second.
func (c Call) Second() int {
	if c.Reversed {
		return c.Paternal
	}
	return c.Maternal
}

// Text renders the call as a single column, e.g. "C|T", "C/T" or "NoCall".
func (c Call) Text(alleles []string) string {
	switch c.Kind {
	case Phased:
		return alleles[c.First()] + "|" + alleles[c.Second()]
	case Unphased:
		return c.Genotype.Format(alleles, "/")
	default:
		return noCallText
	}
}

// AlleleTexts renders the call as two columns. Unphased calls repeat the
// slash genotype in both columns.
func (c Call) AlleleTexts(alleles []string) (string, string) {
	switch c.Kind {
	case Phased:
		return alleles[c.First()], alleles[c.Second()]
	case Unphased:
		s := c.Genotype.Format(alleles, "/")
		return s, s
	default:
		return noCallText, noCallText
	}
}
