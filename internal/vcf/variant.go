// Package vcf provides VCF file parsing functionality.
package vcf

import "strings"

// Variant represents a single VCF record.
type Variant struct {
	Chrom  string                 // Chromosome name (e.g., "12", "chr12")
	Pos    int64                  // 1-based genomic position
	ID     string                 // Variant identifier (e.g., rs ID)
	Ref    string                 // Reference allele
	Alt    string                 // Comma-separated alternate alleles
	Qual   float64                // Quality score
	Filter string                 // Filter status (PASS or filter name)
	Info   map[string]interface{} // INFO field key-value pairs

	// SampleColumns holds the raw FORMAT and sample columns, tab-joined.
	SampleColumns string

	genotypes []Genotype
	parsed    bool
}

// Alts returns the alternate alleles.
func (v *Variant) Alts() []string {
	if v.Alt == "" || v.Alt == "." {
		return nil
	}
	return strings.Split(v.Alt, ",")
}

// Alleles returns the reference allele followed by the alternate alleles,
// so that a genotype allele index can be used to look up its sequence.
func (v *Variant) Alleles() []string {
	return append([]string{v.Ref}, v.Alts()...)
}

// IsBiallelic returns true if the record has exactly one alternate allele.
func (v *Variant) IsBiallelic() bool {
	return len(v.Alleles()) == 2
}

// End returns the last reference base covered by the record.
func (v *Variant) End() int64 {
	if len(v.Ref) == 0 {
		return v.Pos
	}
	return v.Pos + int64(len(v.Ref)) - 1
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	return NormalizeChrom(v.Chrom)
}

// NormalizeChrom strips a leading "chr" from a chromosome name.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && chrom[:3] == "chr" {
		return chrom[3:]
	}
	return chrom
}

// InfoString returns the string value of an INFO key and whether it was present.
// Flag-type keys are reported as absent.
func (v *Variant) InfoString(key string) (string, bool) {
	val, ok := v.Info[key]
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// InfoAllele returns the i-th comma-separated value of a per-allele INFO key,
// or "." when the key or the value is absent.
func (v *Variant) InfoAllele(key string, i int) string {
	s, ok := v.InfoString(key)
	if !ok {
		return "."
	}
	vals := strings.Split(s, ",")
	if i < 0 || i >= len(vals) || vals[i] == "" {
		return "."
	}
	return vals[i]
}

// Genotypes parses and caches the per-sample genotype calls.
func (v *Variant) Genotypes() ([]Genotype, error) {
	if v.parsed {
		return v.genotypes, nil
	}
	if v.SampleColumns == "" {
		v.parsed = true
		return nil, nil
	}
	cols := strings.Split(v.SampleColumns, "\t")
	gts, err := ParseGenotypes(cols[0], cols[1:])
	if err != nil {
		return nil, err
	}
	v.genotypes = gts
	v.parsed = true
	return gts, nil
}
