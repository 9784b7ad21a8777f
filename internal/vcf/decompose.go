package vcf

import "strings"

// Allele is one alternate allele of a record reduced to its minimal
// representation.
type Allele struct {
	Chrom string
	Pos   int64
	Ref   string
	Alt   string
}

// Decompose returns the minimal representation of every alternate allele,
// in ALT order. Shared trailing bases are trimmed first, then shared leading
// bases (moving the position), always keeping at least one base on each side.
// Symbolic and spanning-deletion alleles are returned unchanged.
func (v *Variant) Decompose() []Allele {
	alts := v.Alts()
	out := make([]Allele, len(alts))
	for i, alt := range alts {
		out[i] = minimize(v.Chrom, v.Pos, v.Ref, alt)
	}
	return out
}

func minimize(chrom string, pos int64, ref, alt string) Allele {
	if alt == "*" || strings.HasPrefix(alt, "<") {
		return Allele{Chrom: chrom, Pos: pos, Ref: ref, Alt: alt}
	}
	for len(ref) > 1 && len(alt) > 1 && ref[len(ref)-1] == alt[len(alt)-1] {
		ref = ref[:len(ref)-1]
		alt = alt[:len(alt)-1]
	}
	for len(ref) > 1 && len(alt) > 1 && ref[0] == alt[0] {
		ref = ref[1:]
		alt = alt[1:]
		pos++
	}
	return Allele{Chrom: chrom, Pos: pos, Ref: ref, Alt: alt}
}
