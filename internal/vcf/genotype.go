package vcf

import (
	"fmt"
	"strconv"
	"strings"
)

// Missing marks an uncalled allele or an absent numeric FORMAT value.
const Missing = -1

// Genotype holds the FORMAT values of one sample that matter for phasing.
type Genotype struct {
	GT     []int // allele indices, Missing for "."
	Phased bool
	GQ     int   // Missing when absent
	DP     int   // Missing when absent
	AD     []int // nil when absent or incomplete
}

// HasMissing returns true if any allele of the call is unknown.
func (g Genotype) HasMissing() bool {
	if len(g.GT) == 0 {
		return true
	}
	for _, a := range g.GT {
		if a == Missing {
			return true
		}
	}
	return false
}

// Contains returns true if the call carries the given allele index.
func (g Genotype) Contains(allele int) bool {
	for _, a := range g.GT {
		if a == allele {
			return true
		}
	}
	return false
}

// IsHomozygous returns true for a fully called call with a single distinct allele.
func (g Genotype) IsHomozygous() bool {
	if g.HasMissing() {
		return false
	}
	for _, a := range g.GT[1:] {
		if a != g.GT[0] {
			return false
		}
	}
	return true
}

// IsHeterozygous returns true for a fully called call with more than one distinct allele.
func (g Genotype) IsHeterozygous() bool {
	return !g.HasMissing() && !g.IsHomozygous()
}

// MaxAllele returns the highest allele index in the call.
func (g Genotype) MaxAllele() int {
	m := Missing
	for _, a := range g.GT {
		if a > m {
			m = a
		}
	}
	return m
}

// Depth returns DP, falling back to the sum of AD.
func (g Genotype) Depth() int {
	if g.DP != Missing {
		return g.DP
	}
	if g.AD == nil {
		return Missing
	}
	sum := 0
	for _, n := range g.AD {
		sum += n
	}
	return sum
}

// Format renders the call with allele sequences joined by sep
// (e.g. "C/T" for sep "/").
func (g Genotype) Format(alleles []string, sep string) string {
	parts := make([]string, len(g.GT))
	for i, a := range g.GT {
		if a == Missing || a >= len(alleles) {
			parts[i] = "."
			continue
		}
		parts[i] = alleles[a]
	}
	return strings.Join(parts, sep)
}

// ParseGenotypes parses the FORMAT column and the sample columns of a record.
func ParseGenotypes(format string, samples []string) ([]Genotype, error) {
	keys := strings.Split(format, ":")
	gtIdx, gqIdx, dpIdx, adIdx := -1, -1, -1, -1
	for i, k := range keys {
		switch k {
		case "GT":
			gtIdx = i
		case "GQ":
			gqIdx = i
		case "DP":
			dpIdx = i
		case "AD":
			adIdx = i
		}
	}
	if gtIdx < 0 {
		return nil, fmt.Errorf("FORMAT %q has no GT field", format)
	}

	gts := make([]Genotype, len(samples))
	for i, col := range samples {
		fields := strings.Split(col, ":")
		g := Genotype{GQ: Missing, DP: Missing}

		var err error
		g.GT, g.Phased, err = parseGT(field(fields, gtIdx))
		if err != nil {
			return nil, fmt.Errorf("sample column %d: %w", i+1, err)
		}
		g.GQ = parseNumber(field(fields, gqIdx))
		g.DP = parseNumber(field(fields, dpIdx))
		g.AD = parseAD(field(fields, adIdx))
		gts[i] = g
	}
	return gts, nil
}

// field returns the i-th value of a sample column, or "." when it was
// dropped from the end of the column.
func field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return "."
	}
	return fields[i]
}

func parseGT(s string) ([]int, bool, error) {
	if s == "" || s == "." {
		return []int{Missing}, false, nil
	}
	phased := strings.Contains(s, "|")
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '|' })
	gt := make([]int, len(parts))
	for i, p := range parts {
		if p == "." {
			gt[i] = Missing
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false, fmt.Errorf("invalid GT %q", s)
		}
		gt[i] = n
	}
	return gt, phased, nil
}

func parseNumber(s string) int {
	if s == "." || s == "" {
		return Missing
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// GQ is sometimes written as a float
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return Missing
		}
		return int(f)
	}
	return n
}

func parseAD(s string) []int {
	if s == "." || s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ad := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		ad[i] = n
	}
	return ad
}
