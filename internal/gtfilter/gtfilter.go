// Package gtfilter decides whether a genotype call is good enough to use.
package gtfilter

import (
	"fmt"

	"github.com/inodb/vibe-hap/internal/vcf"
)

// Filter holds minimum genotype quality, depth and allele balance
// thresholds. A zero threshold disables that check.
type Filter struct {
	GQ    int     // minimum GQ
	DP    int     // minimum depth (DP, or sum of AD when DP is absent)
	HetAB float64 // minimum ALT allele balance (0.0-0.5) in heterozygous calls
	HomAB float64 // minimum ALT allele balance (0.5-1.0) in homozygous calls
}

// Validate checks threshold ranges.
func (f Filter) Validate() error {
	if f.GQ < 0 {
		return fmt.Errorf("minimum GQ must not be negative, got %d", f.GQ)
	}
	if f.DP < 0 {
		return fmt.Errorf("minimum DP must not be negative, got %d", f.DP)
	}
	if f.HetAB < 0 || f.HetAB > 0.5 {
		return fmt.Errorf("het allele balance must be between 0.0 and 0.5, got %g", f.HetAB)
	}
	if f.HomAB < 0 || f.HomAB > 1 {
		return fmt.Errorf("hom allele balance must be between 0.0 and 1.0, got %g", f.HomAB)
	}
	return nil
}

// Enabled returns true if any check is active.
func (f Filter) Enabled() bool {
	return f.GQ > 0 || f.DP > 0 || f.HetAB > 0 || f.HomAB > 0
}

// Fields returns the FORMAT fields the filter reads.
func (f Filter) Fields() []string {
	fields := []string{"GT"}
	if f.GQ > 0 {
		fields = append(fields, "GQ")
	}
	if f.DP > 0 {
		fields = append(fields, "DP")
	}
	if f.DP > 0 || f.HetAB > 0 || f.HomAB > 0 {
		fields = append(fields, "AD")
	}
	return fields
}

// OK reports whether the call passes all thresholds when judged for the
// given allele index. Allele balance is only checked for ALT alleles.
func (f Filter) OK(g vcf.Genotype, allele int) bool {
	if !f.Enabled() {
		return true
	}
	if f.GQ > 0 && (g.GQ == vcf.Missing || g.GQ < f.GQ) {
		return false
	}
	if f.DP > 0 {
		if dp := g.Depth(); dp == vcf.Missing || dp < f.DP {
			return false
		}
	}
	if allele > 0 && (f.HetAB > 0 || f.HomAB > 0) {
		return f.balanceOK(g, allele)
	}
	return true
}

// balanceOK checks the allele balance of a call carrying allele; calls
// without the allele have nothing to check and need no AD.
func (f Filter) balanceOK(g vcf.Genotype, allele int) bool {
	if !g.Contains(allele) {
		return true
	}
	if g.AD == nil || allele >= len(g.AD) {
		return false
	}
	total := 0
	for _, n := range g.AD {
		total += n
	}
	if total == 0 {
		return false
	}
	ab := float64(g.AD[allele]) / float64(total)
	if f.HetAB > 0 && g.IsHeterozygous() && ab < f.HetAB {
		return false
	}
	if f.HomAB > 0 && g.IsHomozygous() && ab < f.HomAB {
		return false
	}
	return true
}
