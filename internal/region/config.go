// Package region scans the flanks of an index variant and writes the
// haplotype table.
package region

import (
	"errors"
	"fmt"

	"github.com/inodb/vibe-hap/internal/gtfilter"
	"github.com/inodb/vibe-hap/internal/vcf"
)

// DefaultFlanks is the distance scanned either side of the index variant.
const DefaultFlanks = 1_000_000

// Policy selects which phased variants are written.
type Policy int

const (
	// PolicyAll writes every phaseable variant.
	PolicyAll Policy = iota
	// PolicyInformative writes variants phased in at least one sample.
	PolicyInformative
	// PolicyPhasedInAll writes variants phased in every sample.
	PolicyPhasedInAll
)

func (p Policy) String() string {
	switch p {
	case PolicyInformative:
		return "informative"
	case PolicyPhasedInAll:
		return "phased-in-all"
	default:
		return "all"
	}
}

// Config holds the options of one scan.
type Config struct {
	Variant string   // index variant as chrom:pos-REF/ALT
	Samples []string // samples of interest, in output order
	Flanks  int64

	Filter gtfilter.Filter

	InformativeOnly bool
	PhasedInAll     bool
	// MaxNoCalls skips variants with more no-call samples of interest.
	// Nil disables the check.
	MaxNoCalls *int

	OutputAlleles bool

	// FrequencySources are gnomAD/ExAC VCFs or databases built by
	// "freqdb import".
	FrequencySources   []string
	Population         string
	MinOtherAlleleFreq *float64

	// Invocation is echoed as the first, commented line of the output.
	Invocation string
}

// Policy resolves the output flags; phased-in-all wins over informative.
func (c *Config) Policy() Policy {
	switch {
	case c.PhasedInAll:
		return PolicyPhasedInAll
	case c.InformativeOnly:
		return PolicyInformative
	default:
		return PolicyAll
	}
}

// Validate checks the configuration before any file is opened.
func (c *Config) Validate() error {
	if _, err := vcf.ParseVariantSpec(c.Variant); err != nil {
		return err
	}
	if len(c.Samples) == 0 {
		return errors.New("at least one sample is required")
	}
	seen := make(map[string]bool, len(c.Samples))
	for _, s := range c.Samples {
		if seen[s] {
			return fmt.Errorf("sample %q given more than once", s)
		}
		seen[s] = true
	}
	if c.Flanks <= 0 {
		return fmt.Errorf("flanks must be positive, got %d", c.Flanks)
	}
	if err := c.Filter.Validate(); err != nil {
		return err
	}
	if c.MaxNoCalls != nil && *c.MaxNoCalls < 0 {
		return fmt.Errorf("max no-calls must not be negative, got %d", *c.MaxNoCalls)
	}
	if f := c.MinOtherAlleleFreq; f != nil && (*f < 0 || *f > 1) {
		return fmt.Errorf("minimum other allele frequency must be between 0 and 1, got %g", *f)
	}
	return nil
}

// Span is a 1-based inclusive interval on the index chromosome.
type Span struct {
	Start int64
	End   int64
}

// Empty returns true when the span holds no position.
func (s Span) Empty() bool {
	return s.End < s.Start
}

// Window returns the left and right flanks of pos. The left flank is
// clipped at position 1 and is empty for a variant at position 1.
func Window(pos, flanks int64) (left, right Span) {
	start := int64(1)
	if flanks < pos {
		start = pos - flanks
	}
	return Span{Start: start, End: pos - 1}, Span{Start: pos + 1, End: pos + flanks}
}
