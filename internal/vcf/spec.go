package vcf

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	// ErrBadSpec is returned for a variant string not in chrom:pos-REF/ALT form.
	ErrBadSpec = errors.New("could not parse variant")

	// ErrNonAutosomal is returned for a variant on a sex, mitochondrial or
	// unplaced chromosome.
	ErrNonAutosomal = errors.New("can only handle autosomal chromosomes")

	specRe     = regexp.MustCompile(`^(\S+):(\d+)-(\S+)/(\S+)$`)
	autosomeRe = regexp.MustCompile(`^(chr)?(\d+)$`)
)

// Spec is a variant given on the command line as chrom:pos-REF/ALT.
type Spec struct {
	Chrom string
	Pos   int64
	Ref   string
	Alt   string
}

// ParseVariantSpec parses a chrom:pos-REF/ALT string.
func ParseVariantSpec(s string) (Spec, error) {
	m := specRe.FindStringSubmatch(s)
	if m == nil {
		return Spec{}, fmt.Errorf("%w %q", ErrBadSpec, s)
	}
	if !autosomeRe.MatchString(m[1]) {
		return Spec{}, fmt.Errorf("%w: variant %s does not look like an autosomal variant", ErrNonAutosomal, s)
	}
	pos, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || pos < 1 {
		return Spec{}, fmt.Errorf("%w %q: invalid position", ErrBadSpec, s)
	}
	return Spec{Chrom: m[1], Pos: pos, Ref: m[3], Alt: m[4]}, nil
}

// String formats the spec as chrom:pos-REF/ALT.
func (s Spec) String() string {
	return fmt.Sprintf("%s:%d-%s/%s", s.Chrom, s.Pos, s.Ref, s.Alt)
}

// End returns the last reference base covered by the spec.
func (s Spec) End() int64 {
	return s.Pos + int64(len(s.Ref)) - 1
}

// Matches returns true if a decomposed allele is exactly this spec.
func (s Spec) Matches(a Allele) bool {
	return a.Pos == s.Pos && a.Ref == s.Ref && a.Alt == s.Alt
}
