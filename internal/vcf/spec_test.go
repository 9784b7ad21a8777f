package vcf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariantSpec(t *testing.T) {
	tests := []struct {
		in   string
		want Spec
	}{
		{"1:1000-A/G", Spec{"1", 1000, "A", "G"}},
		{"chr22:123456-AT/A", Spec{"chr22", 123456, "AT", "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVariantSpec(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestParseVariantSpec_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"1:1000A/G", ErrBadSpec},
		{"1-1000-A/G", ErrBadSpec},
		{"1:0-A/G", ErrBadSpec},
		{"", ErrBadSpec},
		{"X:1000-A/G", ErrNonAutosomal},
		{"chrY:1000-A/G", ErrNonAutosomal},
		{"MT:1000-A/G", ErrNonAutosomal},
		{"1_KI270706v1_random:10-A/G", ErrNonAutosomal},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseVariantSpec(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSpec_Matches(t *testing.T) {
	s := Spec{Chrom: "1", Pos: 101, Ref: "T", Alt: "C"}
	v := &Variant{Chrom: "1", Pos: 100, Ref: "ATG", Alt: "ACG,A"}
	alleles := v.Decompose()
	assert.True(t, s.Matches(alleles[0]))
	assert.False(t, s.Matches(alleles[1]))
	assert.Equal(t, int64(101), s.End())
}
