package freq

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-hap/internal/gnomad"
	"github.com/inodb/vibe-hap/internal/phase"
	"github.com/inodb/vibe-hap/internal/vcf"
)

type fakeDB map[vcf.Allele]gnomad.Record

func (db fakeDB) Lookup(chrom string, pos int64, ref, alt string) (gnomad.Record, bool, error) {
	r, ok := db[vcf.Allele{Chrom: chrom, Pos: pos, Ref: ref, Alt: alt}]
	return r, ok, nil
}

type errDB struct{}

func (errDB) Lookup(string, int64, string, string) (gnomad.Record, bool, error) {
	return gnomad.Record{}, false, errors.New("boom")
}

func snv() *vcf.Variant {
	return &vcf.Variant{Chrom: "1", Pos: 1000, Ref: "A", Alt: "G"}
}

func key() vcf.Allele {
	return vcf.Allele{Chrom: "1", Pos: 1000, Ref: "A", Alt: "G"}
}

func TestAnnotate_NoDatabases(t *testing.T) {
	a := NewAnnotator(nil, 1)
	assert.False(t, a.Enabled())
	f, keep, err := a.Annotate(phase.Row{Hap: "A", Compatible: 1}, snv(), true)
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, Absent(), f)
}

func TestAnnotate_MaxAcrossDatabases(t *testing.T) {
	exac := fakeDB{key(): {AF: "0.3", PopAF: "0.5", Popmax: "AFR"}}
	gnomAD := fakeDB{key(): {AF: "0.25", PopAF: "0.9", Popmax: "EAS"}}
	empty := fakeDB{}

	a := NewAnnotator([]Database{gnomAD, empty, exac}, 2)
	f, keep, err := a.Annotate(phase.Row{Hap: "A", Compatible: 1}, snv(), true)
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, Fields{AF: "0.3", PopAF: "0.5", Pop: "AFR"}, f)
	assert.Equal(t, []string{"0.3", "0.5", "AFR"}, f.Columns())
}

func TestAnnotate_NumericComparison(t *testing.T) {
	// "9e-05" sorts after "0.2" as text
	a := NewAnnotator([]Database{
		fakeDB{key(): {AF: "9e-05", PopAF: ".", Popmax: "."}},
		fakeDB{key(): {AF: "0.2", PopAF: "0.4", Popmax: "NFE"}},
		fakeDB{key(): {AF: "NaNish", PopAF: ".", Popmax: "."}},
	}, 1)
	f, _, err := a.Annotate(phase.Row{}, snv(), false)
	require.NoError(t, err)
	assert.Equal(t, "0.2", f.AF)
}

func TestAnnotate_Filter(t *testing.T) {
	common := fakeDB{key(): {AF: "0.4", PopAF: "0.5", Popmax: "AFR"}}
	rare := fakeDB{key(): {AF: "0.001", PopAF: "0.002", Popmax: "AFR"}}
	nearFixed := fakeDB{key(): {AF: "0.999", PopAF: "1", Popmax: "AFR"}}
	noAF := fakeDB{key(): {AF: ".", PopAF: ".", Popmax: "."}}

	tests := []struct {
		name     string
		db       Database
		hap      string
		compat   int
		filter   bool
		wantKeep bool
	}{
		{"ref haplotype, common alt", common, "A", 3, true, true},
		{"ref haplotype, rare alt", rare, "A", 3, true, false},
		{"alt haplotype, rare alt", rare, "G", 3, true, true},
		{"alt haplotype, near fixed alt", nearFixed, "G", 3, true, false},
		{"ref haplotype, absent", fakeDB{}, "A", 3, true, false},
		{"ref haplotype, AF missing", noAF, "A", 3, true, false},
		{"alt haplotype, absent", fakeDB{}, "G", 3, true, true},
		{"unknown haplotype, rare alt", rare, "?", 3, true, true},
		{"not every sample compatible", rare, "A", 2, true, true},
		{"filter not requested", rare, "A", 3, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnnotator([]Database{tt.db}, 3)
			a.SetMinOtherAlleleFreq(0.01)
			_, keep, err := a.Annotate(phase.Row{Hap: tt.hap, Compatible: tt.compat}, snv(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeep, keep)
		})
	}
}

func TestAnnotate_FilterUsesMaximum(t *testing.T) {
	// rare in one database, common in another: the maximum decides
	a := NewAnnotator([]Database{
		fakeDB{key(): {AF: "0.001", PopAF: ".", Popmax: "."}},
		fakeDB{key(): {AF: "0.2", PopAF: ".", Popmax: "."}},
	}, 1)
	a.SetMinOtherAlleleFreq(0.01)
	_, keep, err := a.Annotate(phase.Row{Hap: "A", Compatible: 1}, snv(), true)
	require.NoError(t, err)
	assert.True(t, keep)
}

func TestAnnotate_NoFilterWithoutMinimum(t *testing.T) {
	a := NewAnnotator([]Database{fakeDB{}}, 1)
	_, keep, err := a.Annotate(phase.Row{Hap: "A", Compatible: 1}, snv(), true)
	require.NoError(t, err)
	assert.True(t, keep)
}

func TestAnnotate_LookupError(t *testing.T) {
	a := NewAnnotator([]Database{errDB{}}, 1)
	_, _, err := a.Annotate(phase.Row{}, snv(), false)
	assert.Error(t, err)
}

func TestAnnotate_DecomposedLookup(t *testing.T) {
	s, err := gnomad.Open("")
	require.NoError(t, err)
	defer s.Close()

	p, err := vcf.NewParserFromReader(strings.NewReader(
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
			"1\t999\t.\tCA\tCG\t.\tPASS\tAF=0.05;AF_POPMAX=0.07;POPMAX=SAS\n"))
	require.NoError(t, err)
	_, err = s.Import(p, "")
	require.NoError(t, err)
	p.Close()

	a := NewAnnotator([]Database{s}, 1)
	f, keep, err := a.Annotate(phase.Row{Hap: "A", Compatible: 1}, snv(), true)
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, Fields{AF: "0.05", PopAF: "0.07", Pop: "SAS"}, f)
}
