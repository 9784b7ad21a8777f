// Package freq annotates haplotype rows with population allele frequencies
// and drops rows whose non-haplotype allele is too rare to be informative.
package freq

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/inodb/vibe-hap/internal/gnomad"
	"github.com/inodb/vibe-hap/internal/phase"
	"github.com/inodb/vibe-hap/internal/vcf"
)

const absent = "."

// Database looks up the frequency record of an exact decomposed allele.
type Database interface {
	Lookup(chrom string, pos int64, ref, alt string) (gnomad.Record, bool, error)
}

// Fields are the three frequency columns appended to a row.
type Fields struct {
	AF    string
	PopAF string
	Pop   string
}

// Absent returns fields for a variant found in no database.
func Absent() Fields {
	return Fields{AF: absent, PopAF: absent, Pop: absent}
}

// Columns returns the fields in output order.
func (f Fields) Columns() []string {
	return []string{f.AF, f.PopAF, f.Pop}
}

// Annotator aggregates frequencies over one or more databases.
type Annotator struct {
	dbs      []Database
	nSamples int
	minFreq  float64
	filter   bool
	logger   *zap.Logger
}

// NewAnnotator creates an annotator over dbs for a scan of nSamples
// samples of interest. Filtering is off until SetMinOtherAlleleFreq is
// called.
func NewAnnotator(dbs []Database, nSamples int) *Annotator {
	return &Annotator{dbs: dbs, nSamples: nSamples, logger: zap.NewNop()}
}

// SetLogger sets the logger for suppressed rows.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// SetMinOtherAlleleFreq drops rows covering every sample whose
// non-haplotype allele has a population frequency below f.
func (a *Annotator) SetMinOtherAlleleFreq(f float64) {
	a.minFreq = f
	a.filter = true
}

// Enabled returns true when at least one database is configured.
func (a *Annotator) Enabled() bool {
	return len(a.dbs) > 0
}

// Annotate looks up v in every database and returns the fields of the
// database with the highest AF. When filter is true and the minimum
// frequency filter applies to row, keep reports whether the row should
// be written.
func (a *Annotator) Annotate(row phase.Row, v *vcf.Variant, filter bool) (Fields, bool, error) {
	fields := Absent()
	if !a.Enabled() {
		return fields, true, nil
	}

	alleles := v.Decompose()
	if len(alleles) == 0 {
		return fields, true, nil
	}
	al := alleles[0]

	maxAF, found := 0.0, false
	for _, db := range a.dbs {
		r, ok, err := db.Lookup(al.Chrom, al.Pos, al.Ref, al.Alt)
		if err != nil {
			return fields, false, err
		}
		if !ok || r.AF == absent {
			continue
		}
		af, err := strconv.ParseFloat(r.AF, 64)
		if err != nil {
			a.logger.Debug("ignoring non-numeric allele frequency",
				zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos), zap.String("af", r.AF))
			continue
		}
		if !found || af > maxAF {
			maxAF, found = af, true
			fields = Fields{AF: r.AF, PopAF: r.PopAF, Pop: r.Popmax}
		}
	}

	if !filter || !a.filter || row.Compatible != a.nSamples {
		return fields, true, nil
	}
	return fields, a.keep(row, v, maxAF, found), nil
}

// keep applies the minimum frequency to the allele that is not the
// haplotype allele.
func (a *Annotator) keep(row phase.Row, v *vcf.Variant, af float64, found bool) bool {
	hapIsRef := row.Hap == v.Ref
	var other float64
	switch {
	case !found && hapIsRef:
		a.logger.Debug("skipping variant absent from frequency databases with REF haplotype",
			zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos))
		return false
	case !found:
		other = 1.0
	case hapIsRef:
		other = af
	default:
		other = 1.0 - af
	}
	if other < a.minFreq {
		a.logger.Debug("skipping variant with rare non-haplotype allele",
			zap.String("chrom", v.Chrom), zap.Int64("pos", v.Pos),
			zap.Float64("other_af", other), zap.Float64("min", a.minFreq))
		return false
	}
	return true
}
