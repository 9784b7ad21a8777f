// Package output writes the haplotype table.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-hap/internal/freq"
	"github.com/inodb/vibe-hap/internal/phase"
)

var fixedColumns = []string{"#CHROM", "POS", "ID", "REF", "ALT", "HAP", "N_IN_PHASE", "N_COMPAT"}

var backgroundColumns = []string{"OTHER_N_ALLELES", "ALT_MAF"}

var freqColumns = []string{"gnomAD_AF", "gnomAD_AF_POPMAX", "POPMAX_pop"}

// TabWriter writes haplotype rows in tab-delimited format.
type TabWriter struct {
	w          *bufio.Writer
	columns    []string
	alleleCols bool
	withFreq   bool
}

// NewTabWriter creates a table writer for samples. With alleleColumns each
// sample gets two allele columns instead of one genotype column. With
// withFreq the three population frequency columns are appended.
func NewTabWriter(w io.Writer, samples []string, alleleColumns, withFreq bool) *TabWriter {
	columns := append([]string{}, fixedColumns...)
	for _, s := range samples {
		if alleleColumns {
			columns = append(columns, s+"_Allele_1", s+"_Allele_2")
		} else {
			columns = append(columns, s)
		}
	}
	columns = append(columns, backgroundColumns...)
	if withFreq {
		columns = append(columns, freqColumns...)
	}
	return &TabWriter{
		w:          bufio.NewWriter(w),
		columns:    columns,
		alleleCols: alleleColumns,
		withFreq:   withFreq,
	}
}

// Columns returns the header columns.
func (tw *TabWriter) Columns() []string {
	return tw.columns
}

// WriteComment writes a "#" comment line.
func (tw *TabWriter) WriteComment(text string) error {
	_, err := tw.w.WriteString("#" + text + "\n")
	return err
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single row. f is ignored unless the writer was created
// with frequency columns, in which case a nil f writes absent values.
func (tw *TabWriter) Write(row phase.Row, f *freq.Fields) error {
	values := make([]string, 0, len(tw.columns))
	values = append(values,
		row.Chrom,
		strconv.FormatInt(row.Pos, 10),
		row.ID,
		row.Ref,
		row.Alt,
		row.Hap,
		strconv.Itoa(row.InPhase),
		strconv.Itoa(row.Compatible),
	)
	values = append(values, row.SampleColumns(tw.alleleCols)...)
	values = append(values,
		strconv.Itoa(row.AlleleNumber),
		strconv.FormatFloat(row.AltFrequency, 'g', -1, 64),
	)
	if tw.withFreq {
		if f == nil {
			absent := freq.Absent()
			f = &absent
		}
		values = append(values, f.Columns()...)
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
