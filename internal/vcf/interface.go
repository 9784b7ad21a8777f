// Package vcf provides VCF file parsing functionality.
package vcf

// VariantParser is the interface for parsers that read variants.
type VariantParser interface {
	// Next reads the next variant.
	// Returns nil, nil when there are no more variants.
	Next() (*Variant, error)

	// Close closes the parser and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}

// RecordSource is a VariantParser that knows its samples and can be
// restricted to a genomic interval.
type RecordSource interface {
	VariantParser

	// SampleNames returns sample names in column order.
	SampleNames() []string

	// SampleIndex maps each sample name to its column.
	SampleIndex() map[string]int

	// SetRegion restricts Next to records overlapping chrom:start-end
	// (1-based, inclusive).
	SetRegion(chrom string, start, end int64)
}
