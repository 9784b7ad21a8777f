// Package exclude indexes genomic regions whose variants are ignored.
package exclude

import (
	"fmt"
	"os"
	"sort"

	"github.com/vertgenlab/gonomics/bed"

	"github.com/inodb/vibe-hap/internal/vcf"
)

// Interval is a 1-based, inclusive genomic range.
type Interval struct {
	Chrom string
	Start int64
	End   int64
}

// Regions answers span overlap queries against a fixed set of intervals.
// Intervals are grouped per chromosome and never modified after build.
type Regions struct {
	trees map[string]*tree
	n     int
}

// tree is a sorted slice of intervals with a prefix max of end positions.
type tree struct {
	intervals []Interval
	maxEnd    []int64 // maxEnd[i] = max(End) for intervals[:i+1]
}

// New builds a region index. Chromosome names are matched with or
// without a "chr" prefix.
func New(intervals []Interval) *Regions {
	byChrom := make(map[string][]Interval)
	for _, iv := range intervals {
		c := vcf.NormalizeChrom(iv.Chrom)
		byChrom[c] = append(byChrom[c], iv)
	}
	r := &Regions{trees: make(map[string]*tree, len(byChrom)), n: len(intervals)}
	for c, ivs := range byChrom {
		r.trees[c] = buildTree(ivs)
	}
	return r
}

func buildTree(intervals []Interval) *tree {
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Start < intervals[j].Start
	})

	maxEnd := make([]int64, len(intervals))
	maxEnd[0] = intervals[0].End
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = max(intervals[i].End, maxEnd[i-1])
	}
	return &tree{intervals: intervals, maxEnd: maxEnd}
}

// Load reads a BED file (plain or gzipped). BED's 0-based half-open
// coordinates are converted to 1-based inclusive intervals.
func Load(path string) (*Regions, error) {
	// the gonomics reader panics on open failure
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open exclusion bed: %w", err)
	}
	var intervals []Interval
	for b := range bed.GoReadToChan(path) {
		intervals = append(intervals, Interval{
			Chrom: b.Chrom,
			Start: int64(b.ChromStart) + 1,
			End:   int64(b.ChromEnd),
		})
	}
	return New(intervals), nil
}

// Len returns the number of intervals.
func (r *Regions) Len() int {
	if r == nil {
		return 0
	}
	return r.n
}

// Overlaps reports whether [start, end] on chrom intersects any interval.
// A nil index overlaps nothing.
func (r *Regions) Overlaps(chrom string, start, end int64) bool {
	if r == nil {
		return false
	}
	t, ok := r.trees[vcf.NormalizeChrom(chrom)]
	if !ok {
		return false
	}
	return t.overlaps(start, end)
}

func (t *tree) overlaps(start, end int64) bool {
	// candidates are the intervals starting at or before end; once no
	// interval up to i reaches start, none earlier can either
	hi := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].Start > end
	})
	for i := hi - 1; i >= 0; i-- {
		if t.maxEnd[i] < start {
			return false
		}
		if t.intervals[i].End >= start {
			return true
		}
	}
	return false
}
