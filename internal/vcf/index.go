package vcf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/csi"
	"github.com/biogo/hts/tabix"
)

// indexSuffixes are the index files looked for next to a bgzipped VCF, in
// order of preference.
var indexSuffixes = []string{".tbi", ".csi"}

// IndexPath returns the tabix or CSI index of a bgzipped VCF, or "" when
// there is none.
func IndexPath(path string) string {
	if !strings.HasSuffix(path, ".gz") && !strings.HasSuffix(path, ".bgz") {
		return ""
	}
	for _, s := range indexSuffixes {
		if _, err := os.Stat(path + s); err == nil {
			return path + s
		}
	}
	return ""
}

// blockIndex finds the BGZF chunks holding records of a region. beg and
// end are 0-based, half-open.
type blockIndex interface {
	chunks(chrom string, beg, end int) ([]bgzf.Chunk, error)
}

type tabixIndex struct {
	idx   *tabix.Index
	names map[string]string // normalized chrom -> name in the index
}

func (t *tabixIndex) chunks(chrom string, beg, end int) ([]bgzf.Chunk, error) {
	name, ok := t.names[chrom]
	if !ok {
		return nil, index.ErrNoReference
	}
	return t.idx.Chunks(name, beg, end)
}

type csiIndex struct {
	idx *csi.Index
	ids map[string]int // normalized chrom -> reference id
}

func (c *csiIndex) chunks(chrom string, beg, end int) ([]bgzf.Chunk, error) {
	id, ok := c.ids[chrom]
	if !ok {
		return nil, index.ErrNoReference
	}
	return c.idx.Chunks(id, beg, end), nil
}

// loadIndex reads a .tbi or .csi file. CSI reference ids are the order of
// the ##contig header lines.
func loadIndex(path string, header []string) (blockIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf index: %w", err)
	}
	defer f.Close()

	bgz, err := bgzf.NewReader(f, 1)
	if err != nil {
		return nil, fmt.Errorf("read vcf index %s: %w", path, err)
	}
	defer bgz.Close()

	if strings.HasSuffix(path, ".csi") {
		idx, err := csi.ReadFrom(bgz)
		if err != nil {
			return nil, fmt.Errorf("read csi index %s: %w", path, err)
		}
		return &csiIndex{idx: idx, ids: contigIDs(header)}, nil
	}

	idx, err := tabix.ReadFrom(bgz)
	if err != nil {
		return nil, fmt.Errorf("read tabix index %s: %w", path, err)
	}
	names := make(map[string]string)
	for _, n := range idx.Names() {
		names[NormalizeChrom(n)] = n
	}
	return &tabixIndex{idx: idx, names: names}, nil
}

func contigIDs(header []string) map[string]int {
	ids := make(map[string]int)
	for _, line := range header {
		rest, ok := strings.CutPrefix(line, "##contig=<")
		if !ok {
			continue
		}
		for _, kv := range strings.Split(strings.TrimSuffix(rest, ">"), ",") {
			if id, ok := strings.CutPrefix(kv, "ID="); ok {
				ids[NormalizeChrom(id)] = len(ids)
				break
			}
		}
	}
	return ids
}

// firstOffset returns the virtual offset of the earliest chunk that may hold
// a record overlapping chrom:start-end. found is false when the index knows
// the chromosome has no such records; an index that cannot answer yields
// an error and the caller scans instead.
func firstOffset(idx blockIndex, chrom string, start, end int64) (off bgzf.Offset, found bool, err error) {
	chunks, err := idx.chunks(chrom, int(start-1), int(end))
	switch {
	case errors.Is(err, index.ErrNoReference):
		return off, false, nil
	case err != nil:
		return off, false, err
	case len(chunks) == 0:
		return off, false, nil
	}
	off = chunks[0].Begin
	for _, c := range chunks[1:] {
		if before(c.Begin, off) {
			off = c.Begin
		}
	}
	return off, true, nil
}

func before(a, b bgzf.Offset) bool {
	return a.File < b.File || (a.File == b.File && a.Block < b.Block)
}
