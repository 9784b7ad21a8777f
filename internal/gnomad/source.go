package gnomad

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/inodb/vibe-hap/internal/vcf"
)

// IsDatabase returns true for paths that name a DuckDB file rather than a
// VCF.
func IsDatabase(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".duckdb", ".db":
		return true
	}
	return false
}

// OpenSource opens a frequency source for a scan of chrom:start-end.
// DuckDB files built by Import are opened directly and must hold the
// requested population. VCFs are imported into an in-memory store, reading
// only the records inside the window.
func OpenSource(path, pop, chrom string, start, end int64) (*Store, error) {
	if pop == "" {
		pop = DefaultPopulation
	}
	if IsDatabase(path) {
		return openDatabase(path, pop)
	}

	p, err := vcf.NewParser(path)
	if err != nil {
		return nil, fmt.Errorf("open frequency vcf: %w", err)
	}
	defer p.Close()
	p.SetRegion(chrom, start, end)

	s, err := Open("")
	if err != nil {
		return nil, err
	}
	s.source = path
	if _, err := s.Import(p, pop); err != nil {
		s.Close()
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return s, nil
}

func openDatabase(path, pop string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open frequency database: %w", err)
	}
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	have, err := s.Population()
	if err != nil {
		s.Close()
		return nil, err
	}
	if have != "" && have != pop {
		s.Close()
		return nil, fmt.Errorf("frequency database %s holds %s frequencies, %s requested", path, have, pop)
	}
	return s, nil
}
