// Package gnomad stores population allele frequencies from gnomAD or ExAC
// VCFs in DuckDB, keyed by decomposed allele.
package gnomad

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-hap/internal/vcf"
)

// DefaultPopulation is reported when no population is requested.
const DefaultPopulation = "POPMAX"

const populationKey = "population"

// Record holds the frequency values of one allele as written in the
// source VCF. Absent values are ".".
type Record struct {
	AF     string // overall ALT allele frequency
	PopAF  string // AF_<pop>
	Popmax string // POPMAX population label
}

// Store provides frequency lookups backed by DuckDB.
type Store struct {
	db       *sql.DB
	source   string    // file the frequencies came from
	lookupPS *sql.Stmt // prepared statement for Lookup, lazily initialized
}

// Open opens or creates a DuckDB frequency database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, source: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.lookupPS != nil {
		s.lookupPS.Close()
	}
	return s.db.Close()
}

// Source returns the file the frequencies were read from.
func (s *Store) Source() string {
	return s.source
}

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS gnomad_alleles (
		chrom VARCHAR,
		pos BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		af VARCHAR,
		pop_af VARCHAR,
		popmax VARCHAR
	)`); err != nil {
		return err
	}
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS metadata (
		key VARCHAR PRIMARY KEY,
		value VARCHAR
	)`); err != nil {
		return err
	}
	if err := s.ensureSourcesTable(); err != nil {
		return err
	}
	// Index for fast point lookups
	s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_gnomad_lookup ON gnomad_alleles (chrom, pos, ref, alt)`)
	return nil
}

// Count returns the number of stored alleles.
func (s *Store) Count() (int64, error) {
	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM gnomad_alleles").Scan(&count); err != nil {
		return 0, fmt.Errorf("count gnomad alleles: %w", err)
	}
	return count, nil
}

// Population returns the population recorded at import time, or "" for an
// empty store.
func (s *Store) Population() (string, error) {
	var pop string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", populationKey).Scan(&pop)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read population: %w", err)
	}
	return pop, nil
}

func (s *Store) setPopulation(pop string) error {
	current, err := s.Population()
	if err != nil {
		return err
	}
	if current != "" {
		if current != pop {
			return fmt.Errorf("database holds %s frequencies, cannot add %s", current, pop)
		}
		return nil
	}
	if _, err := s.db.Exec("INSERT INTO metadata VALUES (?, ?)", populationKey, pop); err != nil {
		return fmt.Errorf("write population: %w", err)
	}
	return nil
}

// Import appends every decomposed allele read from p, taking AF, AF_<pop>
// and POPMAX from the INFO field. It returns the number of alleles added.
func (s *Store) Import(p vcf.VariantParser, pop string) (int64, error) {
	if pop == "" {
		pop = DefaultPopulation
	}
	if err := s.setPopulation(pop); err != nil {
		return 0, err
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return 0, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "gnomad_alleles")
		return err
	}); err != nil {
		return 0, fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	popKey := "AF_" + pop
	var n int64
	for {
		v, err := p.Next()
		if err != nil {
			return n, fmt.Errorf("read frequency vcf: %w", err)
		}
		if v == nil {
			break
		}
		for i, a := range v.Decompose() {
			if err := appender.AppendRow(
				vcf.NormalizeChrom(a.Chrom), a.Pos, a.Ref, a.Alt,
				v.InfoAllele("AF", i), v.InfoAllele(popKey, i), v.InfoAllele("POPMAX", i),
			); err != nil {
				return n, fmt.Errorf("append allele: %w", err)
			}
			n++
		}
	}
	if err := appender.Flush(); err != nil {
		return n, fmt.Errorf("flush alleles: %w", err)
	}
	return n, nil
}

// Lookup returns the record for an exact decomposed allele.
func (s *Store) Lookup(chrom string, pos int64, ref, alt string) (Record, bool, error) {
	if s.lookupPS == nil {
		ps, err := s.db.Prepare(
			"SELECT af, pop_af, popmax FROM gnomad_alleles WHERE chrom=? AND pos=? AND ref=? AND alt=? LIMIT 1",
		)
		if err != nil {
			return Record{}, false, fmt.Errorf("prepare lookup: %w", err)
		}
		s.lookupPS = ps
	}
	var r Record
	err := s.lookupPS.QueryRow(vcf.NormalizeChrom(chrom), pos, ref, alt).Scan(&r.AF, &r.PopAF, &r.Popmax)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("lookup %s:%d %s>%s: %w", chrom, pos, ref, alt, err)
	}
	return r, true, nil
}
