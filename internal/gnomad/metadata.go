package gnomad

import (
	"fmt"
	"os"
	"time"
)

// ImportedFile records a VCF that was imported into a database.
type ImportedFile struct {
	Path    string
	Size    int64
	ModTime time.Time
	Alleles int64
}

func (s *Store) ensureSourcesTable() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS sources (
		path VARCHAR,
		size BIGINT,
		mod_time TIMESTAMP,
		alleles BIGINT
	)`)
	return err
}

// RecordImport stores the stat-based identity of an imported file along
// with the number of alleles it contributed.
func (s *Store) RecordImport(path string, alleles int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec("INSERT INTO sources VALUES (?, ?, ?, ?)",
		path, info.Size(), modTime(info), alleles); err != nil {
		return fmt.Errorf("record import of %s: %w", path, err)
	}
	return nil
}

// Imports lists the files imported into the database, oldest first.
func (s *Store) Imports() ([]ImportedFile, error) {
	rows, err := s.db.Query("SELECT path, size, mod_time, alleles FROM sources ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var out []ImportedFile
	for rows.Next() {
		var f ImportedFile
		if err := rows.Scan(&f.Path, &f.Size, &f.ModTime, &f.Alleles); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Imported reports whether a file with the same path, size and
// modification time was already imported.
func (s *Store) Imported(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	var n int
	err = s.db.QueryRow("SELECT COUNT(*) FROM sources WHERE path = ? AND size = ? AND mod_time = ?",
		path, info.Size(), modTime(info)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query sources: %w", err)
	}
	return n > 0, nil
}

// modTime truncates to the microsecond resolution of a DuckDB TIMESTAMP.
func modTime(info os.FileInfo) time.Time {
	return info.ModTime().UTC().Truncate(time.Microsecond)
}
