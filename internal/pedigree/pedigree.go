// Package pedigree reads PED files describing family relationships.
package pedigree

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Individual is one row of a PED file.
type Individual struct {
	FamilyID  string
	ID        string
	Father    string // empty when unknown
	Mother    string // empty when unknown
	Sex       string
	Phenotype string
}

// File holds all individuals of a PED file.
type File struct {
	individuals map[string]*Individual
}

// Error is returned when a sample is absent from the pedigree or the file
// is malformed.
type Error struct {
	Line    int // 0 when not tied to a line
	Sample  string
	Message string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("ped error at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("ped error: sample %q %s", e.Sample, e.Message)
}

// Load reads a PED file from disk.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ped file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads whitespace-delimited PED records:
//
//	FID  IID  FATHER  MOTHER  SEX  PHENOTYPE
//
// A parent of "0" is unknown. Lines starting with '#' are skipped.
func Parse(r io.Reader) (*File, error) {
	pf := &File{individuals: make(map[string]*Individual)}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 6 {
			return nil, &Error{Line: line, Message: fmt.Sprintf("expected 6 columns, found %d", len(fields))}
		}
		if _, dup := pf.individuals[fields[1]]; dup {
			return nil, &Error{Line: line, Message: fmt.Sprintf("duplicate individual %q", fields[1])}
		}
		ind := &Individual{
			FamilyID:  fields[0],
			ID:        fields[1],
			Father:    parent(fields[2]),
			Mother:    parent(fields[3]),
			Sex:       fields[4],
			Phenotype: fields[5],
		}
		pf.individuals[ind.ID] = ind
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ped file: %w", err)
	}
	return pf, nil
}

func parent(s string) string {
	if s == "0" {
		return ""
	}
	return s
}

// Individual returns the record for a sample, or an *Error if absent.
func (f *File) Individual(id string) (*Individual, error) {
	ind, ok := f.individuals[id]
	if !ok {
		return nil, &Error{Sample: id, Message: "is not in PED file"}
	}
	return ind, nil
}

// Has reports whether a sample is in the pedigree.
func (f *File) Has(id string) bool {
	_, ok := f.individuals[id]
	return ok
}

// Len returns the number of individuals.
func (f *File) Len() int {
	return len(f.individuals)
}
