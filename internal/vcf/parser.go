// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/biogo/hts/bgzf"
)

// Parser reads variants from a VCF file.
type Parser struct {
	reader      *bufio.Reader
	file        *os.File
	gzipReader  *gzip.Reader
	bgzfReader  *bgzf.Reader // set when the file has a tabix or CSI index
	index       blockIndex
	lineNumber  int
	header      []string
	sampleNames []string // sample names from #CHROM header line
	region      *region
}

// region restricts iteration to records overlapping an interval.
type region struct {
	chrom      string // normalized
	start, end int64
	entered    bool // a record on chrom has been seen
	seek       *bgzf.Offset
	empty      bool // the index has no records for the region
}

// gzipMagic opens both plain gzip and BGZF files.
var gzipMagic = []byte{0x1f, 0x8b}

// NewParser creates a parser for a plain or gzip/BGZF compressed VCF file.
// A path of "-" reads standard input. A bgzipped file with a .tbi or .csi
// index next to it is read through the index once SetRegion is called.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}
	idxPath := IndexPath(path)
	if idxPath == "" {
		p, err := newParser(file)
		if err != nil {
			file.Close()
			return nil, err
		}
		p.file = file
		return p, nil
	}

	p, err := newBGZFParser(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	p.file = file
	if p.index, err = loadIndex(idxPath, p.header); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// newBGZFParser reads a seekable BGZF file block by block.
func newBGZFParser(rs io.ReadSeeker) (*Parser, error) {
	bgz, err := bgzf.NewReader(rs, 1)
	if err != nil {
		return nil, fmt.Errorf("open bgzf vcf: %w", err)
	}
	p := &Parser{reader: bufio.NewReader(bgz), bgzfReader: bgz}
	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}


// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
// Compressed input is detected the same way as for files.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	return newParser(r)
}

func newParser(r io.Reader) (*Parser, error) {
	p := &Parser{reader: bufio.NewReader(r)}

	magic, err := p.reader.Peek(len(gzipMagic))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read vcf header: %w", err)
	}
	if bytes.Equal(magic, gzipMagic) {
		p.gzipReader, err = gzip.NewReader(p.reader)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// parseHeader stores the meta-information lines and reads sample names
// from the #CHROM line.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return &ParseError{Line: p.lineNumber, Message: "no #CHROM header line found"}
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++
		line = strings.TrimRight(line, "\r\n")

		switch {
		case strings.HasPrefix(line, "##"):
			p.header = append(p.header, line)
		case strings.HasPrefix(line, "#CHROM"):
			p.header = append(p.header, line)
			return p.parseSamples(line)
		default:
			return &ParseError{Line: p.lineNumber, Message: "expected #CHROM header line"}
		}
	}
}

func (p *Parser) parseSamples(line string) error {
	fields := strings.Split(line, "\t")
	if len(fields) <= 9 {
		return nil
	}
	if fields[8] != "FORMAT" {
		return &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("expected FORMAT column before samples, found %q", fields[8])}
	}
	seen := make(map[string]bool, len(fields)-9)
	for _, s := range fields[9:] {
		if seen[s] {
			return &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("duplicate sample name %q", s)}
		}
		seen[s] = true
	}
	p.sampleNames = fields[9:]
	return nil
}

// Next reads the next variant from the VCF file.
// Returns nil, nil when there are no more variants, or when the input has
// moved past the region set with SetRegion.
func (p *Parser) Next() (*Variant, error) {
	if r := p.region; r != nil {
		if r.empty {
			return nil, nil
		}
		if r.seek != nil {
			if err := p.bgzfReader.Seek(*r.seek); err != nil {
				return nil, fmt.Errorf("seek vcf region: %w", err)
			}
			p.reader.Reset(p.bgzfReader)
			r.seek = nil
		}
	}
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue // Skip empty lines
		}

		if p.region != nil {
			keep, done, err := p.region.admit(line)
			if err != nil {
				return nil, &ParseError{Line: p.lineNumber, Message: err.Error()}
			}
			if done {
				return nil, nil
			}
			if !keep {
				continue
			}
		}

		return p.parseLine(line)
	}
}

// SetRegion restricts subsequent calls to Next to records whose span
// overlaps chrom:start-end (1-based, inclusive). Input must be sorted by
// position within a chromosome; iteration ends at the first record past end
// or on the next chromosome. Indexed files jump to the first block of the
// region, others are scanned from the current position.
func (p *Parser) SetRegion(chrom string, start, end int64) {
	r := &region{chrom: NormalizeChrom(chrom), start: start, end: end}
	p.region = r
	if p.index == nil {
		return
	}
	off, found, err := firstOffset(p.index, r.chrom, start, end)
	switch {
	case err != nil:
		// scan from here
	case !found:
		r.empty = true
	default:
		r.seek = &off
	}
}

// admit decides from the CHROM/POS/REF columns whether a line is in the
// region, and whether the region has been passed.
func (r *region) admit(line string) (keep, done bool, err error) {
	fields := strings.SplitN(line, "\t", 5)
	if len(fields) < 4 {
		return false, false, fmt.Errorf("truncated record with %d columns", len(fields))
	}
	if NormalizeChrom(fields[0]) != r.chrom {
		return false, r.entered, nil
	}
	r.entered = true
	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return false, false, fmt.Errorf("invalid position: %s", fields[1])
	}
	if pos > r.end {
		return false, true, nil
	}
	end := pos + int64(len(fields[3])) - 1
	return end >= r.start, false, nil
}

// parseLine parses a single VCF data line into a Variant.
func (p *Parser) parseLine(line string) (*Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	qual := 0.0
	if fields[5] != "." {
		qual, _ = strconv.ParseFloat(fields[5], 64)
	}

	v := &Variant{
		Chrom:  fields[0],
		Pos:    pos,
		ID:     fields[2],
		Ref:    fields[3],
		Alt:    fields[4],
		Qual:   qual,
		Filter: fields[6],
		Info:   parseInfo(fields[7]),
	}

	// Capture FORMAT + sample columns if present
	if len(fields) > 8 {
		v.SampleColumns = strings.Join(fields[8:], "\t")
	}

	return v, nil
}

// parseInfo parses the INFO field into a map.
func parseInfo(info string) map[string]interface{} {
	result := make(map[string]interface{})
	if info == "." {
		return result
	}

	for _, kv := range strings.Split(info, ";") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		} else {
			// Flag-type INFO field
			result[parts[0]] = true
		}
	}

	return result
}

// Header returns the VCF header lines.
func (p *Parser) Header() []string {
	return p.header
}

// SampleNames returns sample names from the #CHROM header line.
// Returns nil if no sample columns are present.
func (p *Parser) SampleNames() []string {
	return p.sampleNames
}

// SampleIndex maps each sample name to its column index.
func (p *Parser) SampleIndex() map[string]int {
	idx := make(map[string]int, len(p.sampleNames))
	for i, s := range p.sampleNames {
		idx[s] = i
	}
	return idx
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.bgzfReader != nil {
		p.bgzfReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
