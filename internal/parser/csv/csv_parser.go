// Package csv reads messy, user-supplied CSV files into a header plus string
// rows. It tolerates odd encodings and delimiter variations (comma,
// semicolon, tab, pipe) and keeps every cell as raw text so later cleaning
// steps see exactly what the file contained.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmpty is returned for an input with no bytes.
var ErrEmpty = errors.New("empty file")

// Delimiters lists the candidate field separators in fallback order.
var Delimiters = []rune{',', ';', '\t', '|'}

// sampleSize bounds the text handed to the delimiter sniffer.
const sampleSize = 50_000

// Options configures the Parser. The zero value sniffs the delimiter.
type Options struct {
	// Comma forces the field delimiter. When zero, the delimiter is sniffed
	// and the Delimiters list is tried in order.
	Comma rune
}

// Table is a parsed CSV document.
type Table struct {
	Header []string
	Rows   [][]string

	// Delimiter and Encoding record what was detected.
	Delimiter rune
	Encoding  string
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Read parses data with default options.
func Read(data []byte) (*Table, error) {
	return NewParser(Options{}).ParseBytes(data)
}

// Parse reads all of r and parses it.
func (p *Parser) Parse(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return p.ParseBytes(data)
}

// ParseBytes decodes data to text, then tries candidate delimiters and
// returns the first that parses cleanly. A delimiter other than ',' that
// yields a single column is treated as wrong.
func (p *Parser) ParseBytes(data []byte) (*Table, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	text, enc := decode(data)

	var candidates []rune
	if p.opt.Comma != 0 {
		candidates = []rune{p.opt.Comma}
	} else {
		sample := text
		if len(sample) > sampleSize {
			sample = sample[:sampleSize]
		}
		candidates = candidateDelimiters(sample)
	}

	var lastErr error
	for _, d := range candidates {
		header, rows, err := parseWith(text, d)
		if err != nil {
			lastErr = err
			continue
		}
		if len(header) <= 1 && d != ',' && p.opt.Comma == 0 {
			continue
		}
		return &Table{Header: header, Rows: rows, Delimiter: d, Encoding: enc}, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no delimiter produced more than one column")
	}
	return nil, fmt.Errorf("failed to read csv with tried delimiters: %w", lastErr)
}

// parseWith reads text using delimiter d. Rows wider than the header are an
// error; shorter rows are padded with empty cells.
func parseWith(text string, d rune) ([]string, [][]string, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = d
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if err == io.EOF {
		return nil, nil, ErrEmpty
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	header := fixHeader(h)

	var rows [][]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(row) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(row))
		}
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// fixHeader strips a BOM, names blank columns "Unnamed: i" and mangles
// repeated names to "name.1", "name.2", ...
func fixHeader(h []string) []string {
	out := StripHeaderBOM(append([]string{}, h...))
	for i, c := range out {
		if strings.TrimSpace(c) == "" {
			out[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	seen := make(map[string]int, len(out))
	for _, c := range out {
		seen[c] = 0
	}
	used := make(map[string]bool, len(out))
	for i, c := range out {
		if !used[c] {
			used[c] = true
			continue
		}
		for {
			seen[c]++
			name := fmt.Sprintf("%s.%d", c, seen[c])
			if !used[name] {
				out[i] = name
				used[name] = true
				break
			}
		}
	}
	return out
}

// Write encodes header and rows as comma-separated CSV.
func Write(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return nil
}
