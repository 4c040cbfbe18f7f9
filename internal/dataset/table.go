package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Options controls how uploaded tabular data is decoded.
type Options struct {
	// Delimiter for CSV. If 0, ',' is used.
	Delimiter rune
	// DetectNA treats the common "not available" spellings (NA, NaN, null, ...)
	// as missing cells in addition to empty and absent ones.
	DetectNA bool
}

// DefaultOptions returns the decoding defaults used for uploads.
func DefaultOptions() Options {
	return Options{Delimiter: ',', DetectNA: true}
}

var (
	// ErrNoColumns is returned for input without a header row.
	ErrNoColumns = errors.New("no columns to parse from file")
	// ErrInvalidEncoding is returned when the input is not UTF-8 text.
	ErrInvalidEncoding = errors.New("input is not valid UTF-8 text")
	// ErrColumnNotFound is returned by column lookups for unknown names.
	ErrColumnNotFound = errors.New("column not found")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// naValues are the cell spellings read as missing by default.
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

type cell struct{ row, col int }

// Table is a row-oriented listing table. Every row has exactly len(Header) cells.
// Cells are kept verbatim; missing cells are remembered until FillMissing.
type Table struct {
	Header []string
	Rows   [][]string

	missing []cell
}

// Read decodes a CSV stream into a Table.
func Read(r io.Reader, opt Options) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return Parse(data, opt)
}

// Parse decodes CSV bytes into a Table. Rows shorter than the header are padded
// with missing cells; rows longer than the header are an error.
func Parse(data []byte, opt Options) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = ','
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoColumns
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{Header: normalizeHeader(header)}
	ncol := len(t.Header)

	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		if len(rec) > ncol {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, ncol, len(rec))
		}
		ri := len(t.Rows)
		row := make([]string, ncol)
		copy(row, rec)
		for j := range row {
			if j >= len(rec) || (opt.DetectNA && isNA(row[j])) {
				t.missing = append(t.missing, cell{row: ri, col: j})
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func isNA(v string) bool {
	_, ok := naValues[v]
	return ok
}

// normalizeHeader names blank columns "Unnamed: i" and suffixes repeats with ".n".
func normalizeHeader(in []string) []string {
	out := make([]string, len(in))
	used := make(map[string]bool, len(in))
	for i, name := range in {
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if used[name] {
			for n := 1; ; n++ {
				cand := fmt.Sprintf("%s.%d", name, n)
				if !used[cand] {
					name = cand
					break
				}
			}
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of the named column or -1. Names match exactly.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether a column with the exact name exists.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Column returns a copy of the named column's values in row order.
func (t *Table) Column(name string) ([]string, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// MissingCount returns how many cells are currently marked missing.
func (t *Table) MissingCount() int { return len(t.missing) }

// FillMissing replaces every missing cell with the empty string and returns
// the number of cells it touched.
func (t *Table) FillMissing() int {
	n := len(t.missing)
	for _, c := range t.missing {
		t.Rows[c.row][c.col] = ""
	}
	t.missing = nil
	return n
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{
		Header: append([]string(nil), t.Header...),
		Rows:   make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		c.Rows[i] = append([]string(nil), row...)
	}
	if len(t.missing) > 0 {
		c.missing = append([]cell(nil), t.missing...)
	}
	return c
}

// SetColumn assigns values to the named column, overwriting it if present and
// appending it otherwise. values must have one entry per row.
func (t *Table) SetColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %s: got %d values for %d rows", name, len(values), len(t.Rows))
	}
	idx := t.ColumnIndex(name)
	if idx < 0 {
		t.Header = append(t.Header, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], values[i])
		}
		return nil
	}
	for i := range t.Rows {
		t.Rows[i][idx] = values[i]
	}
	return nil
}

// WriteCSV encodes the table as comma separated UTF-8 with a header row and
// no index column.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Bytes returns the CSV encoding of the table.
func (t *Table) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DelimiterFor picks a delimiter from a file name: tab for .tsv, comma otherwise.
func DelimiterFor(filename string) rune {
	if strings.EqualFold(filepath.Ext(filename), ".tsv") {
		return '\t'
	}
	return ','
}
