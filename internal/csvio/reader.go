// Package csvio reads header-mapped CSV uploads and writes Excel-friendly CSV downloads.
package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyFile       = errors.New("csv file is empty")
	ErrInvalidEncoding = errors.New("csv file is not valid UTF-8")
	ErrMissingHeader   = errors.New("csv header row is missing")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Error codes attached to RowError.
const (
	CodeRequired        = "REQUIRED"
	CodeInvalidValue    = "INVALID_VALUE"
	CodeDuplicateInFile = "DUPLICATE_IN_FILE"
	CodeNotFound        = "NOT_FOUND"
	CodeMalformed       = "MALFORMED_ROW"
)

// Parser reads a CSV stream whose first row names the columns.
type Parser struct {
	reader    *csv.Reader
	headerMap map[string]int
	headers   []string
	line      int
}

// Option configures a Parser.
type Option func(*csv.Reader)

// WithDelimiter sets the field delimiter.
func WithDelimiter(d rune) Option {
	return func(r *csv.Reader) { r.Comma = d }
}

// NewParser strips a leading BOM, checks the first chunk is UTF-8, and reads the header row.
func NewParser(r io.Reader, opts ...Option) (*Parser, error) {
	br := bufio.NewReaderSize(r, 4096)
	head, err := br.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("csvio: read: %w", err)
	}
	if len(head) == 3 && head[0] == utf8BOM[0] && head[1] == utf8BOM[1] && head[2] == utf8BOM[2] {
		_, _ = br.Discard(3)
	}
	sample, err := br.Peek(4096)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("csvio: read: %w", err)
	}
	if len(sample) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(trimPartialRune(sample)) {
		return nil, ErrInvalidEncoding
	}

	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	for _, opt := range opts {
		opt(cr)
	}

	p := &Parser{reader: cr, headerMap: make(map[string]int)}
	record, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("csvio: header: %w", err)
	}
	p.line = 1
	for i, h := range record {
		key := NormaliseHeader(h)
		if key == "" {
			continue
		}
		p.headers = append(p.headers, key)
		p.headerMap[key] = i
	}
	if len(p.headers) == 0 {
		return nil, ErrMissingHeader
	}
	return p, nil
}

// NormaliseHeader lowercases and strips spaces, underscores and dashes so
// "Order ID", "order_id" and "orderId" all match.
func NormaliseHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// Headers returns the normalised header names.
func (p *Parser) Headers() []string {
	return p.headers
}

// Has reports whether a column is present.
func (p *Parser) Has(name string) bool {
	_, ok := p.headerMap[NormaliseHeader(name)]
	return ok
}

// Require returns an error naming the first missing column.
func (p *Parser) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if !p.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("csvio: missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Row is one data line keyed by normalised header.
type Row struct {
	Line int
	data map[string]string
}

// Get returns the trimmed cell for a column.
func (r Row) Get(name string) string {
	return r.data[NormaliseHeader(name)]
}

// IsEmpty reports whether every cell is blank.
func (r Row) IsEmpty() bool {
	for _, v := range r.data {
		if v != "" {
			return false
		}
	}
	return true
}

// Next reads the next row. It returns io.EOF at the end.
func (p *Parser) Next() (Row, error) {
	record, err := p.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		p.line++
		return Row{Line: p.line}, &RowError{Line: p.line, Code: CodeMalformed, Message: err.Error()}
	}
	p.line++
	row := Row{Line: p.line, data: make(map[string]string, len(p.headers))}
	for name, idx := range p.headerMap {
		if idx < len(record) {
			row.data[name] = strings.TrimSpace(record[idx])
		}
	}
	return row, nil
}

// RowError describes why a row was rejected.
type RowError struct {
	Line    int    `json:"line"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Result summarises an import run.
type Result struct {
	Created int         `json:"created"`
	Updated int         `json:"updated"`
	Skipped int         `json:"skipped"`
	Errors  []*RowError `json:"errors"`
}

// Fail records a row error.
func (r *Result) Fail(line int, column, code, msg string) {
	r.Errors = append(r.Errors, &RowError{Line: line, Column: column, Code: code, Message: msg})
}

func trimPartialRune(b []byte) []byte {
	// A 4096-byte peek can cut a multi-byte rune in half.
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if r, _ := utf8.DecodeLastRune(b); r != utf8.RuneError {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}
