package ioformats

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"

	"sentiboard/internal/parser"
)

type FieldKind int

const (
	Text FieldKind = iota
	// FreeText is user-written text: surrounding quotes are stripped and
	// surplus fields from unquoted commas are folded back into it.
	FreeText
	Int
	Float
	// SentimentCode is an integer enum; unparsable values decode to -1.
	SentimentCode
)

type Field struct {
	Name string
	Kind FieldKind
}

type HeaderPolicy int

const (
	// HeaderAlways skips the first row unconditionally.
	HeaderAlways HeaderPolicy = iota
	// HeaderDetect skips the first row only when its first numeric field
	// does not parse.
	HeaderDetect
	HeaderNone
)

// Schema describes one CSV export.
type Schema struct {
	Name      string
	Fields    []Field
	MinFields int
	Header    HeaderPolicy
}

// Options controls decoding shared by every schema.
type Options struct {
	// Encoding is a WHATWG label such as "euc-kr". Empty means detect.
	Encoding string
	// StripMarkup reduces HTML in free-text fields to plain text.
	StripMarkup bool
}

// Skip records a row that was dropped and why.
type Skip struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type Result[T any] struct {
	Records []T
	Skipped []Skip
	// Encoding is the source encoding; EncodingGuessed is set when it was
	// not named and the content gave no reliable hint.
	Encoding        string
	EncodingGuessed bool
}

// Row is one CSV line normalized against its schema.
type Row struct {
	Line   int
	fields []string
}

func (r Row) String(i int) string {
	if i < 0 || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// Int parses field i, defaulting to 0.
func (r Row) Int(i int) int {
	n, ok := parseInt(r.String(i))
	if !ok {
		return 0
	}
	return n
}

// Float parses field i, defaulting to 0.
func (r Row) Float(i int) float64 {
	f, ok := parseFloat(r.String(i))
	if !ok {
		return 0
	}
	return f
}

// Code parses field i as a sentiment code, -1 when unparsable.
func (r Row) Code(i int) int {
	n, ok := parseInt(r.String(i))
	if !ok {
		return -1
	}
	return n
}

var utf8BOM = []byte("\xef\xbb\xbf")

// maxRecordLines bounds how many physical lines one quoted field may span.
const maxRecordLines = 256

// Parse reads every row of data against schema and hands normalized rows to
// decode. A decode error skips that row. Only I/O and encoding failures are
// returned as errors; malformed rows end up in Result.Skipped.
//
// Rows are read line by line. A quoted field may carry a record across
// lines only when the quote closes and the record fits the schema, so a
// stray quote never swallows the rows after it.
func Parse[T any](r io.Reader, schema Schema, opts Options, decode func(Row) (T, error)) (*Result[T], error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s csv: %w", schema.Name, err)
	}
	data, enc, guessed, err := toUTF8(raw, opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("decode %s csv: %w", schema.Name, err)
	}

	lines := strings.Split(string(data), "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	res := &Result[T]{Encoding: enc, EncodingGuessed: guessed}
	first := true
	for i := 0; i < len(lines); {
		if strings.TrimSpace(lines[i]) == "" {
			i++
			continue
		}
		line := i + 1
		fields, n := readRecord(schema, lines[i:])
		i += n

		if first {
			first = false
			if isHeader(schema, fields) {
				continue
			}
		}

		if len(fields) < schema.MinFields {
			res.Skipped = append(res.Skipped, Skip{
				Line:   line,
				Reason: fmt.Sprintf("expected %d fields, got %d", schema.MinFields, len(fields)),
			})
			continue
		}

		row := Row{Line: line, fields: normalize(schema, fields, opts)}
		rec, err := decode(row)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{Line: line, Reason: err.Error()})
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// readRecord reads the record starting at lines[0] and reports how many
// lines it consumed.
func readRecord(schema Schema, lines []string) ([]string, int) {
	open := strings.Count(lines[0], `"`)%2 == 1
	for n := 1; open && n < len(lines) && n < maxRecordLines; n++ {
		if strings.Count(lines[n], `"`)%2 == 0 {
			continue
		}
		block := strings.Join(lines[:n+1], "\n")
		if fields, ok := readCSV(block, false); ok && fits(schema, fields) {
			return fields, n + 1
		}
		break
	}

	if fields, ok := readCSV(lines[0], true); ok && len(fields) >= schema.MinFields {
		return fields, 1
	}
	return strings.Split(lines[0], ","), 1
}

// readCSV reads s as exactly one CSV record.
func readCSV(s string, lazy bool) ([]string, bool) {
	cr := csv.NewReader(strings.NewReader(s))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = lazy
	fields, err := cr.Read()
	if err != nil {
		return nil, false
	}
	if _, err := cr.Read(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return fields, true
}

// fits reports whether fields hold enough columns and every sentiment code
// parses.
func fits(schema Schema, fields []string) bool {
	if len(fields) < schema.MinFields {
		return false
	}
	extra := len(fields) - len(schema.Fields)
	free := freeIndex(schema)
	for i, f := range schema.Fields {
		if f.Kind != SentimentCode {
			continue
		}
		idx := i
		if extra > 0 && free >= 0 && i > free {
			idx += extra
		}
		if idx >= len(fields) {
			continue
		}
		if _, ok := parseInt(fields[idx]); !ok {
			return false
		}
	}
	return true
}

func freeIndex(schema Schema) int {
	for i, f := range schema.Fields {
		if f.Kind == FreeText {
			return i
		}
	}
	return -1
}

func isHeader(schema Schema, fields []string) bool {
	switch schema.Header {
	case HeaderAlways:
		return true
	case HeaderDetect:
		for i, f := range schema.Fields {
			if f.Kind != Int && f.Kind != Float {
				continue
			}
			if i >= len(fields) {
				return true
			}
			_, ok := parseFloat(fields[i])
			return !ok
		}
	}
	return false
}

// normalize folds surplus fields into the free-text column, trims
// whitespace and strips surrounding quotes from free text.
func normalize(schema Schema, fields []string, opts Options) []string {
	free := freeIndex(schema)
	if extra := len(fields) - len(schema.Fields); extra > 0 && free >= 0 {
		merged := strings.Join(fields[free:free+extra+1], ",")
		folded := make([]string, 0, len(schema.Fields))
		folded = append(folded, fields[:free]...)
		folded = append(folded, merged)
		folded = append(folded, fields[free+extra+1:]...)
		fields = folded
	}

	out := make([]string, len(fields))
	for i, v := range fields {
		v = strings.TrimSpace(v)
		if i < len(schema.Fields) && schema.Fields[i].Kind == FreeText {
			v = strings.TrimSpace(strings.Trim(v, `"`))
			if opts.StripMarkup {
				v = parser.PlainText(v)
			}
		}
		out[i] = v
	}
	return out
}

// toUTF8 strips a byte order mark and converts data to UTF-8. Without a
// label, data that is not valid UTF-8 goes through charset.DetermineEncoding,
// which only recognises a BOM and otherwise falls back to windows-1252; it
// never detects EUC-KR or CP949. guessed reports that fallback.
func toUTF8(data []byte, label string) (out []byte, name string, guessed bool, err error) {
	var enc encoding.Encoding
	if label != "" {
		enc, name = charset.Lookup(label)
		if enc == nil {
			return nil, "", false, fmt.Errorf("unknown encoding %q", label)
		}
	} else {
		if trimmed := bytes.TrimPrefix(data, utf8BOM); utf8.Valid(trimmed) {
			return trimmed, "utf-8", false, nil
		}
		var certain bool
		enc, name, certain = charset.DetermineEncoding(data, "text/csv")
		guessed = !certain
	}

	out, err = enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", false, err
	}
	return bytes.TrimPrefix(out, utf8BOM), name, guessed, nil
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	// pandas writes integer columns holding NaN as floats ("3.0")
	f, ok := parseFloat(s)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int(f), true
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
