// Package eventlog reads the exported message log: a CSV file with a header
// row and one message per record.
package eventlog

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Sumatoshi-tech/topicstats/pkg/textutil"
)

// Recognized column names.
const (
	ColumnMail      = "mail"
	ColumnName      = "name"
	ColumnTopic     = "topic"
	ColumnText      = "text"
	ColumnTimestamp = "timestamp"
)

// DefaultReadBuffer is the bufio buffer size used when none is given.
const DefaultReadBuffer = 1 << 20

// Errors returned by the reader.
var (
	// ErrMissingHeader indicates the input has no header row.
	ErrMissingHeader = errors.New("eventlog: missing header row")
	// ErrMissingColumn indicates a required column is absent from the header.
	ErrMissingColumn = errors.New("eventlog: missing required column")
	// ErrMalformedRow indicates a single row could not be parsed. The reader
	// stays usable; callers skip the row and continue.
	ErrMalformedRow = errors.New("eventlog: malformed row")
)

// Record is one message from the event log. Fields hold the raw column
// values with invalid UTF-8 removed.
type Record struct {
	Mail      string
	Name      string
	Topic     string
	Text      string
	Timestamp string
	// HasName is false when the row carries no name column at all.
	HasName bool
	// Line is the input line the record starts on.
	Line int
}

// Reader streams records from a CSV event log.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
	rows    int
}

// Option configures a Reader.
type Option func(*options)

type options struct {
	bufferSize int
}

// WithBufferSize sets the read buffer size in bytes.
func WithBufferSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.bufferSize = size
		}
	}
}

// NewReader consumes the header row of src and returns a reader positioned
// at the first record. The mail and timestamp columns are required.
func NewReader(src io.Reader, opts ...Option) (*Reader, error) {
	o := options{bufferSize: DefaultReadBuffer}
	for _, opt := range opts {
		opt(&o)
	}

	cr := csv.NewReader(bufio.NewReaderSize(src, o.bufferSize))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	}

	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))

	for i, name := range header {
		if i == 0 {
			name = textutil.TrimBOM(name)
		}

		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	for _, required := range []string{ColumnMail, ColumnTimestamp} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, required)
		}
	}

	return &Reader{csv: cr, columns: columns}, nil
}

// Next returns the next record. It returns io.EOF after the last record and
// an error wrapping ErrMalformedRow for a row that cannot be parsed.
func (r *Reader) Next() (Record, error) {
	fields, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return Record{}, io.EOF
	}

	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return Record{}, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, parseErr.StartLine, parseErr.Err)
		}

		return Record{}, fmt.Errorf("read row: %w", err)
	}

	r.rows++
	line, _ := r.csv.FieldPos(0)

	name, hasName := r.field(fields, ColumnName)

	mail, _ := r.field(fields, ColumnMail)
	topic, _ := r.field(fields, ColumnTopic)
	text, _ := r.field(fields, ColumnText)
	timestamp, _ := r.field(fields, ColumnTimestamp)

	// Short fields outlive the row; detach them from the row buffer so a
	// large text column is not retained through them.
	rec := Record{
		Mail:      strings.Clone(mail),
		Name:      strings.Clone(name),
		Topic:     strings.Clone(topic),
		Text:      text,
		Timestamp: timestamp,
		HasName:   hasName,
		Line:      line,
	}

	return rec, nil
}

// Rows returns the number of records returned so far.
func (r *Reader) Rows() int {
	return r.rows
}

func (r *Reader) field(fields []string, column string) (string, bool) {
	idx, ok := r.columns[column]
	if !ok || idx >= len(fields) {
		return "", false
	}

	return textutil.Sanitize(fields[idx]), true
}
