package flatpack

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

const (
	PrefixSize    = 4    // Decimal digits in a length prefix
	MaxRecordSize = 9999 // Largest payload a prefix can describe
)

var (
	ErrOverflow        = errors.New("record exceeds 9999 bytes")
	ErrPrefixUnderrun  = errors.New("buffer underrun while parsing length prefix")
	ErrInvalidPrefix   = errors.New("invalid byte in length prefix")
	ErrPayloadUnderrun = errors.New("buffer underrun while parsing payload")
	ErrInvalidUTF8     = errors.New("payload is not valid UTF-8")
	ErrRecordUnderrun  = errors.New("record underrun")
)

// ParseError reports where in the buffer parsing stopped.
type ParseError struct {
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("flatpack: %v at offset %d", e.Err, e.Offset)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Writer accumulates length-prefixed records.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty writer
func NewWriter() *Writer {
	return &Writer{}
}

// PutBytes appends a record holding data
func (w *Writer) PutBytes(data []byte) error {
	if len(data) > MaxRecordSize {
		return ErrOverflow
	}
	w.buf = fmt.Appendf(w.buf, "%04d", len(data))
	w.buf = append(w.buf, data...)
	return nil
}

// PutString appends a record holding s
func (w *Writer) PutString(s string) error {
	if len(s) > MaxRecordSize {
		return ErrOverflow
	}
	w.buf = fmt.Appendf(w.buf, "%04d", len(s))
	w.buf = append(w.buf, s...)
	return nil
}

// PutUint32 appends a record holding n in decimal
func (w *Writer) PutUint32(n uint32) error {
	return w.PutString(strconv.FormatUint(uint64(n), 10))
}

// Bytes returns the encoded records. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Wipe zeroes the buffer and resets the writer.
func (w *Writer) Wipe() {
	clear(w.buf)
	w.buf = w.buf[:0]
}

// Parser reads records from a buffer. It is not restartable: after the
// first error every call to Next reports io.EOF.
type Parser struct {
	buf    []byte
	pos    int
	failed bool
}

// NewParser creates a parser over buf
func NewParser(buf []byte) *Parser {
	return &Parser{buf: buf}
}

// Next returns the next record, or io.EOF once the buffer is exhausted.
func (p *Parser) Next() (string, error) {
	if p.failed || p.pos == len(p.buf) {
		return "", io.EOF
	}
	if len(p.buf)-p.pos < PrefixSize {
		return "", p.fail(ErrPrefixUnderrun)
	}

	size := 0
	for _, c := range p.buf[p.pos : p.pos+PrefixSize] {
		if c < '0' || c > '9' {
			return "", p.fail(ErrInvalidPrefix)
		}
		size = size*10 + int(c-'0')
	}
	p.pos += PrefixSize

	if len(p.buf)-p.pos < size {
		return "", p.fail(ErrPayloadUnderrun)
	}
	payload := p.buf[p.pos : p.pos+size]
	if !utf8.Valid(payload) {
		return "", p.fail(ErrInvalidUTF8)
	}
	p.pos += size

	return string(payload), nil
}

func (p *Parser) fail(err error) error {
	p.failed = true
	return &ParseError{Offset: p.pos, Err: err}
}

// EOF reports whether every byte has been consumed.
func (p *Parser) EOF() bool {
	return p.pos == len(p.buf)
}

// Take returns the next n records, failing with ErrRecordUnderrun if the
// buffer ends first.
func (p *Parser) Take(n int) ([]string, error) {
	records := make([]string, 0, n)
	for range n {
		s, err := p.Next()
		if err == io.EOF {
			return nil, &ParseError{Offset: p.pos, Err: ErrRecordUnderrun}
		}
		if err != nil {
			return nil, err
		}
		records = append(records, s)
	}
	return records, nil
}

// Take3 returns the next three records
func (p *Parser) Take3() (a, b, c string, err error) {
	r, err := p.Take(3)
	if err != nil {
		return "", "", "", err
	}
	return r[0], r[1], r[2], nil
}

// Take5 returns the next five records
func (p *Parser) Take5() (a, b, c, d, e string, err error) {
	r, err := p.Take(5)
	if err != nil {
		return "", "", "", "", "", err
	}
	return r[0], r[1], r[2], r[3], r[4], nil
}
