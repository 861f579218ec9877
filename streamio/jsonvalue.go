package streamio

import (
	"fmt"
	"io"
)

// JSONValueDecoder assembles frames from a value-per-chunk JSON stream: each
// complete top-level JSON object or array in the byte stream is one frame.
// Values split across network chunks are held in a pending buffer until the
// closing brace or bracket arrives; bytes pass through a UTF8Decoder so a
// chunk boundary inside a multi-byte character is carried over intact.
//
// The scanner tracks brace/bracket depth with string and escape awareness.
// Whitespace between values (Ollama separates values with newlines) is
// skipped; any other byte outside a value is a decode failure.
type JSONValueDecoder struct {
	r    io.Reader
	utf8 UTF8Decoder

	buf     []byte
	readBuf []byte
	eof     bool

	// scanner state, persisted across Next calls
	pos      int
	start    int
	depth    int
	inString bool
	escaped  bool
}

// NewJSONValueDecoder wraps an open response body.
func NewJSONValueDecoder(r io.Reader) *JSONValueDecoder {
	return &JSONValueDecoder{
		r:       r,
		readBuf: make([]byte, 4096),
		start:   -1,
	}
}

// Next returns the next complete top-level JSON value. It returns io.EOF on
// clean exhaustion and ErrUnterminatedFrame if the source ends mid-value.
func (d *JSONValueDecoder) Next() ([]byte, error) {
	for {
		if frame, err := d.scan(); frame != nil || err != nil {
			return frame, err
		}
		if d.eof {
			if d.start >= 0 || d.utf8.Pending() {
				return nil, ErrUnterminatedFrame
			}
			return nil, io.EOF
		}
		if err := d.fill(); err != nil {
			return nil, err
		}
	}
}

// scan advances through the pending buffer and extracts one complete value
// if the buffered bytes contain one.
func (d *JSONValueDecoder) scan() ([]byte, error) {
	for ; d.pos < len(d.buf); d.pos++ {
		b := d.buf[d.pos]

		if d.start < 0 {
			switch b {
			case ' ', '\t', '\r', '\n':
				continue
			case '{', '[':
				d.start = d.pos
				d.depth = 1
				continue
			default:
				return nil, fmt.Errorf("streamio: unexpected byte %q outside JSON value", b)
			}
		}

		if d.escaped {
			d.escaped = false
			continue
		}
		switch {
		case b == '\\' && d.inString:
			d.escaped = true
		case b == '"':
			d.inString = !d.inString
		case d.inString:
			// String contents, including '{' and '}', are payload.
		case b == '{' || b == '[':
			d.depth++
		case b == '}' || b == ']':
			d.depth--
			if d.depth == 0 {
				frame := append([]byte(nil), d.buf[d.start:d.pos+1]...)
				d.buf = append(d.buf[:0], d.buf[d.pos+1:]...)
				d.pos = 0
				d.start = -1
				d.inString = false
				d.escaped = false
				return frame, nil
			}
		}
	}
	return nil, nil
}

// fill reads the next network chunk into the pending buffer.
func (d *JSONValueDecoder) fill() error {
	n, err := d.r.Read(d.readBuf)
	if n > 0 {
		d.buf = append(d.buf, d.utf8.Feed(d.readBuf[:n])...)
	}
	switch {
	case err == io.EOF:
		d.eof = true
		// A trailing torn sequence surfaces as ErrUnterminatedFrame via
		// Pending; complete carried-over bytes would already be in buf.
		return nil
	case err != nil:
		return err
	}
	return nil
}
