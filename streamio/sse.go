package streamio

import (
	"bufio"
	"bytes"
	"io"
)

// SSEDecoder assembles Server-Sent-Event frames from a byte stream. Frames
// are separated by a blank line; "data:" lines carry the payload (multiple
// data lines are joined with '\n' per the SSE spec) and ":" comment lines
// are discarded. Field lines other than data (event:, id:, retry:) carry no
// payload for the dialects handled here and are skipped.
//
// Line assembly goes through bufio, so a network chunk boundary inside a
// line, or inside a multi-byte character, never surfaces as a torn frame.
type SSEDecoder struct {
	r *bufio.Reader
}

// NewSSEDecoder wraps an open response body.
func NewSSEDecoder(r io.Reader) *SSEDecoder {
	return &SSEDecoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next frame's concatenated data payload. It returns io.EOF
// once the source is exhausted; a final frame not closed by a blank line is
// still delivered before EOF.
func (d *SSEDecoder) Next() ([]byte, error) {
	var data [][]byte
	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil {
			line = bytes.TrimRight(line, "\r\n")
			if len(line) > 0 {
				data = appendDataLine(data, line)
			}
			if len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if len(data) == 0 {
				continue
			}
			return bytes.Join(data, []byte("\n")), nil
		}
		if line[0] == ':' {
			continue
		}
		data = appendDataLine(data, line)
	}
}

func appendDataLine(dst [][]byte, line []byte) [][]byte {
	if !bytes.HasPrefix(line, []byte("data:")) {
		return dst
	}
	val := line[len("data:"):]
	if len(val) > 0 && val[0] == ' ' {
		val = val[1:]
	}
	return append(dst, append([]byte(nil), val...))
}
