package streamio

import "unicode/utf8"

// UTF8Decoder re-aligns a byte stream on UTF-8 code point boundaries.
// Feed translates to "everything up to the last complete code point";
// trailing bytes of a split multi-byte sequence are carried over and
// prepended to the next chunk, so no emitted slice ever ends inside a
// code point.
type UTF8Decoder struct {
	carry []byte
}

// Feed appends chunk to any carried-over bytes and returns the longest
// prefix that ends on a code point boundary. The returned slice is owned by
// the caller.
func (d *UTF8Decoder) Feed(chunk []byte) []byte {
	if len(chunk) == 0 && len(d.carry) == 0 {
		return nil
	}
	buf := append(d.carry, chunk...)
	cut := completeBoundary(buf)

	out := make([]byte, cut)
	copy(out, buf[:cut])
	d.carry = append(d.carry[:0], buf[cut:]...)
	return out
}

// Flush returns any carried-over bytes. A non-empty result is an incomplete
// sequence: the source ended mid-code-point.
func (d *UTF8Decoder) Flush() []byte {
	out := d.carry
	d.carry = nil
	return out
}

// Pending reports whether bytes are being carried over.
func (d *UTF8Decoder) Pending() bool {
	return len(d.carry) > 0
}

// completeBoundary returns the length of the longest prefix of buf that does
// not end inside a multi-byte sequence. Invalid encodings are passed through
// unmodified rather than buffered forever.
func completeBoundary(buf []byte) int {
	n := len(buf)
	for i := n - 1; i >= 0 && n-i <= utf8.UTFMax; i-- {
		b := buf[i]
		if b < utf8.RuneSelf {
			// ASCII, everything before the tail under inspection is complete.
			return n
		}
		if b&0xC0 == 0xC0 {
			// Leading byte of a multi-byte sequence.
			var need int
			switch {
			case b&0xE0 == 0xC0:
				need = 2
			case b&0xF0 == 0xE0:
				need = 3
			case b&0xF8 == 0xF0:
				need = 4
			default:
				// Invalid leading byte, pass through.
				return n
			}
			if n-i < need {
				return i
			}
			return n
		}
		// Continuation byte, keep scanning backwards.
	}
	return n
}
