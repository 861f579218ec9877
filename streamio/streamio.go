// Package streamio assembles discrete protocol frames from the raw byte
// stream of an open HTTP response body. Two wire dialects are supported:
// Server-Sent-Events (blank-line delimited, "data:" payload lines) and
// value-per-chunk JSON streaming (one top-level JSON value per frame).
//
// Both decoders are boundary-safe: network chunks may split frames, JSON
// tokens or multi-byte UTF-8 sequences at arbitrary byte offsets without
// corrupting or reordering the emitted frames.
package streamio

import "errors"

// FrameDecoder yields complete wire frames in arrival order. Next returns
// io.EOF after the last frame of a cleanly terminated stream, and
// ErrUnterminatedFrame when the source ends mid-frame.
type FrameDecoder interface {
	Next() ([]byte, error)
}

// ErrUnterminatedFrame indicates the byte source ended while a frame was
// still being assembled (unbalanced JSON, torn UTF-8 sequence).
var ErrUnterminatedFrame = errors.New("streamio: byte source ended mid-frame")
