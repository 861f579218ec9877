package llmstream

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lumenlabs/lumen-llm-go/streamio"
)

// doneSentinel is the SSE payload signaling normal end-of-stream. It is
// consumed by the pipeline and never forwarded as a frame.
var doneSentinel = []byte("[DONE]")

// FrameConverter maps one decoded wire frame onto at most one normalized
// StreamEvent. One converter instance serves exactly one stream and may keep
// per-stream state (block index tables, a pending finish reason).
type FrameConverter interface {
	// ConvertFrame converts a frame payload. ok is false for purely
	// structural frames (pings, block open/close markers) that produce no
	// event. A payload that fails to deserialize returns an error, which
	// terminates the stream. A provider-reported error payload converts to
	// an EventError event.
	ConvertFrame(payload []byte) (ev StreamEvent, ok bool, err error)

	// Done reports that a frame already marked the stream as finished
	// (Ollama's done:true). The pipeline stops reading frames once true.
	Done() bool

	// EndEvent is invoked once when the stream terminates cleanly (sentinel,
	// converter Done, or source EOF) and may emit a final stream_end event
	// carrying the finish reason the dialect recorded.
	EndEvent() (StreamEvent, bool)
}

// Stream is the pull-based pipeline over one streaming response: byte source
// -> frame decoder -> event converter. It is single-pass and forward-only;
// consuming it twice is not possible, a fresh request must be issued.
//
// A Stream is not safe for concurrent use. Each stream owns its decoder
// carry-over state and must be consumed by a single goroutine.
type Stream struct {
	provider string
	id       string
	body     io.Closer
	dec      streamio.FrameDecoder
	conv     FrameConverter
	log      zerolog.Logger

	closed bool
	done   bool
	ended  bool // EndEvent already delivered
	events int
}

// NewStream assembles a pipeline over an open response body. dec must read
// from body; body is closed by Close and on termination.
func NewStream(provider string, body io.ReadCloser, dec streamio.FrameDecoder, conv FrameConverter, log zerolog.Logger) *Stream {
	id := uuid.NewString()
	s := &Stream{
		provider: provider,
		id:       id,
		body:     body,
		dec:      dec,
		conv:     conv,
		log:      log.With().Str("provider", provider).Str("stream_id", id).Logger(),
	}
	s.log.Debug().Msg("stream opened")
	return s
}

// Recv returns the next normalized event. It returns io.EOF after the stream
// has terminated cleanly, ErrStreamClosed after Close, and any decode, parse,
// transport or provider error exactly once; no events follow an error.
func (s *Stream) Recv() (StreamEvent, error) {
	if s.closed {
		return StreamEvent{}, ErrStreamClosed
	}
	if s.done {
		return s.finish()
	}

	for {
		payload, err := s.dec.Next()
		if err != nil {
			s.done = true
			if errors.Is(err, io.EOF) {
				return s.finish()
			}
			return s.fail(err)
		}

		if bytes.Equal(bytes.TrimSpace(payload), doneSentinel) {
			s.done = true
			return s.finish()
		}

		ev, ok, err := s.conv.ConvertFrame(payload)
		if err != nil {
			s.done = true
			return s.fail(err)
		}
		if s.conv.Done() {
			s.done = true
		}
		if !ok {
			if s.done {
				return s.finish()
			}
			continue
		}
		if ev.Kind == EventError {
			s.done = true
			return s.fail(ev.Err)
		}
		if ev.Kind == EventStreamEnd {
			s.done = true
			s.ended = true
		}
		s.events++
		return ev, nil
	}
}

// finish delivers the converter's end event once, then io.EOF forever.
func (s *Stream) finish() (StreamEvent, error) {
	if !s.ended {
		s.ended = true
		if ev, ok := s.conv.EndEvent(); ok {
			s.events++
			return ev, nil
		}
	}
	s.release()
	s.log.Debug().Int("events", s.events).Msg("stream finished")
	return StreamEvent{}, io.EOF
}

// fail reports a terminal error and releases the connection.
func (s *Stream) fail(err error) (StreamEvent, error) {
	s.ended = true
	s.release()
	s.log.Debug().Err(err).Int("events", s.events).Msg("stream failed")
	return StreamEvent{}, err
}

func (s *Stream) release() {
	if s.body != nil {
		_ = s.body.Close()
		s.body = nil
	}
}

// Close releases the underlying connection. No further network reads are
// issued after Close; Recv returns ErrStreamClosed. Close is idempotent and
// safe to call before natural termination (cancellation).
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.body != nil {
		err := s.body.Close()
		s.body = nil
		s.log.Debug().Int("events", s.events).Msg("stream closed by consumer")
		return err
	}
	return nil
}

// Provider returns the dialect name that produced this stream.
func (s *Stream) Provider() string { return s.provider }

// ID returns the pipeline's correlation id used in log lines.
func (s *Stream) ID() string { return s.id }

// Events adapts the stream to a channel for select-based consumers. The
// channel closes after the terminal event; a failure is delivered as one
// final EventError event. Cancelling ctx closes the stream and stops reads.
func (s *Stream) Events(ctx context.Context) <-chan StreamEvent {
	out := make(chan StreamEvent, 10)
	go func() {
		defer close(out)
		defer s.Close()
		for {
			ev, err := s.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, ErrStreamClosed) {
					return
				}
				select {
				case out <- StreamEvent{Kind: EventError, Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Collect drains the stream through an Accumulator and returns the final
// aggregate response. On a stream failure it returns both the partial
// response (marked Incomplete) and the error, so callers can decide whether
// partial output is usable. The stream is closed in all cases.
func Collect(ctx context.Context, s *Stream) (*Response, error) {
	defer s.Close()

	acc := NewAccumulator()
	for {
		if err := ctx.Err(); err != nil {
			resp := acc.Finalize()
			resp.Incomplete = true
			return resp, err
		}
		ev, err := s.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return acc.Finalize(), nil
			}
			acc.fail(err)
			return acc.Finalize(), err
		}
		acc.Apply(ev)
		if ev.Kind == EventStreamEnd {
			return acc.Finalize(), nil
		}
	}
}
