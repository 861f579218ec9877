package llmstream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/lumenlabs/lumen-llm-go/streamio"
)

// testFrame is a minimal wire shape for pipeline tests.
type testFrame struct {
	Delta  string `json:"delta,omitempty"`
	Usage  *Usage `json:"usage,omitempty"`
	Error  string `json:"error,omitempty"`
	Finish string `json:"finish,omitempty"`
}

type testConverter struct {
	finish *FinishReason
}

func (c *testConverter) ConvertFrame(payload []byte) (StreamEvent, bool, error) {
	var f testFrame
	if err := json.Unmarshal(payload, &f); err != nil {
		return StreamEvent{}, false, &ParseError{Provider: "test", Message: "decode frame", Raw: payload, Err: err}
	}
	switch {
	case f.Error != "":
		return StreamEvent{Kind: EventError, Err: &ProviderError{Provider: "test", Message: f.Error, Err: ErrProviderUnavailable}}, true, nil
	case f.Delta != "":
		return StreamEvent{Kind: EventContentDelta, Text: f.Delta}, true, nil
	case f.Usage != nil:
		return StreamEvent{Kind: EventUsageUpdate, Usage: f.Usage}, true, nil
	case f.Finish != "":
		fr := NormalizeFinishReason(f.Finish)
		c.finish = &fr
		return StreamEvent{}, false, nil
	}
	return StreamEvent{}, false, nil
}

func (c *testConverter) Done() bool { return false }

func (c *testConverter) EndEvent() (StreamEvent, bool) {
	finish := c.finish
	if finish == nil {
		finish = &FinishReason{Kind: FinishStop}
	}
	return StreamEvent{Kind: EventStreamEnd, Response: &Response{Provider: "test", FinishReason: finish}}, true
}

func newTestStream(input string) *Stream {
	body := io.NopCloser(strings.NewReader(input))
	return NewStream("test", body, streamio.NewSSEDecoder(body), &testConverter{}, zerolog.Nop())
}

func recvAll(t *testing.T, s *Stream) ([]StreamEvent, error) {
	t.Helper()
	var events []StreamEvent
	for {
		ev, err := s.Recv()
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

func TestStream_SentinelTermination(t *testing.T) {
	// Frames after the sentinel must never surface.
	input := "data: {\"delta\":\"Hel\"}\n\n" +
		"data: {\"delta\":\"lo\"}\n\n" +
		"data: [DONE]\n\n" +
		"data: {\"delta\":\"ignored\"}\n\n"

	s := newTestStream(input)
	events, err := recvAll(t, s)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("terminal error = %v, want io.EOF", err)
	}

	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	want := []EventKind{EventContentDelta, EventContentDelta, EventStreamEnd}
	if len(kinds) != len(want) {
		t.Fatalf("got events %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, kinds[i], want[i])
		}
	}
	if events[0].Text+events[1].Text != "Hello" {
		t.Errorf("content = %q, want %q", events[0].Text+events[1].Text, "Hello")
	}
}

func TestStream_EOFAfterTermination(t *testing.T) {
	s := newTestStream("data: [DONE]\n\n")
	if _, err := recvAll(t, s); !errors.Is(err, io.EOF) {
		t.Fatalf("terminal error = %v, want io.EOF", err)
	}
	// Recv after EOF must keep returning EOF, not panic or block.
	if _, err := s.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("Recv after EOF = %v, want io.EOF", err)
	}
}

func TestStream_FailFastOnMalformedFrame(t *testing.T) {
	input := "data: {\"delta\":\"ok\"}\n\n" +
		"data: {not json\n\n" +
		"data: {\"delta\":\"never\"}\n\n"

	s := newTestStream(input)
	events, err := recvAll(t, s)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("terminal error = %v, want ParseError", err)
	}
	if len(events) != 1 || events[0].Text != "ok" {
		t.Errorf("events before failure = %v, want the single ok delta", events)
	}
	// The error is delivered exactly once; afterwards the stream is spent.
	if _, err := s.Recv(); err == nil {
		t.Errorf("Recv after failure returned nil error")
	}
}

func TestStream_EmbeddedProviderError(t *testing.T) {
	input := "data: {\"delta\":\"partial\"}\n\n" +
		"data: {\"error\":\"server overloaded\"}\n\n"

	s := newTestStream(input)
	events, err := recvAll(t, s)
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("terminal error = %v, want ProviderError", err)
	}
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("error does not unwrap to ErrProviderUnavailable: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("got %d events before error, want 1", len(events))
	}
}

func TestStream_CleanEOFWithoutSentinel(t *testing.T) {
	// Source ends without [DONE]; the converter's end event still fires.
	s := newTestStream("data: {\"delta\":\"all\"}\n\n")
	events, err := recvAll(t, s)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("terminal error = %v, want io.EOF", err)
	}
	last := events[len(events)-1]
	if last.Kind != EventStreamEnd {
		t.Errorf("last event = %v, want stream_end", last.Kind)
	}
}

func TestStream_Close(t *testing.T) {
	s := newTestStream("data: {\"delta\":\"x\"}\n\ndata: [DONE]\n\n")
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := s.Recv(); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("Recv after Close = %v, want ErrStreamClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestStream_Events(t *testing.T) {
	input := "data: {\"delta\":\"a\"}\n\ndata: {\"delta\":\"b\"}\n\ndata: [DONE]\n\n"
	s := newTestStream(input)

	var kinds []EventKind
	for ev := range s.Events(context.Background()) {
		kinds = append(kinds, ev.Kind)
	}
	want := []EventKind{EventContentDelta, EventContentDelta, EventStreamEnd}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
}

func TestStream_EventsDeliversFailure(t *testing.T) {
	s := newTestStream("data: {bad\n\n")
	var last StreamEvent
	for ev := range s.Events(context.Background()) {
		last = ev
	}
	if last.Kind != EventError || last.Err == nil {
		t.Errorf("last channel event = %+v, want error event", last)
	}
}

func TestCollect_EndToEnd(t *testing.T) {
	input := "data: {\"delta\":\"Hel\"}\n\n" +
		"data: {\"delta\":\"lo\"}\n\n" +
		"data: {\"usage\":{\"prompt_tokens\":5,\"completion_tokens\":2,\"total_tokens\":7}}\n\n" +
		"data: {\"finish\":\"stop\"}\n\n" +
		"data: [DONE]\n\n"

	resp, err := Collect(context.Background(), newTestStream(input))
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if resp.Content != "Hello" {
		t.Errorf("Content = %q, want %q", resp.Content, "Hello")
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 7 {
		t.Errorf("Usage = %+v, want total 7", resp.Usage)
	}
	if resp.FinishReason == nil || resp.FinishReason.Kind != FinishStop {
		t.Errorf("FinishReason = %v, want stop", resp.FinishReason)
	}
	if resp.Incomplete {
		t.Errorf("Incomplete = true, want false")
	}
}

func TestCollect_PartialOnFailure(t *testing.T) {
	input := "data: {\"delta\":\"par\"}\n\n" +
		"data: {\"delta\":\"tial\"}\n\n" +
		"data: {\"error\":\"boom\"}\n\n"

	resp, err := Collect(context.Background(), newTestStream(input))
	if err == nil {
		t.Fatal("Collect returned nil error for failed stream")
	}
	if resp == nil {
		t.Fatal("Collect returned nil response, want partial snapshot")
	}
	if resp.Content != "partial" {
		t.Errorf("Content = %q, want %q", resp.Content, "partial")
	}
	if !resp.Incomplete {
		t.Errorf("Incomplete = false, want true")
	}
}
