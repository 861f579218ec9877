package llmstream

import (
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ToolCallBuilder reassembles one tool invocation from its deltas. Name and
// argument fragments are appended in arrival order; arguments stay an opaque
// string until the builder is finalized.
type ToolCallBuilder struct {
	ID   string
	name strings.Builder
	args strings.Builder
}

// Name returns the tool name assembled so far.
func (b *ToolCallBuilder) Name() string { return b.name.String() }

// Arguments returns the raw JSON argument string assembled so far.
func (b *ToolCallBuilder) Arguments() string { return b.args.String() }

func (b *ToolCallBuilder) build() ToolCall {
	return ToolCall{ID: b.ID, Name: b.name.String(), Arguments: b.args.String()}
}

// Update is the observable incremental view returned by Apply, for consumers
// that render progress (terminal UIs): the event itself plus the running
// totals it contributed to.
type Update struct {
	Event StreamEvent

	// Content is the cumulative primary text after applying the event.
	Content string

	// Thinking and Reasoning are the cumulative side-channel buffers.
	Thinking  string
	Reasoning string

	// ToolCall is the state of the call the event extended, if any.
	ToolCall *ToolCall

	// Usage is the running merged usage, if any report has arrived.
	Usage *Usage
}

// Accumulator folds an ordered StreamEvent sequence into one aggregate
// Response. Exactly one accumulator serves exactly one stream; it is plain
// owned state and not safe for concurrent use.
type Accumulator struct {
	content   strings.Builder
	thinking  strings.Builder
	reasoning strings.Builder

	// calls preserves insertion order so finalized tool calls come out
	// deterministically, in the order their first fragment arrived.
	calls   *orderedmap.OrderedMap[string, *ToolCallBuilder]
	byID    map[string]string // provider call id -> builder key
	byIndex map[int]string    // positional index -> builder key
	lastKey string

	meta      *StreamMetadata
	usage     *Usage
	finish    *FinishReason
	err       error
	finalized bool
}

// NewAccumulator returns an empty accumulator for one stream.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		calls:   orderedmap.New[string, *ToolCallBuilder](),
		byID:    make(map[string]string),
		byIndex: make(map[int]string),
	}
}

// Apply folds one event into the running state and returns the incremental
// view. Events must be applied in arrival order; applying events after
// Finalize is a caller bug and leaves the snapshot untouched.
func (a *Accumulator) Apply(ev StreamEvent) Update {
	if a.finalized {
		return Update{Event: StreamEvent{Kind: EventError, Err: ErrAccumulatorFinalized}}
	}

	u := Update{Event: ev}
	switch ev.Kind {
	case EventContentDelta:
		a.content.WriteString(ev.Text)

	case EventThinkingDelta:
		a.thinking.WriteString(ev.Text)

	case EventReasoningDelta:
		a.reasoning.WriteString(ev.Text)

	case EventToolCallDelta:
		if ev.ToolCall != nil {
			b := a.builderFor(ev.ToolCall)
			b.name.WriteString(ev.ToolCall.Name)
			b.args.WriteString(ev.ToolCall.Arguments)
			tc := b.build()
			u.ToolCall = &tc
		}

	case EventUsageUpdate:
		a.mergeUsage(ev.Usage)

	case EventStreamStart:
		a.meta = ev.Metadata

	case EventStreamEnd:
		if ev.Response != nil {
			a.finish = ev.Response.FinishReason
			a.mergeUsage(ev.Response.Usage)
			if a.meta == nil && (ev.Response.ID != "" || ev.Response.Model != "") {
				a.meta = &StreamMetadata{ID: ev.Response.ID, Model: ev.Response.Model, Provider: ev.Response.Provider}
			}
		}

	case EventError:
		a.err = ev.Err
	}

	u.Content = a.content.String()
	u.Thinking = a.thinking.String()
	u.Reasoning = a.reasoning.String()
	u.Usage = a.usage.Clone()
	return u
}

// builderFor resolves the builder a fragment belongs to. Policy: a call is
// keyed by ID once any fragment has supplied one; ID-less fragments route
// through the positional index alias, and fragments with neither extend the
// most recently touched call. The builder's map position never moves, so
// finalized calls keep the order their first fragment arrived in.
func (a *Accumulator) builderFor(d *ToolCallDelta) *ToolCallBuilder {
	var key string
	if d.ID != "" {
		key = a.byID[d.ID]
	}
	if key == "" && d.Index != nil {
		key = a.byIndex[*d.Index]
	}
	if key == "" && d.ID == "" && d.Index == nil {
		key = a.lastKey
	}
	if key == "" {
		switch {
		case d.ID != "":
			key = d.ID
		case d.Index != nil:
			key = fmt.Sprintf("call_%d", *d.Index)
		default:
			key = "call_0"
		}
	}

	b, ok := a.calls.Get(key)
	if !ok {
		b = &ToolCallBuilder{ID: key}
		a.calls.Set(key, b)
	}
	if d.ID != "" {
		b.ID = d.ID
		a.byID[d.ID] = key
	}
	if d.Index != nil {
		a.byIndex[*d.Index] = key
	}
	a.lastKey = key
	return b
}

func (a *Accumulator) mergeUsage(u *Usage) {
	if u == nil {
		return
	}
	if a.usage == nil {
		a.usage = u.Clone()
		return
	}
	a.usage.Merge(u)
}

// fail records a terminal pipeline error so Finalize marks the snapshot
// incomplete. Used by Collect for errors surfaced via Recv.
func (a *Accumulator) fail(err error) {
	a.err = err
}

// Finalize produces the read-only aggregate response. Call it once, after the
// event sequence has ended; the accumulator rejects further Apply calls.
func (a *Accumulator) Finalize() *Response {
	a.finalized = true

	resp := &Response{
		Content:      a.content.String(),
		Thinking:     a.thinking.String(),
		Reasoning:    a.reasoning.String(),
		Usage:        a.usage.Clone(),
		FinishReason: a.finish,
		Incomplete:   a.err != nil,
	}
	if a.meta != nil {
		resp.ID = a.meta.ID
		resp.Model = a.meta.Model
		resp.Provider = a.meta.Provider
	}
	for pair := a.calls.Oldest(); pair != nil; pair = pair.Next() {
		resp.ToolCalls = append(resp.ToolCalls, pair.Value.build())
	}
	return resp
}

// Err returns the terminal error recorded for this stream, if any.
func (a *Accumulator) Err() error { return a.err }
