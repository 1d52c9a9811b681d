package translator

import (
	"strings"

	"github.com/google/uuid"
)

// ToolCallAccumulator coalesces ToolCallStarted / PartialToolCall /
// ToolCallCompleted updates, keyed by the backend's per-turn index, into
// assembled tool calls. It lives for one stream and is not safe for
// concurrent use; the stream pump is its only caller.
type ToolCallAccumulator struct {
	entries map[uint64]*accEntry
	order   []uint64
}

type accEntry struct {
	id     string
	name   string
	args   strings.Builder
	done   bool
	hidden bool
}

func newAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{entries: map[uint64]*accEntry{}}
}

// Start opens an entry for index with a freshly generated call id. Starting
// an index twice reuses the existing entry.
func (a *ToolCallAccumulator) Start(index uint64, name string, hidden bool) *accEntry {
	if e, ok := a.entries[index]; ok {
		return e
	}
	e := &accEntry{id: "call_" + uuid.NewString(), name: name, hidden: hidden}
	a.entries[index] = e
	a.order = append(a.order, index)
	return e
}

// Append adds an arguments fragment to the entry at index. A fragment for
// an index that was never started opens an implicit unnamed entry rather
// than being dropped.
func (a *ToolCallAccumulator) Append(index uint64, fragment string) *accEntry {
	e, ok := a.entries[index]
	if !ok {
		e = a.Start(index, "", false)
	}
	e.args.WriteString(fragment)
	return e
}

// Complete marks the entry at index finished.
func (a *ToolCallAccumulator) Complete(index uint64) {
	if e, ok := a.entries[index]; ok {
		e.done = true
	}
}

// nextIndex returns the first index above every entry seen so far, for
// synthesized calls that arrive without a backend index.
func (a *ToolCallAccumulator) nextIndex() uint64 {
	var next uint64
	for _, index := range a.order {
		if index >= next {
			next = index + 1
		}
	}
	return next
}

// AnyVisible reports whether the turn opened at least one caller-visible
// tool call. Drives the tool_calls finish reason.
func (a *ToolCallAccumulator) AnyVisible() bool {
	for _, e := range a.entries {
		if !e.hidden {
			return true
		}
	}
	return false
}

// Calls returns the assembled caller-visible tool calls in start order.
func (a *ToolCallAccumulator) Calls() []ToolCall {
	var calls []ToolCall
	for _, index := range a.order {
		e := a.entries[index]
		if e.hidden {
			continue
		}
		calls = append(calls, ToolCall{
			ID:        e.id,
			Name:      e.name,
			Arguments: e.args.String(),
		})
	}
	return calls
}
