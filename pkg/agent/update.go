package agent

import (
	"ganymede-hq/ganymede/pkg/wire"
)

// InteractionUpdate field numbers. 1, 4 and 8 are confirmed by traffic
// capture; the rest were correlated against observed tool-call turns.
const (
	fieldUpdateText        = 1
	fieldUpdateToolStart   = 2
	fieldUpdateToolDone    = 3
	fieldUpdateThinking    = 4
	fieldUpdateToolPartial = 5
	fieldUpdateHeartbeat   = 6
	fieldUpdateTurnEnded   = 7
	fieldUpdateToken       = 8
)

// UpdateKind names the populated variant of an InteractionUpdate.
type UpdateKind int

const (
	UpdateUnknown UpdateKind = iota
	UpdateText
	UpdateThinking
	UpdateToolStart
	UpdateToolDone
	UpdateToolPartial
	UpdateToken
	UpdateHeartbeat
	UpdateTurnEnded
)

// String returns a short name for logging.
func (k UpdateKind) String() string {
	switch k {
	case UpdateText:
		return "text_delta"
	case UpdateThinking:
		return "thinking_delta"
	case UpdateToolStart:
		return "tool_call_started"
	case UpdateToolDone:
		return "tool_call_completed"
	case UpdateToolPartial:
		return "partial_tool_call"
	case UpdateToken:
		return "token_delta"
	case UpdateHeartbeat:
		return "heartbeat"
	case UpdateTurnEnded:
		return "turn_ended"
	default:
		return "unknown"
	}
}

// InteractionUpdate is one incremental event within a conversational turn.
// Exactly one variant is populated.
type InteractionUpdate struct {
	// Text is an assistant content delta (field 1).
	Text *TextDelta

	// ToolStart opens a tool call (field 2).
	ToolStart *ToolCallStarted

	// ToolDone closes a tool call (field 3).
	ToolDone *ToolCallCompleted

	// Thinking is a reasoning-content delta (field 4).
	Thinking *ThinkingDelta

	// ToolPartial appends to an open tool call's arguments (field 5).
	ToolPartial *PartialToolCall

	// Heartbeat is a content-free keepalive (field 6).
	Heartbeat *Heartbeat

	// TurnEnded terminates the turn (field 7).
	TurnEnded *TurnEnded

	// Token is a token-level content delta, equivalent to Text for
	// presentation purposes (field 8).
	Token *TokenDelta

	// Unknown preserves unrecognized variant fields.
	Unknown []wire.RawField
}

// Kind returns which variant is populated.
func (u *InteractionUpdate) Kind() UpdateKind {
	switch {
	case u.Text != nil:
		return UpdateText
	case u.Thinking != nil:
		return UpdateThinking
	case u.ToolStart != nil:
		return UpdateToolStart
	case u.ToolDone != nil:
		return UpdateToolDone
	case u.ToolPartial != nil:
		return UpdateToolPartial
	case u.Token != nil:
		return UpdateToken
	case u.Heartbeat != nil:
		return UpdateHeartbeat
	case u.TurnEnded != nil:
		return UpdateTurnEnded
	default:
		return UpdateUnknown
	}
}

// TextDelta is an incremental piece of assistant output text.
type TextDelta struct {
	// Text is the delta content.
	Text string
}

// ThinkingDelta is an incremental piece of reasoning content.
type ThinkingDelta struct {
	// Text is the delta content.
	Text string
}

// TokenDelta is a token-level content delta.
type TokenDelta struct {
	// Text is the delta content.
	Text string
}

// ToolCallStarted opens a tool call within the turn.
type ToolCallStarted struct {
	// Name is the backend execution kind (e.g. "bash", "read").
	Name string

	// CallID is the backend's id for this invocation.
	CallID string

	// Index positions the call among the turn's tool calls.
	Index uint64
}

// ToolCallCompleted closes a previously started tool call.
type ToolCallCompleted struct {
	// CallID is the backend's id for this invocation.
	CallID string

	// Index positions the call among the turn's tool calls.
	Index uint64
}

// PartialToolCall appends a fragment to an open tool call's arguments.
type PartialToolCall struct {
	// ArgsDelta is the raw arguments fragment. Fragments concatenate into
	// a complete JSON document; protocol decisions always use the full
	// accumulated value, never a truncated preview.
	ArgsDelta string

	// Index identifies the open call being extended.
	Index uint64
}

// Heartbeat is a content-free keepalive signal.
type Heartbeat struct{}

// TurnEnded terminates the turn.
type TurnEnded struct {
	// Reason is the backend's numeric end reason (0 = normal completion).
	Reason uint64
}

func parseInteractionUpdate(b []byte) (*InteractionUpdate, error) {
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return nil, err
	}

	u := &InteractionUpdate{}
	for _, f := range fields {
		if f.Type != wire.TypeBytes {
			u.Unknown = append(u.Unknown, f)
			continue
		}
		switch f.Number {
		case fieldUpdateText:
			u.Text = &TextDelta{Text: innerText(f.Bytes)}
		case fieldUpdateThinking:
			u.Thinking = &ThinkingDelta{Text: innerText(f.Bytes)}
		case fieldUpdateToken:
			u.Token = &TokenDelta{Text: innerText(f.Bytes)}
		case fieldUpdateToolStart:
			u.ToolStart = parseToolCallStarted(f.Bytes)
		case fieldUpdateToolDone:
			u.ToolDone = parseToolCallCompleted(f.Bytes)
		case fieldUpdateToolPartial:
			u.ToolPartial = parsePartialToolCall(f.Bytes)
		case fieldUpdateHeartbeat:
			u.Heartbeat = &Heartbeat{}
		case fieldUpdateTurnEnded:
			u.TurnEnded = parseTurnEnded(f.Bytes)
		default:
			u.Unknown = append(u.Unknown, f)
		}
	}
	return u, nil
}

// innerText extracts field 1 of a nested delta message as a string.
func innerText(b []byte) string {
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return ""
	}
	for _, f := range fields {
		if f.Number == 1 && f.Type == wire.TypeBytes {
			return string(f.Bytes)
		}
	}
	return ""
}

func parseToolCallStarted(b []byte) *ToolCallStarted {
	s := &ToolCallStarted{}
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return s
	}
	for _, f := range fields {
		switch {
		case f.Number == 1 && f.Type == wire.TypeBytes:
			s.Name = string(f.Bytes)
		case f.Number == 2 && f.Type == wire.TypeBytes:
			s.CallID = string(f.Bytes)
		case f.Number == 3 && f.Type == wire.TypeVarint:
			s.Index = f.Varint
		}
	}
	return s
}

func parseToolCallCompleted(b []byte) *ToolCallCompleted {
	d := &ToolCallCompleted{}
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return d
	}
	for _, f := range fields {
		switch {
		case f.Number == 1 && f.Type == wire.TypeBytes:
			d.CallID = string(f.Bytes)
		case f.Number == 3 && f.Type == wire.TypeVarint:
			d.Index = f.Varint
		}
	}
	return d
}

func parsePartialToolCall(b []byte) *PartialToolCall {
	p := &PartialToolCall{}
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return p
	}
	for _, f := range fields {
		switch {
		case f.Number == 1 && f.Type == wire.TypeBytes:
			p.ArgsDelta = string(f.Bytes)
		case f.Number == 3 && f.Type == wire.TypeVarint:
			p.Index = f.Varint
		}
	}
	return p
}

func parseTurnEnded(b []byte) *TurnEnded {
	e := &TurnEnded{}
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return e
	}
	for _, f := range fields {
		if f.Number == 1 && f.Type == wire.TypeVarint {
			e.Reason = f.Varint
		}
	}
	return e
}

// encode serializes the update. Counterpart to parseInteractionUpdate.
func (u *InteractionUpdate) encode() []byte {
	var buf []byte

	appendDelta := func(number uint32, text string) {
		var inner []byte
		inner = wire.AppendStringField(inner, 1, text)
		buf = wire.AppendBytesField(buf, number, inner)
	}

	switch {
	case u.Text != nil:
		appendDelta(fieldUpdateText, u.Text.Text)
	case u.Thinking != nil:
		appendDelta(fieldUpdateThinking, u.Thinking.Text)
	case u.Token != nil:
		appendDelta(fieldUpdateToken, u.Token.Text)
	case u.ToolStart != nil:
		var inner []byte
		inner = wire.AppendStringField(inner, 1, u.ToolStart.Name)
		inner = wire.AppendStringField(inner, 2, u.ToolStart.CallID)
		inner = wire.AppendVarintField(inner, 3, u.ToolStart.Index)
		buf = wire.AppendBytesField(buf, fieldUpdateToolStart, inner)
	case u.ToolDone != nil:
		var inner []byte
		inner = wire.AppendStringField(inner, 1, u.ToolDone.CallID)
		inner = wire.AppendVarintField(inner, 3, u.ToolDone.Index)
		buf = wire.AppendBytesField(buf, fieldUpdateToolDone, inner)
	case u.ToolPartial != nil:
		var inner []byte
		inner = wire.AppendStringField(inner, 1, u.ToolPartial.ArgsDelta)
		inner = wire.AppendVarintField(inner, 3, u.ToolPartial.Index)
		buf = wire.AppendBytesField(buf, fieldUpdateToolPartial, inner)
	case u.Heartbeat != nil:
		buf = wire.AppendBytesField(buf, fieldUpdateHeartbeat, nil)
	case u.TurnEnded != nil:
		var inner []byte
		if u.TurnEnded.Reason != 0 {
			inner = wire.AppendVarintField(inner, 1, u.TurnEnded.Reason)
		}
		buf = wire.AppendBytesField(buf, fieldUpdateTurnEnded, inner)
	}
	return buf
}
