package agent

import (
	"ganymede-hq/ganymede/pkg/wire"
)

// ServerMessage field numbers.
const (
	fieldServerUpdate      = 1
	fieldServerExecRequest = 2
	fieldServerCheckpoint  = 3
	fieldServerKv          = 4
	fieldServerExecControl = 5
	fieldServerQuery       = 6
)

// ServerMessage is one logical server-to-client message. A single wire
// buffer may carry several sibling top-level fields; each becomes its own
// ServerMessage so downstream consumers see one event at a time.
type ServerMessage struct {
	// Update is an incremental interaction update (field 1).
	Update *InteractionUpdate

	// ExecRequest asks this side to execute a tool (field 2).
	ExecRequest *ExecRequest

	// Checkpoint marks a resumable position in the conversation (field 3).
	Checkpoint *Checkpoint

	// Kv is an opaque key/value side-channel message (field 4).
	Kv *KvMessage

	// ExecControl steers a previously requested invocation (field 5).
	ExecControl *ExecControl

	// Query asks a question about interaction state (field 6).
	Query *InteractionQuery

	// Unknown preserves an unrecognized top-level field verbatim.
	Unknown []wire.RawField
}

// Checkpoint marks a resumable position in the conversation.
type Checkpoint struct {
	// ID is the checkpoint identifier.
	ID string

	// Sequence is the last frame sequence covered by the checkpoint.
	Sequence uint64
}

// InteractionQuery asks about interaction state.
type InteractionQuery struct {
	// Query is the raw query text.
	Query string
}

// ParseServerMessages decodes one wire buffer into its logical messages.
// Unrecognized top-level fields become messages with only Unknown set, so
// nothing is silently dropped. A malformed buffer returns the messages
// decoded before the corruption together with the error.
func ParseServerMessages(payload []byte) ([]ServerMessage, error) {
	fields, decodeErr := wire.DecodeFields(payload)

	var msgs []ServerMessage
	for _, f := range fields {
		var msg ServerMessage
		switch {
		case f.Number == fieldServerUpdate && f.Type == wire.TypeBytes:
			update, err := parseInteractionUpdate(f.Bytes)
			if err != nil {
				// Keep the frame as opaque rather than losing it.
				msg.Unknown = []wire.RawField{f}
				msgs = append(msgs, msg)
				continue
			}
			msg.Update = update
		case f.Number == fieldServerExecRequest && f.Type == wire.TypeBytes:
			req, err := parseExecRequest(f.Bytes)
			if err != nil {
				msg.Unknown = []wire.RawField{f}
				msgs = append(msgs, msg)
				continue
			}
			msg.ExecRequest = req
		case f.Number == fieldServerCheckpoint && f.Type == wire.TypeBytes:
			cp, err := parseCheckpoint(f.Bytes)
			if err != nil {
				msg.Unknown = []wire.RawField{f}
				msgs = append(msgs, msg)
				continue
			}
			msg.Checkpoint = cp
		case f.Number == fieldServerKv && f.Type == wire.TypeBytes:
			kv, err := parseKvMessage(f.Bytes)
			if err != nil {
				msg.Unknown = []wire.RawField{f}
				msgs = append(msgs, msg)
				continue
			}
			msg.Kv = kv
		case f.Number == fieldServerExecControl && f.Type == wire.TypeBytes:
			ctl, err := parseExecControl(f.Bytes)
			if err != nil {
				msg.Unknown = []wire.RawField{f}
				msgs = append(msgs, msg)
				continue
			}
			msg.ExecControl = ctl
		case f.Number == fieldServerQuery && f.Type == wire.TypeBytes:
			msg.Query = parseInteractionQuery(f.Bytes)
		default:
			msg.Unknown = []wire.RawField{f}
		}
		msgs = append(msgs, msg)
	}

	return msgs, decodeErr
}

// Encode serializes the message to protobuf wire bytes. Used by tests and
// by the diagnostic replay tooling; the production path only parses.
func (m *ServerMessage) Encode() []byte {
	var buf []byte
	switch {
	case m.Update != nil:
		buf = wire.AppendBytesField(buf, fieldServerUpdate, m.Update.encode())
	case m.ExecRequest != nil:
		buf = wire.AppendBytesField(buf, fieldServerExecRequest, m.ExecRequest.encode())
	case m.Checkpoint != nil:
		var cp []byte
		cp = wire.AppendStringField(cp, 1, m.Checkpoint.ID)
		if m.Checkpoint.Sequence != 0 {
			cp = wire.AppendVarintField(cp, 2, m.Checkpoint.Sequence)
		}
		buf = wire.AppendBytesField(buf, fieldServerCheckpoint, cp)
	case m.Kv != nil:
		buf = wire.AppendBytesField(buf, fieldServerKv, m.Kv.encode())
	case m.ExecControl != nil:
		buf = wire.AppendBytesField(buf, fieldServerExecControl, m.ExecControl.encode())
	case m.Query != nil:
		var q []byte
		q = wire.AppendStringField(q, 1, m.Query.Query)
		buf = wire.AppendBytesField(buf, fieldServerQuery, q)
	}
	return buf
}

func parseCheckpoint(b []byte) (*Checkpoint, error) {
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return nil, err
	}
	cp := &Checkpoint{}
	for _, f := range fields {
		switch {
		case f.Number == 1 && f.Type == wire.TypeBytes:
			cp.ID = string(f.Bytes)
		case f.Number == 2 && f.Type == wire.TypeVarint:
			cp.Sequence = f.Varint
		}
	}
	return cp, nil
}

func parseInteractionQuery(b []byte) *InteractionQuery {
	q := &InteractionQuery{}
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return q
	}
	for _, f := range fields {
		if f.Number == 1 && f.Type == wire.TypeBytes {
			q.Query = string(f.Bytes)
		}
	}
	return q
}
