package agent

import (
	"ganymede-hq/ganymede/pkg/wire"
)

// ClientMessage field numbers.
const (
	fieldClientRun         = 1
	fieldClientExecResult  = 2
	fieldClientKv          = 3
	fieldClientAction      = 4
	fieldClientExecControl = 5
	fieldClientSequence    = 7
)

// ClientMessage is the root client-to-server message: a tagged union with
// exactly one variant populated, plus the session sequence number carried on
// every appended frame.
type ClientMessage struct {
	// Run starts or continues a conversational turn (field 1).
	Run *RunRequest

	// ExecResult returns the outcome of a tool invocation (field 2).
	ExecResult *ExecResult

	// Kv is an opaque key/value side-channel message (field 3).
	Kv *KvMessage

	// Action is a standalone conversation action outside a run (field 4).
	Action *ConversationAction

	// ExecControl cancels or steers an in-flight tool invocation (field 5).
	ExecControl *ExecControl

	// Sequence is the session-scoped frame sequence number (field 7).
	Sequence uint64

	// Unknown preserves unrecognized top-level fields verbatim.
	Unknown []wire.RawField
}

// RunRequest asks the backend to run one conversational turn.
type RunRequest struct {
	// Action is what the user did: a new message or a resume.
	Action ConversationAction

	// Model is the backend model identifier.
	Model string

	// ConversationID identifies the logical conversation.
	ConversationID string
}

// ConversationAction is a union: exactly one of User or Resume is set.
type ConversationAction struct {
	// User is a new user message (field 1).
	User *UserMessageAction

	// Resume re-attaches to an existing conversation (field 2).
	Resume *ResumeAction
}

// UserMessageAction carries the user's message text and input mode.
type UserMessageAction struct {
	// Text is the full message text.
	Text string

	// Mode selects the interaction mode (0 = default agent mode).
	Mode uint64

	// Images are attached image inputs (vision-capable models only).
	Images []ImageAttachment
}

// ImageAttachment is one image input, either referenced by URL or carried
// inline. Inline data takes precedence when both are set.
type ImageAttachment struct {
	// URL references the image remotely.
	URL string

	// Data is the inline image bytes.
	Data []byte
}

// ResumeAction re-attaches to a conversation after a disconnect.
type ResumeAction struct {
	// ConversationID is the conversation to resume.
	ConversationID string
}

// ExecResult reports a completed tool invocation back to the backend.
type ExecResult struct {
	// CallID echoes the ExecRequest call id.
	CallID string

	// Output is the tool's output, base64-encoded by the caller when the
	// underlying content was binary.
	Output string

	// ExitCode is the tool's exit status (shell kinds).
	ExitCode uint64

	// IsError marks the invocation as failed.
	IsError bool
}

// KvMessage is an opaque key/value message used by the backend for
// side-channel state. Values are passed through untouched.
type KvMessage struct {
	// Key is the entry key.
	Key string

	// Value is the opaque entry payload.
	Value []byte
}

// ExecControl steers an in-flight tool invocation.
type ExecControl struct {
	// CallID identifies the invocation.
	CallID string

	// Action is the control verb (observed: 1 = cancel).
	Action uint64
}

// Encode serializes the message to protobuf wire bytes.
func (m *ClientMessage) Encode() []byte {
	var buf []byte

	switch {
	case m.Run != nil:
		buf = wire.AppendBytesField(buf, fieldClientRun, m.Run.encode())
	case m.ExecResult != nil:
		buf = wire.AppendBytesField(buf, fieldClientExecResult, m.ExecResult.encode())
	case m.Kv != nil:
		buf = wire.AppendBytesField(buf, fieldClientKv, m.Kv.encode())
	case m.Action != nil:
		buf = wire.AppendBytesField(buf, fieldClientAction, m.Action.encode())
	case m.ExecControl != nil:
		buf = wire.AppendBytesField(buf, fieldClientExecControl, m.ExecControl.encode())
	}

	buf = wire.AppendVarintField(buf, fieldClientSequence, m.Sequence)
	return buf
}

func (r *RunRequest) encode() []byte {
	var buf []byte
	buf = wire.AppendBytesField(buf, 1, r.Action.encode())
	buf = wire.AppendStringField(buf, 2, r.Model)
	buf = wire.AppendStringField(buf, 3, r.ConversationID)
	return buf
}

func (a *ConversationAction) encode() []byte {
	var buf []byte
	if a.User != nil {
		var user []byte
		user = wire.AppendStringField(user, 1, a.User.Text)
		if a.User.Mode != 0 {
			user = wire.AppendVarintField(user, 2, a.User.Mode)
		}
		for _, img := range a.User.Images {
			var att []byte
			if img.URL != "" {
				att = wire.AppendStringField(att, 1, img.URL)
			}
			if len(img.Data) > 0 {
				att = wire.AppendBytesField(att, 2, img.Data)
			}
			user = wire.AppendBytesField(user, 3, att)
		}
		buf = wire.AppendBytesField(buf, 1, user)
	}
	if a.Resume != nil {
		var resume []byte
		resume = wire.AppendStringField(resume, 1, a.Resume.ConversationID)
		buf = wire.AppendBytesField(buf, 2, resume)
	}
	return buf
}

func (r *ExecResult) encode() []byte {
	var buf []byte
	buf = wire.AppendStringField(buf, 1, r.CallID)
	buf = wire.AppendStringField(buf, 2, r.Output)
	if r.ExitCode != 0 {
		buf = wire.AppendVarintField(buf, 3, r.ExitCode)
	}
	if r.IsError {
		buf = wire.AppendVarintField(buf, 4, 1)
	}
	return buf
}

func (k *KvMessage) encode() []byte {
	var buf []byte
	buf = wire.AppendStringField(buf, 1, k.Key)
	buf = wire.AppendBytesField(buf, 2, k.Value)
	return buf
}

func (c *ExecControl) encode() []byte {
	var buf []byte
	buf = wire.AppendStringField(buf, 1, c.CallID)
	buf = wire.AppendVarintField(buf, 2, c.Action)
	return buf
}

// ParseClientMessage decodes wire bytes into a ClientMessage. Unrecognized
// top-level fields are preserved in Unknown.
func ParseClientMessage(payload []byte) (*ClientMessage, error) {
	fields, err := wire.DecodeFields(payload)
	if err != nil {
		return nil, err
	}

	msg := &ClientMessage{}
	for _, f := range fields {
		switch {
		case f.Number == fieldClientRun && f.Type == wire.TypeBytes:
			run, err := parseRunRequest(f.Bytes)
			if err != nil {
				return nil, err
			}
			msg.Run = run
		case f.Number == fieldClientExecResult && f.Type == wire.TypeBytes:
			res, err := parseExecResult(f.Bytes)
			if err != nil {
				return nil, err
			}
			msg.ExecResult = res
		case f.Number == fieldClientKv && f.Type == wire.TypeBytes:
			kv, err := parseKvMessage(f.Bytes)
			if err != nil {
				return nil, err
			}
			msg.Kv = kv
		case f.Number == fieldClientAction && f.Type == wire.TypeBytes:
			action, err := parseConversationAction(f.Bytes)
			if err != nil {
				return nil, err
			}
			msg.Action = action
		case f.Number == fieldClientExecControl && f.Type == wire.TypeBytes:
			ctl, err := parseExecControl(f.Bytes)
			if err != nil {
				return nil, err
			}
			msg.ExecControl = ctl
		case f.Number == fieldClientSequence && f.Type == wire.TypeVarint:
			msg.Sequence = f.Varint
		default:
			msg.Unknown = append(msg.Unknown, f)
		}
	}
	return msg, nil
}

func parseRunRequest(b []byte) (*RunRequest, error) {
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return nil, err
	}
	run := &RunRequest{}
	for _, f := range fields {
		switch {
		case f.Number == 1 && f.Type == wire.TypeBytes:
			action, err := parseConversationAction(f.Bytes)
			if err != nil {
				return nil, err
			}
			run.Action = *action
		case f.Number == 2 && f.Type == wire.TypeBytes:
			run.Model = string(f.Bytes)
		case f.Number == 3 && f.Type == wire.TypeBytes:
			run.ConversationID = string(f.Bytes)
		}
	}
	return run, nil
}

func parseConversationAction(b []byte) (*ConversationAction, error) {
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return nil, err
	}
	action := &ConversationAction{}
	for _, f := range fields {
		switch {
		case f.Number == 1 && f.Type == wire.TypeBytes:
			user := &UserMessageAction{}
			inner, err := wire.DecodeFields(f.Bytes)
			if err != nil {
				return nil, err
			}
			for _, g := range inner {
				switch {
				case g.Number == 1 && g.Type == wire.TypeBytes:
					user.Text = string(g.Bytes)
				case g.Number == 2 && g.Type == wire.TypeVarint:
					user.Mode = g.Varint
				case g.Number == 3 && g.Type == wire.TypeBytes:
					var img ImageAttachment
					att, err := wire.DecodeFields(g.Bytes)
					if err != nil {
						continue
					}
					for _, a := range att {
						switch {
						case a.Number == 1 && a.Type == wire.TypeBytes:
							img.URL = string(a.Bytes)
						case a.Number == 2 && a.Type == wire.TypeBytes:
							img.Data = append([]byte(nil), a.Bytes...)
						}
					}
					user.Images = append(user.Images, img)
				}
			}
			action.User = user
		case f.Number == 2 && f.Type == wire.TypeBytes:
			resume := &ResumeAction{}
			inner, err := wire.DecodeFields(f.Bytes)
			if err != nil {
				return nil, err
			}
			for _, g := range inner {
				if g.Number == 1 && g.Type == wire.TypeBytes {
					resume.ConversationID = string(g.Bytes)
				}
			}
			action.Resume = resume
		}
	}
	return action, nil
}

func parseExecResult(b []byte) (*ExecResult, error) {
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return nil, err
	}
	res := &ExecResult{}
	for _, f := range fields {
		switch {
		case f.Number == 1 && f.Type == wire.TypeBytes:
			res.CallID = string(f.Bytes)
		case f.Number == 2 && f.Type == wire.TypeBytes:
			res.Output = string(f.Bytes)
		case f.Number == 3 && f.Type == wire.TypeVarint:
			res.ExitCode = f.Varint
		case f.Number == 4 && f.Type == wire.TypeVarint:
			res.IsError = f.Varint != 0
		}
	}
	return res, nil
}

func parseKvMessage(b []byte) (*KvMessage, error) {
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return nil, err
	}
	kv := &KvMessage{}
	for _, f := range fields {
		switch {
		case f.Number == 1 && f.Type == wire.TypeBytes:
			kv.Key = string(f.Bytes)
		case f.Number == 2 && f.Type == wire.TypeBytes:
			kv.Value = append([]byte(nil), f.Bytes...)
		}
	}
	return kv, nil
}

func parseExecControl(b []byte) (*ExecControl, error) {
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return nil, err
	}
	ctl := &ExecControl{}
	for _, f := range fields {
		switch {
		case f.Number == 1 && f.Type == wire.TypeBytes:
			ctl.CallID = string(f.Bytes)
		case f.Number == 2 && f.Type == wire.TypeVarint:
			ctl.Action = f.Varint
		}
	}
	return ctl, nil
}
