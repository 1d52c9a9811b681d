package agent

import (
	"testing"
)

func TestClientMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  ClientMessage
	}{
		{
			name: "run request with user message",
			msg: ClientMessage{
				Run: &RunRequest{
					Action: ConversationAction{
						User: &UserMessageAction{Text: "hi", Mode: 0},
					},
					Model:          "sonnet-4",
					ConversationID: "conv-123",
				},
				Sequence: 0,
			},
		},
		{
			name: "run request with resume",
			msg: ClientMessage{
				Run: &RunRequest{
					Action: ConversationAction{
						Resume: &ResumeAction{ConversationID: "conv-123"},
					},
					Model:          "sonnet-4",
					ConversationID: "conv-123",
				},
				Sequence: 4,
			},
		},
		{
			name: "exec result",
			msg: ClientMessage{
				ExecResult: &ExecResult{
					CallID:   "call-9",
					Output:   "total 4\ndrwxr-xr-x",
					ExitCode: 0,
				},
				Sequence: 2,
			},
		},
		{
			name: "failed exec result",
			msg: ClientMessage{
				ExecResult: &ExecResult{
					CallID:   "call-9",
					Output:   "permission denied",
					ExitCode: 1,
					IsError:  true,
				},
				Sequence: 3,
			},
		},
		{
			name: "kv message",
			msg: ClientMessage{
				Kv:       &KvMessage{Key: "client_state", Value: []byte{0x01, 0x02}},
				Sequence: 5,
			},
		},
		{
			name: "exec control cancel",
			msg: ClientMessage{
				ExecControl: &ExecControl{CallID: "call-9", Action: 1},
				Sequence:    6,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.msg.Encode()
			decoded, err := ParseClientMessage(encoded)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}

			if decoded.Sequence != tt.msg.Sequence {
				t.Errorf("sequence: got %d, want %d", decoded.Sequence, tt.msg.Sequence)
			}

			switch {
			case tt.msg.Run != nil:
				if decoded.Run == nil {
					t.Fatal("expected Run variant")
				}
				if decoded.Run.Model != tt.msg.Run.Model ||
					decoded.Run.ConversationID != tt.msg.Run.ConversationID {
					t.Errorf("run mismatch: %+v", decoded.Run)
				}
				if tt.msg.Run.Action.User != nil {
					if decoded.Run.Action.User == nil ||
						decoded.Run.Action.User.Text != tt.msg.Run.Action.User.Text {
						t.Errorf("user action mismatch: %+v", decoded.Run.Action.User)
					}
				}
				if tt.msg.Run.Action.Resume != nil {
					if decoded.Run.Action.Resume == nil ||
						decoded.Run.Action.Resume.ConversationID != tt.msg.Run.Action.Resume.ConversationID {
						t.Errorf("resume action mismatch: %+v", decoded.Run.Action.Resume)
					}
				}
			case tt.msg.ExecResult != nil:
				if decoded.ExecResult == nil {
					t.Fatal("expected ExecResult variant")
				}
				if *decoded.ExecResult != *tt.msg.ExecResult {
					t.Errorf("exec result mismatch: %+v", decoded.ExecResult)
				}
			case tt.msg.Kv != nil:
				if decoded.Kv == nil || decoded.Kv.Key != tt.msg.Kv.Key ||
					string(decoded.Kv.Value) != string(tt.msg.Kv.Value) {
					t.Errorf("kv mismatch: %+v", decoded.Kv)
				}
			case tt.msg.ExecControl != nil:
				if decoded.ExecControl == nil || *decoded.ExecControl != *tt.msg.ExecControl {
					t.Errorf("exec control mismatch: %+v", decoded.ExecControl)
				}
			}
		})
	}
}

func TestParseClientMessagePreservesUnknownFields(t *testing.T) {
	msg := ClientMessage{Sequence: 1}
	encoded := msg.Encode()

	// Append a field number this side does not know about.
	encoded = append(encoded, 0xF2, 0x06, 0x03, 'x', 'y', 'z') // field 110, bytes "xyz"

	decoded, err := ParseClientMessage(encoded)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(decoded.Unknown) != 1 {
		t.Fatalf("expected 1 unknown field, got %d", len(decoded.Unknown))
	}
	if decoded.Unknown[0].Number != 110 || string(decoded.Unknown[0].Bytes) != "xyz" {
		t.Errorf("unknown field not preserved: %+v", decoded.Unknown[0])
	}
	if decoded.Sequence != 1 {
		t.Errorf("recognized sibling lost: sequence = %d", decoded.Sequence)
	}
}
