package translator

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"ganymede-hq/ganymede/pkg/agent"
	"ganymede-hq/ganymede/pkg/models"
)

// conversationKey derives a stable session key from the request: the model
// plus the first user message. Follow-up requests in the same conversation
// repeat both, so they land on the same backend session.
func conversationKey(req *Request) string {
	h := sha256.New()
	h.Write([]byte(req.Model))
	h.Write([]byte{0})
	for i := range req.Messages {
		if req.Messages[i].Role == RoleUser {
			h.Write([]byte(req.Messages[i].Text()))
			break
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// buildFrames converts the request into the client frames for this turn.
// The last frame always opens the stream; any preceding frames are unary
// appends (tool definitions, tool results). Sequence numbers are assigned
// by the caller.
func buildFrames(req *Request, caps models.Capabilities, key string, fresh bool) ([]*agent.ClientMessage, error) {
	if results := trailingToolResults(req.Messages); len(results) > 0 {
		return continuationFrames(results, key), nil
	}

	var frames []*agent.ClientMessage
	if len(req.Tools) > 0 {
		defs, err := json.Marshal(req.Tools)
		if err != nil {
			return nil, err
		}
		frames = append(frames, &agent.ClientMessage{
			Kv: &agent.KvMessage{Key: "tool_definitions", Value: defs},
		})
	}

	text, images := renderUserInput(req, caps, fresh)
	frames = append(frames, &agent.ClientMessage{
		Run: &agent.RunRequest{
			Action: agent.ConversationAction{
				User: &agent.UserMessageAction{Text: text, Images: images},
			},
			Model:          req.Model,
			ConversationID: key,
		},
	})
	return frames, nil
}

// trailingToolResults returns the tool-role messages at the tail of the
// conversation, in order. A non-empty result means this request continues a
// turn that stopped for tool execution.
func trailingToolResults(msgs []Message) []Message {
	start := len(msgs)
	for start > 0 && msgs[start-1].Role == RoleTool {
		start--
	}
	return msgs[start:]
}

// continuationFrames builds one ExecResult frame per tool result plus the
// resume frame that reopens the stream.
func continuationFrames(results []Message, key string) []*agent.ClientMessage {
	frames := make([]*agent.ClientMessage, 0, len(results)+1)
	for i := range results {
		frames = append(frames, &agent.ClientMessage{
			ExecResult: &agent.ExecResult{
				CallID: results[i].ToolCallID,
				Output: results[i].Text(),
			},
		})
	}
	frames = append(frames, &agent.ClientMessage{
		Action: &agent.ConversationAction{
			Resume: &agent.ResumeAction{ConversationID: key},
		},
	})
	return frames
}

// renderUserInput flattens the request into one user action. A fresh
// session gets the whole history; an established one gets only the latest
// user message, since the backend already holds the rest.
func renderUserInput(req *Request, caps models.Capabilities, fresh bool) (string, []agent.ImageAttachment) {
	msgs := req.Messages
	if !fresh {
		if last := lastUserMessage(msgs); last != nil {
			msgs = []Message{*last}
		}
	}

	var images []agent.ImageAttachment
	var omitted int
	var b strings.Builder

	writeMessage := func(m *Message, prefix string) {
		text := m.Text()
		for _, p := range m.Parts {
			if p.Type != PartImage {
				continue
			}
			if caps.Vision {
				images = append(images, parseImage(p.ImageURL))
			} else {
				omitted++
			}
		}
		if text == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(prefix)
		b.WriteString(text)
	}

	// Single user message with no surrounding history goes through verbatim.
	if len(msgs) == 1 && msgs[0].Role == RoleUser {
		writeMessage(&msgs[0], "")
	} else {
		for i := range msgs {
			m := &msgs[i]
			switch m.Role {
			case RoleSystem:
				writeMessage(m, "System: ")
			case RoleUser:
				writeMessage(m, "User: ")
			case RoleAssistant:
				writeMessage(m, "Assistant: ")
			}
		}
	}

	// Image parts against a non-vision model are surfaced, never dropped.
	if omitted > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if omitted == 1 {
			b.WriteString("[1 image attachment omitted: model does not accept image input]")
		} else {
			b.WriteString("[" + strconv.Itoa(omitted) + " image attachments omitted: model does not accept image input]")
		}
	}

	return b.String(), images
}

func lastUserMessage(msgs []Message) *Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return &msgs[i]
		}
	}
	return nil
}

// parseImage classifies one image reference: a data URI becomes inline
// bytes, anything else stays a URL.
func parseImage(ref string) agent.ImageAttachment {
	const dataPrefix = "data:"
	if !strings.HasPrefix(ref, dataPrefix) {
		return agent.ImageAttachment{URL: ref}
	}

	comma := strings.IndexByte(ref, ',')
	if comma < 0 {
		return agent.ImageAttachment{URL: ref}
	}
	meta, payload := ref[len(dataPrefix):comma], ref[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return agent.ImageAttachment{Data: []byte(payload)}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return agent.ImageAttachment{URL: ref}
	}
	return agent.ImageAttachment{Data: data}
}

