package backend

import (
	"bufio"
	"context"
	"io"
	"strings"

	"ganymede-hq/ganymede/pkg/agent"
	"ganymede-hq/ganymede/pkg/envelope"
)

// Stream reads server messages off one SSE response body. Each data line
// carries base64 of one enveloped frame; a frame may decode to several
// logical messages, which Next hands out one at a time.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner

	// queue holds messages decoded from the current frame
	queue []agent.ServerMessage

	closed bool
}

func newStream(body io.ReadCloser) *Stream {
	scanner := bufio.NewScanner(body)
	// Data lines carry whole frames; the default token limit is too small.
	scanner.Buffer(make([]byte, 64<<10), 8<<20)
	return &Stream{body: body, scanner: scanner}
}

// Next returns the next server message. It returns io.EOF when the stream
// ends normally ("[DONE]" sentinel, trailer frame, or body exhaustion).
func (s *Stream) Next(ctx context.Context) (*agent.ServerMessage, error) {
	if s.closed {
		return nil, io.EOF
	}

	for {
		if len(s.queue) > 0 {
			msg := s.queue[0]
			s.queue = s.queue[1:]
			return &msg, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, &StreamError{Message: "failed to read stream", Cause: err}
			}
			return nil, io.EOF
		}

		line := s.scanner.Text()
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if data == "[DONE]" {
			return nil, io.EOF
		}

		frame, err := envelope.DecodeSSEData(data)
		if err != nil {
			return nil, &StreamError{Message: "bad stream frame", Cause: err}
		}

		if frame.Flags&envelope.FlagTrailer != 0 {
			// Trailer carries end-of-stream metadata, not protobuf.
			if text := strings.TrimSpace(string(frame.Payload)); text != "" && !isOKTrailer(text) {
				return nil, &StreamError{Message: "stream ended with error trailer: " + text}
			}
			return nil, io.EOF
		}

		msgs, err := agent.ParseServerMessages(frame.Payload)
		if err != nil && len(msgs) == 0 {
			return nil, &StreamError{Message: "malformed stream payload", Cause: err}
		}
		s.queue = msgs
	}
}

// Close releases the response body. Safe to call more than once.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

// isOKTrailer reports whether trailer text indicates a clean close.
func isOKTrailer(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "status: 0") || lower == "ok"
}
