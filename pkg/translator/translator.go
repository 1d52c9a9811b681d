package translator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"ganymede-hq/ganymede/pkg/agent"
	"ganymede-hq/ganymede/pkg/backend"
	"ganymede-hq/ganymede/pkg/models"
	"ganymede-hq/ganymede/pkg/session"
	"ganymede-hq/ganymede/pkg/transport"
)

// Backend is the slice of the backend client the translator needs. It is
// satisfied by an adapter over *backend.Client in the wiring layer and by
// fakes in tests.
type Backend interface {
	// Run opens a streaming turn.
	Run(ctx context.Context, msg *agent.ClientMessage) (ServerStream, error)

	// Append sends one unary frame.
	Append(ctx context.Context, msg *agent.ClientMessage) error
}

// ServerStream yields server messages until io.EOF.
type ServerStream interface {
	Next(ctx context.Context) (*agent.ServerMessage, error)
	Close() error
}

// Translator drives one conversational turn end to end: capability checks,
// session and sequence management, frame building, stream consumption, and
// delta emission. Safe for concurrent use across conversations.
type Translator struct {
	backend  Backend
	sessions *session.Manager
	monitor  *session.Monitor
	catalog  *models.Catalog
	logger   *slog.Logger

	// onUpdate, when set, observes every stream update by kind (metrics).
	onUpdate func(kind string)
}

// New creates a Translator.
func New(b Backend, sessions *session.Manager, monitor *session.Monitor, catalog *models.Catalog, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{
		backend:  b,
		sessions: sessions,
		monitor:  monitor,
		catalog:  catalog,
		logger:   logger,
	}
}

// SetUpdateHook registers an observer for stream updates. Must be called
// before the translator is shared across goroutines.
func (t *Translator) SetUpdateHook(hook func(kind string)) {
	t.onUpdate = hook
}

// StreamTurn runs one turn and returns a channel of deltas. The channel is
// closed after the terminal chunk (FinishReason or Err). Capability
// failures are returned synchronously before any frame is sent.
func (t *Translator) StreamTurn(ctx context.Context, req *Request) (<-chan Chunk, error) {
	model, err := t.checkCapabilities(ctx, req)
	if err != nil {
		return nil, err
	}

	key := conversationKey(req)
	s := t.sessions.Acquire(key)

	frames, err := buildFrames(req, model.Capabilities, key, s.SequenceCount() == 0)
	if err != nil {
		return nil, err
	}

	if err := assignSequences(s, frames); err != nil {
		// The cached session went stale under us; start fresh once. The
		// whole turn renumbers from zero so the new session sees a
		// contiguous run of frames.
		s = t.sessions.Acquire(key)
		if err := assignSequences(s, frames); err != nil {
			return nil, err
		}
	}

	for _, frame := range frames[:len(frames)-1] {
		if err := t.backend.Append(ctx, frame); err != nil {
			t.handleSendError(s, err)
			return nil, err
		}
	}

	stream, err := t.backend.Run(ctx, frames[len(frames)-1])
	if err != nil {
		t.handleSendError(s, err)
		return nil, err
	}

	ch := make(chan Chunk, 16)
	go t.pump(ctx, s, stream, model, ch)
	return ch, nil
}

// Complete runs one turn and assembles the full result for a non-streaming
// caller.
func (t *Translator) Complete(ctx context.Context, req *Request) (*Completion, error) {
	ch, err := t.StreamTurn(ctx, req)
	if err != nil {
		return nil, err
	}

	var out Completion
	deltas := map[int]*ToolCall{}
	var order []int

	for chunk := range ch {
		if chunk.Err != nil {
			return nil, chunk.Err
		}
		out.Content += chunk.Content
		out.Reasoning += chunk.Reasoning
		for _, d := range chunk.ToolCalls {
			call, ok := deltas[d.Index]
			if !ok {
				call = &ToolCall{}
				deltas[d.Index] = call
				order = append(order, d.Index)
			}
			if d.ID != "" {
				call.ID = d.ID
			}
			if d.Name != "" {
				call.Name = d.Name
			}
			call.Arguments += d.ArgumentsDelta
		}
		if chunk.FinishReason != "" {
			out.FinishReason = chunk.FinishReason
		}
	}

	for _, index := range order {
		out.ToolCalls = append(out.ToolCalls, *deltas[index])
	}
	return &out, nil
}

// assignSequences numbers every frame of a turn from the session's counter.
// It fails on a closed session without numbering past the failure; callers
// retry the whole batch on a fresh session so no frame keeps a sequence from
// the stale one.
func assignSequences(s *session.Session, frames []*agent.ClientMessage) error {
	for _, frame := range frames {
		seq, err := s.NextSequence()
		if err != nil {
			return err
		}
		frame.Sequence = seq
	}
	return nil
}

// checkCapabilities resolves the model and fails fast on mismatches.
func (t *Translator) checkCapabilities(ctx context.Context, req *Request) (models.Model, error) {
	model, ok := t.catalog.Lookup(ctx, req.Model)
	if !ok {
		return models.Model{}, &CapabilityError{Model: req.Model, Capability: "model"}
	}
	if len(req.Tools) > 0 && !model.Capabilities.Tools {
		return models.Model{}, &CapabilityError{Model: req.Model, Capability: "tools"}
	}
	return model, nil
}

// handleSendError applies the session consequence of a failed send. Retry
// exhaustion and stream failures leave the backend's view of the session
// unknowable, so the conversation is aborted; a final HTTP error means the
// frame was rejected cleanly but the allocated sequence number is burned,
// so the session closes either way and the next request starts fresh.
func (t *Translator) handleSendError(s *session.Session, err error) {
	var exhausted *transport.RetryExhaustedError
	var streamErr *backend.StreamError
	if errors.As(err, &exhausted) || errors.As(err, &streamErr) {
		t.sessions.Abort(s, "send failed without final answer")
		return
	}
	t.sessions.Close(s, "frame rejected")
}

// streamRead is one result from the stream reader goroutine.
type streamRead struct {
	msg *agent.ServerMessage
	err error
}

// pump consumes the server stream and emits chunks until the turn ends or
// fails. It owns the stream and the channel. Reads race against the current
// phase's idle ceiling, so a stream that goes completely silent (no
// heartbeats, no deltas) is aborted instead of blocking the turn forever.
func (t *Translator) pump(ctx context.Context, s *session.Session, stream ServerStream, model models.Model, ch chan<- Chunk) {
	defer close(ch)
	defer stream.Close()

	readCtx, stopReads := context.WithCancel(ctx)
	defer stopReads()

	reads := make(chan streamRead)
	go func() {
		for {
			msg, err := stream.Next(readCtx)
			select {
			case reads <- streamRead{msg: msg, err: err}:
				if err != nil {
					return
				}
			case <-readCtx.Done():
				return
			}
		}
	}()

	idle := time.NewTimer(t.monitor.IdleTimeout(s))
	defer idle.Stop()

	acc := newAccumulator()
	finished := false

	finish := func() {
		reason := FinishStop
		if acc.AnyVisible() {
			reason = FinishToolCalls
		}
		s.EndTurn()
		ch <- Chunk{FinishReason: reason}
		finished = true
	}

	fail := func(err error, reason string) {
		t.sessions.Abort(s, reason)
		ch <- Chunk{Err: err}
		finished = true
	}

	for !finished {
		var msg *agent.ServerMessage
		select {
		case r := <-reads:
			if r.err != nil {
				if errors.Is(r.err, io.EOF) {
					// Stream closed without an explicit turn end; treat as one.
					finish()
					return
				}
				if ctx.Err() != nil {
					fail(ctx.Err(), "caller cancelled")
					return
				}
				fail(r.err, "stream failed")
				return
			}
			msg = r.msg

		case <-idle.C:
			fail(t.monitor.IdleExceeded(s), "stream idle timeout")
			return
		}

		if err := t.monitor.Observe(s, msg); err != nil {
			fail(err, "heartbeat timeout")
			return
		}

		// Re-arm for the phase the message may have switched us into.
		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(t.monitor.IdleTimeout(s))

		switch {
		case msg.Update != nil:
			if t.onUpdate != nil {
				t.onUpdate(msg.Update.Kind().String())
			}
			t.emitUpdate(msg.Update, acc, model, ch, finish)

		case msg.ExecRequest != nil:
			if t.onUpdate != nil {
				t.onUpdate("exec_request")
			}
			t.emitExecRequest(msg.ExecRequest, acc, ch)

		case msg.Checkpoint != nil:
			if err := t.sessions.VerifyCheckpoint(s, msg.Checkpoint.Sequence); err != nil {
				ch <- Chunk{Err: err}
				finished = true
			}

		default:
			// Kv, ExecControl, Query, and unknown fields carry no visible
			// output; they already counted as progress above.
			for _, f := range msg.Unknown {
				t.logger.Debug("ignoring unknown server field",
					"conversation_id", s.ConversationID,
					"field", agent.DescribeField(f),
				)
			}
			if len(msg.Unknown) == 0 {
				t.logger.Debug("ignoring non-visible server message",
					"conversation_id", s.ConversationID,
				)
			}
		}
	}
}

// emitUpdate translates one InteractionUpdate into zero or more chunks.
func (t *Translator) emitUpdate(u *agent.InteractionUpdate, acc *ToolCallAccumulator, model models.Model, ch chan<- Chunk, finish func()) {
	switch u.Kind() {
	case agent.UpdateText:
		ch <- Chunk{Content: u.Text.Text}

	case agent.UpdateToken:
		ch <- Chunk{Content: u.Token.Text}

	case agent.UpdateThinking:
		// Reasoning content is only meaningful for reasoning models;
		// anything else gets no reasoning channel at all.
		if model.Capabilities.Reasoning {
			ch <- Chunk{Reasoning: u.Thinking.Text}
		}

	case agent.UpdateToolStart:
		hidden := hiddenKind(u.ToolStart.Name)
		e := acc.Start(u.ToolStart.Index, toolNameFor(u.ToolStart.Name), hidden)
		if !hidden {
			ch <- Chunk{ToolCalls: []ToolCallDelta{{
				Index:          int(u.ToolStart.Index),
				ID:             e.id,
				Name:           e.name,
				ArgumentsDelta: "",
			}}}
		}

	case agent.UpdateToolPartial:
		e := acc.Append(u.ToolPartial.Index, u.ToolPartial.ArgsDelta)
		if !e.hidden {
			ch <- Chunk{ToolCalls: []ToolCallDelta{{
				Index:          int(u.ToolPartial.Index),
				ArgumentsDelta: u.ToolPartial.ArgsDelta,
			}}}
		}

	case agent.UpdateToolDone:
		acc.Complete(u.ToolDone.Index)

	case agent.UpdateHeartbeat:
		// Liveness only; no visible output.

	case agent.UpdateTurnEnded:
		finish()
	}
}

// emitExecRequest surfaces a typed execution request as one complete tool
// call: opening fragment and full argument document in a single chunk.
func (t *Translator) emitExecRequest(req *agent.ExecRequest, acc *ToolCallAccumulator, ch chan<- Chunk) {
	name, args, ok := execToolCall(req)
	if !ok {
		return
	}

	// Index exec-request calls after any update-driven ones.
	index := acc.nextIndex()
	e := acc.Start(index, name, false)
	if req.CallID != "" {
		e.id = req.CallID
	}
	e.args.WriteString(args)
	acc.Complete(index)

	ch <- Chunk{ToolCalls: []ToolCallDelta{{
		Index:          int(index),
		ID:             e.id,
		Name:           name,
		ArgumentsDelta: args,
	}}}
}
