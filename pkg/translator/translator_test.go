package translator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"ganymede-hq/ganymede/pkg/agent"
	"ganymede-hq/ganymede/pkg/models"
	"ganymede-hq/ganymede/pkg/session"
	"ganymede-hq/ganymede/pkg/wire"
)

type fakeStream struct {
	msgs []*agent.ServerMessage
	pos  int
}

func (f *fakeStream) Next(ctx context.Context) (*agent.ServerMessage, error) {
	if f.pos >= len(f.msgs) {
		return nil, io.EOF
	}
	msg := f.msgs[f.pos]
	f.pos++
	return msg, nil
}

func (f *fakeStream) Close() error { return nil }

type fakeBackend struct {
	runs    []*agent.ClientMessage
	appends []*agent.ClientMessage
	stream  *fakeStream
	runErr  error
}

func (f *fakeBackend) Run(ctx context.Context, msg *agent.ClientMessage) (ServerStream, error) {
	f.runs = append(f.runs, msg)
	if f.runErr != nil {
		return nil, f.runErr
	}
	return f.stream, nil
}

func (f *fakeBackend) Append(ctx context.Context, msg *agent.ClientMessage) error {
	f.appends = append(f.appends, msg)
	return nil
}

// testCatalog serves "plain-1" (no capabilities beyond text) from a fake
// backend list; everything else falls back to the built-in catalog.
func testCatalog() *models.Catalog {
	fetch := func(ctx context.Context) ([]models.Model, error) {
		return []models.Model{
			{ID: "plain-1", Capabilities: models.Capabilities{ContextWindow: 8192}},
		}, nil
	}
	return models.NewCatalog(fetch, 0, nil)
}

func testTranslator(t *testing.T, b Backend, monCfg session.MonitorConfig) (*Translator, *session.Manager) {
	t.Helper()
	mgr := session.NewManager(session.ManagerConfig{}, nil)
	t.Cleanup(mgr.Shutdown)
	tr := New(b, mgr, session.NewMonitor(monCfg), testCatalog(), nil)
	return tr, mgr
}

func update(u *agent.InteractionUpdate) *agent.ServerMessage {
	return &agent.ServerMessage{Update: u}
}

func collect(t *testing.T, ch <-chan Chunk) (content, reasoning, finish string, calls []ToolCallDelta, err error) {
	t.Helper()
	for chunk := range ch {
		content += chunk.Content
		reasoning += chunk.Reasoning
		calls = append(calls, chunk.ToolCalls...)
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
		if chunk.Err != nil {
			err = chunk.Err
		}
	}
	return
}

func TestSingleUserTurnStreamsToStop(t *testing.T) {
	b := &fakeBackend{stream: &fakeStream{msgs: []*agent.ServerMessage{
		update(&agent.InteractionUpdate{Text: &agent.TextDelta{Text: "Hello"}}),
		update(&agent.InteractionUpdate{Text: &agent.TextDelta{Text: "!"}}),
		update(&agent.InteractionUpdate{TurnEnded: &agent.TurnEnded{}}),
	}}}
	tr, _ := testTranslator(t, b, session.MonitorConfig{})

	ch, err := tr.StreamTurn(context.Background(), &Request{
		Model:    "plain-1",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("stream turn failed: %v", err)
	}

	content, _, finish, calls, chErr := collect(t, ch)
	if chErr != nil {
		t.Fatalf("unexpected stream error: %v", chErr)
	}
	if content != "Hello!" {
		t.Errorf("expected Hello!, got %q", content)
	}
	if finish != FinishStop {
		t.Errorf("expected stop, got %q", finish)
	}
	if len(calls) != 0 {
		t.Errorf("expected no tool calls, got %d", len(calls))
	}

	if len(b.runs) != 1 || len(b.appends) != 0 {
		t.Fatalf("expected exactly one run frame, got %d runs / %d appends", len(b.runs), len(b.appends))
	}
	run := b.runs[0]
	if run.Run == nil || run.Run.Action.User == nil {
		t.Fatal("expected a user-message run request")
	}
	if run.Run.Action.User.Text != "hi" {
		t.Errorf("expected verbatim user text, got %q", run.Run.Action.User.Text)
	}
	if run.Run.Action.User.Mode != 0 {
		t.Errorf("expected default mode, got %d", run.Run.Action.User.Mode)
	}
	if run.Sequence != 0 {
		t.Errorf("first frame must carry sequence 0, got %d", run.Sequence)
	}
}

func TestToolCallAssembly(t *testing.T) {
	b := &fakeBackend{stream: &fakeStream{msgs: []*agent.ServerMessage{
		update(&agent.InteractionUpdate{ToolStart: &agent.ToolCallStarted{Name: "bash", Index: 0}}),
		update(&agent.InteractionUpdate{ToolPartial: &agent.PartialToolCall{ArgsDelta: `{"comm`, Index: 0}}),
		update(&agent.InteractionUpdate{ToolPartial: &agent.PartialToolCall{ArgsDelta: `and":"ls"}`, Index: 0}}),
		update(&agent.InteractionUpdate{ToolDone: &agent.ToolCallCompleted{Index: 0}}),
		update(&agent.InteractionUpdate{TurnEnded: &agent.TurnEnded{}}),
	}}}
	tr, _ := testTranslator(t, b, session.MonitorConfig{})

	out, err := tr.Complete(context.Background(), &Request{
		Model:    "gpt-5",
		Messages: []Message{{Role: RoleUser, Content: "list files"}},
	})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if out.FinishReason != FinishToolCalls {
		t.Errorf("expected tool_calls, got %q", out.FinishReason)
	}
	if len(out.ToolCalls) != 1 {
		t.Fatalf("expected one assembled call, got %d", len(out.ToolCalls))
	}
	call := out.ToolCalls[0]
	if call.Name != "bash" {
		t.Errorf("expected bash, got %q", call.Name)
	}
	if call.Arguments != `{"command":"ls"}` {
		t.Errorf("expected assembled arguments, got %q", call.Arguments)
	}
	if call.ID == "" {
		t.Error("expected a generated call id")
	}
}

func TestCapabilityFailuresAreFailFast(t *testing.T) {
	cases := []struct {
		name string
		req  *Request
		want string
	}{
		{
			"unknown model",
			&Request{Model: "no-such-model", Messages: []Message{{Role: RoleUser, Content: "x"}}},
			"model",
		},
		{
			"tools on a non-tool model",
			&Request{
				Model:    "plain-1",
				Messages: []Message{{Role: RoleUser, Content: "x"}},
				Tools:    []ToolDefinition{{Name: "bash"}},
			},
			"tools",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &fakeBackend{stream: &fakeStream{}}
			tr, _ := testTranslator(t, b, session.MonitorConfig{})

			_, err := tr.StreamTurn(context.Background(), tc.req)
			var capErr *CapabilityError
			if !errors.As(err, &capErr) {
				t.Fatalf("expected *CapabilityError, got %v", err)
			}
			if capErr.Capability != tc.want {
				t.Errorf("expected capability %q, got %q", tc.want, capErr.Capability)
			}
			if len(b.runs)+len(b.appends) != 0 {
				t.Error("no frame may reach the backend on a capability failure")
			}
		})
	}
}

func TestThinkingGatedByReasoningCapability(t *testing.T) {
	msgs := []*agent.ServerMessage{
		update(&agent.InteractionUpdate{Thinking: &agent.ThinkingDelta{Text: "pondering"}}),
		update(&agent.InteractionUpdate{Text: &agent.TextDelta{Text: "answer"}}),
		update(&agent.InteractionUpdate{TurnEnded: &agent.TurnEnded{}}),
	}

	t.Run("reasoning model forwards thinking", func(t *testing.T) {
		b := &fakeBackend{stream: &fakeStream{msgs: msgs}}
		tr, _ := testTranslator(t, b, session.MonitorConfig{})
		ch, err := tr.StreamTurn(context.Background(), &Request{
			Model: "gpt-5", Messages: []Message{{Role: RoleUser, Content: "q"}},
		})
		if err != nil {
			t.Fatal(err)
		}
		_, reasoning, _, _, _ := collect(t, ch)
		if reasoning != "pondering" {
			t.Errorf("expected reasoning content, got %q", reasoning)
		}
	})

	t.Run("plain model drops thinking", func(t *testing.T) {
		b := &fakeBackend{stream: &fakeStream{msgs: msgs}}
		tr, _ := testTranslator(t, b, session.MonitorConfig{})
		ch, err := tr.StreamTurn(context.Background(), &Request{
			Model: "plain-1", Messages: []Message{{Role: RoleUser, Content: "q"}},
		})
		if err != nil {
			t.Fatal(err)
		}
		content, reasoning, _, _, _ := collect(t, ch)
		if reasoning != "" {
			t.Errorf("expected no reasoning content, got %q", reasoning)
		}
		if content != "answer" {
			t.Errorf("text must still flow, got %q", content)
		}
	})
}

func TestToolResultsContinueTheTurn(t *testing.T) {
	b := &fakeBackend{stream: &fakeStream{msgs: []*agent.ServerMessage{
		update(&agent.InteractionUpdate{Text: &agent.TextDelta{Text: "done"}}),
		update(&agent.InteractionUpdate{TurnEnded: &agent.TurnEnded{}}),
	}}}
	tr, _ := testTranslator(t, b, session.MonitorConfig{})

	ch, err := tr.StreamTurn(context.Background(), &Request{
		Model: "gpt-5",
		Messages: []Message{
			{Role: RoleUser, Content: "list files"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call-1", Name: "bash", Arguments: `{"command":"ls"}`}}},
			{Role: RoleTool, ToolCallID: "call-1", Content: "a.txt\nb.txt"},
		},
	})
	if err != nil {
		t.Fatalf("continuation failed: %v", err)
	}
	collect(t, ch)

	if len(b.appends) != 1 {
		t.Fatalf("expected one appended exec result, got %d", len(b.appends))
	}
	res := b.appends[0]
	if res.ExecResult == nil || res.ExecResult.CallID != "call-1" {
		t.Fatalf("expected exec result for call-1, got %+v", res)
	}
	if res.ExecResult.Output != "a.txt\nb.txt" {
		t.Errorf("tool output must pass through, got %q", res.ExecResult.Output)
	}
	if res.Sequence != 0 {
		t.Errorf("exec result should carry sequence 0, got %d", res.Sequence)
	}

	if len(b.runs) != 1 || b.runs[0].Action == nil || b.runs[0].Action.Resume == nil {
		t.Fatalf("expected a resume frame to reopen the stream, got %+v", b.runs)
	}
	if b.runs[0].Sequence != 1 {
		t.Errorf("resume frame should carry sequence 1, got %d", b.runs[0].Sequence)
	}
}

func TestHeartbeatsProduceNoVisibleOutput(t *testing.T) {
	b := &fakeBackend{stream: &fakeStream{msgs: []*agent.ServerMessage{
		update(&agent.InteractionUpdate{Heartbeat: &agent.Heartbeat{}}),
		update(&agent.InteractionUpdate{Text: &agent.TextDelta{Text: "x"}}),
		update(&agent.InteractionUpdate{Heartbeat: &agent.Heartbeat{}}),
		update(&agent.InteractionUpdate{TurnEnded: &agent.TurnEnded{}}),
	}}}
	tr, _ := testTranslator(t, b, session.MonitorConfig{})

	ch, err := tr.StreamTurn(context.Background(), &Request{
		Model: "plain-1", Messages: []Message{{Role: RoleUser, Content: "q"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	var chunks int
	var content string
	for chunk := range ch {
		chunks++
		content += chunk.Content
	}
	// One content chunk plus the terminal chunk; heartbeats are invisible.
	if chunks != 2 {
		t.Errorf("expected 2 chunks, got %d", chunks)
	}
	if content != "x" {
		t.Errorf("expected x, got %q", content)
	}
}

func TestExecRequestBecomesToolCall(t *testing.T) {
	b := &fakeBackend{stream: &fakeStream{msgs: []*agent.ServerMessage{
		{ExecRequest: &agent.ExecRequest{
			Kind:   agent.ExecShell,
			CallID: "exec-9",
			Shell:  &agent.ShellExec{Command: "ls -la"},
		}},
		update(&agent.InteractionUpdate{TurnEnded: &agent.TurnEnded{}}),
	}}}
	tr, _ := testTranslator(t, b, session.MonitorConfig{})

	out, err := tr.Complete(context.Background(), &Request{
		Model: "gpt-5", Messages: []Message{{Role: RoleUser, Content: "q"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if out.FinishReason != FinishToolCalls {
		t.Errorf("expected tool_calls, got %q", out.FinishReason)
	}
	if len(out.ToolCalls) != 1 {
		t.Fatalf("expected one call, got %d", len(out.ToolCalls))
	}
	call := out.ToolCalls[0]
	if call.Name != "bash" || call.ID != "exec-9" {
		t.Errorf("expected bash/exec-9, got %s/%s", call.Name, call.ID)
	}
	if !strings.Contains(call.Arguments, `"command":"ls -la"`) {
		t.Errorf("expected command in arguments, got %q", call.Arguments)
	}
}

func TestContextRequestNeverSurfaces(t *testing.T) {
	b := &fakeBackend{stream: &fakeStream{msgs: []*agent.ServerMessage{
		{ExecRequest: &agent.ExecRequest{Kind: agent.ExecRequestContext, CallID: "ctx-1"}},
		update(&agent.InteractionUpdate{Text: &agent.TextDelta{Text: "fine"}}),
		update(&agent.InteractionUpdate{TurnEnded: &agent.TurnEnded{}}),
	}}}
	tr, _ := testTranslator(t, b, session.MonitorConfig{})

	out, err := tr.Complete(context.Background(), &Request{
		Model: "gpt-5", Messages: []Message{{Role: RoleUser, Content: "q"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.ToolCalls) != 0 {
		t.Errorf("internal context requests must not surface as tools: %+v", out.ToolCalls)
	}
	if out.FinishReason != FinishStop {
		t.Errorf("expected stop, got %q", out.FinishReason)
	}
}

func TestHeartbeatCeilingAbortsTheStream(t *testing.T) {
	hb := update(&agent.InteractionUpdate{Heartbeat: &agent.Heartbeat{}})
	b := &fakeBackend{stream: &fakeStream{msgs: []*agent.ServerMessage{hb, hb, hb, hb, hb}}}
	tr, mgr := testTranslator(t, b, session.MonitorConfig{
		MaxHeartbeatsBeforeProgress: 2,
		MaxHeartbeatsAfterProgress:  2,
	})

	req := &Request{Model: "plain-1", Messages: []Message{{Role: RoleUser, Content: "q"}}}
	ch, err := tr.StreamTurn(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	_, _, finish, _, chErr := collect(t, ch)
	var timeout *session.HeartbeatTimeoutError
	if !errors.As(chErr, &timeout) {
		t.Fatalf("expected *HeartbeatTimeoutError, got %v", chErr)
	}
	if finish != "" {
		t.Errorf("an aborted turn must not carry a finish reason, got %q", finish)
	}

	// The aborted conversation starts fresh on the next request.
	fresh := mgr.Acquire(conversationKey(req))
	if got := fresh.SequenceCount(); got != 0 {
		t.Errorf("expected a fresh session, found %d allocated frames", got)
	}
}

// silentStream never yields a message; Next blocks until the context ends.
type silentStream struct{}

func (silentStream) Next(ctx context.Context) (*agent.ServerMessage, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (silentStream) Close() error { return nil }

// streamBackend serves an arbitrary ServerStream.
type streamBackend struct {
	stream ServerStream
}

func (b *streamBackend) Run(ctx context.Context, msg *agent.ClientMessage) (ServerStream, error) {
	return b.stream, nil
}

func (b *streamBackend) Append(ctx context.Context, msg *agent.ClientMessage) error {
	return nil
}

func TestSilentStreamAbortsOnIdleCeiling(t *testing.T) {
	tr, mgr := testTranslator(t, &streamBackend{stream: silentStream{}}, session.MonitorConfig{
		IdleBeforeProgress: 20 * time.Millisecond,
	})

	req := &Request{Model: "plain-1", Messages: []Message{{Role: RoleUser, Content: "q"}}}
	ch, err := tr.StreamTurn(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case chunk := <-ch:
		var timeout *session.HeartbeatTimeoutError
		if !errors.As(chunk.Err, &timeout) {
			t.Fatalf("expected *HeartbeatTimeoutError, got %+v", chunk)
		}
		if timeout.IdleLimit != 20*time.Millisecond {
			t.Errorf("expected the before-progress idle ceiling, got %s", timeout.IdleLimit)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("turn hung instead of aborting on the idle ceiling")
	}

	if _, open := <-ch; open {
		t.Error("expected the channel to close after the terminal chunk")
	}

	// The aborted conversation starts fresh on the next request.
	fresh := mgr.Acquire(conversationKey(req))
	if got := fresh.SequenceCount(); got != 0 {
		t.Errorf("expected a fresh session after the abort, found %d allocated frames", got)
	}
}

func TestStaleSessionRenumbersEveryFrame(t *testing.T) {
	mgr := session.NewManager(session.ManagerConfig{}, nil)
	t.Cleanup(mgr.Shutdown)

	s := mgr.Acquire("conv")
	frames := []*agent.ClientMessage{{}, {}, {}}
	if err := assignSequences(s, frames); err != nil {
		t.Fatalf("first assignment failed: %v", err)
	}

	// The session goes away mid-turn; further sequences must fail rather
	// than continue the stale numbering.
	mgr.Close(s, "evicted")
	if err := assignSequences(s, frames); err == nil {
		t.Fatal("expected an error from a closed session")
	}

	fresh := mgr.Acquire("conv")
	if err := assignSequences(fresh, frames); err != nil {
		t.Fatalf("fresh assignment failed: %v", err)
	}
	for i, frame := range frames {
		if frame.Sequence != uint64(i) {
			t.Errorf("frame %d carries sequence %d, want %d", i, frame.Sequence, i)
		}
	}
}

func TestUnknownServerFieldsDescribedInDebugLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	b := &fakeBackend{stream: &fakeStream{msgs: []*agent.ServerMessage{
		{Unknown: []wire.RawField{{Number: 42, Type: wire.TypeBytes, Bytes: []byte("mystery")}}},
		update(&agent.InteractionUpdate{TurnEnded: &agent.TurnEnded{}}),
	}}}
	mgr := session.NewManager(session.ManagerConfig{}, nil)
	t.Cleanup(mgr.Shutdown)
	tr := New(b, mgr, session.NewMonitor(session.MonitorConfig{}), testCatalog(), logger)

	ch, err := tr.StreamTurn(context.Background(), &Request{
		Model: "plain-1", Messages: []Message{{Role: RoleUser, Content: "q"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, _, _, _, chErr := collect(t, ch)
	if chErr != nil {
		t.Fatalf("unexpected stream error: %v", chErr)
	}

	out := buf.String()
	if !strings.Contains(out, "unknown server field") {
		t.Errorf("expected a debug line for the unknown field, got %q", out)
	}
	if !strings.Contains(out, "mystery") {
		t.Errorf("expected the field description in the log, got %q", out)
	}
}

func TestStreamEOFWithoutTurnEndFinishes(t *testing.T) {
	b := &fakeBackend{stream: &fakeStream{msgs: []*agent.ServerMessage{
		update(&agent.InteractionUpdate{Text: &agent.TextDelta{Text: "partial"}}),
	}}}
	tr, _ := testTranslator(t, b, session.MonitorConfig{})

	ch, err := tr.StreamTurn(context.Background(), &Request{
		Model: "plain-1", Messages: []Message{{Role: RoleUser, Content: "q"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	content, _, finish, _, chErr := collect(t, ch)
	if chErr != nil {
		t.Fatalf("unexpected error: %v", chErr)
	}
	if content != "partial" || finish != FinishStop {
		t.Errorf("got content %q finish %q", content, finish)
	}
}
