package agent

import (
	"ganymede-hq/ganymede/pkg/wire"
)

// ExecKind is the discriminant string on an ExecRequest.
type ExecKind string

const (
	// ExecShell runs a shell command.
	ExecShell ExecKind = "shell"

	// ExecRead reads a file.
	ExecRead ExecKind = "read"

	// ExecList lists a directory.
	ExecList ExecKind = "ls"

	// ExecSearch searches file contents or names; see SearchExec for the
	// grep/glob disambiguation.
	ExecSearch ExecKind = "grep"

	// ExecWrite writes a file.
	ExecWrite ExecKind = "write"

	// ExecMcp passes a call through to an MCP tool by its original name.
	ExecMcp ExecKind = "mcp"

	// ExecRequestContext asks for workspace context. It is internal to the
	// protocol and never surfaced to the calling side as a tool.
	ExecRequestContext ExecKind = "request_context"
)

// ExecRequest is a tool invocation ask from the backend. Kind selects which
// payload is meaningful; payloads for other kinds are nil.
type ExecRequest struct {
	// Kind is the discriminant string (field 1).
	Kind ExecKind

	// CallID identifies the invocation; the ExecResult echoes it (field 2).
	CallID string

	// Shell is the payload for ExecShell (field 3).
	Shell *ShellExec

	// Read is the payload for ExecRead (field 4).
	Read *ReadExec

	// List is the payload for ExecList (field 5).
	List *ListExec

	// Search is the payload for ExecSearch (field 6).
	Search *SearchExec

	// Write is the payload for ExecWrite (field 7).
	Write *WriteExec

	// Mcp is the payload for ExecMcp (field 8).
	Mcp *McpExec
}

// ShellExec runs a command, optionally in a working directory.
type ShellExec struct {
	// Command is the full command line.
	Command string

	// Cwd is the working directory ("" = unspecified).
	Cwd string
}

// ReadExec reads one file.
type ReadExec struct {
	// Path is the file path.
	Path string
}

// ListExec lists one directory.
type ListExec struct {
	// Path is the directory path.
	Path string
}

// SearchExec searches by content pattern or by glob. When both are present
// the glob wins: the backend sets a content pattern alongside a glob for
// display purposes, and treating it as a grep would run the wrong tool.
type SearchExec struct {
	// Pattern is the content (grep) pattern.
	Pattern string

	// Path scopes the search ("" = workspace root).
	Path string

	// Glob is the filename glob pattern. Non-empty Glob takes precedence
	// over Pattern.
	Glob string
}

// IsGlob reports whether this search resolves to a glob invocation.
func (s *SearchExec) IsGlob() bool {
	return s.Glob != ""
}

// EffectivePattern returns the pattern the invocation should run with,
// honoring glob precedence.
func (s *SearchExec) EffectivePattern() string {
	if s.IsGlob() {
		return s.Glob
	}
	return s.Pattern
}

// WriteExec writes a file with either textual or binary content. Binary
// content takes precedence when both are present; consumers whose sink
// expects text must base64-encode Raw.
type WriteExec struct {
	// Path is the destination file path.
	Path string

	// Text is the textual content.
	Text string

	// Raw is the binary content. Non-empty Raw takes precedence over Text.
	Raw []byte
}

// IsBinary reports whether the write carries binary content.
func (w *WriteExec) IsBinary() bool {
	return len(w.Raw) > 0
}

// McpExec passes a call through to an MCP tool.
type McpExec struct {
	// Tool is the original MCP tool name.
	Tool string

	// ArgsJSON is the raw argument document, passed through verbatim.
	ArgsJSON string
}

func parseExecRequest(b []byte) (*ExecRequest, error) {
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return nil, err
	}

	req := &ExecRequest{}
	for _, f := range fields {
		if f.Type != wire.TypeBytes {
			continue
		}
		switch f.Number {
		case 1:
			req.Kind = ExecKind(f.Bytes)
		case 2:
			req.CallID = string(f.Bytes)
		case 3:
			req.Shell = parseShellExec(f.Bytes)
		case 4:
			req.Read = &ReadExec{Path: innerText(f.Bytes)}
		case 5:
			req.List = &ListExec{Path: innerText(f.Bytes)}
		case 6:
			req.Search = parseSearchExec(f.Bytes)
		case 7:
			req.Write = parseWriteExec(f.Bytes)
		case 8:
			req.Mcp = parseMcpExec(f.Bytes)
		}
	}
	return req, nil
}

func parseShellExec(b []byte) *ShellExec {
	s := &ShellExec{}
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return s
	}
	for _, f := range fields {
		if f.Type != wire.TypeBytes {
			continue
		}
		switch f.Number {
		case 1:
			s.Command = string(f.Bytes)
		case 2:
			s.Cwd = string(f.Bytes)
		}
	}
	return s
}

func parseSearchExec(b []byte) *SearchExec {
	s := &SearchExec{}
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return s
	}
	for _, f := range fields {
		if f.Type != wire.TypeBytes {
			continue
		}
		switch f.Number {
		case 1:
			s.Pattern = string(f.Bytes)
		case 2:
			s.Path = string(f.Bytes)
		case 3:
			s.Glob = string(f.Bytes)
		}
	}
	return s
}

func parseWriteExec(b []byte) *WriteExec {
	w := &WriteExec{}
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return w
	}
	for _, f := range fields {
		if f.Type != wire.TypeBytes {
			continue
		}
		switch f.Number {
		case 1:
			w.Path = string(f.Bytes)
		case 2:
			w.Text = string(f.Bytes)
		case 3:
			w.Raw = append([]byte(nil), f.Bytes...)
		}
	}
	return w
}

func parseMcpExec(b []byte) *McpExec {
	m := &McpExec{}
	fields, err := wire.DecodeFields(b)
	if err != nil {
		return m
	}
	for _, f := range fields {
		if f.Type != wire.TypeBytes {
			continue
		}
		switch f.Number {
		case 1:
			m.Tool = string(f.Bytes)
		case 2:
			m.ArgsJSON = string(f.Bytes)
		}
	}
	return m
}

// encode serializes the request. Counterpart to parseExecRequest.
func (r *ExecRequest) encode() []byte {
	var buf []byte
	buf = wire.AppendStringField(buf, 1, string(r.Kind))
	buf = wire.AppendStringField(buf, 2, r.CallID)

	appendPath := func(number uint32, path string) {
		var inner []byte
		inner = wire.AppendStringField(inner, 1, path)
		buf = wire.AppendBytesField(buf, number, inner)
	}

	switch {
	case r.Shell != nil:
		var inner []byte
		inner = wire.AppendStringField(inner, 1, r.Shell.Command)
		if r.Shell.Cwd != "" {
			inner = wire.AppendStringField(inner, 2, r.Shell.Cwd)
		}
		buf = wire.AppendBytesField(buf, 3, inner)
	case r.Read != nil:
		appendPath(4, r.Read.Path)
	case r.List != nil:
		appendPath(5, r.List.Path)
	case r.Search != nil:
		var inner []byte
		if r.Search.Pattern != "" {
			inner = wire.AppendStringField(inner, 1, r.Search.Pattern)
		}
		if r.Search.Path != "" {
			inner = wire.AppendStringField(inner, 2, r.Search.Path)
		}
		if r.Search.Glob != "" {
			inner = wire.AppendStringField(inner, 3, r.Search.Glob)
		}
		buf = wire.AppendBytesField(buf, 6, inner)
	case r.Write != nil:
		var inner []byte
		inner = wire.AppendStringField(inner, 1, r.Write.Path)
		if r.Write.Text != "" {
			inner = wire.AppendStringField(inner, 2, r.Write.Text)
		}
		if len(r.Write.Raw) > 0 {
			inner = wire.AppendBytesField(inner, 3, r.Write.Raw)
		}
		buf = wire.AppendBytesField(buf, 7, inner)
	case r.Mcp != nil:
		var inner []byte
		inner = wire.AppendStringField(inner, 1, r.Mcp.Tool)
		inner = wire.AppendStringField(inner, 2, r.Mcp.ArgsJSON)
		buf = wire.AppendBytesField(buf, 8, inner)
	}
	return buf
}
