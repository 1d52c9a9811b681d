package translator

import (
	"encoding/base64"
	"encoding/json"

	"ganymede-hq/ganymede/pkg/agent"
)

// toolNameFor maps a backend execution kind to its caller-facing tool
// name. Unknown kinds pass through unchanged so new backend tools surface
// without a gateway release.
func toolNameFor(kind string) string {
	switch agent.ExecKind(kind) {
	case agent.ExecShell:
		return "bash"
	case agent.ExecList:
		return "list"
	default:
		return kind
	}
}

// hiddenKind reports whether an execution kind is protocol-internal and
// must never surface as a tool call.
func hiddenKind(kind string) bool {
	return agent.ExecKind(kind) == agent.ExecRequestContext
}

// execToolCall renders a typed ExecRequest as a caller-facing tool call:
// mapped name plus a complete JSON argument document. The second return is
// false for hidden kinds.
func execToolCall(req *agent.ExecRequest) (name, args string, ok bool) {
	if hiddenKind(string(req.Kind)) {
		return "", "", false
	}

	switch {
	case req.Shell != nil:
		doc := map[string]string{"command": req.Shell.Command}
		if req.Shell.Cwd != "" {
			doc["cwd"] = req.Shell.Cwd
		}
		return "bash", marshalArgs(doc), true

	case req.Read != nil:
		return "read", marshalArgs(map[string]string{"path": req.Read.Path}), true

	case req.List != nil:
		return "list", marshalArgs(map[string]string{"path": req.List.Path}), true

	case req.Search != nil:
		doc := map[string]string{"pattern": req.Search.EffectivePattern()}
		if req.Search.Path != "" {
			doc["path"] = req.Search.Path
		}
		if req.Search.IsGlob() {
			return "glob", marshalArgs(doc), true
		}
		return "grep", marshalArgs(doc), true

	case req.Write != nil:
		doc := map[string]string{"path": req.Write.Path}
		if req.Write.IsBinary() {
			doc["content"] = base64.StdEncoding.EncodeToString(req.Write.Raw)
			doc["encoding"] = "base64"
		} else {
			doc["content"] = req.Write.Text
		}
		return "write", marshalArgs(doc), true

	case req.Mcp != nil:
		// MCP calls pass through under their original tool name with the
		// argument document untouched.
		return req.Mcp.Tool, req.Mcp.ArgsJSON, true

	default:
		return toolNameFor(string(req.Kind)), "{}", true
	}
}

func marshalArgs(doc map[string]string) string {
	b, err := json.Marshal(doc)
	if err != nil {
		return "{}"
	}
	return string(b)
}
