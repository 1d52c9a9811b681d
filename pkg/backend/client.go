// Package backend is the RPC client for the agent backend. It owns the
// endpoint paths, header attachment (bearer token, client checksum), and
// the base URL selection between the standard and privacy-mode endpoints.
//
// Unary calls go through the retrying transport. The streaming run call
// uses the raw HTTP client instead: a retry loop cannot replay a
// half-consumed stream, so stream failures surface to the session layer
// which decides whether to invalidate.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ganymede-hq/ganymede/pkg/agent"
	"ganymede-hq/ganymede/pkg/envelope"
	"ganymede-hq/ganymede/pkg/models"
	"ganymede-hq/ganymede/pkg/transport"
	"ganymede-hq/ganymede/pkg/wire"
)

// RPC paths on the backend, connect-style.
const (
	pathRun        = "/agent.v1.AgentService/RunStream"
	pathAppend     = "/agent.v1.BidiService/Append"
	pathListModels = "/agent.v1.AgentService/ListModels"
)

// Config holds the backend endpoint and credentials.
type Config struct {
	// BaseURL is the standard backend endpoint.
	BaseURL string

	// PrivacyBaseURL is the privacy-mode endpoint (no server-side retention).
	PrivacyBaseURL string

	// UsePrivacy selects PrivacyBaseURL when true and it is non-empty.
	UsePrivacy bool

	// Token is the opaque bearer credential. Attached verbatim; the client
	// never inspects or refreshes it.
	Token string

	// Checksum is the opaque client checksum header value.
	Checksum string
}

// endpoint returns the effective base URL.
func (c Config) endpoint() string {
	if c.UsePrivacy && c.PrivacyBaseURL != "" {
		return c.PrivacyBaseURL
	}
	return c.BaseURL
}

// Client talks to the agent backend. Safe for concurrent use.
type Client struct {
	// cfg holds endpoint and credentials
	cfg Config

	// unary is the retrying transport for non-streaming calls
	unary *transport.Client

	// http performs streaming requests directly
	http *http.Client

	// logger receives request logs
	logger *slog.Logger
}

// New creates a Client. httpClient may be nil for a default streaming
// client without a global timeout (streams are long-lived; liveness is the
// heartbeat monitor's job).
func New(cfg Config, unary *transport.Client, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:          16,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
			},
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, unary: unary, http: httpClient, logger: logger}
}

// headers builds the per-request header set.
func (c *Client) headers(streaming bool) map[string]string {
	h := map[string]string{
		"Content-Type": "application/proto",
		"X-Request-Id": uuid.NewString(),
	}
	if streaming {
		h["Accept"] = "text/event-stream"
	}
	if c.cfg.Token != "" {
		h["Authorization"] = "Bearer " + c.cfg.Token
	}
	if c.cfg.Checksum != "" {
		h["X-Client-Checksum"] = c.cfg.Checksum
	}
	return h
}

// Run starts a streaming run with the given client message and returns the
// server event stream. A non-2xx response is returned as *transport.HTTPError
// so the caller can distinguish auth failures from transient trouble.
func (c *Client) Run(ctx context.Context, msg *agent.ClientMessage) (*Stream, error) {
	body := envelope.Wrap(msg.Encode(), 0)
	url := c.cfg.endpoint() + pathRun

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create run request: %w", err)
	}
	for key, value := range c.headers(true) {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &StreamError{Message: "run request failed", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		resp.Body.Close()
		return nil, &transport.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(errBody),
		}
	}

	c.logger.Debug("run stream opened",
		"url", url,
		"sequence", msg.Sequence,
	)
	return newStream(resp.Body), nil
}

// Append sends one frame to an established conversation without opening a
// stream. Used for tool results and control messages mid-turn.
func (c *Client) Append(ctx context.Context, msg *agent.ClientMessage) error {
	body := envelope.Wrap(msg.Encode(), 0)

	result, err := c.unary.Send(ctx, &transport.Request{
		Method:  http.MethodPost,
		URL:     c.cfg.endpoint() + pathAppend,
		Body:    body,
		Headers: c.headers(false),
	})
	if err != nil {
		return err
	}

	io.Copy(io.Discard, io.LimitReader(result.Response.Body, 64<<10))
	result.Response.Body.Close()
	return nil
}

// ListModels fetches the backend's usable model list.
func (c *Client) ListModels(ctx context.Context) ([]models.Model, error) {
	result, err := c.unary.Send(ctx, &transport.Request{
		Method:  http.MethodPost,
		URL:     c.cfg.endpoint() + pathListModels,
		Body:    envelope.Wrap(nil, 0),
		Headers: c.headers(false),
	})
	if err != nil {
		return nil, err
	}
	defer result.Response.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(result.Response.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read model list: %w", err)
	}

	_, payload := envelope.Strip(raw)
	return parseModelList(payload)
}

// Model list wire layout: repeated field 1, each entry a message with
// 1 = id, 2 = display name, 3 = context window, 4 = max output tokens,
// 5/6/7 = tools/vision/reasoning flags.
func parseModelList(payload []byte) ([]models.Model, error) {
	fields, err := wire.DecodeFields(payload)
	if err != nil {
		return nil, err
	}

	var list []models.Model
	for _, f := range fields {
		if f.Number != 1 || f.Type != wire.TypeBytes {
			continue
		}
		entry, err := wire.DecodeFields(f.Bytes)
		if err != nil {
			continue
		}
		var m models.Model
		for _, g := range entry {
			switch {
			case g.Number == 1 && g.Type == wire.TypeBytes:
				m.ID = string(g.Bytes)
			case g.Number == 2 && g.Type == wire.TypeBytes:
				m.DisplayName = string(g.Bytes)
			case g.Number == 3 && g.Type == wire.TypeVarint:
				m.Capabilities.ContextWindow = int(g.Varint)
			case g.Number == 4 && g.Type == wire.TypeVarint:
				m.Capabilities.MaxOutputTokens = int(g.Varint)
			case g.Number == 5 && g.Type == wire.TypeVarint:
				m.Capabilities.Tools = g.Varint != 0
			case g.Number == 6 && g.Type == wire.TypeVarint:
				m.Capabilities.Vision = g.Varint != 0
			case g.Number == 7 && g.Type == wire.TypeVarint:
				m.Capabilities.Reasoning = g.Varint != 0
			}
		}
		if m.ID != "" {
			list = append(list, m)
		}
	}
	return list, nil
}
