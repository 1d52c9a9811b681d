// Package models maintains the model capability surface: a mapping from
// model identifier to token limits and capability flags, used by the
// translator for fail-fast capability checks and reasoning/vision gating.
//
// The live model list comes from the backend through a caller-supplied
// fetch function and is cached with a TTL; a built-in catalog provides
// capabilities for known models when the backend list is unavailable or
// carries no flags. A cron-scheduled refresh keeps the cached list warm.
package models

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"ganymede-hq/ganymede/pkg/cache"
)

// Capabilities are the per-model limits and feature flags the translator
// gates on.
type Capabilities struct {
	// ContextWindow is the model's token context window.
	ContextWindow int

	// MaxOutputTokens caps one completion's output.
	MaxOutputTokens int

	// Tools indicates tool-calling support.
	Tools bool

	// Vision indicates image input support.
	Vision bool

	// Reasoning indicates the model emits reasoning (thinking) content.
	Reasoning bool
}

// Model is one entry in the capability surface.
type Model struct {
	// ID is the backend model identifier.
	ID string

	// DisplayName is the human-readable name ("" = same as ID).
	DisplayName string

	// Capabilities are the model's limits and flags.
	Capabilities Capabilities
}

// builtin is the fallback catalog for models the backend is known to serve.
// The backend list, when available, takes precedence entry by entry.
var builtin = map[string]Model{
	"composer-1": {
		ID:           "composer-1",
		Capabilities: Capabilities{ContextWindow: 200_000, MaxOutputTokens: 32_000, Tools: true},
	},
	"gpt-5": {
		ID:           "gpt-5",
		Capabilities: Capabilities{ContextWindow: 272_000, MaxOutputTokens: 128_000, Tools: true, Vision: true, Reasoning: true},
	},
	"sonnet-4.5": {
		ID:           "sonnet-4.5",
		Capabilities: Capabilities{ContextWindow: 200_000, MaxOutputTokens: 64_000, Tools: true, Vision: true, Reasoning: true},
	},
	"opus-4.1": {
		ID:           "opus-4.1",
		Capabilities: Capabilities{ContextWindow: 200_000, MaxOutputTokens: 32_000, Tools: true, Vision: true, Reasoning: true},
	},
	"grok-4": {
		ID:           "grok-4",
		Capabilities: Capabilities{ContextWindow: 256_000, MaxOutputTokens: 64_000, Tools: true, Reasoning: true},
	},
	"deepseek-v3.1": {
		ID:           "deepseek-v3.1",
		Capabilities: Capabilities{ContextWindow: 128_000, MaxOutputTokens: 32_000, Tools: true},
	},
}

// ListFunc fetches the live model list from the backend.
type ListFunc func(ctx context.Context) ([]Model, error)

// Catalog is the capability surface. Safe for concurrent use.
type Catalog struct {
	// memo caches the backend model list
	memo *cache.Memo[[]Model]

	// logger receives refresh logs
	logger *slog.Logger

	// scheduler drives periodic refresh (nil until StartRefresh)
	scheduler *cron.Cron
}

// NewCatalog creates a Catalog. fetch may be nil, in which case only the
// built-in catalog is consulted. ttl bounds how long a fetched list is
// trusted (default 15m).
func NewCatalog(fetch ListFunc, ttl time.Duration, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	c := &Catalog{logger: logger}
	if fetch != nil {
		c.memo = cache.NewMemo(ttl, fetch)
	}
	return c
}

// Lookup resolves a model id to its capabilities. The backend list wins
// over the built-in catalog; a model in neither is reported as absent.
func (c *Catalog) Lookup(ctx context.Context, id string) (Model, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Model{}, false
	}

	if c.memo != nil {
		list, err := c.memo.Get(ctx)
		if err != nil {
			c.logger.Warn("model list fetch failed, using built-in catalog", "error", err)
		} else {
			for _, m := range list {
				if m.ID == id {
					return c.withBuiltinFallback(m), true
				}
			}
		}
	}

	m, ok := builtin[id]
	return m, ok
}

// List returns every known model: the backend list when available,
// otherwise the built-in catalog.
func (c *Catalog) List(ctx context.Context) []Model {
	if c.memo != nil {
		if list, err := c.memo.Get(ctx); err == nil && len(list) > 0 {
			out := make([]Model, len(list))
			for i, m := range list {
				out[i] = c.withBuiltinFallback(m)
			}
			return out
		}
	}

	out := make([]Model, 0, len(builtin))
	for _, m := range builtin {
		out = append(out, m)
	}
	return out
}

// Invalidate discards the cached backend list.
func (c *Catalog) Invalidate() {
	if c.memo != nil {
		c.memo.Invalidate()
	}
}

// StartRefresh schedules a periodic background refresh of the model list.
// The schedule uses cron syntax (e.g. "@every 1h").
func (c *Catalog) StartRefresh(schedule string) error {
	if c.memo == nil {
		return nil
	}

	c.scheduler = cron.New()
	_, err := c.scheduler.AddFunc(schedule, func() {
		c.memo.Invalidate()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := c.memo.Get(ctx); err != nil {
			c.logger.Warn("scheduled model list refresh failed", "error", err)
		} else {
			c.logger.Debug("model list refreshed")
		}
	})
	if err != nil {
		return err
	}
	c.scheduler.Start()
	return nil
}

// Close stops the refresh scheduler.
func (c *Catalog) Close() {
	if c.scheduler != nil {
		c.scheduler.Stop()
	}
}

// withBuiltinFallback fills zero-valued capability fields from the built-in
// catalog: the backend list names models but does not always carry flags.
func (c *Catalog) withBuiltinFallback(m Model) Model {
	b, ok := builtin[m.ID]
	if !ok {
		return m
	}
	if m.Capabilities == (Capabilities{}) {
		m.Capabilities = b.Capabilities
	}
	if m.DisplayName == "" {
		m.DisplayName = b.DisplayName
	}
	return m
}
