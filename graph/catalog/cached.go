package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dshills/flowsim/graph"
)

// Source supplies the automation list, typically from a remote service.
type Source interface {
	Fetch(ctx context.Context) ([]graph.Automation, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]graph.Automation, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context) ([]graph.Automation, error) {
	return f(ctx)
}

// Cached fetches the automation list from a Source once and serves every
// later Fetch and Lookup from memory. A failed fetch is not cached; the
// next call tries again. Cached implements graph.Catalog.
type Cached struct {
	src    Source
	logger *slog.Logger

	mu     sync.Mutex
	loaded *Static
}

// NewCached wraps src. logger may be nil.
func NewCached(src Source, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cached{src: src, logger: logger.With("component", "catalog")}
}

func (c *Cached) load(ctx context.Context) (*Static, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded != nil {
		return c.loaded, nil
	}

	automations, err := c.src.Fetch(ctx)
	if err != nil {
		c.logger.Warn("catalog fetch failed", "error", err)
		return nil, err
	}
	s, err := New(automations...)
	if err != nil {
		return nil, err
	}
	c.loaded = s
	c.logger.Debug("catalog loaded", "automations", s.Len())
	return s, nil
}

// Fetch returns every automation.
func (c *Cached) Fetch(ctx context.Context) ([]graph.Automation, error) {
	s, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Fetch(ctx)
}

// Lookup resolves id.
func (c *Cached) Lookup(ctx context.Context, id string) (graph.Automation, bool, error) {
	s, err := c.load(ctx)
	if err != nil {
		return graph.Automation{}, false, err
	}
	return s.Lookup(ctx, id)
}

// Invalidate drops the cached list so the next call fetches again.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = nil
}
