package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"clusterlabel/internal/config"

	"go.uber.org/zap"
)

// OpenFunc opens the store of a normalized source name.
type OpenFunc func(ctx context.Context, source string) (Store, error)

// Registry opens each data source once and keeps it until Close.
type Registry struct {
	fallback string
	open     OpenFunc

	mu     sync.Mutex
	stores map[string]Store
}

func NewRegistry(defaultSource string, open OpenFunc) *Registry {
	return &Registry{fallback: defaultSource, open: open, stores: make(map[string]Store)}
}

// NewConfigRegistry opens stores with Open and the given configuration.
func NewConfigRegistry(cfg config.Config, logger *zap.Logger) *Registry {
	return NewRegistry(cfg.DataSource, func(ctx context.Context, source string) (Store, error) {
		return Open(ctx, cfg, source, logger)
	})
}

// Source normalizes a source name; empty means the default.
func (r *Registry) Source(source string) string {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		return r.fallback
	}
	return source
}

func (r *Registry) Get(ctx context.Context, source string) (Store, error) {
	source = r.Source(source)
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[source]; ok {
		return s, nil
	}
	s, err := r.open(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", source, err)
	}
	r.stores[source] = s
	return s, nil
}

func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, s := range r.stores {
		s.Close()
		delete(r.stores, name)
	}
}
