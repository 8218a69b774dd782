package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Source loads published definitions from durable storage.
type Source interface {
	Get(ctx context.Context, gameID string) (*Definition, error)
}

// Registry resolves published game graphs: process memory first, then the
// Redis cache, then the database. Graphs are immutable once published, so a
// memoized build never goes stale within a deploy.
type Registry struct {
	source Source
	cache  *Cache
	logger zerolog.Logger

	mu     sync.RWMutex
	graphs map[string]*Graph
}

// NewRegistry creates a registry. cache may be nil.
func NewRegistry(source Source, cache *Cache, logger zerolog.Logger) *Registry {
	return &Registry{
		source: source,
		cache:  cache,
		logger: logger,
		graphs: make(map[string]*Graph),
	}
}

// Get returns the graph for a published game.
func (r *Registry) Get(ctx context.Context, gameID string) (*Graph, error) {
	r.mu.RLock()
	g, ok := r.graphs[gameID]
	r.mu.RUnlock()
	if ok {
		return g, nil
	}

	def, err := r.load(ctx, gameID)
	if err != nil {
		return nil, err
	}

	g, err = NewGraph(def)
	if err != nil {
		// Published definitions were validated at publish time; a failure
		// here means storage corruption.
		return nil, fmt.Errorf("rebuild graph for %s: %w", gameID, err)
	}

	r.mu.Lock()
	r.graphs[gameID] = g
	r.mu.Unlock()
	return g, nil
}

// Invalidate drops the memoized graph and the cache entry.
func (r *Registry) Invalidate(ctx context.Context, gameID string) {
	r.mu.Lock()
	delete(r.graphs, gameID)
	r.mu.Unlock()

	if r.cache != nil {
		if err := r.cache.Invalidate(ctx, gameID); err != nil {
			r.logger.Warn().Err(err).Str("game_id", gameID).Msg("failed to invalidate game cache")
		}
	}
}

func (r *Registry) load(ctx context.Context, gameID string) (*Definition, error) {
	if r.cache != nil {
		def, err := r.cache.Get(ctx, gameID)
		if err != nil {
			r.logger.Warn().Err(err).Str("game_id", gameID).Msg("game cache read failed")
		} else if def != nil {
			return def, nil
		}
	}

	def, err := r.source.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, def); err != nil {
			r.logger.Warn().Err(err).Str("game_id", gameID).Msg("game cache write failed")
		}
	}
	return def, nil
}
