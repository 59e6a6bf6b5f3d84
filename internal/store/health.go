package store

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	// pingWindow bounds how long any adapter call waits to learn whether the
	// primary is reachable. Primary unavailability is an expected condition,
	// so the window is short.
	pingWindow = 1500 * time.Millisecond

	// healthTTL is how long a reachability verdict is reused before the next
	// ping. Keeps hot paths from pinging on every operation.
	healthTTL = 3 * time.Second
)

// Health decides whether the primary store is currently reachable. The
// verdict is computed per call (with a short cache) and threaded through the
// adapters explicitly rather than held in a process-wide flag, so tests can
// simulate outages by pointing the pool at a dead address.
type Health struct {
	pool *pgxpool.Pool
	log  zerolog.Logger

	mu        sync.Mutex
	checkedAt time.Time
	reachable bool
}

func NewHealth(pool *pgxpool.Pool, log zerolog.Logger) *Health {
	return &Health{pool: pool, log: log}
}

// Reachable reports whether the primary store answered a ping within the
// health window. A nil pool always reports unreachable.
func (h *Health) Reachable(ctx context.Context) bool {
	if h == nil || h.pool == nil {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if time.Since(h.checkedAt) < healthTTL {
		return h.reachable
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingWindow)
	defer cancel()

	err := h.pool.Ping(pingCtx)
	h.checkedAt = time.Now()
	h.reachable = err == nil
	if err != nil {
		h.log.Warn().Err(err).Msg("primary store unreachable, using fallback")
	}
	return h.reachable
}

// Invalidate drops the cached verdict so the next call pings again. Used by
// the reconciler right before a migration run.
func (h *Health) Invalidate() {
	h.mu.Lock()
	h.checkedAt = time.Time{}
	h.mu.Unlock()
}
