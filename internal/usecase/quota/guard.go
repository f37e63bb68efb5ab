// Package quota enforces the daily query ceiling in front of every paid
// external call.
package quota

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/district-tools/permitnav/internal/metrics"
)

// Reserver is the durable counter contract. The reservation must be a
// single atomic check-and-increment against the shared store: invocations
// may run in separate processes, so an in-process lock is not enough.
type Reserver interface {
	Reserve(ctx context.Context, ceiling int64) (bool, error)
	Used(ctx context.Context) (int64, error)
	ResetsAt() time.Time
}

// Guard admits or denies queries against the daily ceiling. Reservation at
// admit time is the one and only counter increment per admitted query.
type Guard struct {
	reserver Reserver
	ceiling  int64
	logger   *zap.Logger
}

// NewGuard creates a usage guard. ceiling <= 0 means unlimited.
func NewGuard(reserver Reserver, ceiling int64, logger *zap.Logger) *Guard {
	return &Guard{reserver: reserver, ceiling: ceiling, logger: logger}
}

// Admit reserves a slot for one query. Returns false when today's ceiling
// is reached. A counter-store failure propagates as an error: admitting
// without a reservation would make the ceiling advisory.
func (g *Guard) Admit(ctx context.Context) (bool, error) {
	if g.ceiling <= 0 {
		return true, nil
	}

	ok, err := g.reserver.Reserve(ctx, g.ceiling)
	if err != nil {
		return false, fmt.Errorf("admit query: %w", err)
	}
	if !ok {
		metrics.QuotaDenialsTotal.Inc()
		g.logger.Info("Query denied by daily ceiling", zap.Int64("ceiling", g.ceiling))
	}
	return ok, nil
}

// Ceiling returns the configured daily ceiling.
func (g *Guard) Ceiling() int64 { return g.ceiling }

// Used returns today's admitted query count.
func (g *Guard) Used(ctx context.Context) (int64, error) {
	used, err := g.reserver.Used(ctx)
	if err != nil {
		return 0, fmt.Errorf("read usage: %w", err)
	}
	return used, nil
}

// ResetsAt returns when today's counter rolls over.
func (g *Guard) ResetsAt() time.Time { return g.reserver.ResetsAt() }
