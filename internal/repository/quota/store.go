// Package quota persists the daily query counter. Each calendar day is a
// distinct key, so rollover needs no reset logic — yesterday's key just
// expires.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/district-tools/permitnav/internal/db"
	"github.com/district-tools/permitnav/internal/domain"
)

// DefaultTTL keeps a day key alive long enough to survive clock skew between
// instances before Redis drops it.
const DefaultTTL = 48 * time.Hour

// kv is the consumer interface for quota operations.
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrIfBelow(ctx context.Context, key string, ceiling int64, ttl time.Duration) (bool, error)
}

// Store implements the durable daily counter on top of db.KVStore.
type Store struct {
	kv  kv
	loc *time.Location
	ttl time.Duration
	now func() time.Time
}

// New creates a quota store. loc fixes the calendar day boundary.
func New(kv kv, loc *time.Location) *Store {
	return &Store{kv: kv, loc: loc, ttl: DefaultTTL, now: time.Now}
}

// WithClock overrides the time source (tests).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Reserve atomically claims one slot under ceiling for today. The claim and
// the increment are a single server-side operation, so M concurrent callers
// against a ceiling of N admit exactly min(M, N).
func (s *Store) Reserve(ctx context.Context, ceiling int64) (bool, error) {
	ok, err := s.kv.IncrIfBelow(ctx, s.key(s.today()), ceiling, s.ttl)
	if err != nil {
		return false, fmt.Errorf("quota reserve: %w", err)
	}
	return ok, nil
}

// Used returns today's admitted query count.
func (s *Store) Used(ctx context.Context) (int64, error) {
	data, err := s.kv.Get(ctx, s.key(s.today()))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("quota get: %w", err)
	}
	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("quota get parse: %w", err)
	}
	return val, nil
}

// ResetsAt returns the next day boundary in the configured time zone.
func (s *Store) ResetsAt() time.Time {
	t := s.today()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, 1)
}

func (s *Store) today() time.Time {
	return s.now().In(s.loc)
}

func (s *Store) key(t time.Time) string {
	return domain.KeyPrefix + "quota:daily:" + t.Format("2006-01-02")
}
