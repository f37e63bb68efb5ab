package quota

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/district-tools/permitnav/internal/db"
)

// fakeKV mimics the atomic counter contract in memory.
type fakeKV struct {
	mu     sync.Mutex
	values map[string]int64
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]int64{}}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return []byte(strconv.FormatInt(v, 10)), nil
}

func (f *fakeKV) IncrIfBelow(_ context.Context, key string, ceiling int64, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values[key] >= ceiling {
		return false, nil
	}
	f.values[key]++
	return true, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestReserve_UpToCeiling(t *testing.T) {
	kv := newFakeKV()
	s := New(kv, time.UTC)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := s.Reserve(ctx, 3)
		if err != nil {
			t.Fatalf("Reserve %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("Reserve %d denied below ceiling", i)
		}
	}

	ok, err := s.Reserve(ctx, 3)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if ok {
		t.Error("Reserve admitted past the ceiling")
	}

	used, err := s.Used(ctx)
	if err != nil {
		t.Fatalf("Used: %v", err)
	}
	if used != 3 {
		t.Errorf("used = %d, want 3", used)
	}
}

func TestUsed_NoKeyMeansZero(t *testing.T) {
	s := New(newFakeKV(), time.UTC)
	used, err := s.Used(context.Background())
	if err != nil {
		t.Fatalf("Used: %v", err)
	}
	if used != 0 {
		t.Errorf("used = %d, want 0", used)
	}
}

func TestReserve_NewDayNewCounter(t *testing.T) {
	kv := newFakeKV()
	day1 := time.Date(2026, 8, 27, 23, 0, 0, 0, time.UTC)
	s := New(kv, time.UTC).WithClock(fixedClock(day1))

	ctx := context.Background()
	if ok, _ := s.Reserve(ctx, 1); !ok {
		t.Fatal("day 1 reserve denied")
	}
	if ok, _ := s.Reserve(ctx, 1); ok {
		t.Fatal("day 1 second reserve admitted past ceiling")
	}

	// Two hours later it is the next calendar day; the counter starts fresh.
	s.WithClock(fixedClock(day1.Add(2 * time.Hour)))
	if ok, _ := s.Reserve(ctx, 1); !ok {
		t.Fatal("day 2 reserve denied, counter did not roll over")
	}
}

func TestReserve_DayBoundaryUsesLocation(t *testing.T) {
	kv := newFakeKV()
	loc := time.FixedZone("EDT", -4*3600)
	// 03:00 UTC is still the previous day in EDT.
	at := time.Date(2026, 8, 28, 3, 0, 0, 0, time.UTC)
	s := New(kv, loc).WithClock(fixedClock(at))

	if ok, _ := s.Reserve(context.Background(), 1); !ok {
		t.Fatal("reserve denied")
	}

	kv.mu.Lock()
	defer kv.mu.Unlock()
	if _, ok := kv.values["permitnav:quota:daily:2026-08-27"]; !ok {
		t.Errorf("expected key for EDT calendar day 2026-08-27, got %v", keysOf(kv.values))
	}
}

func keysOf(m map[string]int64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestResetsAt_NextMidnightInZone(t *testing.T) {
	loc := time.FixedZone("EDT", -4*3600)
	at := time.Date(2026, 8, 28, 3, 0, 0, 0, time.UTC) // 23:00 on the 27th in EDT
	s := New(newFakeKV(), loc).WithClock(fixedClock(at))

	want := time.Date(2026, 8, 28, 0, 0, 0, 0, loc)
	if got := s.ResetsAt(); !got.Equal(want) {
		t.Errorf("ResetsAt = %v, want %v", got, want)
	}
}
