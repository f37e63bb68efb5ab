package usage

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockCounter struct {
	used    int64
	err     error
	ceiling int64
	resets  time.Time
}

func (m *mockCounter) Used(_ context.Context) (int64, error) { return m.used, m.err }
func (m *mockCounter) Ceiling() int64                        { return m.ceiling }
func (m *mockCounter) ResetsAt() time.Time                   { return m.resets }

func TestToday(t *testing.T) {
	resets := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	svc := New(&mockCounter{used: 42, ceiling: 200, resets: resets})

	r, err := svc.Today(context.Background())
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if r.Used != 42 || r.Ceiling != 200 || r.Remaining != 158 {
		t.Errorf("unexpected report: %+v", r)
	}
	if !r.ResetsAt.Equal(resets) {
		t.Errorf("resets at %v, want %v", r.ResetsAt, resets)
	}
}

func TestToday_RemainingNeverNegative(t *testing.T) {
	svc := New(&mockCounter{used: 250, ceiling: 200})

	r, err := svc.Today(context.Background())
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if r.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", r.Remaining)
	}
}

func TestToday_UnlimitedCeiling(t *testing.T) {
	svc := New(&mockCounter{used: 10, ceiling: 0})

	r, err := svc.Today(context.Background())
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if r.Remaining != -1 {
		t.Errorf("remaining = %d, want -1 for unlimited", r.Remaining)
	}
}

func TestToday_CounterError(t *testing.T) {
	storeErr := errors.New("store down")
	svc := New(&mockCounter{err: storeErr})

	if _, err := svc.Today(context.Background()); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}
