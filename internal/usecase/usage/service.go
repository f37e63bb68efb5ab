// Package usage reports today's quota consumption.
package usage

import (
	"context"
	"time"
)

// Counter is the slice of the usage guard the report needs.
type Counter interface {
	Used(ctx context.Context) (int64, error)
	Ceiling() int64
	ResetsAt() time.Time
}

// Report is a point-in-time snapshot of the daily quota.
type Report struct {
	Used      int64
	Ceiling   int64
	Remaining int64
	ResetsAt  time.Time
}

// Service builds quota reports.
type Service struct {
	counter Counter
}

// New creates a usage service.
func New(counter Counter) *Service {
	return &Service{counter: counter}
}

// ResetsAt returns when today's counter rolls over.
func (s *Service) ResetsAt() time.Time { return s.counter.ResetsAt() }

// Today returns the current day's usage. With no ceiling configured,
// Remaining is reported as -1.
func (s *Service) Today(ctx context.Context) (Report, error) {
	used, err := s.counter.Used(ctx)
	if err != nil {
		return Report{}, err
	}
	ceiling := s.counter.Ceiling()
	remaining := int64(-1)
	if ceiling > 0 {
		remaining = ceiling - used
		if remaining < 0 {
			remaining = 0
		}
	}
	return Report{
		Used:      used,
		Ceiling:   ceiling,
		Remaining: remaining,
		ResetsAt:  s.counter.ResetsAt(),
	}, nil
}
