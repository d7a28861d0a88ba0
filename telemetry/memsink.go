package telemetry

import (
	"context"
	"sync"
)

// MemSink collects events in memory. Intended for tests and local debugging.
type MemSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

// NewMemSink creates an in-memory sink.
func NewMemSink() *MemSink {
	return &MemSink{}
}

func (s *MemSink) Write(ctx context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *MemSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Events returns a copy of everything written so far.
func (s *MemSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Closed reports whether Close was called.
func (s *MemSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
