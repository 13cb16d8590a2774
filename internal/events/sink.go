package events

import (
	"context"
	"sync"

	"github.com/veritrace/veritrace-backend/pkg/logger"
)

// Sink receives ledger events for external indexing. Emission is a
// notification, not state: the ledger commits regardless of sink outcome.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// LogSink writes events to the structured log. Default in development.
type LogSink struct {
	logg *logger.Logger
}

// NewLogSink returns a sink that records events as log entries.
func NewLogSink(logg *logger.Logger) *LogSink {
	return &LogSink{logg: logg}
}

func (s *LogSink) Emit(ctx context.Context, event Event) error {
	if s.logg == nil {
		return nil
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.EventID,
		"event_type": event.Type.String(),
		"event_data": string(event.Data),
	})
	s.logg.Info(ctx, "ledger.event")
	return nil
}

// MemorySink collects events in order. Test double.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// FailWith makes subsequent Emit calls return err.
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemorySink) Emit(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything emitted so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
