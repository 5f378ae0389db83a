// Package analytics aggregates sharing-session lifecycle events. It is an
// external-facing consumer of the event bus: the session manager knows
// nothing about it.
package analytics

import (
	"sync"

	"proofshare/internal/share/events"
	"proofshare/internal/share/models"
	id "proofshare/pkg/domain"
)

// Totals summarizes lifecycle activity.
type Totals struct {
	ByKind      map[events.Kind]int
	ByRequester map[id.DID]int
	Consented   int
	Declined    int
}

// Sink is an append-only in-memory event log with running aggregates.
// Register Record on the event bus; query from admin or reporting surfaces.
type Sink struct {
	mu          sync.RWMutex
	bySession   map[id.SessionID][]events.Event
	byKind      map[events.Kind]int
	byRequester map[id.DID]int
	consented   int
	declined    int
}

// NewSink constructs an empty sink.
func NewSink() *Sink {
	return &Sink{
		bySession:   make(map[id.SessionID][]events.Event),
		byKind:      make(map[events.Kind]int),
		byRequester: make(map[id.DID]int),
	}
}

// Record ingests one event. Satisfies events.Handler.
func (s *Sink) Record(event events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bySession[event.SessionID] = append(s.bySession[event.SessionID], event)
	s.byKind[event.Kind]++
	if !event.RequesterDID.IsZero() {
		s.byRequester[event.RequesterDID]++
	}
	if event.Kind == events.KindSessionCompleted {
		if event.Metadata[models.MetaConsentGiven] == "false" {
			s.declined++
		} else {
			s.consented++
		}
	}
}

// ListBySession returns the recorded events for one session in arrival order.
func (s *Sink) ListBySession(sessionID id.SessionID) []events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]events.Event{}, s.bySession[sessionID]...)
}

// Snapshot returns a copy of the aggregates.
func (s *Sink) Snapshot() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := Totals{
		ByKind:      make(map[events.Kind]int, len(s.byKind)),
		ByRequester: make(map[id.DID]int, len(s.byRequester)),
		Consented:   s.consented,
		Declined:    s.declined,
	}
	for k, v := range s.byKind {
		t.ByKind[k] = v
	}
	for k, v := range s.byRequester {
		t.ByRequester[k] = v
	}
	return t
}

// Clear resets the sink. Intended for tests.
func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySession = make(map[id.SessionID][]events.Event)
	s.byKind = make(map[events.Kind]int)
	s.byRequester = make(map[id.DID]int)
	s.consented = 0
	s.declined = 0
}
