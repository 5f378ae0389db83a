package service

//go:generate mockgen -destination=mocks/mocks.go -package=mocks proofshare/internal/share/store Store

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"proofshare/internal/share/device"
	"proofshare/internal/share/events"
	"proofshare/internal/share/models"
	"proofshare/internal/share/store"
	"proofshare/pkg/testutil"
)

func deviceServiceEnabled() *device.Service {
	return device.NewService(true)
}

// capturePublisher records every emitted event synchronously so tests can
// assert on exact event sequences without channel races.
type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) all() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *capturePublisher) ofKind(kind events.Kind) []events.Event {
	var matched []events.Event
	for _, e := range p.all() {
		if e.Kind == kind {
			matched = append(matched, e)
		}
	}
	return matched
}

type ServiceSuite struct {
	suite.Suite
	store     *store.InMemoryStore
	publisher *capturePublisher
	now       time.Time
	service   *Service
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.publisher = &capturePublisher{}
	s.now = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service, _ = New(s.store, s.publisher, logger,
		WithClock(func() time.Time { return s.now }),
		WithDefaultTTL(15*time.Minute),
		WithMaxActiveSessions(100),
	)
}

// advance moves the fake clock forward.
func (s *ServiceSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

func (s *ServiceSuite) newRequest() *models.ProofShareRequest {
	return testutil.NewRequestBuilder().
		WithProofs(
			models.ProofDescriptor{Domain: models.DomainAge, Required: true},
			models.ProofDescriptor{Domain: models.DomainIncome, Required: false},
		).
		Build()
}

func (s *ServiceSuite) fullResponse(session *models.SharingSession) *models.ProofShareResponse {
	return testutil.NewResponseBuilder(session.Request).Build()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
