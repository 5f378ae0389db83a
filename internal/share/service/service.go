// Package service implements the session manager: the single owner of
// sharing-session state. It orchestrates the lifecycle state machine,
// validates holder responses against the originating request, and emits
// lifecycle events for external consumers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"proofshare/internal/sentinel"
	"proofshare/internal/share/device"
	"proofshare/internal/share/events"
	"proofshare/internal/share/metrics"
	"proofshare/internal/share/models"
	"proofshare/internal/share/store"
	"proofshare/internal/share/tracer"
	id "proofshare/pkg/domain"
	dErrors "proofshare/pkg/domain-errors"
)

const (
	defaultSessionTTL = 15 * time.Minute
	defaultMaxActive  = 1000
)

// Clock supplies the current time. Injected for deterministic expiry tests.
type Clock func() time.Time

// Publisher receives lifecycle events. Implementations must never block.
type Publisher interface {
	Publish(events.Event)
}

// Service is the session manager. All session mutation flows through it.
type Service struct {
	store     store.Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	devices   *device.Service

	clock      Clock
	defaultTTL time.Duration
	maxActive  int
}

// Option configures the Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithDefaultTTL sets the session lifetime used when a create supplies none.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithMaxActiveSessions caps concurrent non-terminal sessions. Zero or
// negative means unlimited.
func WithMaxActiveSessions(max int) Option {
	return func(s *Service) {
		s.maxActive = max
	}
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer for the service.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithDeviceService enables scanner device fingerprinting on activation.
func WithDeviceService(d *device.Service) Option {
	return func(s *Service) {
		s.devices = d
	}
}

// New constructs a session manager around the given registry and publisher.
func New(sessionStore store.Store, publisher Publisher, logger *slog.Logger, opts ...Option) (*Service, error) {
	if sessionStore == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("event publisher is required")
	}
	svc := &Service{
		store:      sessionStore,
		publisher:  publisher,
		logger:     logger,
		tracer:     tracer.NewNoop(),
		clock:      time.Now,
		defaultTTL: defaultSessionTTL,
		maxActive:  defaultMaxActive,
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// CreateSession registers a pending session for the given request. When ttl
// is zero or negative the configured default applies.
func (s *Service) CreateSession(ctx context.Context, request *models.ProofShareRequest, sessionType models.SessionType, ttl time.Duration) (session *models.SharingSession, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSessionCreate,
		tracer.String(tracer.AttrSessionType, string(sessionType)),
	)
	defer func() { span.End(err) }()
	defer s.observeLatency("create")()

	if request == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request required")
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := s.clock()
	session, err = models.NewSharingSession(id.NewSessionID(), sessionType, request, now, now.Add(ttl))
	if err != nil {
		return nil, err
	}

	if err = s.store.Create(ctx, session, s.maxActive); err != nil {
		return nil, s.translateStoreError(err)
	}

	span.SetAttributes(
		tracer.String(tracer.AttrSessionID, session.ID.String()),
		tracer.Int(tracer.AttrProofCount, len(request.RequestedProofs)),
	)
	s.logger.InfoContext(ctx, "sharing session created",
		"session_id", session.ID.String(),
		"session_type", string(sessionType),
		"requester_did", session.RequesterDID.String(),
		"expires_at", session.ExpiresAt,
	)

	s.emit(events.FromSession(events.KindSessionCreated, session, now))
	if s.metrics != nil {
		s.metrics.IncrementCreated(string(sessionType))
	}
	s.refreshActiveGauge(ctx)
	return session, nil
}

// GetSession returns the session when it is still pending, active, or settled
// in a queryable terminal state. A session past its deadline is transitioned
// to expired atomically with the read and surfaces as not-found; the stored
// record keeps the expired status for audit queries via ListSessions.
func (s *Service) GetSession(ctx context.Context, sessionID id.SessionID) (session *models.SharingSession, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSessionGet,
		tracer.String(tracer.AttrSessionID, sessionID.String()),
	)
	defer func() { span.End(err) }()
	defer s.observeLatency("get")()

	session, expiredNow, err := s.store.FindByID(ctx, sessionID, s.clock())
	if err != nil {
		return nil, s.translateStoreError(err)
	}
	if expiredNow {
		span.SetAttributes(tracer.Bool(tracer.AttrExpiredNow, true))
		s.recordExpiry(ctx, session)
	}
	if session.Status == models.StatusExpired {
		return nil, dErrors.New(dErrors.CodeNotFound,
			fmt.Sprintf("session %s has expired", sessionID))
	}
	return session, nil
}

// ActivateSession moves a pending session to active when the holder resolves
// or scans it. The holder DID is recorded when provided; the scanning
// client's device fingerprint lands in session metadata for analytics.
func (s *Service) ActivateSession(ctx context.Context, sessionID id.SessionID, holder id.DID, userAgent string) (session *models.SharingSession, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSessionActivate,
		tracer.String(tracer.AttrSessionID, sessionID.String()),
	)
	defer func() { span.End(err) }()
	defer s.observeLatency("activate")()

	now := s.clock()
	fingerprint := ""
	if s.devices != nil {
		fingerprint = s.devices.ComputeFingerprint(userAgent)
	}

	session, err = s.store.Update(ctx, sessionID, now, true, func(current *models.SharingSession) error {
		if err := current.Activate(holder, now); err != nil {
			return err
		}
		if fingerprint != "" {
			current.Metadata[models.MetaDeviceFingerprint] = fingerprint
		}
		return nil
	})
	if err != nil {
		return nil, s.handleUpdateError(ctx, session, err)
	}

	s.logger.InfoContext(ctx, "sharing session activated",
		"session_id", sessionID.String(),
		"holder_did", session.HolderDID.String(),
	)
	s.emit(events.FromSession(events.KindSessionActivated, session, now))
	if s.metrics != nil {
		s.metrics.IncrementActivated(string(session.Type))
	}
	return session, nil
}

// RespondToSession completes a pending or active session with the holder's
// response. Completion directly from pending (no activate round-trip) is a
// supported single-round-trip flow. The response must reference the session's
// request and cover every required proof domain.
func (s *Service) RespondToSession(ctx context.Context, sessionID id.SessionID, holder id.DID, response *models.ProofShareResponse) (session *models.SharingSession, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSessionRespond,
		tracer.String(tracer.AttrSessionID, sessionID.String()),
	)
	defer func() { span.End(err) }()
	defer s.observeLatency("respond")()

	if holder.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "holder DID required")
	}
	if response == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "response required")
	}

	now := s.clock()
	session, err = s.store.Update(ctx, sessionID, now, true, func(current *models.SharingSession) error {
		return current.Complete(holder, response, now)
	})
	if err != nil {
		return nil, s.handleUpdateError(ctx, session, err)
	}

	s.logger.InfoContext(ctx, "sharing session completed",
		"session_id", sessionID.String(),
		"holder_did", holder.String(),
		"consent_given", response.ConsentGiven,
		"shared_domains", len(response.SharedProofs),
	)

	event := events.FromSession(events.KindSessionCompleted, session, now)
	event.Metadata = map[string]string{
		models.MetaConsentGiven: fmt.Sprintf("%t", response.ConsentGiven),
	}
	s.emit(event)
	if s.metrics != nil {
		s.metrics.IncrementCompleted(string(session.Type))
	}
	s.refreshActiveGauge(ctx)
	return session, nil
}

// RevokeSession terminates any non-terminal session. Unlike reads and the
// other transitions, revocation does not lazily re-check expiry first: an
// expired-but-unswept session revokes as revoked, so the requester's explicit
// decision wins over a deadline nobody has observed yet.
func (s *Service) RevokeSession(ctx context.Context, sessionID id.SessionID, reason string) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSessionRevoke,
		tracer.String(tracer.AttrSessionID, sessionID.String()),
	)
	defer func() { span.End(err) }()
	defer s.observeLatency("revoke")()

	now := s.clock()
	session, err := s.store.Update(ctx, sessionID, now, false, func(current *models.SharingSession) error {
		return current.Revoke(reason, now)
	})
	if err != nil {
		return s.translateStoreError(err)
	}

	s.logger.InfoContext(ctx, "sharing session revoked",
		"session_id", sessionID.String(),
		"reason", reason,
	)

	event := events.FromSession(events.KindSessionRevoked, session, now)
	if reason != "" {
		event.Metadata = map[string]string{models.MetaRevocationReason: reason}
	}
	s.emit(event)
	if s.metrics != nil {
		s.metrics.IncrementRevoked(string(session.Type))
	}
	s.refreshActiveGauge(ctx)
	return nil
}

// ListSessions is a pure query: no lazy expiry, terminal sessions included.
// Results come back newest-created-first.
func (s *Service) ListSessions(ctx context.Context, filter store.Filter) (sessions []*models.SharingSession, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSessionList)
	defer func() { span.End(err) }()
	defer s.observeLatency("list")()

	sessions, err = s.store.List(ctx, filter)
	if err != nil {
		return nil, s.translateStoreError(err)
	}
	return sessions, nil
}

// Cleanup sweeps every non-terminal session past its deadline to expired and
// reports how many were transitioned. The background worker calls this on a
// fixed interval; it shares the store's locking discipline with the request
// paths, so a sweep can never resurrect or double-expire a session.
func (s *Service) Cleanup(ctx context.Context) (count int, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSessionCleanup)
	defer func() { span.End(err) }()
	defer s.observeLatency("cleanup")()

	expired, err := s.store.ExpireDue(ctx, s.clock())
	if err != nil {
		return 0, s.translateStoreError(err)
	}
	for _, session := range expired {
		s.recordExpiry(ctx, session)
	}
	span.SetAttributes(tracer.Int(tracer.AttrSweptCount, len(expired)))
	if len(expired) > 0 {
		s.refreshActiveGauge(ctx)
	}
	return len(expired), nil
}

// recordExpiry emits the expired event and metrics for a session the store
// just transitioned. The store's conditional transition guarantees this runs
// at most once per session.
func (s *Service) recordExpiry(ctx context.Context, session *models.SharingSession) {
	s.logger.InfoContext(ctx, "sharing session expired",
		"session_id", session.ID.String(),
		"expired_at", session.ExpiresAt,
	)
	s.emit(events.FromSession(events.KindSessionExpired, session, session.UpdatedAt))
	if s.metrics != nil {
		s.metrics.IncrementExpired(string(session.Type))
	}
}

// handleUpdateError deals with the lazy-expiry outcome of store.Update: when
// the store expired the session instead of applying the transition, the
// expiry is recorded and the caller sees not-found.
func (s *Service) handleUpdateError(ctx context.Context, session *models.SharingSession, err error) error {
	if errors.Is(err, sentinel.ErrExpired) && session != nil {
		s.recordExpiry(ctx, session)
		s.refreshActiveGauge(ctx)
		return dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("session %s has expired", session.ID))
	}
	return s.translateStoreError(err)
}

// translateStoreError converts sentinel errors from the store into domain
// errors exactly once. Domain errors produced inside transition callbacks
// pass through with their code preserved.
func (s *Service) translateStoreError(err error) error {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "session not found")
	case errors.Is(err, sentinel.ErrExpired):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "session has expired")
	case errors.Is(err, sentinel.ErrCapacity):
		return dErrors.Wrap(err, dErrors.CodeCapacityExceeded,
			fmt.Sprintf("active session limit of %d reached", s.maxActive))
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "session already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "session store failure")
	}
}

func (s *Service) emit(event events.Event) {
	s.publisher.Publish(event)
}

func (s *Service) refreshActiveGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	count, err := s.store.CountNonTerminal(ctx)
	if err != nil {
		return
	}
	s.metrics.SetActiveSessions(count)
}

func (s *Service) observeLatency(operation string) func() {
	if s.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		s.metrics.ObserveOperationLatency(operation, time.Since(start).Seconds())
	}
}
