package models

import (
	"fmt"
	"strings"
	"time"

	id "proofshare/pkg/domain"
	dErrors "proofshare/pkg/domain-errors"
)

// Metadata keys recorded on sessions.
const (
	MetaRevocationReason  = "revocation_reason"
	MetaConsentGiven      = "consent_given"
	MetaDeviceFingerprint = "device_fingerprint"
)

// SharingSession is the unit the session manager owns. All mutation goes
// through the methods below so the state machine stays monotonic: once a
// terminal status (completed, revoked, expired) is reached no edge leaves it.
type SharingSession struct {
	ID           id.SessionID
	Type         SessionType
	Status       Status
	RequesterDID id.DID
	HolderDID    id.DID
	Request      *ProofShareRequest
	Response     *ProofShareResponse
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    time.Time
	Metadata     map[string]string
}

// NewSharingSession constructs a pending session with invariant checks.
func NewSharingSession(sessionID id.SessionID, sessionType SessionType, request *ProofShareRequest, now, expiresAt time.Time) (*SharingSession, error) {
	if sessionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session ID required")
	}
	if !sessionType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("unsupported session type: %s", sessionType))
	}
	if request == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "request required")
	}
	if !expiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "expiry must be after creation time")
	}
	return &SharingSession{
		ID:           sessionID,
		Type:         sessionType,
		Status:       StatusPending,
		RequesterDID: request.Requester.DID,
		Request:      request,
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    expiresAt,
		Metadata:     make(map[string]string),
	}, nil
}

// IsTerminal reports whether the session accepts no further transitions.
func (s *SharingSession) IsTerminal() bool { return s.Status.IsTerminal() }

// IsExpiredAt reports whether a non-terminal session is past its deadline.
// Terminal sessions never report expired; their state is already settled.
func (s *SharingSession) IsExpiredAt(now time.Time) bool {
	return !s.IsTerminal() && now.After(s.ExpiresAt)
}

// Activate moves pending -> active, recording the holder if known.
func (s *SharingSession) Activate(holder id.DID, now time.Time) error {
	if s.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot activate session in status %s", s.Status))
	}
	s.Status = StatusActive
	if !holder.IsZero() {
		s.HolderDID = holder
	}
	s.UpdatedAt = now
	return nil
}

// ValidateResponse checks the response against the embedded request without
// mutating the session: the request ID must match and every required domain
// must be covered.
func (s *SharingSession) ValidateResponse(response *ProofShareResponse) error {
	if response.RequestID != s.Request.ID {
		return dErrors.New(dErrors.CodeResponseMismatch,
			fmt.Sprintf("response references request %s, session holds request %s", response.RequestID, s.Request.ID))
	}
	if missing := response.MissingDomains(s.Request.RequiredDomains()); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, d := range missing {
			names[i] = string(d)
		}
		return dErrors.New(dErrors.CodeMissingRequiredProof,
			fmt.Sprintf("required proof domains missing from response: %s", strings.Join(names, ", ")))
	}
	return nil
}

// Complete moves pending|active -> completed, recording holder and response.
// Direct completion from pending (no activate round-trip) is a supported
// single-round-trip flow.
func (s *SharingSession) Complete(holder id.DID, response *ProofShareResponse, now time.Time) error {
	if s.Status != StatusPending && s.Status != StatusActive {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot complete session in status %s", s.Status))
	}
	if err := s.ValidateResponse(response); err != nil {
		return err
	}
	s.Status = StatusCompleted
	s.HolderDID = holder
	s.Response = response
	s.Metadata[MetaConsentGiven] = fmt.Sprintf("%t", response.ConsentGiven)
	s.UpdatedAt = now
	return nil
}

// Revoke moves any non-terminal state -> revoked, keeping the reason queryable.
func (s *SharingSession) Revoke(reason string, now time.Time) error {
	if s.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot revoke session in status %s", s.Status))
	}
	s.Status = StatusRevoked
	if reason != "" {
		s.Metadata[MetaRevocationReason] = reason
	}
	s.UpdatedAt = now
	return nil
}

// Expire moves a non-terminal session -> expired. Returns false when the
// session is already terminal so lazy reads and the sweep cannot double-expire.
func (s *SharingSession) Expire(now time.Time) bool {
	if s.IsTerminal() {
		return false
	}
	s.Status = StatusExpired
	s.UpdatedAt = now
	return true
}

// Clone returns a deep-enough copy for handing outside the store's lock.
// Request and Response are immutable after construction, so sharing those
// pointers is safe; Metadata is copied because the session mutates it.
func (s *SharingSession) Clone() *SharingSession {
	cp := *s
	cp.Metadata = make(map[string]string, len(s.Metadata))
	for k, v := range s.Metadata {
		cp.Metadata[k] = v
	}
	return &cp
}
