// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "proofshare/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a RequestID where a SessionID is expected.
type (
	SessionID uuid.UUID
	RequestID uuid.UUID
)

// NewSessionID allocates a collision-resistant session identifier.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewRequestID allocates a collision-resistant proof request identifier.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, scanned payloads).

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseUUID(s, "session ID")
	return SessionID(id), err
}

func ParseRequestID(s string) (RequestID, error) {
	id, err := parseUUID(s, "request ID")
	return RequestID(id), err
}

// String methods - for logging and URL composition.

func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText/UnmarshalText keep the wire form as the canonical UUID string.

func (id SessionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *SessionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id RequestID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *RequestID) UnmarshalText(b []byte) error {
	parsed, err := ParseRequestID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// DID is a decentralized identifier for a requester or holder.
// The zero value means "not yet known" (e.g. holder before activation).
type DID string

// ParseDID validates the basic did:<method>:<method-specific-id> shape.
// Method-specific resolution is out of scope; only structure is checked here.
func ParseDID(s string) (DID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "DID cannot be empty")
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] != "did" || parts[1] == "" || parts[2] == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid DID format")
	}
	return DID(s), nil
}

func (d DID) String() string { return string(d) }
func (d DID) IsZero() bool   { return d == "" }

// parseUUID is the shared validation logic.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
