package models

import (
	"encoding/json"
	"fmt"
	"time"

	id "proofshare/pkg/domain"
	dErrors "proofshare/pkg/domain-errors"
)

// SessionType identifies the channel a sharing session is exchanged over.
type SessionType string

const (
	SessionTypeQR     SessionType = "qr"
	SessionTypeDID    SessionType = "did"
	SessionTypeDirect SessionType = "direct"
	SessionTypeAPI    SessionType = "api"
)

// IsValid reports whether the session type is one of the recognized channels.
func (t SessionType) IsValid() bool {
	switch t {
	case SessionTypeQR, SessionTypeDID, SessionTypeDirect, SessionTypeAPI:
		return true
	}
	return false
}

// Status is the lifecycle state of a sharing session.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusRevoked   Status = "revoked"
	StatusExpired   Status = "expired"
)

// IsTerminal reports whether no further transitions may leave this status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRevoked, StatusExpired:
		return true
	}
	return false
}

// Domain is a named category of disclosure a requester can ask for.
type Domain string

const (
	DomainAge        Domain = "age"
	DomainIncome     Domain = "income"
	DomainEmployment Domain = "employment"
	DomainEducation  Domain = "education"
	DomainResidency  Domain = "residency"
	DomainHealth     Domain = "health"
)

// IsValid reports whether the domain is one of the supported proof categories.
func (d Domain) IsValid() bool {
	switch d {
	case DomainAge, DomainIncome, DomainEmployment, DomainEducation, DomainResidency, DomainHealth:
		return true
	}
	return false
}

// Party identifies a protocol participant by DID plus a display name.
type Party struct {
	DID  id.DID `json:"did"`
	Name string `json:"name"`
}

// ProofDescriptor names one requested disclosure and whether it is mandatory
// for completion.
type ProofDescriptor struct {
	Domain   Domain `json:"domain"`
	Required bool   `json:"required"`
}

// SharedProof carries one disclosed proof. The payload is opaque to this
// protocol; cryptographic validity is checked by an external verifier.
type SharedProof struct {
	Domain Domain          `json:"domain"`
	Proof  json.RawMessage `json:"proof"`
}

// ProofShareRequest is the requester's disclosure ask. Immutable once created.
type ProofShareRequest struct {
	ID              id.RequestID      `json:"id"`
	Requester       Party             `json:"requester"`
	RequestedProofs []ProofDescriptor `json:"requestedProofs"`
	Purpose         string            `json:"purpose"`
	ExpiresAt       *time.Time        `json:"expiresAt,omitempty"`
}

// NewProofShareRequest constructs a validated request with a fresh ID.
func NewProofShareRequest(requester Party, proofs []ProofDescriptor, purpose string, expiresAt *time.Time) (*ProofShareRequest, error) {
	if requester.DID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "requester DID required")
	}
	if requester.Name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "requester name required")
	}
	if len(proofs) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "at least one requested proof required")
	}
	seen := make(map[Domain]struct{}, len(proofs))
	for _, p := range proofs {
		if !p.Domain.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("unsupported proof domain: %s", p.Domain))
		}
		if _, dup := seen[p.Domain]; dup {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("duplicate proof domain: %s", p.Domain))
		}
		seen[p.Domain] = struct{}{}
	}
	if purpose == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "purpose required")
	}
	return &ProofShareRequest{
		ID:              id.NewRequestID(),
		Requester:       requester,
		RequestedProofs: proofs,
		Purpose:         purpose,
		ExpiresAt:       expiresAt,
	}, nil
}

// RequiredDomains returns the domains the holder must cover for completion,
// in request order.
func (r *ProofShareRequest) RequiredDomains() []Domain {
	var required []Domain
	for _, p := range r.RequestedProofs {
		if p.Required {
			required = append(required, p.Domain)
		}
	}
	return required
}

// ProofShareResponse is the holder's answer to a ProofShareRequest.
type ProofShareResponse struct {
	RequestID    id.RequestID  `json:"requestId"`
	SharedProofs []SharedProof `json:"sharedProofs"`
	ConsentGiven bool          `json:"consentGiven"`
}

// NewProofShareResponse constructs a validated response.
func NewProofShareResponse(requestID id.RequestID, proofs []SharedProof, consentGiven bool) (*ProofShareResponse, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "request ID required")
	}
	if len(proofs) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "at least one shared proof required")
	}
	for _, p := range proofs {
		if !p.Domain.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("unsupported proof domain: %s", p.Domain))
		}
		if len(p.Proof) == 0 {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("empty proof payload for domain: %s", p.Domain))
		}
	}
	return &ProofShareResponse{
		RequestID:    requestID,
		SharedProofs: proofs,
		ConsentGiven: consentGiven,
	}, nil
}

// MissingDomains returns the required domains not covered by this response,
// preserving request order. Extra optional domains are allowed.
func (r *ProofShareResponse) MissingDomains(required []Domain) []Domain {
	shared := make(map[Domain]struct{}, len(r.SharedProofs))
	for _, p := range r.SharedProofs {
		shared[p.Domain] = struct{}{}
	}
	var missing []Domain
	for _, d := range required {
		if _, ok := shared[d]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}
