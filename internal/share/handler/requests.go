package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"proofshare/internal/share/models"
	id "proofshare/pkg/domain"
	dErrors "proofshare/pkg/domain-errors"
)

// The envelope and request/response shapes are fixed and small, so parsing is
// explicit typed functions rather than a generic validation layer.

// CreateSessionRequest is the requester-side session creation body.
type CreateSessionRequest struct {
	Requester       PartyPayload             `json:"requester"`
	RequestedProofs []ProofDescriptorPayload `json:"requestedProofs"`
	Purpose         string                   `json:"purpose"`
	Type            string                   `json:"type"`
	TTLMillis       int64                    `json:"ttlMs,omitempty"`
	ExpiresAt       *time.Time               `json:"expiresAt,omitempty"`
}

// PartyPayload mirrors models.Party on the wire.
type PartyPayload struct {
	DID  string `json:"did"`
	Name string `json:"name"`
}

// ProofDescriptorPayload mirrors models.ProofDescriptor on the wire.
type ProofDescriptorPayload struct {
	Domain   string `json:"domain"`
	Required bool   `json:"required"`
}

// Parse validates the creation body into domain values.
func (r *CreateSessionRequest) Parse() (*models.ProofShareRequest, models.SessionType, time.Duration, error) {
	requesterDID, err := id.ParseDID(r.Requester.DID)
	if err != nil {
		return nil, "", 0, err
	}

	proofs := make([]models.ProofDescriptor, 0, len(r.RequestedProofs))
	for _, p := range r.RequestedProofs {
		proofs = append(proofs, models.ProofDescriptor{
			Domain:   models.Domain(p.Domain),
			Required: p.Required,
		})
	}

	request, err := models.NewProofShareRequest(
		models.Party{DID: requesterDID, Name: r.Requester.Name},
		proofs,
		r.Purpose,
		r.ExpiresAt,
	)
	if err != nil {
		return nil, "", 0, err
	}

	sessionType := models.SessionType(r.Type)
	if r.Type == "" {
		sessionType = models.SessionTypeQR
	}
	if !sessionType.IsValid() {
		return nil, "", 0, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("unsupported session type %q", r.Type))
	}

	return request, sessionType, time.Duration(r.TTLMillis) * time.Millisecond, nil
}

// ActivateSessionRequest is the holder-side activation body.
type ActivateSessionRequest struct {
	HolderDID string `json:"holderDid,omitempty"`
}

// Parse validates the optional holder DID.
func (r *ActivateSessionRequest) Parse() (id.DID, error) {
	if r.HolderDID == "" {
		return "", nil
	}
	return id.ParseDID(r.HolderDID)
}

// RespondRequest is the holder-side response body.
type RespondRequest struct {
	HolderDID string          `json:"holderDid"`
	Response  ResponsePayload `json:"response"`
}

// ResponsePayload mirrors models.ProofShareResponse on the wire.
type ResponsePayload struct {
	RequestID    string               `json:"requestId"`
	SharedProofs []SharedProofPayload `json:"sharedProofs"`
	ConsentGiven bool                 `json:"consentGiven"`
}

// SharedProofPayload mirrors models.SharedProof on the wire.
type SharedProofPayload struct {
	Domain string          `json:"domain"`
	Proof  json.RawMessage `json:"proof"`
}

// Parse validates the response body into domain values.
func (r *RespondRequest) Parse() (id.DID, *models.ProofShareResponse, error) {
	holder, err := id.ParseDID(r.HolderDID)
	if err != nil {
		return "", nil, err
	}

	requestID, err := id.ParseRequestID(r.Response.RequestID)
	if err != nil {
		return "", nil, err
	}

	proofs := make([]models.SharedProof, 0, len(r.Response.SharedProofs))
	for _, p := range r.Response.SharedProofs {
		proofs = append(proofs, models.SharedProof{
			Domain: models.Domain(p.Domain),
			Proof:  p.Proof,
		})
	}

	response, err := models.NewProofShareResponse(requestID, proofs, r.Response.ConsentGiven)
	if err != nil {
		return "", nil, err
	}
	return holder, response, nil
}

// RevokeSessionRequest is the requester-side revocation body.
type RevokeSessionRequest struct {
	Reason string `json:"reason,omitempty"`
}
