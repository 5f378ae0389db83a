package handler

import (
	"encoding/base64"
	"time"

	"proofshare/internal/share/codec"
	"proofshare/internal/share/models"
)

// SessionResponse is the wire view of a sharing session.
type SessionResponse struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Status       string            `json:"status"`
	RequesterDID string            `json:"requesterDid"`
	HolderDID    string            `json:"holderDid,omitempty"`
	Request      *RequestView      `json:"request"`
	Response     *ResponseView     `json:"response,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	ExpiresAt    time.Time         `json:"expiresAt"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// RequestView is the wire view of an embedded proof request.
type RequestView struct {
	ID              string                   `json:"id"`
	Requester       PartyPayload             `json:"requester"`
	RequestedProofs []ProofDescriptorPayload `json:"requestedProofs"`
	Purpose         string                   `json:"purpose"`
	ExpiresAt       *time.Time               `json:"expiresAt,omitempty"`
}

// ResponseView is the wire view of a stored proof response.
type ResponseView struct {
	RequestID     string   `json:"requestId"`
	SharedDomains []string `json:"sharedDomains"`
	ConsentGiven  bool     `json:"consentGiven"`
}

// EncodedEnvelope carries an encode result to the requester.
type EncodedEnvelope struct {
	Envelope      *codec.Envelope `json:"envelope"`
	Raw           string          `json:"raw"` // base64 of the serialized envelope
	ResolutionURL string          `json:"resolutionUrl"`
	SizeBytes     int             `json:"sizeBytes"`
	Reference     bool            `json:"reference"`
}

// CreateSessionResponse is returned from session creation.
type CreateSessionResponse struct {
	Session  *SessionResponse `json:"session"`
	Encoded  *EncodedEnvelope `json:"encoded"`
	ShareURL string           `json:"shareUrl"`
}

// ListSessionsResponse wraps a session listing.
type ListSessionsResponse struct {
	Sessions []*SessionResponse `json:"sessions"`
	Count    int                `json:"count"`
}

// ResolveResponse is served from the resolution endpoint backing the
// reference fallback.
type ResolveResponse struct {
	Envelope *codec.Envelope `json:"envelope"`
	Raw      string          `json:"raw"`
}

func toSessionResponse(session *models.SharingSession) *SessionResponse {
	resp := &SessionResponse{
		ID:           session.ID.String(),
		Type:         string(session.Type),
		Status:       string(session.Status),
		RequesterDID: session.RequesterDID.String(),
		HolderDID:    session.HolderDID.String(),
		Request:      toRequestView(session.Request),
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
		ExpiresAt:    session.ExpiresAt,
	}
	if len(session.Metadata) > 0 {
		resp.Metadata = session.Metadata
	}
	if session.Response != nil {
		resp.Response = toResponseView(session.Response)
	}
	return resp
}

func toRequestView(request *models.ProofShareRequest) *RequestView {
	proofs := make([]ProofDescriptorPayload, 0, len(request.RequestedProofs))
	for _, p := range request.RequestedProofs {
		proofs = append(proofs, ProofDescriptorPayload{
			Domain:   string(p.Domain),
			Required: p.Required,
		})
	}
	return &RequestView{
		ID:              request.ID.String(),
		Requester:       PartyPayload{DID: request.Requester.DID.String(), Name: request.Requester.Name},
		RequestedProofs: proofs,
		Purpose:         request.Purpose,
		ExpiresAt:       request.ExpiresAt,
	}
}

// toResponseView exposes which domains were shared without echoing proof
// payloads back over the query surface.
func toResponseView(response *models.ProofShareResponse) *ResponseView {
	domains := make([]string, 0, len(response.SharedProofs))
	for _, p := range response.SharedProofs {
		domains = append(domains, string(p.Domain))
	}
	return &ResponseView{
		RequestID:     response.RequestID.String(),
		SharedDomains: domains,
		ConsentGiven:  response.ConsentGiven,
	}
}

func toEncodedEnvelope(result *codec.EncodeResult) *EncodedEnvelope {
	return &EncodedEnvelope{
		Envelope:      result.Envelope,
		Raw:           base64.StdEncoding.EncodeToString(result.Raw),
		ResolutionURL: result.ResolutionURL,
		SizeBytes:     result.Size,
		Reference:     result.Reference,
	}
}
