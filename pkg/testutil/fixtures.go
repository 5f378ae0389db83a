package testutil

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"proofshare/internal/share/models"
	id "proofshare/pkg/domain"
)

// TestIDs provides convenient pre-generated IDs for tests.
// Use these for deterministic test data.
var TestIDs = struct {
	SessionID1 id.SessionID
	SessionID2 id.SessionID
	RequestID1 id.RequestID
	RequestID2 id.RequestID
}{
	SessionID1: id.SessionID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	SessionID2: id.SessionID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	RequestID1: id.RequestID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	RequestID2: id.RequestID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000002")),
}

// TestDIDs provides well-formed participant DIDs for tests.
var TestDIDs = struct {
	Requester id.DID
	Holder    id.DID
	Other     id.DID
}{
	Requester: id.DID("did:web:verifier.example.com"),
	Holder:    id.DID("did:example:holder"),
	Other:     id.DID("did:example:bystander"),
}

// RequestBuilder provides a fluent interface for building test requests.
type RequestBuilder struct {
	requester Party
	proofs    []models.ProofDescriptor
	purpose   string
	expiresAt *time.Time
	requestID *id.RequestID
}

// Party mirrors models.Party so builders read naturally at call sites.
type Party = models.Party

// NewRequestBuilder creates a new RequestBuilder with sensible defaults:
// one required age proof asked for by the standard test requester.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{
		requester: Party{DID: TestDIDs.Requester, Name: "Test Verifier"},
		proofs: []models.ProofDescriptor{
			{Domain: models.DomainAge, Required: true},
		},
		purpose: "age verification",
	}
}

func (b *RequestBuilder) WithRequester(did id.DID, name string) *RequestBuilder {
	b.requester = Party{DID: did, Name: name}
	return b
}

func (b *RequestBuilder) WithProofs(proofs ...models.ProofDescriptor) *RequestBuilder {
	b.proofs = proofs
	return b
}

func (b *RequestBuilder) WithPurpose(purpose string) *RequestBuilder {
	b.purpose = purpose
	return b
}

func (b *RequestBuilder) ExpiresAt(t time.Time) *RequestBuilder {
	b.expiresAt = &t
	return b
}

// WithID pins the generated request ID. Useful when a response fixture must
// reference the same request.
func (b *RequestBuilder) WithID(requestID id.RequestID) *RequestBuilder {
	b.requestID = &requestID
	return b
}

func (b *RequestBuilder) Build() *models.ProofShareRequest {
	request, err := models.NewProofShareRequest(b.requester, b.proofs, b.purpose, b.expiresAt)
	if err != nil {
		panic(fmt.Sprintf("RequestBuilder: %v", err))
	}
	if b.requestID != nil {
		request.ID = *b.requestID
	}
	return request
}

// ResponseBuilder provides a fluent interface for building test responses.
type ResponseBuilder struct {
	requestID    id.RequestID
	proofs       []models.SharedProof
	consentGiven bool
}

// NewResponseBuilder creates a ResponseBuilder answering the given request
// with one proof per requested domain and consent given.
func NewResponseBuilder(request *models.ProofShareRequest) *ResponseBuilder {
	proofs := make([]models.SharedProof, 0, len(request.RequestedProofs))
	for _, p := range request.RequestedProofs {
		proofs = append(proofs, SharedProofFor(p.Domain))
	}
	return &ResponseBuilder{
		requestID:    request.ID,
		proofs:       proofs,
		consentGiven: true,
	}
}

func (b *ResponseBuilder) WithProofs(proofs ...models.SharedProof) *ResponseBuilder {
	b.proofs = proofs
	return b
}

func (b *ResponseBuilder) ConsentGiven(given bool) *ResponseBuilder {
	b.consentGiven = given
	return b
}

func (b *ResponseBuilder) WithRequestID(requestID id.RequestID) *ResponseBuilder {
	b.requestID = requestID
	return b
}

func (b *ResponseBuilder) Build() *models.ProofShareResponse {
	response, err := models.NewProofShareResponse(b.requestID, b.proofs, b.consentGiven)
	if err != nil {
		panic(fmt.Sprintf("ResponseBuilder: %v", err))
	}
	return response
}

// SessionBuilder provides a fluent interface for building test sessions.
type SessionBuilder struct {
	sessionID   id.SessionID
	sessionType models.SessionType
	request     *models.ProofShareRequest
	now         time.Time
	ttl         time.Duration
}

// NewSessionBuilder creates a SessionBuilder with sensible defaults: a fresh
// QR session around a default request, created now with a 15 minute TTL.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{
		sessionID:   id.NewSessionID(),
		sessionType: models.SessionTypeQR,
		request:     NewRequestBuilder().Build(),
		now:         time.Now(),
		ttl:         15 * time.Minute,
	}
}

func (b *SessionBuilder) WithID(sessionID id.SessionID) *SessionBuilder {
	b.sessionID = sessionID
	return b
}

func (b *SessionBuilder) WithType(sessionType models.SessionType) *SessionBuilder {
	b.sessionType = sessionType
	return b
}

func (b *SessionBuilder) WithRequest(request *models.ProofShareRequest) *SessionBuilder {
	b.request = request
	return b
}

func (b *SessionBuilder) CreatedAt(now time.Time) *SessionBuilder {
	b.now = now
	return b
}

func (b *SessionBuilder) WithTTL(ttl time.Duration) *SessionBuilder {
	b.ttl = ttl
	return b
}

func (b *SessionBuilder) Build() *models.SharingSession {
	session, err := models.NewSharingSession(b.sessionID, b.sessionType, b.request, b.now, b.now.Add(b.ttl))
	if err != nil {
		panic(fmt.Sprintf("SessionBuilder: %v", err))
	}
	return session
}

// SharedProofFor returns an opaque proof payload for the given domain.
func SharedProofFor(domain models.Domain) models.SharedProof {
	return models.SharedProof{
		Domain: domain,
		Proof:  json.RawMessage(fmt.Sprintf(`{"domain":%q,"attestation":"test"}`, domain)),
	}
}

// NewTestSession creates a pending QR session with the given ID around a
// default request.
func NewTestSession(sessionID id.SessionID) *models.SharingSession {
	return NewSessionBuilder().WithID(sessionID).Build()
}
