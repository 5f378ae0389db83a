// Package codec serializes the versioned exchange envelope carried between
// requester and holder. It computes integrity checksums, optionally signs the
// payload, and falls back to a compact session-reference envelope whenever
// the inline form would not fit the visual channel's size budget.
package codec

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"proofshare/internal/share/models"
	id "proofshare/pkg/domain"
	dErrors "proofshare/pkg/domain-errors"
)

// Version is the wire version of the exchange envelope.
const Version = "1.0"

// ExchangeType discriminates envelope payloads.
type ExchangeType string

const (
	TypeRequest    ExchangeType = "request"
	TypeResponse   ExchangeType = "response"
	TypeInvitation ExchangeType = "invitation"
)

// IsValid reports whether the exchange type is recognized.
func (t ExchangeType) IsValid() bool {
	switch t {
	case TypeRequest, TypeResponse, TypeInvitation:
		return true
	}
	return false
}

// Envelope is the wire structure exchanged between participants.
// Checksum covers the canonical serialization of Data only.
type Envelope struct {
	Version   string          `json:"version"`
	Type      ExchangeType    `json:"type"`
	Data      json.RawMessage `json:"data"`
	Checksum  string          `json:"checksum"`
	Signature string          `json:"signature,omitempty"`
}

// ReferencePayload is the invitation data used when the inline form exceeds
// the size budget: the holder resolves the full request out of band.
type ReferencePayload struct {
	SessionID          string `json:"sessionId"`
	ResolutionEndpoint string `json:"resolutionEndpoint"`
	PublicKey          string `json:"publicKey,omitempty"`
}

// EncodeResult is the outcome of encoding a request or response.
type EncodeResult struct {
	Envelope      *Envelope
	Raw           []byte
	ResolutionURL string
	Size          int
	Reference     bool
}

// DefaultMaxDataSize bounds the serialized envelope so a scanned QR stays
// readable. 2953 bytes is the byte capacity of a version-40 QR code at the
// lowest error-correction level.
const DefaultMaxDataSize = 2953

// Codec encodes and decodes exchange envelopes for one deployment.
type Codec struct {
	baseURL     string
	maxDataSize int
	signingKey  ed25519.PrivateKey
	verifyKey   ed25519.PublicKey
	qrLevel     ECLevel
	qrSize      int
}

// Option configures the Codec.
type Option func(*Codec)

// WithMaxDataSize overrides the size budget when greater than zero.
func WithMaxDataSize(size int) Option {
	return func(c *Codec) {
		if size > 0 {
			c.maxDataSize = size
		}
	}
}

// WithSigningKey enables signing with the given Ed25519 private key. The
// corresponding public key is used for verification on decode.
func WithSigningKey(key ed25519.PrivateKey) Option {
	return func(c *Codec) {
		if len(key) == ed25519.PrivateKeySize {
			c.signingKey = key
			c.verifyKey = key.Public().(ed25519.PublicKey)
		}
	}
}

// WithVerifyKey configures verification-only operation for parties that hold
// the requester's public key but never sign.
func WithVerifyKey(key ed25519.PublicKey) Option {
	return func(c *Codec) {
		if len(key) == ed25519.PublicKeySize {
			c.verifyKey = key
		}
	}
}

// WithErrorCorrection sets the QR error-correction level.
func WithErrorCorrection(level ECLevel) Option {
	return func(c *Codec) {
		if level.IsValid() {
			c.qrLevel = level
		}
	}
}

// WithQRSize sets the rendered QR image edge length in pixels.
func WithQRSize(pixels int) Option {
	return func(c *Codec) {
		if pixels > 0 {
			c.qrSize = pixels
		}
	}
}

// New constructs a Codec. baseURL anchors resolution URLs for the reference
// fallback and out-of-band sharing links.
func New(baseURL string, opts ...Option) *Codec {
	c := &Codec{
		baseURL:     strings.TrimRight(baseURL, "/"),
		maxDataSize: DefaultMaxDataSize,
		qrLevel:     ECLevelMedium,
		qrSize:      256,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SigningEnabled reports whether envelopes produced by this codec are signed.
func (c *Codec) SigningEnabled() bool { return c.signingKey != nil }

// EncodeRequest wraps a proof request for transmission to the holder.
func (c *Codec) EncodeRequest(request *models.ProofShareRequest, sessionID id.SessionID, sessionType models.SessionType) (*EncodeResult, error) {
	return c.encode(TypeRequest, request, sessionID, sessionType)
}

// EncodeRequestInline seals a request without the size budget. The resolution
// endpoint uses it: a holder following a reference URL must always receive the
// full payload, never another reference.
func (c *Codec) EncodeRequestInline(request *models.ProofShareRequest) (*Envelope, []byte, error) {
	return c.seal(TypeRequest, request)
}

// EncodeResponse wraps a proof response for transmission back to the requester.
func (c *Codec) EncodeResponse(response *models.ProofShareResponse, sessionID id.SessionID, sessionType models.SessionType) (*EncodeResult, error) {
	return c.encode(TypeResponse, response, sessionID, sessionType)
}

func (c *Codec) encode(exchangeType ExchangeType, payload any, sessionID id.SessionID, sessionType models.SessionType) (*EncodeResult, error) {
	resolutionURL := c.ResolutionURL(sessionType, sessionID)

	envelope, raw, err := c.seal(exchangeType, payload)
	if err != nil {
		return nil, err
	}

	// Inline-vs-reference is a pure function of serialized size against the
	// budget. Exactly at budget stays inline; one byte over falls back.
	if len(raw) <= c.maxDataSize {
		return &EncodeResult{
			Envelope:      envelope,
			Raw:           raw,
			ResolutionURL: resolutionURL,
			Size:          len(raw),
		}, nil
	}

	reference := ReferencePayload{
		SessionID:          sessionID.String(),
		ResolutionEndpoint: resolutionURL,
	}
	if c.verifyKey != nil {
		reference.PublicKey = base64.StdEncoding.EncodeToString(c.verifyKey)
	}
	refEnvelope, refRaw, err := c.seal(TypeInvitation, reference)
	if err != nil {
		return nil, err
	}
	return &EncodeResult{
		Envelope:      refEnvelope,
		Raw:           refRaw,
		ResolutionURL: resolutionURL,
		Size:          len(refRaw),
		Reference:     true,
	}, nil
}

// seal canonicalizes the payload and builds a checksummed, optionally signed
// envelope plus its serialized form.
func (c *Codec) seal(exchangeType ExchangeType, payload any) (*Envelope, []byte, error) {
	data, err := Canonicalize(payload)
	if err != nil {
		return nil, nil, err
	}
	envelope := &Envelope{
		Version:  Version,
		Type:     exchangeType,
		Data:     data,
		Checksum: checksum(data),
	}
	if c.signingKey != nil {
		envelope.Signature = base64.StdEncoding.EncodeToString(ed25519.Sign(c.signingKey, data))
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not serialize envelope")
	}
	return envelope, raw, nil
}

// Decode parses scanned bytes into a validated envelope. Structural failures
// surface as validation errors; checksum and signature failures as integrity
// errors carrying expected vs. actual context.
func (c *Codec) Decode(raw []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "malformed envelope")
	}
	if envelope.Version != Version {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("unsupported envelope version %q, expected %q", envelope.Version, Version))
	}
	if !envelope.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("unknown exchange type %q", envelope.Type))
	}
	if len(envelope.Data) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "envelope carries no data")
	}

	canonical, err := CanonicalizeRaw(envelope.Data)
	if err != nil {
		return nil, err
	}
	if actual := checksum(canonical); actual != envelope.Checksum {
		return nil, dErrors.New(dErrors.CodeIntegrity,
			fmt.Sprintf("checksum mismatch: envelope carries %s, payload hashes to %s", envelope.Checksum, actual))
	}

	if c.verifyKey != nil {
		if envelope.Signature == "" {
			return nil, dErrors.New(dErrors.CodeIntegrity, "envelope signature missing")
		}
		sig, err := base64.StdEncoding.DecodeString(envelope.Signature)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeIntegrity, "envelope signature is not valid base64")
		}
		if !ed25519.Verify(c.verifyKey, canonical, sig) {
			return nil, dErrors.New(dErrors.CodeIntegrity, "envelope signature verification failed")
		}
	}

	return &envelope, nil
}

// DecodeRequest parses an envelope's data as a proof request.
func DecodeRequest(envelope *Envelope) (*models.ProofShareRequest, error) {
	if envelope.Type != TypeRequest {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("expected request envelope, got %q", envelope.Type))
	}
	var request models.ProofShareRequest
	if err := json.Unmarshal(envelope.Data, &request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "malformed request payload")
	}
	if request.ID.IsNil() || request.Requester.DID.IsZero() || len(request.RequestedProofs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "request payload is incomplete")
	}
	return &request, nil
}

// DecodeResponse parses an envelope's data as a proof response.
func DecodeResponse(envelope *Envelope) (*models.ProofShareResponse, error) {
	if envelope.Type != TypeResponse {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("expected response envelope, got %q", envelope.Type))
	}
	var response models.ProofShareResponse
	if err := json.Unmarshal(envelope.Data, &response); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "malformed response payload")
	}
	if response.RequestID.IsNil() || len(response.SharedProofs) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "response payload is incomplete")
	}
	return &response, nil
}

// DecodeReference parses an invitation envelope's data as a session reference.
func DecodeReference(envelope *Envelope) (*ReferencePayload, error) {
	if envelope.Type != TypeInvitation {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("expected invitation envelope, got %q", envelope.Type))
	}
	var reference ReferencePayload
	if err := json.Unmarshal(envelope.Data, &reference); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "malformed reference payload")
	}
	if reference.SessionID == "" || reference.ResolutionEndpoint == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reference payload is incomplete")
	}
	return &reference, nil
}

// ResolutionURL composes the deterministic sharing link for a session:
// {baseUrl}/share/{type}/{sessionId}.
func (c *Codec) ResolutionURL(sessionType models.SessionType, sessionID id.SessionID) string {
	return fmt.Sprintf("%s/share/%s/%s", c.baseURL, sessionType, sessionID)
}

func checksum(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
