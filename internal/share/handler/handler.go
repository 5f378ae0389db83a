// Package handler is the thin HTTP layer over the session manager and codec.
// It delegates to domain services without embedding business logic so
// transport concerns remain isolated.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"proofshare/internal/platform/middleware"
	"proofshare/internal/share/codec"
	"proofshare/internal/share/metrics"
	"proofshare/internal/share/models"
	"proofshare/internal/share/store"
	"proofshare/internal/transport/http/respond"
	id "proofshare/pkg/domain"
	dErrors "proofshare/pkg/domain-errors"
)

// Manager defines the session operations the transport layer needs.
type Manager interface {
	CreateSession(ctx context.Context, request *models.ProofShareRequest, sessionType models.SessionType, ttl time.Duration) (*models.SharingSession, error)
	GetSession(ctx context.Context, sessionID id.SessionID) (*models.SharingSession, error)
	ActivateSession(ctx context.Context, sessionID id.SessionID, holder id.DID, userAgent string) (*models.SharingSession, error)
	RespondToSession(ctx context.Context, sessionID id.SessionID, holder id.DID, response *models.ProofShareResponse) (*models.SharingSession, error)
	RevokeSession(ctx context.Context, sessionID id.SessionID, reason string) error
	ListSessions(ctx context.Context, filter store.Filter) ([]*models.SharingSession, error)
}

// Handler handles sharing-session endpoints.
type Handler struct {
	manager Manager
	codec   *codec.Codec
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a new sharing Handler.
func New(manager Manager, c *codec.Codec, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		manager: manager,
		codec:   c,
		logger:  logger,
		metrics: m,
	}
}

// RegisterRequester mounts the requester-side routes. Callers wrap these in
// the bearer-auth middleware.
func (h *Handler) RegisterRequester(r chi.Router) {
	r.Post("/share/sessions", h.handleCreateSession)
	r.Get("/share/sessions", h.handleListSessions)
	r.Post("/share/sessions/{sessionID}/revoke", h.handleRevokeSession)
}

// RegisterHolder mounts the holder-side routes. These stay public: a scanned
// QR carries no requester credentials.
func (h *Handler) RegisterHolder(r chi.Router) {
	r.Get("/share/sessions/{sessionID}", h.handleGetSession)
	r.Get("/share/sessions/{sessionID}/qr", h.handleSessionQR)
	r.Post("/share/sessions/{sessionID}/activate", h.handleActivateSession)
	r.Post("/share/sessions/{sessionID}/respond", h.handleRespondToSession)
	r.Get("/share/{sessionType}/{sessionID}", h.handleResolve)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.WarnContext(ctx, "failed to decode create session request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		respond.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	request, sessionType, ttl, err := body.Parse()
	if err != nil {
		respond.WriteError(w, err)
		return
	}

	// The bearer token's subject is the requester's DID; a request claiming a
	// different identity is refused.
	if subject := middleware.GetRequesterDID(ctx); subject != "" && subject != request.Requester.DID.String() {
		respond.WriteError(w, dErrors.New(dErrors.CodeUnauthorized,
			"token subject does not match requester DID"))
		return
	}

	session, err := h.manager.CreateSession(ctx, request, sessionType, ttl)
	if err != nil {
		respond.WriteError(w, err)
		return
	}

	result, err := h.codec.EncodeRequest(session.Request, session.ID, session.Type)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode session request",
			"request_id", middleware.GetRequestID(ctx),
			"session_id", session.ID.String(),
			"error", err,
		)
		respond.WriteError(w, err)
		return
	}
	h.observeEncode(result)

	respond.WriteJSON(w, http.StatusCreated, CreateSessionResponse{
		Session:  toSessionResponse(session),
		Encoded:  toEncodedEnvelope(result),
		ShareURL: result.ResolutionURL,
	})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		respond.WriteError(w, err)
		return
	}

	session, err := h.manager.GetSession(r.Context(), sessionID)
	if err != nil {
		respond.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *Handler) handleSessionQR(w http.ResponseWriter, r *http.Request) {
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		respond.WriteError(w, err)
		return
	}

	session, err := h.manager.GetSession(r.Context(), sessionID)
	if err != nil {
		respond.WriteError(w, err)
		return
	}

	result, err := h.codec.EncodeRequest(session.Request, session.ID, session.Type)
	if err != nil {
		respond.WriteError(w, err)
		return
	}
	h.observeEncode(result)

	png, err := h.codec.RenderQR(result.Raw)
	if err != nil {
		respond.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) handleActivateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		respond.WriteError(w, err)
		return
	}

	var body ActivateSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respond.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}
	holder, err := body.Parse()
	if err != nil {
		respond.WriteError(w, err)
		return
	}

	session, err := h.manager.ActivateSession(ctx, sessionID, holder, r.UserAgent())
	if err != nil {
		respond.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *Handler) handleRespondToSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		respond.WriteError(w, err)
		return
	}

	var body RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	holder, response, err := body.Parse()
	if err != nil {
		respond.WriteError(w, err)
		return
	}

	session, err := h.manager.RespondToSession(ctx, sessionID, holder, response)
	if err != nil {
		respond.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *Handler) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		respond.WriteError(w, err)
		return
	}

	var body RevokeSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respond.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	if err := h.manager.RevokeSession(ctx, sessionID, body.Reason); err != nil {
		respond.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		respond.WriteError(w, err)
		return
	}

	sessions, err := h.manager.ListSessions(r.Context(), filter)
	if err != nil {
		respond.WriteError(w, err)
		return
	}

	views := make([]*SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, toSessionResponse(s))
	}
	respond.WriteJSON(w, http.StatusOK, ListSessionsResponse{Sessions: views, Count: len(views)})
}

// handleResolve backs the reference fallback: a holder that scanned an
// invitation envelope fetches the full request here. Resolution counts as the
// scan, so a pending session activates; an already-active session just serves
// the envelope again.
func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		respond.WriteError(w, err)
		return
	}
	sessionType := models.SessionType(chi.URLParam(r, "sessionType"))
	if !sessionType.IsValid() {
		respond.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unsupported session type in sharing URL"))
		return
	}

	session, err := h.manager.ActivateSession(ctx, sessionID, "", r.UserAgent())
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
			respond.WriteError(w, err)
			return
		}
		// Already past pending; resolution stays readable while non-expired.
		session, err = h.manager.GetSession(ctx, sessionID)
		if err != nil {
			respond.WriteError(w, err)
			return
		}
	}

	envelope, raw, err := h.codec.EncodeRequestInline(session.Request)
	if err != nil {
		respond.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, ResolveResponse{
		Envelope: envelope,
		Raw:      base64.StdEncoding.EncodeToString(raw),
	})
}

func (h *Handler) observeEncode(result *codec.EncodeResult) {
	if h.metrics == nil {
		return
	}
	h.metrics.ObserveEnvelopeSize(result.Size)
	if result.Reference {
		h.metrics.ReferenceFallbacks.Inc()
	}
}

func parseListFilter(r *http.Request) (store.Filter, error) {
	var filter store.Filter
	q := r.URL.Query()

	if v := q.Get("status"); v != "" {
		status := models.Status(v)
		switch status {
		case models.StatusPending, models.StatusActive, models.StatusCompleted, models.StatusRevoked, models.StatusExpired:
			filter.Status = &status
		default:
			return filter, dErrors.New(dErrors.CodeBadRequest, "unknown status filter")
		}
	}
	if v := q.Get("requesterDid"); v != "" {
		did, err := id.ParseDID(v)
		if err != nil {
			return filter, err
		}
		filter.RequesterDID = did
	}
	if v := q.Get("holderDid"); v != "" {
		did, err := id.ParseDID(v)
		if err != nil {
			return filter, err
		}
		filter.HolderDID = did
	}
	if v := q.Get("domain"); v != "" {
		domain := models.Domain(v)
		if !domain.IsValid() {
			return filter, dErrors.New(dErrors.CodeBadRequest, "unknown proof domain filter")
		}
		filter.Domain = &domain
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return filter, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}
