// Package events carries sharing-session lifecycle notifications from the
// session manager to external consumers (analytics, notification, consent
// logging). Delivery is fire-and-forget: a slow or absent consumer can never
// stall a session transition.
package events

import (
	"time"

	"proofshare/internal/share/models"
	id "proofshare/pkg/domain"
)

// Kind names a lifecycle transition.
type Kind string

const (
	KindSessionCreated   Kind = "session_created"
	KindSessionActivated Kind = "session_activated"
	KindSessionCompleted Kind = "session_completed"
	KindSessionRevoked   Kind = "session_revoked"
	KindSessionExpired   Kind = "session_expired"
)

// Event is emitted on every session transition. Keep it transport-agnostic
// so sinks can fan out without reaching back into the registry.
type Event struct {
	Kind         Kind
	SessionID    id.SessionID
	SessionType  models.SessionType
	RequesterDID id.DID
	HolderDID    id.DID
	Timestamp    time.Time
	Metadata     map[string]string
}

// FromSession builds an event snapshotting the session's participant fields.
func FromSession(kind Kind, session *models.SharingSession, at time.Time) Event {
	return Event{
		Kind:         kind,
		SessionID:    session.ID,
		SessionType:  session.Type,
		RequesterDID: session.RequesterDID,
		HolderDID:    session.HolderDID,
		Timestamp:    at,
	}
}
