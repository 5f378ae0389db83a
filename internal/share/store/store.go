// Package store defines the persistence contract for sharing sessions.
//
// Error Contract:
// All store methods follow this pattern:
//   - Return sentinel.ErrNotFound when the requested session does not exist
//   - Return sentinel.ErrCapacity when a create would exceed the active limit
//   - Return sentinel.ErrExpired when a lazy-expiring mutation found the
//     session past its deadline (the store has already transitioned it)
//   - Return nil for successful operations
//
// The interface deliberately avoids in-process assumptions: every mutation is
// an atomic conditional update keyed by session ID, so a shared store with
// TTL support can replace the in-memory registry for horizontal scaling.
package store

import (
	"context"
	"time"

	"proofshare/internal/share/models"
	id "proofshare/pkg/domain"
)

// Filter narrows List results. Zero-value fields are ignored.
type Filter struct {
	Status       *models.Status
	RequesterDID id.DID
	HolderDID    id.DID
	Domain       *models.Domain
	Limit        int
}

// Store is the session registry. Implementations must serialize all
// state-changing operations per session ID at minimum.
type Store interface {
	// Create inserts a new session. When maxActive > 0 and the number of
	// non-terminal sessions is already at or above it, the insert is refused
	// atomically with sentinel.ErrCapacity.
	Create(ctx context.Context, session *models.SharingSession, maxActive int) error

	// FindByID returns a copy of the session. A non-terminal session past its
	// deadline is transitioned to expired under the same lock; the returned
	// bool reports whether this call performed that transition.
	FindByID(ctx context.Context, sessionID id.SessionID, now time.Time) (*models.SharingSession, bool, error)

	// Update applies a state transition as a single read-modify-write. When
	// lazyExpire is set and the session is past its deadline, the store
	// expires it instead and returns the expired copy with sentinel.ErrExpired.
	Update(ctx context.Context, sessionID id.SessionID, now time.Time, lazyExpire bool, apply func(*models.SharingSession) error) (*models.SharingSession, error)

	// List returns copies of matching sessions ordered newest-created-first.
	List(ctx context.Context, filter Filter) ([]*models.SharingSession, error)

	// ExpireDue sweeps every non-terminal session past its deadline to
	// expired and returns copies of the sessions it transitioned.
	ExpireDue(ctx context.Context, now time.Time) ([]*models.SharingSession, error)

	// CountNonTerminal reports how many sessions can still transition.
	CountNonTerminal(ctx context.Context) (int, error)
}
