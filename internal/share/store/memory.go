package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"proofshare/internal/sentinel"
	"proofshare/internal/share/models"
	id "proofshare/pkg/domain"
)

// InMemoryStore keeps sessions in a mutex-guarded map. It is the registry
// for a single server process; terminal sessions stay queryable for audit
// until the process restarts.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.SharingSession
}

// NewInMemoryStore constructs an empty registry.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[id.SessionID]*models.SharingSession)}
}

func (s *InMemoryStore) Create(_ context.Context, session *models.SharingSession, maxActive int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists: %w", session.ID, sentinel.ErrConflict)
	}
	if maxActive > 0 && s.countNonTerminalLocked() >= maxActive {
		return fmt.Errorf("active session limit %d reached: %w", maxActive, sentinel.ErrCapacity)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, sessionID id.SessionID, now time.Time) (*models.SharingSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, false, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if session.IsExpiredAt(now) {
		session.Expire(now)
		return session.Clone(), true, nil
	}
	return session.Clone(), false, nil
}

func (s *InMemoryStore) Update(_ context.Context, sessionID id.SessionID, now time.Time, lazyExpire bool, apply func(*models.SharingSession) error) (*models.SharingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if lazyExpire && session.IsExpiredAt(now) {
		session.Expire(now)
		return session.Clone(), fmt.Errorf("session %s past deadline: %w", sessionID, sentinel.ErrExpired)
	}
	if err := apply(session); err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]*models.SharingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.SharingSession, 0)
	for _, session := range s.sessions {
		if matches(session, filter) {
			matched = append(matched, session.Clone())
		}
	}

	// Newest-created-first; ID as tie-break keeps ordering deterministic.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *InMemoryStore) ExpireDue(_ context.Context, now time.Time) ([]*models.SharingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*models.SharingSession
	for _, session := range s.sessions {
		if session.IsExpiredAt(now) && session.Expire(now) {
			expired = append(expired, session.Clone())
		}
	}
	return expired, nil
}

func (s *InMemoryStore) CountNonTerminal(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countNonTerminalLocked(), nil
}

func (s *InMemoryStore) countNonTerminalLocked() int {
	count := 0
	for _, session := range s.sessions {
		if !session.IsTerminal() {
			count++
		}
	}
	return count
}

func matches(session *models.SharingSession, filter Filter) bool {
	if filter.Status != nil && session.Status != *filter.Status {
		return false
	}
	if !filter.RequesterDID.IsZero() && session.RequesterDID != filter.RequesterDID {
		return false
	}
	if !filter.HolderDID.IsZero() && session.HolderDID != filter.HolderDID {
		return false
	}
	if filter.Domain != nil {
		found := false
		for _, p := range session.Request.RequestedProofs {
			if p.Domain == *filter.Domain {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
