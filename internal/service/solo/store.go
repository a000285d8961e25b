package solo

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("solo session not found")

// Session is the single-player session record. It is keyed by an externally
// supplied id and carries the payload the orchestration layer associates
// with a running story; there is no turn machine or connection registry.
type Session struct {
	ID          string         `json:"id"`
	MovieID     string         `json:"movieId,omitempty"`
	CharacterID string         `json:"characterId,omitempty"`
	Mode        string         `json:"mode,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// Update describes a partial session mutation. Nil fields are left alone;
// Data keys are shallow-merged over the existing payload.
type Update struct {
	MovieID     *string        `json:"movieId"`
	CharacterID *string        `json:"characterId"`
	Mode        *string        `json:"mode"`
	Data        map[string]any `json:"data"`
}

// Store holds solo sessions with the same create/get/delete lifecycle as the
// multiplayer store, plus merge updates and an idle-expiry sweep.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewStore bootstraps an empty solo session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]Session)}
}

// Create registers a session under the caller's id, replacing any prior
// session with the same id.
func (s *Store) Create(session Session) Session {
	now := time.Now().UTC()
	session.CreatedAt = now
	session.LastUpdated = now
	session.Data = copyData(session.Data)

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	session.Data = copyData(session.Data)
	return session
}

// Get retrieves a session by id.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	session.Data = copyData(session.Data)
	return session, ok
}

// Update applies a partial mutation and refreshes LastUpdated.
func (s *Store) Update(id string, update Update) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}

	if update.MovieID != nil {
		session.MovieID = *update.MovieID
	}
	if update.CharacterID != nil {
		session.CharacterID = *update.CharacterID
	}
	if update.Mode != nil {
		session.Mode = *update.Mode
	}
	if len(update.Data) > 0 {
		if session.Data == nil {
			session.Data = make(map[string]any, len(update.Data))
		}
		for k, v := range update.Data {
			session.Data[k] = v
		}
	}
	session.LastUpdated = time.Now().UTC()

	s.sessions[id] = session

	session.Data = copyData(session.Data)
	return session, nil
}

// copyData detaches a session's payload map. Sessions cross the store
// boundary by value; without the copy, callers and the store would share
// one live map across the lock.
func copyData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	copied := make(map[string]any, len(data))
	for k, v := range data {
		copied[k] = v
	}
	return copied
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// List returns the ids of all live solo sessions.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// SweepExpired deletes sessions idle for longer than maxIdle and reports how
// many were removed.
func (s *Store) SweepExpired(maxIdle time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.LastUpdated.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps on a fixed interval until the context is cancelled. It
// runs fully decoupled from request handling.
func (s *Store) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.SweepExpired(maxIdle); removed > 0 {
				log.Printf("[solo] swept %d expired sessions", removed)
			}
		}
	}
}
