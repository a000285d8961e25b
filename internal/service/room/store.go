package room

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sceneplay/backend/internal/model/game"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRoomFull        = errors.New("room is full")
)

const roomCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Store holds all live sessions, keyed by session id with a secondary
// case-insensitive room-code index. It is an injectable object owned by the
// composition root, not a package-level registry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
	codes    map[string]string
	rng      *rand.Rand
}

// NewStore bootstraps an empty in-memory session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*game.Session),
		codes:    make(map[string]string),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed describes the initial fields of a new session.
type Seed struct {
	ID       string
	RoomCode string
	MovieID  string
	Mode     game.Mode
}

// Create registers a new session. A missing id is generated; a missing room
// code is drawn from the code space, regenerating on collision.
func (s *Store) Create(seed Seed) *game.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := &game.Session{
		ID:        seed.ID,
		RoomCode:  strings.ToUpper(seed.RoomCode),
		MovieID:   seed.MovieID,
		Mode:      seed.Mode,
		State:     game.StateWaiting,
		Players:   make([]game.Player, 0, 4),
		Messages:  make([]game.Message, 0, 16),
		CreatedAt: time.Now().UTC(),
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.RoomCode == "" {
		session.RoomCode = s.freeRoomCode()
	}

	s.sessions[session.ID] = session
	s.codes[session.RoomCode] = session.ID
	return session
}

// Get retrieves a session by id.
func (s *Store) Get(id string) (*game.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// GetByCode retrieves a session by its room code, case-insensitively.
func (s *Store) GetByCode(code string) (*game.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codes[strings.ToUpper(code)]
	if !ok {
		return nil, false
	}
	session, ok := s.sessions[id]
	return session, ok
}

// Delete removes a session and frees its room code.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return
	}
	delete(s.codes, session.RoomCode)
	delete(s.sessions, id)
}

// List returns the ids of all live sessions.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// freeRoomCode draws 4-character base-36 codes until one is unclaimed.
// Caller must hold mu.
func (s *Store) freeRoomCode() string {
	for {
		code := s.randomCode(4)
		if _, taken := s.codes[code]; !taken {
			return code
		}
	}
}

func (s *Store) randomCode(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(roomCodeAlphabet[s.rng.Intn(len(roomCodeAlphabet))])
	}
	return b.String()
}
