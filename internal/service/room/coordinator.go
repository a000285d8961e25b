package room

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sceneplay/backend/internal/config"
	"github.com/sceneplay/backend/internal/model/game"
)

// Server -> client event names of the real-time protocol.
const (
	EventRoomCreated    = "room-created"
	EventRoomJoined     = "room-joined"
	EventPlayerJoined   = "player-joined"
	EventSessionUpdated = "session-updated"
	EventNewMessage     = "new-message"
	EventPlayerAction   = "player-action"
	EventPlayerLeft     = "player-left"
	EventError          = "error"
)

// Notifier delivers one outbound event to one connection. Delivery is
// fire-and-forget; a vanished or closing connection is not an error.
type Notifier interface {
	Send(connID, event string, payload any)
}

// Narrator is the content-generation collaborator. Implementations must
// return usable narrative even when the underlying generator is degraded;
// a returned error is logged and replaced with neutral text, never surfaced
// to players.
type Narrator interface {
	OpenStory(ctx context.Context, session game.Session) (string, error)
	ContinueStory(ctx context.Context, session game.Session, choice game.Choice) (string, error)
	CloseStory(ctx context.Context, session game.Session) (string, error)
}

// Coordinator is the single authority translating inbound intents into
// session store mutations and outbound notification sets. Intents are
// serviced one at a time under its lock; external generation calls happen
// after the mutation commits and re-validate the session when they resolve.
type Coordinator struct {
	mu       sync.Mutex
	store    *Store
	registry *Registry
	notifier Notifier
	narrator Narrator
	cfg      config.GameConfig
}

// NewCoordinator wires the coordination core. narrator may be nil, in which
// case sessions advance without generated segments.
func NewCoordinator(store *Store, registry *Registry, notifier Notifier, narrator Narrator, cfg config.GameConfig) *Coordinator {
	return &Coordinator{
		store:    store,
		registry: registry,
		notifier: notifier,
		narrator: narrator,
		cfg:      cfg,
	}
}

// Dispatch applies one intent from the given connection. A panic inside one
// event's handling is recovered and logged so a single bad event cannot take
// down the process or corrupt other sessions.
func (c *Coordinator) Dispatch(connID string, intent Intent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[room] recovered while handling %T from conn=%s: %v", intent, connID, r)
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch in := intent.(type) {
	case CreateRoom:
		c.handleCreateRoom(connID, in)
	case JoinRoom:
		c.handleJoinRoom(connID, in)
	case SelectCharacter:
		c.handleSelectCharacter(connID, in)
	case StartCharacterSelection:
		c.handleStartCharacterSelection(connID, in)
	case StartStory:
		c.handleStartStory(connID, in)
	case MakeChoice:
		c.handleMakeChoice(connID, in)
	case SendMessage:
		c.handleSendMessage(connID, in)
	case PlayerAction:
		c.handlePlayerAction(connID, in)
	case UpdateStatus:
		c.handleUpdateStatus(connID, in)
	case Disconnect:
		c.handleDisconnect(connID)
	default:
		log.Printf("[room] unhandled intent %T from conn=%s", intent, connID)
	}
}

func (c *Coordinator) handleCreateRoom(connID string, in CreateRoom) {
	mode := game.Mode(in.Mode)
	if mode == "" {
		mode = game.ModeMultiplayer
	}

	session := c.store.Create(Seed{MovieID: in.MovieID, Mode: mode})

	playerID := in.PlayerID
	if playerID == "" {
		playerID = uuid.NewString()
	}
	session.Players = append(session.Players, game.Player{
		ID:           playerID,
		Name:         in.PlayerName,
		ConnectionID: connID,
		IsHost:       true,
		Status:       game.StatusOnline,
		JoinedAt:     time.Now().UTC(),
	})

	c.registry.Bind(connID, playerID, session.ID)

	c.notifier.Send(connID, EventRoomCreated, map[string]any{
		"roomCode": session.RoomCode,
		"session":  session.Snapshot(),
	})
	log.Printf("[room] created session=%s code=%s mode=%s", session.ID, session.RoomCode, session.Mode)
}

func (c *Coordinator) handleJoinRoom(connID string, in JoinRoom) {
	session, ok := c.store.GetByCode(in.RoomCode)
	if !ok {
		if !c.cfg.AutoCreateOnMissingRoom {
			c.notifier.Send(connID, EventError, map[string]any{"message": ErrSessionNotFound.Error()})
			return
		}
		// Permissive fallback: an unknown code opens a fresh test-chat
		// session under that code.
		session = c.store.Create(Seed{RoomCode: in.RoomCode, Mode: game.ModeTestChat})
		log.Printf("[room] auto-created session=%s for unknown code=%s", session.ID, session.RoomCode)
	}

	// A returning player id rebinds the existing entry instead of appending,
	// so reconnection never disturbs join order or the turn rotation.
	if player, exists := session.FindPlayer(in.PlayerID); exists {
		if player.ConnectionID != "" && player.ConnectionID != connID {
			c.registry.Unbind(player.ConnectionID)
		}
		player.ConnectionID = connID
		player.Status = game.StatusOnline
		c.registry.Bind(connID, player.ID, session.ID)

		c.notifier.Send(connID, EventRoomJoined, map[string]any{
			"roomCode": session.RoomCode,
			"playerId": player.ID,
			"player":   *player,
			"room":     session.Snapshot(),
		})
		c.broadcast(session, connID, EventPlayerJoined, map[string]any{
			"player": *player,
			"room":   session.Snapshot(),
		})
		return
	}

	if len(session.Players) >= c.cfg.MaxPlayers {
		c.notifier.Send(connID, EventError, map[string]any{"message": ErrRoomFull.Error()})
		return
	}

	playerID := in.PlayerID
	if playerID == "" {
		playerID = uuid.NewString()
	}
	player := game.Player{
		ID:           playerID,
		Name:         in.PlayerName,
		ConnectionID: connID,
		IsHost:       len(session.Players) == 0,
		Status:       game.StatusOnline,
		JoinedAt:     time.Now().UTC(),
	}
	session.Players = append(session.Players, player)

	c.registry.Bind(connID, playerID, session.ID)

	c.notifier.Send(connID, EventRoomJoined, map[string]any{
		"roomCode": session.RoomCode,
		"playerId": playerID,
		"player":   player,
		"room":     session.Snapshot(),
	})
	c.broadcast(session, connID, EventPlayerJoined, map[string]any{
		"player": player,
		"room":   session.Snapshot(),
	})
}

func (c *Coordinator) handleSelectCharacter(connID string, in SelectCharacter) {
	session, ok := c.resolveSession(in.RoomID)
	if !ok {
		return
	}
	player, ok := session.FindPlayer(in.PlayerID)
	if !ok {
		return
	}
	player.CharacterID = in.CharacterID
	c.broadcast(session, "", EventSessionUpdated, session.Snapshot())
}

func (c *Coordinator) handleStartCharacterSelection(connID string, in StartCharacterSelection) {
	session, ok := c.resolveSession(in.RoomID)
	if !ok {
		return
	}
	if beginCharacterSelection(session) {
		c.broadcast(session, "", EventSessionUpdated, session.Snapshot())
	}
}

func (c *Coordinator) handleStartStory(connID string, in StartStory) {
	session, ok := c.resolveSession(in.RoomID)
	if !ok {
		return
	}
	if !startStory(session) {
		return
	}
	c.broadcast(session, "", EventSessionUpdated, session.Snapshot())

	if c.narrator != nil {
		segID := c.appendPendingSegment(session, -1)
		go c.narrate(session.ID, segID, func(ctx context.Context, snapshot game.Session) (string, error) {
			return c.narrator.OpenStory(ctx, snapshot)
		})
	}
}

func (c *Coordinator) handleMakeChoice(connID string, in MakeChoice) {
	session, ok := c.resolveSession(in.RoomID)
	if !ok {
		return
	}
	if !submitChoice(session, in.PlayerID, in.Choice, c.cfg.MultiplayerChoiceLimit) {
		return
	}

	choice := session.Progress.CompletedChoices[len(session.Progress.CompletedChoices)-1]
	completed := session.State == game.StateCompleted

	var segID string
	if c.narrator != nil {
		segID = c.appendPendingSegment(session, len(session.Progress.CompletedChoices)-1)
	}

	c.broadcast(session, "", EventSessionUpdated, session.Snapshot())

	if c.narrator == nil {
		return
	}
	if completed {
		go c.narrate(session.ID, segID, func(ctx context.Context, snapshot game.Session) (string, error) {
			return c.narrator.CloseStory(ctx, snapshot)
		})
		return
	}
	go c.narrate(session.ID, segID, func(ctx context.Context, snapshot game.Session) (string, error) {
		return c.narrator.ContinueStory(ctx, snapshot, choice)
	})
}

func (c *Coordinator) handleSendMessage(connID string, in SendMessage) {
	binding, ok := c.registry.Resolve(connID)
	if !ok {
		return
	}
	session, ok := c.store.Get(binding.SessionID)
	if !ok {
		return
	}
	player, ok := session.FindPlayer(binding.PlayerID)
	if !ok {
		return
	}

	msg := game.Message{
		ID:         uuid.NewString(),
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Text:       in.Text,
		Timestamp:  time.Now().UTC(),
		Type:       "chat",
	}
	session.Messages = append(session.Messages, msg)

	c.broadcast(session, "", EventNewMessage, msg)
}

func (c *Coordinator) handlePlayerAction(connID string, in PlayerAction) {
	binding, ok := c.registry.Resolve(connID)
	if !ok {
		return
	}
	session, ok := c.store.Get(binding.SessionID)
	if !ok {
		return
	}
	player, ok := session.FindPlayer(binding.PlayerID)
	if !ok {
		return
	}

	c.broadcast(session, connID, EventPlayerAction, map[string]any{
		"playerId":   player.ID,
		"playerName": player.Name,
		"action":     in.Action,
		"timestamp":  time.Now().UTC(),
	})
}

func (c *Coordinator) handleUpdateStatus(connID string, in UpdateStatus) {
	binding, ok := c.registry.Resolve(connID)
	if !ok {
		return
	}
	session, ok := c.store.Get(binding.SessionID)
	if !ok {
		return
	}
	player, ok := session.FindPlayer(binding.PlayerID)
	if !ok {
		return
	}

	player.Status = in.Status
	c.broadcast(session, "", EventSessionUpdated, session.Snapshot())
}

func (c *Coordinator) handleDisconnect(connID string) {
	binding, ok := c.registry.Resolve(connID)
	c.registry.Unbind(connID)
	if !ok {
		return
	}

	session, ok := c.store.Get(binding.SessionID)
	if !ok {
		return
	}

	removed, ok := removePlayer(session, binding.PlayerID)
	if !ok {
		return
	}

	if len(session.Players) == 0 {
		c.store.Delete(session.ID)
		log.Printf("[room] destroyed empty session=%s code=%s", session.ID, session.RoomCode)
		return
	}

	c.broadcast(session, "", EventPlayerLeft, map[string]any{
		"playerId":   removed.ID,
		"playerName": removed.Name,
		"room":       session.Snapshot(),
	})
}

// resolveSession accepts either a session id or a room code.
func (c *Coordinator) resolveSession(roomID string) (*game.Session, bool) {
	if session, ok := c.store.Get(roomID); ok {
		return session, true
	}
	return c.store.GetByCode(roomID)
}

// broadcast fans an event out to every connected player in the session,
// optionally excluding one connection.
func (c *Coordinator) broadcast(session *game.Session, excludeConnID, event string, payload any) {
	for i := range session.Players {
		connID := session.Players[i].ConnectionID
		if connID == "" || connID == excludeConnID {
			continue
		}
		c.notifier.Send(connID, event, payload)
	}
}

// appendPendingSegment reserves a placeholder segment for content that is
// still being generated. Caller must hold the coordinator lock.
func (c *Coordinator) appendPendingSegment(session *game.Session, choiceIndex int) string {
	seg := game.Segment{
		ID:          uuid.NewString(),
		ChoiceIndex: choiceIndex,
		Pending:     true,
		CreatedAt:   time.Now().UTC(),
	}
	session.Progress.Segments = append(session.Progress.Segments, seg)
	return seg.ID
}

// narrate runs one generation call outside the coordinator lock and folds
// the result back in. The session is re-fetched after the call returns; if
// it was deleted in the meantime the result is dropped on the floor.
func (c *Coordinator) narrate(sessionID, segmentID string, generate func(context.Context, game.Session) (string, error)) {
	snapshot, ok := c.snapshotSession(sessionID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.GenerationTimeout)
	defer cancel()

	content, err := generate(ctx, snapshot)
	if err != nil {
		log.Printf("[room] narration failed for session=%s: %v", sessionID, err)
		content = "The story presses on into the unknown."
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.store.Get(sessionID)
	if !ok {
		return
	}
	for i := range session.Progress.Segments {
		if session.Progress.Segments[i].ID == segmentID {
			session.Progress.Segments[i].Content = content
			session.Progress.Segments[i].Pending = false
			break
		}
	}
	c.broadcast(session, "", EventSessionUpdated, session.Snapshot())
}

func (c *Coordinator) snapshotSession(sessionID string) (game.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	session, ok := c.store.Get(sessionID)
	if !ok {
		return game.Session{}, false
	}
	return session.Snapshot(), true
}
