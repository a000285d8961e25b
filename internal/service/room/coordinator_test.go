package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sceneplay/backend/internal/config"
	"github.com/sceneplay/backend/internal/model/game"
)

type sentEvent struct {
	ConnID  string
	Event   string
	Payload any
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (f *fakeNotifier) Send(connID, event string, payload any) {
	f.mu.Lock()
	f.events = append(f.events, sentEvent{ConnID: connID, Event: event, Payload: payload})
	f.mu.Unlock()
}

func (f *fakeNotifier) byEvent(event string) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []sentEvent
	for _, e := range f.events {
		if e.Event == event {
			matched = append(matched, e)
		}
	}
	return matched
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakeNotifier) sentTo(connID, event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ConnID == connID && e.Event == event {
			return true
		}
	}
	return false
}

type stubNarrator struct{}

func (stubNarrator) OpenStory(_ context.Context, _ game.Session) (string, error) {
	return "The story opens.", nil
}

func (stubNarrator) ContinueStory(_ context.Context, _ game.Session, choice game.Choice) (string, error) {
	return "It follows: " + choice.Text, nil
}

func (stubNarrator) CloseStory(_ context.Context, _ game.Session) (string, error) {
	return "The story ends.", nil
}

func testConfig() config.GameConfig {
	return config.GameConfig{
		MaxPlayers:              4,
		MultiplayerChoiceLimit:  6,
		StoryTurnLimit:          5,
		AutoCreateOnMissingRoom: true,
		GenerationTimeout:       time.Second,
	}
}

func newTestCoordinator(narrator Narrator) (*Coordinator, *Store, *Registry, *fakeNotifier) {
	store := NewStore()
	registry := NewRegistry()
	notifier := &fakeNotifier{}
	coordinator := NewCoordinator(store, registry, notifier, narrator, testConfig())
	return coordinator, store, registry, notifier
}

func createdSession(t *testing.T, store *Store) *game.Session {
	t.Helper()
	ids := store.List()
	if len(ids) != 1 {
		t.Fatalf("expected exactly one session, got %d", len(ids))
	}
	session, ok := store.Get(ids[0])
	if !ok {
		t.Fatal("session vanished")
	}
	return session
}

func TestCreateRoom(t *testing.T) {
	c, store, registry, notifier := newTestCoordinator(nil)

	c.Dispatch("conn-1", CreateRoom{MovieID: "last-starfarer", Mode: "multiplayer", PlayerID: "P1", PlayerName: "Ann"})

	session := createdSession(t, store)
	if len(session.Players) != 1 {
		t.Fatalf("expected 1 player, got %d", len(session.Players))
	}
	if !session.Players[0].IsHost {
		t.Fatal("expected creator to be host")
	}
	if session.State != game.StateWaiting {
		t.Fatalf("expected waiting state, got %s", session.State)
	}

	if !notifier.sentTo("conn-1", EventRoomCreated) {
		t.Fatal("expected room-created reply to creator")
	}
	if binding, ok := registry.Resolve("conn-1"); !ok || binding.PlayerID != "P1" {
		t.Fatalf("expected registry binding for creator, got %+v", binding)
	}
}

func TestJoinRoomBroadcastsToExistingPlayers(t *testing.T) {
	c, store, _, notifier := newTestCoordinator(nil)

	c.Dispatch("conn-1", CreateRoom{Mode: "multiplayer", PlayerID: "P1", PlayerName: "Ann"})
	session := createdSession(t, store)

	c.Dispatch("conn-2", JoinRoom{RoomCode: session.RoomCode, PlayerID: "P2", PlayerName: "Bob"})

	if len(session.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(session.Players))
	}
	if session.Players[1].IsHost {
		t.Fatal("expected joiner not to be host")
	}
	if !notifier.sentTo("conn-2", EventRoomJoined) {
		t.Fatal("expected room-joined reply to joiner")
	}
	if !notifier.sentTo("conn-1", EventPlayerJoined) {
		t.Fatal("expected player-joined broadcast to existing player")
	}
	if notifier.sentTo("conn-2", EventPlayerJoined) {
		t.Fatal("expected joiner excluded from player-joined broadcast")
	}
}

func TestJoinRoomFullRejected(t *testing.T) {
	c, store, _, notifier := newTestCoordinator(nil)

	c.Dispatch("conn-1", CreateRoom{Mode: "multiplayer", PlayerID: "P1", PlayerName: "Ann"})
	session := createdSession(t, store)
	c.Dispatch("conn-2", JoinRoom{RoomCode: session.RoomCode, PlayerID: "P2", PlayerName: "Bob"})
	c.Dispatch("conn-3", JoinRoom{RoomCode: session.RoomCode, PlayerID: "P3", PlayerName: "Cho"})
	c.Dispatch("conn-4", JoinRoom{RoomCode: session.RoomCode, PlayerID: "P4", PlayerName: "Dee"})

	c.Dispatch("conn-5", JoinRoom{RoomCode: session.RoomCode, PlayerID: "P5", PlayerName: "Eve"})

	if len(session.Players) != 4 {
		t.Fatalf("expected player list capped at 4, got %d", len(session.Players))
	}
	if !notifier.sentTo("conn-5", EventError) {
		t.Fatal("expected room-full error to rejected joiner")
	}
	if notifier.sentTo("conn-1", EventError) {
		t.Fatal("expected error not to be broadcast")
	}
}

func TestJoinUnknownRoomAutoCreates(t *testing.T) {
	c, store, _, _ := newTestCoordinator(nil)

	c.Dispatch("conn-1", JoinRoom{RoomCode: "zz99", PlayerID: "P1", PlayerName: "Ann"})

	session, ok := store.GetByCode("ZZ99")
	if !ok {
		t.Fatal("expected session auto-created for unknown code")
	}
	if session.Mode != game.ModeTestChat {
		t.Fatalf("expected test-chat mode, got %s", session.Mode)
	}
	if len(session.Players) != 1 {
		t.Fatalf("expected 1 player, got %d", len(session.Players))
	}
}

func TestJoinUnknownRoomErrorsWhenPolicyDisabled(t *testing.T) {
	store := NewStore()
	notifier := &fakeNotifier{}
	cfg := testConfig()
	cfg.AutoCreateOnMissingRoom = false
	c := NewCoordinator(store, NewRegistry(), notifier, nil, cfg)

	c.Dispatch("conn-1", JoinRoom{RoomCode: "ZZ99", PlayerID: "P1", PlayerName: "Ann"})

	if len(store.List()) != 0 {
		t.Fatal("expected no session created")
	}
	if !notifier.sentTo("conn-1", EventError) {
		t.Fatal("expected room-not-found error")
	}
}

func TestSelectCharacterIdempotent(t *testing.T) {
	c, store, _, _ := newTestCoordinator(nil)

	c.Dispatch("conn-1", CreateRoom{MovieID: "last-starfarer", Mode: "multiplayer", PlayerID: "P1", PlayerName: "Ann"})
	session := createdSession(t, store)

	c.Dispatch("conn-1", SelectCharacter{RoomID: session.ID, PlayerID: "P1", CharacterID: "juno"})
	first := session.Snapshot()

	c.Dispatch("conn-1", SelectCharacter{RoomID: session.ID, PlayerID: "P1", CharacterID: "juno"})

	if session.Players[0].CharacterID != "juno" {
		t.Fatalf("unexpected character: %s", session.Players[0].CharacterID)
	}
	if first.Players[0].CharacterID != session.Players[0].CharacterID || first.State != session.State {
		t.Fatal("expected repeated selection to leave state unchanged")
	}
}

func TestStartStorySetsFirstTurnToEarliestJoiner(t *testing.T) {
	c, store, _, _ := newTestCoordinator(nil)

	c.Dispatch("conn-1", CreateRoom{Mode: "multiplayer", PlayerID: "P1", PlayerName: "Ann"})
	session := createdSession(t, store)
	c.Dispatch("conn-2", JoinRoom{RoomCode: session.RoomCode, PlayerID: "P2", PlayerName: "Bob"})

	c.Dispatch("conn-1", StartCharacterSelection{RoomID: session.ID})
	c.Dispatch("conn-1", StartStory{RoomID: session.ID})

	if session.State != game.StateInProgress {
		t.Fatalf("expected in_progress, got %s", session.State)
	}
	if session.CurrentTurn != "P1" {
		t.Fatalf("expected first turn for P1, got %s", session.CurrentTurn)
	}
}

func TestMakeChoiceOutOfTurnIsNoOp(t *testing.T) {
	c, store, _, _ := newTestCoordinator(nil)

	c.Dispatch("conn-1", CreateRoom{Mode: "multiplayer", PlayerID: "P1", PlayerName: "Ann"})
	session := createdSession(t, store)
	c.Dispatch("conn-2", JoinRoom{RoomCode: session.RoomCode, PlayerID: "P2", PlayerName: "Bob"})
	c.Dispatch("conn-1", StartCharacterSelection{RoomID: session.ID})
	c.Dispatch("conn-1", StartStory{RoomID: session.ID})

	c.Dispatch("conn-2", MakeChoice{RoomID: session.ID, PlayerID: "P2", Choice: "jump the queue"})

	if len(session.Progress.CompletedChoices) != 0 {
		t.Fatalf("expected no choices recorded, got %d", len(session.Progress.CompletedChoices))
	}
	if session.CurrentTurn != "P1" {
		t.Fatalf("expected turn unchanged, got %s", session.CurrentTurn)
	}
}

func TestReconnectRestoresPlayerEntry(t *testing.T) {
	c, store, registry, _ := newTestCoordinator(nil)

	c.Dispatch("conn-1", CreateRoom{Mode: "multiplayer", PlayerID: "P1", PlayerName: "Ann"})
	session := createdSession(t, store)
	c.Dispatch("conn-2", JoinRoom{RoomCode: session.RoomCode, PlayerID: "P2", PlayerName: "Bob"})
	c.Dispatch("conn-2", SelectCharacter{RoomID: session.ID, PlayerID: "P2", CharacterID: "brakk"})

	// Bob reconnects on a fresh connection before the stale one is reaped.
	c.Dispatch("conn-3", JoinRoom{RoomCode: session.RoomCode, PlayerID: "P2", PlayerName: "Bob"})
	// The stale connection's transport-level disconnect arrives afterwards.
	c.Dispatch("conn-2", Disconnect{})

	if len(session.Players) != 2 {
		t.Fatalf("expected 2 players after reconnect, got %d", len(session.Players))
	}
	player, ok := session.FindPlayer("P2")
	if !ok {
		t.Fatal("expected P2 still present")
	}
	if player.CharacterID != "brakk" {
		t.Fatalf("expected character preserved, got %q", player.CharacterID)
	}
	if player.IsHost {
		t.Fatal("expected host flag preserved as false")
	}
	if player.ConnectionID != "conn-3" {
		t.Fatalf("expected connection rebound to conn-3, got %s", player.ConnectionID)
	}

	if _, ok := registry.Resolve("conn-2"); ok {
		t.Fatal("expected stale binding removed")
	}
	if binding, ok := registry.Resolve("conn-3"); !ok || binding.PlayerID != "P2" {
		t.Fatalf("expected fresh binding for conn-3, got %+v", binding)
	}
}

func TestSoleDisconnectDestroysSession(t *testing.T) {
	c, store, _, _ := newTestCoordinator(nil)

	c.Dispatch("conn-1", CreateRoom{Mode: "multiplayer", PlayerID: "P1", PlayerName: "Ann"})
	session := createdSession(t, store)
	sessionID := session.ID
	code := session.RoomCode

	c.Dispatch("conn-1", Disconnect{})

	if _, ok := store.Get(sessionID); ok {
		t.Fatal("expected empty session to be destroyed")
	}
	if _, ok := store.GetByCode(code); ok {
		t.Fatal("expected room code to be freed")
	}
}

func TestDisconnectBroadcastsPlayerLeft(t *testing.T) {
	c, store, _, notifier := newTestCoordinator(nil)

	c.Dispatch("conn-1", CreateRoom{Mode: "multiplayer", PlayerID: "P1", PlayerName: "Ann"})
	session := createdSession(t, store)
	c.Dispatch("conn-2", JoinRoom{RoomCode: session.RoomCode, PlayerID: "P2", PlayerName: "Bob"})

	c.Dispatch("conn-2", Disconnect{})

	if len(session.Players) != 1 {
		t.Fatalf("expected 1 remaining player, got %d", len(session.Players))
	}
	if !notifier.sentTo("conn-1", EventPlayerLeft) {
		t.Fatal("expected player-left broadcast to remaining player")
	}
}

func TestSendMessageBroadcastsToRoom(t *testing.T) {
	c, store, _, notifier := newTestCoordinator(nil)

	c.Dispatch("conn-1", CreateRoom{Mode: "multiplayer", PlayerID: "P1", PlayerName: "Ann"})
	session := createdSession(t, store)
	c.Dispatch("conn-2", JoinRoom{RoomCode: session.RoomCode, PlayerID: "P2", PlayerName: "Bob"})

	c.Dispatch("conn-2", SendMessage{Text: "hello there"})

	if len(session.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(session.Messages))
	}
	msg := session.Messages[0]
	if msg.PlayerID != "P2" || msg.PlayerName != "Bob" || msg.Text != "hello there" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.ID == "" {
		t.Fatal("expected message id assigned")
	}
	if !notifier.sentTo("conn-1", EventNewMessage) || !notifier.sentTo("conn-2", EventNewMessage) {
		t.Fatal("expected new-message broadcast to the whole room")
	}
}

func TestPlayerActionExcludesSenderAndMutatesNothing(t *testing.T) {
	c, store, _, notifier := newTestCoordinator(nil)

	c.Dispatch("conn-1", CreateRoom{Mode: "multiplayer", PlayerID: "P1", PlayerName: "Ann"})
	session := createdSession(t, store)
	c.Dispatch("conn-2", JoinRoom{RoomCode: session.RoomCode, PlayerID: "P2", PlayerName: "Bob"})
	before := session.Snapshot()

	c.Dispatch("conn-2", PlayerAction{Action: "typing"})

	if !notifier.sentTo("conn-1", EventPlayerAction) {
		t.Fatal("expected player-action relayed to room")
	}
	if notifier.sentTo("conn-2", EventPlayerAction) {
		t.Fatal("expected sender excluded")
	}
	if len(session.Messages) != len(before.Messages) || session.State != before.State {
		t.Fatal("expected no session mutation")
	}
}

func TestUpdateStatus(t *testing.T) {
	c, store, _, notifier := newTestCoordinator(nil)

	c.Dispatch("conn-1", CreateRoom{Mode: "multiplayer", PlayerID: "P1", PlayerName: "Ann"})
	session := createdSession(t, store)

	c.Dispatch("conn-1", UpdateStatus{Status: "away"})

	if session.Players[0].Status != "away" {
		t.Fatalf("unexpected status: %s", session.Players[0].Status)
	}
	if !notifier.sentTo("conn-1", EventSessionUpdated) {
		t.Fatal("expected session-updated broadcast")
	}
}

func TestNarratorFillsSegments(t *testing.T) {
	c, store, _, _ := newTestCoordinator(stubNarrator{})

	c.Dispatch("conn-1", CreateRoom{MovieID: "last-starfarer", Mode: "multiplayer", PlayerID: "P1", PlayerName: "Ann"})
	session := createdSession(t, store)
	sessionID := session.ID

	c.Dispatch("conn-1", StartCharacterSelection{RoomID: sessionID})
	c.Dispatch("conn-1", StartStory{RoomID: sessionID})

	waitForSegment(t, c, sessionID, 1)
	c.Dispatch("conn-1", MakeChoice{RoomID: sessionID, PlayerID: "P1", Choice: "open the airlock"})
	waitForSegment(t, c, sessionID, 2)

	snapshot, ok := c.snapshotSession(sessionID)
	if !ok {
		t.Fatal("session vanished")
	}
	if snapshot.Progress.Segments[0].Content != "The story opens." {
		t.Fatalf("unexpected opening segment: %q", snapshot.Progress.Segments[0].Content)
	}
	if snapshot.Progress.Segments[1].Content != "It follows: open the airlock" {
		t.Fatalf("unexpected segment: %q", snapshot.Progress.Segments[1].Content)
	}
}

// blockingNarrator parks OpenStory until released, so a test can interleave
// other intents while generation is in flight.
type blockingNarrator struct {
	stubNarrator
	started chan struct{}
	release chan struct{}
}

func (n *blockingNarrator) OpenStory(_ context.Context, _ game.Session) (string, error) {
	close(n.started)
	<-n.release
	return "The story opens.", nil
}

func TestNarrationResultDroppedWhenSessionVanishes(t *testing.T) {
	narrator := &blockingNarrator{started: make(chan struct{}), release: make(chan struct{})}
	c, store, _, notifier := newTestCoordinator(narrator)

	c.Dispatch("conn-1", CreateRoom{MovieID: "last-starfarer", Mode: "multiplayer", PlayerID: "P1", PlayerName: "Ann"})
	session := createdSession(t, store)
	sessionID := session.ID

	c.Dispatch("conn-1", StartCharacterSelection{RoomID: sessionID})
	c.Dispatch("conn-1", StartStory{RoomID: sessionID})

	select {
	case <-narrator.started:
	case <-time.After(2 * time.Second):
		t.Fatal("narrator never invoked")
	}

	// The sole player leaves while the opening is still generating; the
	// session is destroyed out from under the in-flight call.
	c.Dispatch("conn-1", Disconnect{})
	if _, ok := store.Get(sessionID); ok {
		t.Fatal("expected session destroyed")
	}
	sent := notifier.count()

	close(narrator.release)

	// The late result must go unconsumed: no resurrected session, no
	// broadcast to anyone.
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, ok := store.Get(sessionID); ok {
			t.Fatal("expected vanished session to stay gone")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := notifier.count(); got != sent {
		t.Fatalf("expected no notifications after session vanished, got %d new", got-sent)
	}
}

// waitForSegment polls until n segments have resolved out of their pending
// placeholder state.
func waitForSegment(t *testing.T, c *Coordinator, sessionID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snapshot, ok := c.snapshotSession(sessionID)
		if !ok {
			t.Fatal("session vanished while waiting for narration")
		}
		if len(snapshot.Progress.Segments) >= n {
			resolved := true
			for _, seg := range snapshot.Progress.Segments[:n] {
				if seg.Pending {
					resolved = false
					break
				}
			}
			if resolved {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d resolved segments", n)
}
