package game

import "time"

// Mode distinguishes how a session was started.
type Mode string

const (
	ModeSingle      Mode = "single"
	ModeMultiplayer Mode = "multiplayer"
	ModeTestChat    Mode = "test-chat"
)

// State is the lifecycle phase of a session.
type State string

const (
	StateWaiting            State = "waiting"
	StateCharacterSelection State = "character_selection"
	StateInProgress         State = "in_progress"
	StateCompleted          State = "completed"
)

// StatusOnline is the default player status after join or reconnect.
const StatusOnline = "online"

// Player is one participant in a session. Player entries are owned by the
// session that contains them; ConnectionID is a weak routing reference only.
type Player struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ConnectionID string    `json:"-"`
	IsHost       bool      `json:"isHost"`
	CharacterID  string    `json:"characterId,omitempty"`
	Status       string    `json:"status"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// Choice records one accepted turn submission.
type Choice struct {
	PlayerID    string    `json:"playerId"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Segment is one unit of generated narrative tied to a resolved choice.
// Pending segments are placeholders awaiting the content generator.
type Segment struct {
	ID          string    `json:"id"`
	ChoiceIndex int       `json:"choiceIndex"`
	Content     string    `json:"content"`
	Pending     bool      `json:"pending"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StoryProgress tracks how far a session's story has advanced.
type StoryProgress struct {
	Checkpoint       int       `json:"checkpoint"`
	CompletedChoices []Choice  `json:"completedChoices"`
	Segments         []Segment `json:"segments"`
}

// Session captures the full in-memory state of one game room or solo play.
type Session struct {
	ID          string        `json:"id"`
	RoomCode    string        `json:"roomCode"`
	MovieID     string        `json:"movieId"`
	Mode        Mode          `json:"mode"`
	State       State         `json:"state"`
	Players     []Player      `json:"players"`
	Messages    []Message     `json:"messages"`
	CurrentTurn string        `json:"currentTurn,omitempty"`
	Progress    StoryProgress `json:"storyProgress"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// PlayerIndex returns the position of the player with the given id, or -1.
func (s *Session) PlayerIndex(playerID string) int {
	for i := range s.Players {
		if s.Players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// FindPlayer returns a pointer into the session's player list, valid until
// the list is next mutated.
func (s *Session) FindPlayer(playerID string) (*Player, bool) {
	if i := s.PlayerIndex(playerID); i >= 0 {
		return &s.Players[i], true
	}
	return nil, false
}

// Snapshot returns a deep copy safe to hand to outbound notification
// delivery after the coordinator releases its lock.
func (s *Session) Snapshot() Session {
	copied := *s
	copied.Players = append([]Player(nil), s.Players...)
	copied.Messages = append([]Message(nil), s.Messages...)
	copied.Progress.CompletedChoices = append([]Choice(nil), s.Progress.CompletedChoices...)
	copied.Progress.Segments = append([]Segment(nil), s.Progress.Segments...)
	return copied
}
