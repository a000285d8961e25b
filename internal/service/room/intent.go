package room

// Intent is a player's inbound request, decoded from the wire into a tagged
// union so the coordinator can dispatch with an exhaustive type switch.
type Intent interface {
	isIntent()
}

// CreateRoom opens a new session with the sender as sole player and host.
type CreateRoom struct {
	MovieID    string `json:"movieId"`
	Mode       string `json:"mode"`
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId"`
}

// JoinRoom adds the sender to an existing room, or rebinds a returning
// player's connection.
type JoinRoom struct {
	RoomCode   string `json:"roomCode"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// SelectCharacter sets the sender's chosen character.
type SelectCharacter struct {
	RoomID      string `json:"roomId"`
	PlayerID    string `json:"playerId"`
	CharacterID string `json:"characterId"`
}

// StartCharacterSelection moves a waiting session into character selection.
type StartCharacterSelection struct {
	RoomID string `json:"roomId"`
}

// StartStory begins play and sets the first turn.
type StartStory struct {
	RoomID string `json:"roomId"`
}

// MakeChoice submits the sender's narrative choice for the current turn.
type MakeChoice struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Choice   string `json:"choice"`
}

// SendMessage appends a chat message to the sender's session.
type SendMessage struct {
	Text string `json:"text"`
}

// PlayerAction is an ephemeral signal relayed to the room without mutating
// any session state.
type PlayerAction struct {
	Action string `json:"action"`
}

// UpdateStatus sets the sender's status field.
type UpdateStatus struct {
	Status string `json:"status"`
}

// Disconnect is synthesized by the transport when a connection closes.
type Disconnect struct{}

func (CreateRoom) isIntent()              {}
func (JoinRoom) isIntent()                {}
func (SelectCharacter) isIntent()         {}
func (StartCharacterSelection) isIntent() {}
func (StartStory) isIntent()              {}
func (MakeChoice) isIntent()              {}
func (SendMessage) isIntent()             {}
func (PlayerAction) isIntent()            {}
func (UpdateStatus) isIntent()            {}
func (Disconnect) isIntent()              {}
