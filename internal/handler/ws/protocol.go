package ws

import (
	"encoding/json"
	"fmt"

	"github.com/sceneplay/backend/internal/service/room"
)

// Client -> server event names of the real-time protocol.
const (
	eventCreateRoom              = "create-room"
	eventJoinRoom                = "join-room"
	eventSelectCharacter         = "select-character"
	eventStartCharacterSelection = "start-character-selection"
	eventStartStory              = "start-story"
	eventMakeChoice              = "make-choice"
	eventSendMessage             = "send-message"
	eventPlayerAction            = "player-action"
	eventUpdateStatus            = "update-status"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outboundEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// decodeIntent maps one inbound envelope onto the coordinator's intent
// union.
func decodeIntent(env envelope) (room.Intent, error) {
	switch env.Event {
	case eventCreateRoom:
		return unmarshalIntent[room.CreateRoom](env.Data)
	case eventJoinRoom:
		return unmarshalIntent[room.JoinRoom](env.Data)
	case eventSelectCharacter:
		return unmarshalIntent[room.SelectCharacter](env.Data)
	case eventStartCharacterSelection:
		return unmarshalIntent[room.StartCharacterSelection](env.Data)
	case eventStartStory:
		return unmarshalIntent[room.StartStory](env.Data)
	case eventMakeChoice:
		return unmarshalIntent[room.MakeChoice](env.Data)
	case eventSendMessage:
		return unmarshalIntent[room.SendMessage](env.Data)
	case eventPlayerAction:
		return unmarshalIntent[room.PlayerAction](env.Data)
	case eventUpdateStatus:
		return unmarshalIntent[room.UpdateStatus](env.Data)
	default:
		return nil, fmt.Errorf("unsupported event: %s", env.Event)
	}
}

func unmarshalIntent[T room.Intent](data json.RawMessage) (room.Intent, error) {
	var intent T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &intent); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
	}
	return intent, nil
}
