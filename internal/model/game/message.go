package game

import "time"

// Message is one chat entry in a session. PlayerName is a snapshot of the
// author's display name at send time.
type Message struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
}
