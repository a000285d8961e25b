package room

import (
	"time"

	"github.com/sceneplay/backend/internal/model/game"
)

// The turn machine governs the one-directional lifecycle
// waiting -> character_selection -> in_progress -> completed. All functions
// mutate the session in place and report whether anything changed; rejected
// transitions are silent no-ops.

// beginCharacterSelection moves a waiting session into character selection.
// Any client may trigger it; there is no precondition on player count.
func beginCharacterSelection(s *game.Session) bool {
	if s.State != game.StateWaiting {
		return false
	}
	s.State = game.StateCharacterSelection
	return true
}

// startStory moves the session into play and hands the first turn to the
// earliest-joined player. Character selection is not required to be complete.
func startStory(s *game.Session) bool {
	if s.State != game.StateCharacterSelection {
		return false
	}
	if len(s.Players) == 0 {
		return false
	}
	s.State = game.StateInProgress
	s.CurrentTurn = s.Players[0].ID
	return true
}

// submitChoice records a choice from the player currently on turn, advances
// the rotation, and completes the session once choiceLimit choices have been
// accepted. Submissions out of turn or outside in_progress are ignored.
func submitChoice(s *game.Session, playerID, text string, choiceLimit int) bool {
	if s.State != game.StateInProgress {
		return false
	}
	if playerID == "" || playerID != s.CurrentTurn {
		return false
	}
	idx := s.PlayerIndex(playerID)
	if idx < 0 {
		return false
	}

	s.Progress.CompletedChoices = append(s.Progress.CompletedChoices, game.Choice{
		PlayerID:    playerID,
		Text:        text,
		SubmittedAt: time.Now().UTC(),
	})
	s.Progress.Checkpoint++

	if len(s.Progress.CompletedChoices) >= choiceLimit {
		s.State = game.StateCompleted
		s.CurrentTurn = ""
		return true
	}

	// Round-robin over the current player list; departed players leave no
	// hole because removal re-indexes the slice.
	next := (idx + 1) % len(s.Players)
	s.CurrentTurn = s.Players[next].ID
	return true
}

// removePlayer drops a player from the session. The host flag moves to the
// earliest-joined remaining player, and a turn held by the departed player
// passes to the next seat by modulo rotation.
func removePlayer(s *game.Session, playerID string) (game.Player, bool) {
	idx := s.PlayerIndex(playerID)
	if idx < 0 {
		return game.Player{}, false
	}

	removed := s.Players[idx]
	s.Players = append(s.Players[:idx], s.Players[idx+1:]...)

	if len(s.Players) == 0 {
		s.CurrentTurn = ""
		return removed, true
	}

	if removed.IsHost {
		s.Players[0].IsHost = true
	}

	if s.CurrentTurn == removed.ID {
		s.CurrentTurn = s.Players[idx%len(s.Players)].ID
	}
	return removed, true
}
