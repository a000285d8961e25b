package story

import (
	"fmt"
	"strings"

	"github.com/sceneplay/backend/internal/model/movie"
)

// systemPrompt frames the model as the narrator of one movie with the cast
// the players picked.
func systemPrompt(m movie.Movie, picks []CharacterPick) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the narrator of an interactive %s story titled %q. %s\n\n", m.Genre, m.Title, m.Logline)

	if len(m.Scenes) > 0 {
		b.WriteString("Story beats, in order:\n")
		for _, scene := range m.Scenes {
			fmt.Fprintf(&b, "- %s: %s\n", scene.Title, scene.Description)
		}
		b.WriteString("\n")
	}

	if len(picks) > 0 {
		b.WriteString("The players act as:\n")
		for _, pick := range picks {
			fmt.Fprintf(&b, "- %s\n", pick.Name)
		}
		b.WriteString("\n")
	}

	b.WriteString("Write vivid second-person prose, two to four sentences per reply. ")
	b.WriteString("Follow the players' choices faithfully and keep continuity with what has already happened. ")
	b.WriteString("Never break character or mention that you are an AI.")
	return b.String()
}

func openingQuery(m movie.Movie) string {
	if len(m.Scenes) > 0 {
		return fmt.Sprintf("Open the story at %q and end on a moment of tension that invites a decision.", m.Scenes[0].Title)
	}
	return "Open the story and end on a moment of tension that invites a decision."
}

func continueQuery(choice string, turn int) string {
	return fmt.Sprintf("Turn %d. The players chose: %q. Continue the story from that choice and end on the next decision point.", turn, choice)
}

func finaleQuery(choice string) string {
	if choice == "" {
		return "Bring the story to a close. Resolve the central tension and give the characters an ending that honors their choices."
	}
	return fmt.Sprintf("The players made their final choice: %q. Bring the story to a close, resolving the central tension.", choice)
}

func choicesQuery(character string) string {
	return fmt.Sprintf("List exactly %d short choices %s could make next, one per line, no commentary.", ChoiceCount, character)
}

// parseChoices splits model output into candidate choices, stripping list
// numbering and bullets.
func parseChoices(raw string) []string {
	choices := make([]string, 0, ChoiceCount)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.)-* ")
		if line == "" {
			continue
		}
		choices = append(choices, line)
		if len(choices) == ChoiceCount {
			break
		}
	}
	return choices
}

// fillChoices pads a short list with deterministic scene-derived options.
func fillChoices(choices []string, m movie.Movie, turn int) []string {
	for _, fallback := range fallbackChoices(m, turn) {
		if len(choices) >= ChoiceCount {
			break
		}
		choices = append(choices, fallback)
	}
	return choices
}

// Deterministic fallback content, derived from the movie's scene list so
// degraded output still fits the story being played.

func fallbackOpening(m movie.Movie) string {
	scene := sceneAt(m, 0)
	return fmt.Sprintf("%s The story of %q begins. What happens next is up to you.", scene.Description, m.Title)
}

func fallbackSegment(m movie.Movie, turn int) string {
	scene := sceneAt(m, turn)
	return fmt.Sprintf("Your choice echoes through the story. %s", scene.Description)
}

func fallbackFinale(m movie.Movie) string {
	scene := sceneAt(m, len(m.Scenes)-1)
	return fmt.Sprintf("%s The tale of %q finds its ending, shaped by every choice you made.", scene.Description, m.Title)
}

func fallbackChoices(m movie.Movie, turn int) []string {
	scene := sceneAt(m, turn)
	return []string{
		fmt.Sprintf("Press forward through %s.", strings.ToLower(scene.Title)),
		"Hold back and watch for danger.",
		"Turn to the others and make a plan.",
	}
}

func sceneAt(m movie.Movie, idx int) movie.Scene {
	if len(m.Scenes) == 0 {
		return movie.Scene{Title: "the unknown", Description: "The path ahead is unwritten."}
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(m.Scenes) {
		idx = len(m.Scenes) - 1
	}
	return m.Scenes[idx]
}

func placeholderMovie() movie.Movie {
	return movie.Movie{
		ID:      "untold",
		Title:   "An Untold Story",
		Genre:   "adventure",
		Logline: "A story with no script, written one choice at a time.",
	}
}
