package story

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/sceneplay/backend/internal/model/game"
	"github.com/sceneplay/backend/internal/model/movie"
)

var (
	ErrStoryNotFound = errors.New("story not found")
	ErrMovieNotFound = errors.New("movie not found")
	ErrStoryComplete = errors.New("story already complete")

	errNoModel = errors.New("no chat model configured")
)

// ChoiceCount is the fixed size of every generated choice list.
const ChoiceCount = 3

// CharacterPick binds a player to the movie character they act as.
type CharacterPick struct {
	PlayerID    string `json:"playerId,omitempty"`
	CharacterID string `json:"characterId"`
	Name        string `json:"name"`
}

// Segment is one generated unit of narrative.
type Segment struct {
	Text  string `json:"text"`
	Turn  int    `json:"turn"`
	Final bool   `json:"final"`
}

// Completion reports whether a story has reached its end.
type Completion struct {
	Completed bool   `json:"completed"`
	Turn      int    `json:"turn"`
	Epilogue  string `json:"epilogue,omitempty"`
}

type exchange struct {
	Choice  string
	Segment string
}

type storyState struct {
	Movie      movie.Movie
	Characters []CharacterPick
	Turn       int
	Completed  bool
	Exchanges  []exchange
}

// Service orchestrates content generation for running stories. When no chat
// model is configured, or when a generation call fails or times out, it
// substitutes deterministic scene-derived content so the turn sequence is
// never blocked by the external dependency.
type Service struct {
	movies    movie.Store
	chain     compose.Runnable[map[string]any, *schema.Message]
	turnLimit int

	mu      sync.Mutex
	stories map[string]*storyState
}

// NewService wires the story service. chatModel may be nil; the service then
// runs entirely on fallback content.
func NewService(ctx context.Context, movies movie.Store, chatModel model.ChatModel, turnLimit int) (*Service, error) {
	s := &Service{
		movies:    movies,
		turnLimit: turnLimit,
		stories:   make(map[string]*storyState),
	}

	if chatModel == nil {
		return s, nil
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile story chain: %w", err)
	}
	s.chain = runnable
	return s, nil
}

// Exists reports whether a story is registered for the given id. The room
// and solo layers use this as their uniform "is a story running" check.
func (s *Service) Exists(storyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.stories[storyID]
	return ok
}

// InitializeStory registers a story for a room and produces its opening
// segment.
func (s *Service) InitializeStory(ctx context.Context, storyID, movieID string, picks []CharacterPick) (Segment, error) {
	m, ok := s.movies.FindByID(movieID)
	if !ok {
		return Segment{}, ErrMovieNotFound
	}

	s.mu.Lock()
	s.stories[storyID] = &storyState{Movie: m, Characters: append([]CharacterPick(nil), picks...)}
	s.mu.Unlock()

	opening := s.generate(ctx, storyID, systemPrompt(m, picks), openingQuery(m), nil, fallbackOpening(m))

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.stories[storyID]
	if !ok {
		// Swept or discarded while generating; hand the text back anyway.
		return Segment{Text: opening}, nil
	}
	state.Exchanges = append(state.Exchanges, exchange{Segment: opening})
	return Segment{Text: opening, Turn: state.Turn}, nil
}

// GenerateChoices produces the fixed-size choice list for a character's
// current turn.
func (s *Service) GenerateChoices(ctx context.Context, storyID, characterID string) ([]string, error) {
	s.mu.Lock()
	state, ok := s.stories[storyID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrStoryNotFound
	}
	m := state.Movie
	turn := state.Turn
	picks := state.Characters
	history := historyMessages(state.Exchanges)
	s.mu.Unlock()

	character := pickName(picks, m, characterID)
	raw := s.generate(ctx, storyID, systemPrompt(m, picks), choicesQuery(character), history, "")
	choices := parseChoices(raw)
	if len(choices) < ChoiceCount {
		choices = fillChoices(choices, m, turn)
	}
	return choices[:ChoiceCount], nil
}

// ProcessChoice folds a submitted choice into the story and returns the next
// narrative segment. The story finalizes once turnLimit choices have been
// processed.
func (s *Service) ProcessChoice(ctx context.Context, storyID, choice string) (Segment, error) {
	s.mu.Lock()
	state, ok := s.stories[storyID]
	if !ok {
		s.mu.Unlock()
		return Segment{}, ErrStoryNotFound
	}
	if state.Completed {
		s.mu.Unlock()
		return Segment{}, ErrStoryComplete
	}

	state.Turn++
	turn := state.Turn
	final := turn >= s.turnLimit
	m := state.Movie
	picks := state.Characters
	history := historyMessages(state.Exchanges)
	s.mu.Unlock()

	var text string
	if final {
		text = s.generate(ctx, storyID, systemPrompt(m, picks), finaleQuery(choice), history, fallbackFinale(m))
	} else {
		text = s.generate(ctx, storyID, systemPrompt(m, picks), continueQuery(choice, turn), history, fallbackSegment(m, turn))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok = s.stories[storyID]
	if !ok {
		// The story vanished mid-generation; the result goes unconsumed.
		return Segment{Text: text, Turn: turn, Final: final}, nil
	}
	state.Exchanges = append(state.Exchanges, exchange{Choice: choice, Segment: text})
	state.Completed = state.Completed || final
	return Segment{Text: text, Turn: turn, Final: final}, nil
}

// CheckCompletion reports whether the story has ended, finalizing with an
// epilogue when the turn limit is reached but no finale was produced yet.
func (s *Service) CheckCompletion(ctx context.Context, storyID string) (Completion, error) {
	s.mu.Lock()
	state, ok := s.stories[storyID]
	if !ok {
		s.mu.Unlock()
		return Completion{}, ErrStoryNotFound
	}

	if state.Completed {
		epilogue := ""
		if n := len(state.Exchanges); n > 0 {
			epilogue = state.Exchanges[n-1].Segment
		}
		result := Completion{Completed: true, Turn: state.Turn, Epilogue: epilogue}
		s.mu.Unlock()
		return result, nil
	}

	if state.Turn < s.turnLimit {
		result := Completion{Turn: state.Turn}
		s.mu.Unlock()
		return result, nil
	}

	m := state.Movie
	picks := state.Characters
	turn := state.Turn
	history := historyMessages(state.Exchanges)
	s.mu.Unlock()

	epilogue := s.generate(ctx, storyID, systemPrompt(m, picks), finaleQuery(""), history, fallbackFinale(m))

	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok = s.stories[storyID]; ok {
		state.Completed = true
		state.Exchanges = append(state.Exchanges, exchange{Segment: epilogue})
	}
	return Completion{Completed: true, Turn: turn, Epilogue: epilogue}, nil
}

// Discard drops a story's state.
func (s *Service) Discard(storyID string) {
	s.mu.Lock()
	delete(s.stories, storyID)
	s.mu.Unlock()
}

// OpenStory implements the room coordinator's narrator hook for multiplayer
// sessions, registering story state keyed by the session id.
func (s *Service) OpenStory(ctx context.Context, session game.Session) (string, error) {
	picks := sessionPicks(session, s.movies)
	seg, err := s.InitializeStory(ctx, session.ID, session.MovieID, picks)
	if errors.Is(err, ErrMovieNotFound) {
		// Rooms created against an unknown movie still get a story.
		m := placeholderMovie()
		s.mu.Lock()
		s.stories[session.ID] = &storyState{Movie: m, Characters: picks}
		s.mu.Unlock()
		return fallbackOpening(m), nil
	}
	if err != nil {
		return "", err
	}
	return seg.Text, nil
}

// ContinueStory implements the narrator hook for an accepted mid-story
// choice.
func (s *Service) ContinueStory(ctx context.Context, session game.Session, choice game.Choice) (string, error) {
	s.ensureStory(session)
	seg, err := s.ProcessChoice(ctx, session.ID, choice.Text)
	if err != nil {
		return "", err
	}
	return seg.Text, nil
}

// CloseStory implements the narrator hook for session completion.
func (s *Service) CloseStory(ctx context.Context, session game.Session) (string, error) {
	s.ensureStory(session)

	s.mu.Lock()
	state, ok := s.stories[session.ID]
	if !ok {
		s.mu.Unlock()
		return "", ErrStoryNotFound
	}
	m := state.Movie
	picks := state.Characters
	history := historyMessages(state.Exchanges)
	state.Completed = true
	s.mu.Unlock()

	epilogue := s.generate(ctx, session.ID, systemPrompt(m, picks), finaleQuery(""), history, fallbackFinale(m))

	s.mu.Lock()
	if state, ok = s.stories[session.ID]; ok {
		state.Exchanges = append(state.Exchanges, exchange{Segment: epilogue})
	}
	s.mu.Unlock()
	return epilogue, nil
}

// ensureStory registers state for sessions whose story started out of band.
func (s *Service) ensureStory(session game.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stories[session.ID]; ok {
		return
	}
	m, ok := s.movies.FindByID(session.MovieID)
	if !ok {
		m = placeholderMovie()
	}
	s.stories[session.ID] = &storyState{Movie: m, Characters: sessionPicks(session, s.movies)}
}

// generate runs one chain invocation, trading any failure for the supplied
// fallback. Generation errors are logged, never propagated.
func (s *Service) generate(ctx context.Context, storyID, system, query string, history []*schema.Message, fallback string) string {
	content, err := s.invoke(ctx, system, query, history)
	if err != nil {
		if !errors.Is(err, errNoModel) {
			log.Printf("[story] generation failed for story=%s: %v", storyID, err)
		}
		return fallback
	}
	log.Printf("[story] generated segment for story=%s length=%d", storyID, len(content))
	return content
}

func (s *Service) invoke(ctx context.Context, system, query string, history []*schema.Message) (string, error) {
	if s.chain == nil {
		return "", errNoModel
	}

	response, err := s.chain.Invoke(ctx, map[string]any{
		"system":  system,
		"history": history,
		"query":   query,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run story chain: %w", err)
	}
	return response.Content, nil
}

func historyMessages(exchanges []exchange) []*schema.Message {
	const historyLimit = 10

	start := 0
	if len(exchanges) > historyLimit {
		start = len(exchanges) - historyLimit
	}

	history := make([]*schema.Message, 0, 2*(len(exchanges)-start))
	for _, ex := range exchanges[start:] {
		if ex.Choice != "" {
			history = append(history, schema.UserMessage(ex.Choice))
		}
		if ex.Segment != "" {
			history = append(history, schema.AssistantMessage(ex.Segment, nil))
		}
	}
	return history
}

func sessionPicks(session game.Session, movies movie.Store) []CharacterPick {
	m, _ := movies.FindByID(session.MovieID)

	picks := make([]CharacterPick, 0, len(session.Players))
	for _, p := range session.Players {
		pick := CharacterPick{PlayerID: p.ID, CharacterID: p.CharacterID, Name: p.Name}
		if c, ok := m.FindCharacter(p.CharacterID); ok {
			pick.Name = c.Name
		}
		picks = append(picks, pick)
	}
	return picks
}

func pickName(picks []CharacterPick, m movie.Movie, characterID string) string {
	for _, p := range picks {
		if p.CharacterID == characterID {
			return p.Name
		}
	}
	if c, ok := m.FindCharacter(characterID); ok {
		return c.Name
	}
	return "the protagonist"
}
