package story

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	soloservice "github.com/sceneplay/backend/internal/service/solo"
	storyservice "github.com/sceneplay/backend/internal/service/story"
	"github.com/sceneplay/backend/pkg/utils"
)

// Handler exposes the story orchestration surface the presentation layer
// drives for solo play: initialize, choices, choice processing, completion.
type Handler struct {
	stories  *storyservice.Service
	sessions *soloservice.Store
}

// New creates the story handler.
func New(stories *storyservice.Service, sessions *soloservice.Store) *Handler {
	return &Handler{stories: stories, sessions: sessions}
}

// RegisterRoutes mounts the story routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/story/{sessionID}", h.handleExists)
	r.Post("/story/{sessionID}/start", h.handleStart)
	r.Get("/story/{sessionID}/choices", h.handleChoices)
	r.Post("/story/{sessionID}/choice", h.handleChoice)
	r.Get("/story/{sessionID}/completion", h.handleCompletion)
	r.Get("/story/{sessionID}/stream", h.handleStream)
}

func (h *Handler) handleExists(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"exists": h.stories.Exists(sessionID)})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		MovieID     string `json:"movieId"`
		CharacterID string `json:"characterId"`
		Name        string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, ok := h.sessions.Get(sessionID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	movieID := payload.MovieID
	if movieID == "" {
		movieID = session.MovieID
	}
	characterID := payload.CharacterID
	if characterID == "" {
		characterID = session.CharacterID
	}

	picks := []storyservice.CharacterPick{{CharacterID: characterID, Name: payload.Name}}
	segment, err := h.stories.InitializeStory(r.Context(), sessionID, movieID, picks)
	if err != nil {
		if errors.Is(err, storyservice.ErrMovieNotFound) {
			utils.RespondError(w, http.StatusBadRequest, "movie not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to start story")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, segment)
}

func (h *Handler) handleChoices(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	characterID := r.URL.Query().Get("characterId")

	choices, err := h.stories.GenerateChoices(r.Context(), sessionID, characterID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "story not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"choices": choices})
}

func (h *Handler) handleChoice(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Choice string `json:"choice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Choice == "" {
		utils.RespondError(w, http.StatusBadRequest, "choice is required")
		return
	}

	segment, err := h.stories.ProcessChoice(r.Context(), sessionID, payload.Choice)
	if err != nil {
		switch {
		case errors.Is(err, storyservice.ErrStoryNotFound):
			utils.RespondError(w, http.StatusNotFound, "story not found")
		case errors.Is(err, storyservice.ErrStoryComplete):
			utils.RespondError(w, http.StatusConflict, "story already complete")
		default:
			utils.RespondError(w, http.StatusInternalServerError, "failed to process choice")
		}
		return
	}

	// Keep the solo session warm so the idle sweep doesn't reap an active
	// story.
	if _, ok := h.sessions.Get(sessionID); ok {
		h.sessions.Update(sessionID, soloservice.Update{})
	}

	utils.RespondJSON(w, http.StatusOK, segment)
}

func (h *Handler) handleCompletion(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	completion, err := h.stories.CheckCompletion(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "story not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, completion)
}

// handleStream processes a choice and replays the result over Server-Sent
// Events for clients that render segments as they arrive.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	choice := r.URL.Query().Get("choice")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if choice == "" {
		utils.RespondError(w, http.StatusBadRequest, "choice query parameter is required")
		return
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEEvent(w, flusher, "start", map[string]string{"sessionId": sessionID})

	segment, err := h.stories.ProcessChoice(r.Context(), sessionID, choice)
	if err != nil {
		utils.SendSSEEvent(w, flusher, "error", map[string]string{"message": "story not found"})
		return
	}

	utils.SendSSEEvent(w, flusher, "segment", segment)
	utils.SendSSEEvent(w, flusher, "end", map[string]bool{"finished": true})
}
