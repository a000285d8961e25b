package solo

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sceneplay/backend/internal/model/movie"
	soloservice "github.com/sceneplay/backend/internal/service/solo"
	"github.com/sceneplay/backend/pkg/utils"
)

// Handler exposes the solo session lifecycle over HTTP.
type Handler struct {
	sessions *soloservice.Store
	movies   movie.Store
}

// New creates the solo session handler.
func New(sessions *soloservice.Store, movies movie.Store) *Handler {
	return &Handler{sessions: sessions, movies: movies}
}

// RegisterRoutes mounts the solo session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/solo/sessions", h.handleCreateSession)
	r.Get("/solo/sessions/{sessionID}", h.handleGetSession)
	r.Patch("/solo/sessions/{sessionID}", h.handleUpdateSession)
	r.Delete("/solo/sessions/{sessionID}", h.handleDeleteSession)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID   string         `json:"sessionId"`
		MovieID     string         `json:"movieId"`
		CharacterID string         `json:"characterId"`
		Mode        string         `json:"mode"`
		Data        map[string]any `json:"data"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.MovieID != "" {
		if _, ok := h.movies.FindByID(payload.MovieID); !ok {
			utils.RespondError(w, http.StatusBadRequest, "movie not found")
			return
		}
	}

	if payload.SessionID == "" {
		payload.SessionID = uuid.NewString()
	}

	session := h.sessions.Create(soloservice.Session{
		ID:          payload.SessionID,
		MovieID:     payload.MovieID,
		CharacterID: payload.CharacterID,
		Mode:        payload.Mode,
		Data:        payload.Data,
	})

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, ok := h.sessions.Get(sessionID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var update soloservice.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.sessions.Update(sessionID, update)
	if err != nil {
		if errors.Is(err, soloservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	h.sessions.Delete(sessionID)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
