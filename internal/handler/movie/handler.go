package movie

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sceneplay/backend/internal/model/movie"
	"github.com/sceneplay/backend/pkg/utils"
)

// Handler serves the static movie catalog.
type Handler struct {
	movies movie.Store
}

// New creates the catalog handler.
func New(movies movie.Store) *Handler {
	return &Handler{movies: movies}
}

// RegisterRoutes mounts the catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/movies", h.handleListMovies)
	r.Get("/movies/{movieID}", h.handleGetMovie)
}

func (h *Handler) handleListMovies(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.movies.List())
}

func (h *Handler) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieID")
	m, ok := h.movies.FindByID(movieID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "movie not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, m)
}
