package movie

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	movieModel "github.com/sceneplay/backend/internal/model/movie"
)

func setupRouter() *chi.Mux {
	handler := New(movieModel.NewMemoryStore(movieModel.Seed()))
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func TestListMovies(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/movies", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var movies []movieModel.Movie
	if err := json.NewDecoder(resp.Body).Decode(&movies); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(movies) == 0 {
		t.Fatal("expected seeded catalog")
	}
}

func TestGetMovie(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/movies/last-starfarer", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var m movieModel.Movie
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if m.ID != "last-starfarer" {
		t.Fatalf("unexpected movie: %s", m.ID)
	}
	if len(m.Scenes) == 0 || len(m.Characters) == 0 {
		t.Fatal("expected scenes and characters")
	}
}

func TestGetMovieNotFound(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/movies/nope", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
