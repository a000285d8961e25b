package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	moviehandler "github.com/sceneplay/backend/internal/handler/movie"
	solohandler "github.com/sceneplay/backend/internal/handler/solo"
	storyhandler "github.com/sceneplay/backend/internal/handler/story"
	"github.com/sceneplay/backend/internal/handler/ws"
	middlewarePkg "github.com/sceneplay/backend/internal/middleware"
	movieModel "github.com/sceneplay/backend/internal/model/movie"
	"github.com/sceneplay/backend/internal/service/room"
	soloservice "github.com/sceneplay/backend/internal/service/solo"
	storyservice "github.com/sceneplay/backend/internal/service/story"
	"github.com/sceneplay/backend/pkg/utils"
)

// NewRouter wires HTTP and websocket routes to core services.
func NewRouter(movies movieModel.Store, soloStore *soloservice.Store, stories *storyservice.Service, coordinator *room.Coordinator, hub *ws.Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	movieHandler := moviehandler.New(movies)
	soloHandler := solohandler.New(soloStore, movies)
	storyHandler := storyhandler.New(stories, soloStore)
	wsHandler := ws.New(coordinator, hub)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		movieHandler.RegisterRoutes(api)
		soloHandler.RegisterRoutes(api)
		storyHandler.RegisterRoutes(api)
	})

	wsHandler.RegisterRoutes(r)

	return r
}
