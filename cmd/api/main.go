package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/sceneplay/backend/internal/config"
	"github.com/sceneplay/backend/internal/handler"
	"github.com/sceneplay/backend/internal/handler/ws"
	"github.com/sceneplay/backend/internal/model/movie"
	"github.com/sceneplay/backend/internal/service/room"
	"github.com/sceneplay/backend/internal/service/solo"
	"github.com/sceneplay/backend/internal/service/story"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	movieStore := movie.NewMemoryStore(movie.Seed())

	var chatModel model.ChatModel
	if cfg.AI.Enabled() {
		chatModel, err = cfg.AI.NewChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize chat model: %v", err)
			log.Println("continuing with fallback story content only")
			chatModel = nil
		} else {
			log.Println("chat model initialized successfully")
		}
	} else {
		log.Println("ark credentials not configured, stories run on fallback content")
	}

	storyService, err := story.NewService(ctx, movieStore, chatModel, cfg.Game.StoryTurnLimit)
	if err != nil {
		log.Fatalf("failed to initialize story service: %v", err)
	}

	sessionStore := room.NewStore()
	registry := room.NewRegistry()
	hub := ws.NewHub()
	coordinator := room.NewCoordinator(sessionStore, registry, hub, storyService, cfg.Game)

	soloStore := solo.NewStore()
	go soloStore.RunSweeper(ctx, cfg.Solo.SweepInterval, cfg.Solo.MaxIdle)

	router := handler.NewRouter(movieStore, soloStore, storyService, coordinator, hub)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Sceneplay backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
