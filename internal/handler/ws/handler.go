package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sceneplay/backend/internal/service/room"
)

const readTimeout = 60 * time.Second

// Handler owns the websocket endpoint of the real-time room protocol.
type Handler struct {
	coordinator *room.Coordinator
	hub         *Hub
	upgrader    websocket.Upgrader
}

// New creates the websocket handler.
func New(coordinator *room.Coordinator, hub *Hub) *Handler {
	return &Handler{
		coordinator: coordinator,
		hub:         hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer sock.Close()

	conn := h.hub.register(sock)
	defer func() {
		// Transport loss is an ordinary disconnect: the coordinator removes
		// the player and cleans up the session before the hub forgets the
		// connection.
		h.coordinator.Dispatch(conn.id, room.Disconnect{})
		h.hub.unregister(conn.id)
	}()

	log.Printf("[websocket] new connection conn=%s", conn.id)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sock.SetReadDeadline(time.Now().Add(readTimeout))
	sock.SetPongHandler(func(string) error {
		sock.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, sock)

	for {
		var env envelope
		if err := sock.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[websocket] read error conn=%s: %v", conn.id, err)
			}
			return
		}

		sock.SetReadDeadline(time.Now().Add(readTimeout))

		intent, err := decodeIntent(env)
		if err != nil {
			h.hub.Send(conn.id, room.EventError, map[string]any{"message": err.Error()})
			continue
		}

		h.coordinator.Dispatch(conn.id, intent)
	}
}

func (h *Handler) pingLoop(ctx context.Context, sock *websocket.Conn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sock.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
