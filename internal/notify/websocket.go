package notify

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// PlayerFunc resolves the player making a request.
type PlayerFunc func(r *http.Request) (string, bool)

// Handler streams a player's notifications over a WebSocket.
type Handler struct {
	hub            *Hub
	player         PlayerFunc
	originPatterns []string
}

// NewHandler creates a WebSocket handler. originPatterns are passed to the
// upgrader; an empty list only allows same-origin clients.
func NewHandler(hub *Hub, player PlayerFunc, originPatterns ...string) *Handler {
	return &Handler{hub: hub, player: player, originPatterns: originPatterns}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.player(r)
	if !ok {
		http.Error(w, "unknown player", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("failed to accept websocket", "player_id", playerID, "error", err)
		return
	}
	defer func() {
		if err := ws.Close(websocket.StatusNormalClosure, "stream ended"); err != nil {
			slog.Debug("failed to close websocket", "player_id", playerID, "error", err)
		}
	}()

	sub := h.hub.Subscribe(playerID)
	defer sub.Close()

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := ws.CloseRead(r.Context())
	slog.Info("notification stream opened", "player_id", playerID)

	for {
		select {
		case <-ctx.Done():
			slog.Info("notification stream closed", "player_id", playerID)
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := write(ctx, ws, ev); err != nil {
				slog.Debug("websocket write failed", "player_id", playerID, "error", err)
				return
			}
		}
	}
}

func write(ctx context.Context, ws *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, ev)
}
