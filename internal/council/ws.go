package council

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"

	"github.com/codyburke970/ai-council/internal/identity"
)

// StreamHandler upgrades GET /api/council/stream to a WebSocket that receives
// per-persona events as the user's sends resolve.
type StreamHandler struct {
	hub           *Hub
	council       *Council
	allowedOrigin string
	isDev         bool
}

// NewStreamHandler creates the WebSocket stream handler.
func NewStreamHandler(hub *Hub, council *Council, allowedOrigin string, isDev bool) *StreamHandler {
	return &StreamHandler{
		hub:           hub,
		council:       council,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// streamHello is the first frame on a new stream connection: the current
// council snapshot, so late subscribers render the existing state.
type streamHello struct {
	Type     string    `json:"type"`
	Snapshot *Snapshot `json:"snapshot"`
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept council stream", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("failed to close council stream", "error", closeErr, "user_id", userID)
		}
	}()

	// The hub builds the snapshot once the connection is publishable and
	// writes it before any event frame.
	c, err := h.hub.register(userID, ws, func() ([]byte, error) {
		return json.Marshal(streamHello{Type: "snapshot", Snapshot: h.council.Snapshot(userID)})
	})
	if err != nil {
		slog.Error("failed to marshal stream snapshot", "error", err, "user_id", userID)
		return
	}
	defer h.hub.unregister(userID, c)

	// Drain the connection until the client goes away. The stream is
	// one-directional; inbound frames are discarded.
	ctx := r.Context()
	for {
		if _, _, err := ws.Read(ctx); err != nil {
			return
		}
	}
}

// checkOrigin accepts same-host and configured-frontend origins. Development
// mode accepts everything, matching the CORS policy.
func (h *StreamHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	if h.allowedOrigin == "" {
		return false
	}
	allowed, err := url.Parse(h.allowedOrigin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, allowed.Host)
}
