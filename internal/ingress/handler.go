package ingress

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/temperature-relay/internal/adapter/httpadapter"
	"github.com/couchcryptid/temperature-relay/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Frames above MaxFrameSize are still read so they can be answered;
	// only beyond readLimit does the socket close with 1009.
	readLimit = 4 * MaxFrameSize
)

// Handler upgrades generator connections and serves the relay's status
// endpoints.
type Handler struct {
	hub           *Hub
	relay         *Relay
	enrichmentURL string
	upgrader      websocket.Upgrader
	logger        *slog.Logger
	started       time.Time
}

// NewHandler creates a Handler. enrichmentURL is reported by /stats.
func NewHandler(hub *Hub, relay *Relay, enrichmentURL string, logger *slog.Logger) *Handler {
	return &Handler{
		hub:           hub,
		relay:         relay,
		enrichmentURL: enrichmentURL,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Generators are not browsers; there is no origin to check.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		started: time.Now(),
	}
}

// Routes returns the relay's HTTP routes.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.serveWS)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /stats", h.stats)
	return mux
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := NewClient()
	if !h.hub.Register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	defer h.hub.Unregister(c)

	go h.writePump(conn, c)

	c.deliver(domain.Ack{
		Status:    domain.AckConnected,
		Message:   "Connected to ingress relay",
		Timestamp: timestamp(),
	})
	h.readPump(r, conn, c)
}

// readPump handles inbound frames in arrival order. Each frame is answered
// before the next one is read.
func (h *Handler) readPump(r *http.Request, conn *websocket.Conn, c *Client) {
	defer c.markGone()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read error", "client_id", c.ID, "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		ack := h.relay.Process(r.Context(), payload)
		if !c.deliver(ack) {
			return
		}
	}
}

// writePump is the only writer on conn.
func (h *Handler) writePump(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	write := func(ack domain.Ack) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ack); err != nil {
			h.logger.Debug("websocket write failed", "client_id", c.ID, "error", err)
			return false
		}
		return true
	}

	for {
		select {
		case ack := <-c.send:
			if !write(ack) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closing:
			for {
				select {
				case ack := <-c.send:
					if !write(ack) {
						return
					}
				default:
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
					return
				}
			}
		case <-c.gone:
			return
		}
	}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	httpadapter.WriteJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"connectedClients": h.hub.Count(),
		"uptime":           time.Since(h.started).Seconds(),
		"timestamp":        timestamp(),
	})
}

func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	httpadapter.WriteJSON(w, http.StatusOK, map[string]any{
		"connectedClients": h.hub.Count(),
		"uptime":           time.Since(h.started).Seconds(),
		"enrichmentUrl":    h.enrichmentURL,
	})
}
