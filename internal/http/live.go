package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"lpr-service/internal/domain/anpr"
)

const (
	writeWait        = 5 * time.Second
	broadcastBacklog = 64
	feedInterval     = 50 * time.Millisecond
)

var errBroadcastFull = errors.New("websocket broadcast queue is full")

type wsMessage struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	Data   any       `json:"data"`
	SentAt time.Time `json:"sent_at"`
}

// Hub pushes detection events to websocket clients. Only the Run goroutine
// writes to connections.
type Hub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	done       chan struct{}
	mu         sync.RWMutex
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, broadcastBacklog),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "ws_hub").Logger(),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Info().Int("clients", n).Msg("websocket client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Info().Int("clients", n).Msg("websocket client disconnected")

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.log.Warn().Err(err).Msg("dropping websocket client")
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// add hands conn to Run. Once Run has stopped the connection is closed
// instead and add reports false.
func (h *Hub) add(conn *websocket.Conn) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		conn.Close()
		return false
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify queues ev for every connected client without blocking.
func (h *Hub) Notify(_ context.Context, ev anpr.DetectionEvent) error {
	msg, err := json.Marshal(wsMessage{
		ID:     uuid.NewString(),
		Type:   "detection",
		Data:   ev,
		SentAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("encode websocket message: %w", err)
	}

	select {
	case h.broadcast <- msg:
		return nil
	default:
		return errBroadcastFull
	}
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
}

func (h *Handler) serveWS(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse("live events are disabled"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to upgrade websocket")
		return
	}
	if !h.hub.add(conn) {
		return
	}

	go func() {
		defer h.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.log.Warn().Err(err).Msg("websocket read failed")
				}
				return
			}
		}
	}()
}

func (h *Handler) liveStatus(c *gin.Context) {
	if h.live == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse("live view is disabled"))
		return
	}
	c.JSON(http.StatusOK, successResponse(h.live.Status()))
}

// liveFeed streams the annotated frames as MJPEG.
func (h *Handler) liveFeed(c *gin.Context) {
	if h.live == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse("live view is disabled"))
		return
	}

	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")

	ticker := time.NewTicker(feedInterval)
	defer ticker.Stop()

	var last int64
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-ticker.C:
		}

		frame, seq := h.live.Frame()
		if len(frame) == 0 || seq == last {
			return true
		}
		last = seq

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame)); err != nil {
			return false
		}
		if _, err := w.Write(frame); err != nil {
			return false
		}
		_, err := io.WriteString(w, "\r\n")
		return err == nil
	})
}
