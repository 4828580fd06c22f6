package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/gapscan/internal/contracts"
	"github.com/wonny/gapscan/pkg/logger"
)

// Stream timing
const (
	streamPingInterval = 30 * time.Second
	streamReadTimeout  = 90 * time.Second
	streamWriteTimeout = 10 * time.Second
	streamBuffer       = 64
)

// Message types pushed to subscribers
const (
	MessageWatchlist = "watchlist"
	MessagePick      = "pick"
)

// StreamMessage is one push frame
type StreamMessage struct {
	Type string      `json:"type"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data"`
}

type subscriber struct {
	conn *websocket.Conn
	out  chan StreamMessage
	done chan struct{}
}

// Hub fans tick output out to websocket subscribers
// ⭐ SSOT: 실시간 push 는 이 Hub 에서만
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu        sync.RWMutex
	clients   map[*subscriber]struct{}
	watchlist *StreamMessage
	pick      *StreamMessage
}

// NewHub creates a websocket hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  log,
		clients: make(map[*subscriber]struct{}),
	}
}

// PublishWatchlist pushes a tick's top-N to all subscribers
func (h *Hub) PublishWatchlist(rows []contracts.WatchlistRow) {
	msg := StreamMessage{Type: MessageWatchlist, At: time.Now(), Data: rows}

	h.mu.Lock()
	h.watchlist = &msg
	h.mu.Unlock()

	h.broadcast(msg)
}

// PublishPick pushes the day's final pick to all subscribers
func (h *Hub) PublishPick(rec contracts.FinalPickRecord) {
	msg := StreamMessage{Type: MessagePick, At: time.Now(), Data: rec}

	h.mu.Lock()
	h.pick = &msg
	h.mu.Unlock()

	h.broadcast(msg)
}

// Clients returns the number of connected subscribers
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast never blocks the tick: slow subscribers miss frames
func (h *Hub) broadcast(msg StreamMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.out <- msg:
		default:
			h.logger.Debug("Stream subscriber lagging, frame dropped")
		}
	}
}

// ServeWS upgrades the request and streams until the peer goes away
// GET /ws
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	sub := &subscriber{
		conn: conn,
		out:  make(chan StreamMessage, streamBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[sub] = struct{}{}
	// 접속 직후 최신 상태 전송
	if h.watchlist != nil {
		sub.out <- *h.watchlist
	}
	if h.pick != nil {
		sub.out <- *h.pick
	}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.WithField("clients", count).Info("Stream subscriber connected")

	go h.writeLoop(sub)
	h.readLoop(sub)

	close(sub.done)
	h.mu.Lock()
	delete(h.clients, sub)
	h.mu.Unlock()
	conn.Close()

	h.logger.Debug("Stream subscriber disconnected")
}

// readLoop only services pongs and close frames
func (h *Hub) readLoop(sub *subscriber) {
	_ = sub.conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case msg := <-sub.out:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := sub.conn.WriteJSON(msg); err != nil {
				h.logger.WithError(err).Debug("Stream write failed")
				sub.conn.Close()
				return
			}
		case <-ping.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sub.conn.Close()
				return
			}
		case <-sub.done:
			return
		}
	}
}
