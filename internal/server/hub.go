package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// time allowed to write a message to the peer
	writeWait = 10 * time.Second
	// time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second
	// send pings to peer with this period, must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
	// maximum inbound message size; subscribers only send pongs
	maxMessageSize = 512

	// application close codes on top of the standard 1000
	closeAuthFailed   = 4001
	closeNotMember    = 4003
	closeGameNotFound = 4004
)

// event envelope types
const (
	eventGameUpdate          = "game_update"
	eventSummaryNotification = "game_summary_notification"
)

// Envelope is the wire format for every event stream message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub fans events out to per-game subscribers. Broadcast projections run
// on the caller's goroutine (the table coordinator), so they may touch
// game state safely; delivery is asynchronous per subscriber and a slow
// subscriber is dropped rather than ever blocking the table.
type Hub struct {
	logger  *log.Logger
	metrics *Metrics

	mu   sync.Mutex
	subs map[string]map[*Subscriber]struct{}
}

func NewHub(logger *log.Logger, metrics *Metrics) *Hub {
	return &Hub{
		logger:  logger.WithPrefix("hub"),
		metrics: metrics,
		subs:    make(map[string]map[*Subscriber]struct{}),
	}
}

// Add registers a subscriber and starts its pumps.
func (h *Hub) Add(gameID string, sub *Subscriber) {
	h.mu.Lock()
	if h.subs[gameID] == nil {
		h.subs[gameID] = make(map[*Subscriber]struct{})
	}
	h.subs[gameID][sub] = struct{}{}
	h.mu.Unlock()

	h.metrics.Subscribers.Inc()
	h.logger.Debug("subscriber added", "game", gameID, "player", sub.playerID)

	go sub.writePump()
	go sub.readPump()
}

func (h *Hub) remove(gameID string, sub *Subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[gameID]; ok {
		if _, present := set[sub]; present {
			delete(set, sub)
			h.metrics.Subscribers.Dec()
		}
		if len(set) == 0 {
			delete(h.subs, gameID)
		}
	}
	h.mu.Unlock()
}

// subscribers snapshots the current subscriber set for a game.
func (h *Hub) subscribers(gameID string) []*Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[gameID]
	out := make([]*Subscriber, 0, len(set))
	for sub := range set {
		out = append(out, sub)
	}
	return out
}

// BroadcastUpdate sends a game_update to every subscriber, with the
// payload projected per viewer so each subscriber only sees the cards
// it is entitled to.
func (h *Hub) BroadcastUpdate(gameID string, project func(viewer string) any) {
	for _, sub := range h.subscribers(gameID) {
		sub.Send(Envelope{Type: eventGameUpdate, Data: project(sub.playerID)})
	}
}

// BroadcastSummary sends the end-of-game summary notification.
func (h *Hub) BroadcastSummary(gameID string, summary any) {
	for _, sub := range h.subscribers(gameID) {
		sub.Send(Envelope{Type: eventSummaryNotification, Data: summary})
	}
}

// Subscriber is one websocket connection subscribed to one game.
type Subscriber struct {
	hub      *Hub
	gameID   string
	playerID string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	closed   sync.Once
}

// NewSubscriber wraps an upgraded connection. Callers pass it to
// Hub.Add to start delivery.
func NewSubscriber(hub *Hub, gameID, playerID string, conn *websocket.Conn) *Subscriber {
	return &Subscriber{
		hub:      hub,
		gameID:   gameID,
		playerID: playerID,
		conn:     conn,
		send:     make(chan []byte, 64),
		done:     make(chan struct{}),
	}
}

// Send queues an envelope for delivery. If the subscriber's buffer is
// full the connection is closed; the client reconnects and resyncs from
// a fresh snapshot.
func (s *Subscriber) Send(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		s.hub.logger.Error("failed to encode event", "error", err)
		return
	}
	select {
	case <-s.done:
	case s.send <- payload:
	default:
		s.hub.logger.Warn("dropping slow subscriber", "game", s.gameID, "player", s.playerID)
		s.Close(websocket.CloseNormalClosure, "too slow")
	}
}

// Close sends a close frame with the given code and tears the
// connection down. Safe to call more than once.
func (s *Subscriber) Close(code int, reason string) {
	s.closed.Do(func() {
		s.hub.remove(s.gameID, s)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = s.conn.Close()
		close(s.done)
	})
}

// writePump drains the send queue to the connection and keeps the peer
// alive with pings.
func (s *Subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close(websocket.CloseNormalClosure, "")
	}()

	for {
		select {
		case <-s.done:
			return
		case payload := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound messages; the event stream is one-way. It
// exists to process pongs and to notice the peer going away.
func (s *Subscriber) readPump() {
	defer s.Close(websocket.CloseNormalClosure, "")

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
