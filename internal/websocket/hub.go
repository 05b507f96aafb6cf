package websocket

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	maxInbound   = 512
	sendBuffer   = 64
)

// Calendar event types pushed to connected calendar views
const (
	EventAppointmentCreated = "appointment.created"
	EventAppointmentUpdated = "appointment.updated"
	EventAppointmentDeleted = "appointment.deleted"
	EventSlotHeld           = "slot.held"
	EventSlotReleased       = "slot.released"
)

// Event is one message on the calendar feed. Date is the calendar day the
// event belongs to and drives per-subscriber filtering.
type Event struct {
	Type string      `json:"type"`
	Date string      `json:"date"`
	Data interface{} `json:"data,omitempty"`
}

type envelope struct {
	date    string
	payload []byte
}

// subscriber is one open calendar view. An empty day set means every day.
type subscriber struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	days map[string]struct{}
}

func (s *subscriber) wants(date string) bool {
	if len(s.days) == 0 {
		return true
	}
	_, ok := s.days[date]
	return ok
}

// parseDays reads a comma separated list of YYYY-MM-DD days, ignoring
// anything that is not a valid date.
func parseDays(raw string) map[string]struct{} {
	days := map[string]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if _, err := time.Parse("2006-01-02", part); err == nil {
			days[part] = struct{}{}
		}
	}
	return days
}

// Hub fans calendar events out to the subscribers watching the affected day.
type Hub struct {
	subs   map[*subscriber]struct{}
	outbox chan envelope
	join   chan *subscriber
	leave  chan *subscriber
	mu     sync.RWMutex
	log    *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[*subscriber]struct{}),
		outbox: make(chan envelope, 128),
		join:   make(chan *subscriber),
		leave:  make(chan *subscriber),
		log:    log.Named("calendar-feed"),
	}
}

// Run owns the subscriber set. It blocks and is meant to run on its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case s := <-h.join:
			h.mu.Lock()
			h.subs[s] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("subscriber joined", zap.Int("days", len(s.days)))
		case s := <-h.leave:
			h.drop(s)
		case env := <-h.outbox:
			h.deliver(env)
		}
	}
}

func (h *Hub) drop(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.send)
	h.log.Debug("subscriber left")
}

func (h *Hub) deliver(env envelope) {
	var slow []*subscriber
	h.mu.RLock()
	for s := range h.subs {
		if !s.wants(env.date) {
			continue
		}
		select {
		case s.send <- env.payload:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.log.Warn("dropping slow subscriber")
		h.drop(s)
	}
}

// Publish queues an event without blocking. When the outbox is full the event
// is dropped; calendar views resync on their next fetch.
func (h *Hub) Publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to encode event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	select {
	case h.outbox <- envelope{date: event.Date, payload: payload}:
	default:
		h.log.Warn("outbox full, event dropped", zap.String("type", event.Type), zap.String("date", event.Date))
	}
}

// ClientCount returns the number of open subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (s *subscriber) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop only services control frames; the feed is server to client.
func (s *subscriber) readLoop() {
	defer func() {
		s.hub.leave <- s
	}()
	s.conn.SetReadLimit(maxInbound)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.hub.log.Warn("unexpected close", zap.Error(err))
			}
			return
		}
	}
}
