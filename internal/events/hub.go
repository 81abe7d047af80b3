package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dfryer1193/goplaces/api"
	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/rs/zerolog/log"
)

const (
	TypeTaskUploading = "task.uploading"
	TypeTaskSucceeded = "task.succeeded"
	TypeTaskFailed    = "task.failed"
)

// Message is pushed to every client watching a session.
type Message struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Task      api.Task  `json:"task"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans task events out to websocket clients grouped by edit session.
type Hub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.sessionID] == nil {
				h.clients[client.sessionID] = make(map[*Client]bool)
			}
			h.clients[client.sessionID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				log.Error().Err(err).Str("sessionID", msg.SessionID).Msg("Failed to marshal event")
				continue
			}
			h.mu.Lock()
			for client := range h.clients[msg.SessionID] {
				select {
				case client.send <- payload:
				default:
					// Slow client; drop it rather than stall every other session.
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.sessionID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.remove(client)
		}
	}
}

// Publish queues msg without blocking. Events are dropped when the queue is full.
func (h *Hub) Publish(msg *Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- msg:
	default:
		log.Warn().Str("sessionID", msg.SessionID).Str("type", msg.Type).Msg("Event queue full, dropping event")
	}
}

// PublishTask matches the upload orchestrator's task listener signature.
func (h *Hub) PublishTask(sessionID string, task domain.UploadTask) {
	h.Publish(&Message{
		Type:      typeFor(task.State),
		SessionID: sessionID,
		Task:      api.NewTask(task),
	})
}

// ClientCount returns the number of clients watching a session.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func typeFor(state domain.TaskState) string {
	switch state {
	case domain.TaskSucceeded:
		return TypeTaskSucceeded
	case domain.TaskFailed:
		return TypeTaskFailed
	default:
		return TypeTaskUploading
	}
}
