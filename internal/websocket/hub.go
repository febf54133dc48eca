package websocket

import (
	"encoding/json"
	"log"
	"os"
	"sync"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/pgpubsub"

	"gorm.io/gorm"
)

// CrossReplicaMessage is the envelope sent over PG NOTIFY to route an event
// to the correct replica/session.
type CrossReplicaMessage struct {
	TargetID  string      `json:"target_id"`  // session_id, empty = broadcast
	EventType string      `json:"event_type"` // message type
	Payload   interface{} `json:"payload"`    // message data
	SourcePod string      `json:"source_pod"` // sender pod name
}

// Message is pushed to connected UI clients. Auth-state changes (login,
// logout) arrive here so the UI can re-render role-gated elements without
// polling.
type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data"`
}

// Hub tracks the WebSocket connection of each browser session and fans
// messages out to them.
type Hub struct {
	clients map[string]*Client

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// optional cross-replica fan-out via PG LISTEN/NOTIFY
	broker  *pgpubsub.Broker
	db      *gorm.DB
	podName string
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run drives the hub's main loop. Call it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// A session reconnecting replaces its old connection.
			if oldClient, exists := h.clients[client.sessionID]; exists {
				close(oldClient.send)
			}
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			log.Printf("[Hub] client registered: session=%s, total=%d", client.sessionID, h.GetClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			// Only unregister if this client is still the registered one;
			// otherwise a stale connection would close its replacement's
			// channel.
			if currentClient, exists := h.clients[client.sessionID]; exists && currentClient == client {
				delete(h.clients, client.sessionID)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			if message.SessionID != "" {
				h.sendToSession(message.SessionID, message)
			} else {
				h.broadcastToAll(message)
			}
		}
	}
}

// Register queues a client for registration.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister queues a client for removal.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast queues a message for delivery. With an empty SessionID it goes
// to every connected client, otherwise to that session only.
func (h *Hub) Broadcast(message Message) {
	h.broadcast <- message
}

// SendToSession delivers a message to one locally connected session.
func (h *Hub) SendToSession(sessionID string, message Message) {
	h.mu.RLock()
	client, exists := h.clients[sessionID]
	h.mu.RUnlock()

	if exists {
		h.sendToClient(client, message)
	}
}

// SendToSessionOrBroadcast tries to deliver a message to a local session
// first. If the session is not connected to this replica and PG PubSub is
// configured, the message is published via PG NOTIFY so that other replicas
// can deliver it.
func (h *Hub) SendToSessionOrBroadcast(sessionID string, message Message) {
	h.mu.RLock()
	client, exists := h.clients[sessionID]
	h.mu.RUnlock()

	if exists {
		h.sendToClient(client, message)
		return
	}

	if h.broker == nil || h.db == nil {
		return
	}

	crMsg := CrossReplicaMessage{
		TargetID:  sessionID,
		EventType: message.Type,
		Payload:   message.Data,
		SourcePod: h.podName,
	}

	if err := pgpubsub.Publish(h.db, crMsg); err != nil {
		log.Printf("[Hub] failed to send cross-replica NOTIFY for session %s: %v", sessionID, err)
	}
}

// SetupCrossReplicaListener configures the Hub to participate in
// cross-replica message delivery via PostgreSQL LISTEN/NOTIFY.
func (h *Hub) SetupCrossReplicaListener(broker *pgpubsub.Broker, db *gorm.DB) {
	h.broker = broker
	h.db = db

	h.podName = os.Getenv("POD_NAME")
	if h.podName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			h.podName = "unknown"
		} else {
			h.podName = hostname
		}
	}

	broker.OnEvent(func(payload string) {
		var crMsg CrossReplicaMessage
		if err := json.Unmarshal([]byte(payload), &crMsg); err != nil {
			log.Printf("[Hub] failed to unmarshal cross-replica message: %v", err)
			return
		}

		// Skip messages we sent ourselves.
		if crMsg.SourcePod == h.podName {
			return
		}

		msg := Message{
			Type:      crMsg.EventType,
			SessionID: crMsg.TargetID,
			Data:      crMsg.Payload,
		}
		if crMsg.TargetID == "" {
			h.broadcastToAll(msg)
			return
		}
		h.sendToSession(crMsg.TargetID, msg)
	})
}

func (h *Hub) sendToSession(sessionID string, message Message) {
	h.mu.RLock()
	client, exists := h.clients[sessionID]
	h.mu.RUnlock()

	if exists {
		h.sendToClient(client, message)
	}
}

func (h *Hub) broadcastToAll(message Message) {
	// Snapshot under the read lock, send after releasing it. sendToClient
	// takes the write lock when it evicts a slow client, so holding the
	// read lock across the sends would deadlock on the same goroutine.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.sendToClient(client, message)
	}
}

func (h *Hub) sendToClient(client *Client, message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[Hub] failed to marshal message: %v", err)
		return
	}

	select {
	case client.send <- data:
	default:
		// Send buffer full, drop the connection.
		h.mu.Lock()
		if currentClient, exists := h.clients[client.sessionID]; exists && currentClient == client {
			delete(h.clients, client.sessionID)
			close(client.send)
		}
		h.mu.Unlock()
	}
}

// GetConnectedSessions returns the session IDs of all connected clients.
func (h *Hub) GetConnectedSessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessions := make([]string, 0, len(h.clients))
	for sessionID := range h.clients {
		sessions = append(sessions, sessionID)
	}
	return sessions
}

// IsSessionConnected reports whether the session has a live connection.
func (h *Hub) IsSessionConnected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.clients[sessionID]
	return exists
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
