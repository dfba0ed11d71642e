package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"nhooyr.io/websocket"
)

// ──────────────────── WebSocket Hub ────────────────────

type WSHub struct {
	mu          sync.RWMutex
	clients     map[*WSClient]bool
	activeSyncs map[string]json.RawMessage // job_id → last sync event payload
	syncsMu     sync.RWMutex
}

type WSClient struct {
	conn      *websocket.Conn
	accountID string
	send      chan []byte
}

type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func NewWSHub() *WSHub {
	return &WSHub{
		clients:     make(map[*WSClient]bool),
		activeSyncs: make(map[string]json.RawMessage),
	}
}

func (h *WSHub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}

	// Track in-flight syncs so new clients get current state
	if strings.HasPrefix(event, "sync:") {
		h.trackSync(event, data, msg)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

// trackSync keeps a snapshot of each running sync so new clients see what
// is in flight without waiting for the next progress event.
func (h *WSHub) trackSync(event string, data interface{}, raw []byte) {
	m, ok := data.(map[string]interface{})
	if !ok {
		return
	}
	jobID, _ := m["job_id"].(string)
	if jobID == "" {
		return
	}

	h.syncsMu.Lock()
	defer h.syncsMu.Unlock()
	switch event {
	case "sync:complete", "sync:failed", "sync:account:complete":
		delete(h.activeSyncs, jobID)
	default:
		h.activeSyncs[jobID] = json.RawMessage(raw)
	}
}

// sendActiveSyncs replays in-flight sync state to a newly connected client.
func (h *WSHub) sendActiveSyncs(client *WSClient) {
	h.syncsMu.RLock()
	defer h.syncsMu.RUnlock()
	for _, msg := range h.activeSyncs {
		select {
		case client.send <- msg:
		default:
		}
	}
}

func (h *WSHub) addClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *WSHub) removeClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ──────────────────── WebSocket Handler ────────────────────

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via query param token
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if token == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("WebSocket accept error: %v", err)
		return
	}

	client := &WSClient{
		conn:      conn,
		accountID: claims.AccountID,
		send:      make(chan []byte, 64),
	}

	s.wsHub.addClient(client)
	s.wsHub.sendActiveSyncs(client)
	log.Printf("WebSocket client connected: %s", claims.Username)

	ctx := r.Context()

	// Writer goroutine
	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range client.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Reader goroutine (keep connection alive, handle pings)
	for {
		_, _, err := conn.Read(ctx)
		if err != nil {
			break
		}
	}

	s.wsHub.removeClient(client)
	log.Printf("WebSocket client disconnected: %s", claims.Username)
}
