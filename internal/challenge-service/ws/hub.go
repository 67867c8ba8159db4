package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/bankroll-challenges/pkg/contracts/events"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

// Authorizer confirma que o desafio pertence ao usuário antes do subscribe.
// false sem erro = desafio inexistente ou de outro usuário.
type Authorizer func(ctx context.Context, userID, challengeID string) (bool, error)

// client tem uma fila própria e um único writer (gorilla aceita um writer por vez).
// Um cliente lento só atrasa a própria fila.
type client struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
	done   chan struct{}
}

func newClient(conn *websocket.Conn, userID string) *client {
	return &client{conn: conn, userID: userID, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
}

// enqueue não bloqueia; false = fila cheia ou conexão encerrada, mensagem descartada
func (c *client) enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *client) writeJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.enqueue(b)
}

// writePump drena a fila até a conexão encerrar; erro de escrita derruba a conexão
func (c *client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case b := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

// Hub gerencia conexões WebSocket e assinaturas por desafio
// subs: challengeID -> conjunto de clientes inscritos
type Hub struct {
	log       *zap.Logger
	upgrader  websocket.Upgrader
	authorize Authorizer

	mu   sync.RWMutex
	subs map[string]map[*client]struct{}
}

// NewHub cria o hub com política de origem e checagem de dono do desafio
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool, authorize Authorizer) *Hub {
	return &Hub{
		log:       log,
		upgrader:  websocket.Upgrader{CheckOrigin: allowOrigin},
		authorize: authorize,
		subs:      make(map[string]map[*client]struct{}),
	}
}

// UserFromRequest lê a identidade do header X-User-ID ou da query userId
// (navegadores não enviam headers customizados no upgrade)
func UserFromRequest(r *http.Request) string {
	if u := r.Header.Get("X-User-ID"); u != "" {
		return u
	}
	return r.URL.Query().Get("userId")
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID := UserFromRequest(r)
	if userID == "" {
		http.Error(w, `{"error":"unauthenticated"}`, http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := newClient(conn, userID)
	go c.writePump()
	h.log.Debug("ws connected", zap.String("user_id", userID))

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.ChallengeID == "" {
				c.writeJSON(ServerMsg{Type: "error", Error: "challengeId is required"})
				continue
			}
			ok, err := h.authorize(r.Context(), userID, msg.ChallengeID)
			if err != nil {
				h.log.Warn("ws authorize", zap.String("challenge_id", msg.ChallengeID), zap.Error(err))
				c.writeJSON(ServerMsg{Type: "error", ChallengeID: msg.ChallengeID, Error: "internal error"})
				continue
			}
			if !ok {
				c.writeJSON(ServerMsg{Type: "error", ChallengeID: msg.ChallengeID, Error: "not found"})
				continue
			}
			h.subscribe(msg.ChallengeID, c)
			c.writeJSON(ServerMsg{Type: "subscribed", ChallengeID: msg.ChallengeID})
		case "unsubscribe":
			h.unsubscribe(msg.ChallengeID, c)
			c.writeJSON(ServerMsg{Type: "unsubscribed", ChallengeID: msg.ChallengeID})
		case "ping":
			c.writeJSON(ServerMsg{Type: "pong"})
		default:
			c.writeJSON(ServerMsg{Type: "error", Error: "unknown message type"})
		}
	}

	// remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for id, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
	h.mu.Unlock()
	close(c.done)
	h.log.Debug("ws disconnected", zap.String("user_id", userID))
}

func (h *Hub) subscribe(challengeID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[challengeID]; !ok {
		h.subs[challengeID] = make(map[*client]struct{})
	}
	h.subs[challengeID][c] = struct{}{}
}

func (h *Hub) unsubscribe(challengeID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[challengeID]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, challengeID)
		}
	}
}

// Subscribers devolve quantos clientes acompanham o desafio
func (h *Hub) Subscribers(challengeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[challengeID])
}

// Broadcast enfileira a atualização para todos os clientes inscritos no desafio.
// Nunca bloqueia: cliente com fila cheia perde a atualização.
func (h *Hub) Broadcast(update events.ChallengeUpdate) {
	h.mu.RLock()
	conns := make([]*client, 0, len(h.subs[update.ChallengeID]))
	for c := range h.subs[update.ChallengeID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b, _ := json.Marshal(update)
	for _, c := range conns {
		if !c.enqueue(b) {
			h.log.Debug("ws update dropped", zap.String("user_id", c.userID), zap.String("challenge_id", update.ChallengeID))
		}
	}
}
