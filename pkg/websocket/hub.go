package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/jmettler27/Pop-sub001/pkg/models"
)

const (
	writeWait       = 5 * time.Second
	broadcastBuffer = 256
)

// Hub mantiene las conexiones de las pantallas agrupadas por partida. Solo
// la gorutina de Run escribe en las conexiones.
type Hub struct {
	clients    map[string]map[*websocket.Conn]bool // partida -> conexiones
	broadcast  chan envelope
	register   chan subscription
	unregister chan subscription
	done       chan struct{}
	mutex      sync.RWMutex
}

type subscription struct {
	gameID string
	conn   *websocket.Conn
}

// envelope con conn se entrega solo a esa conexión.
type envelope struct {
	gameID string
	conn   *websocket.Conn
	data   []byte
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// StateChangedMessage aviso de que la partida cambió; las pantallas releen
// los documentos que les interesan.
type StateChangedMessage struct {
	GameID string   `json:"gameId"`
	Keys   []string `json:"keys"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*websocket.Conn]bool),
		broadcast:  make(chan envelope, broadcastBuffer),
		register:   make(chan subscription),
		unregister: make(chan subscription),
		done:       make(chan struct{}),
	}
}

// Run atiende registros y difusiones hasta que ctx termina.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case sub := <-h.register:
			h.mutex.Lock()
			if h.clients[sub.gameID] == nil {
				h.clients[sub.gameID] = make(map[*websocket.Conn]bool)
			}
			h.clients[sub.gameID][sub.conn] = true
			total := len(h.clients[sub.gameID])
			h.mutex.Unlock()
			slog.Info("cliente WebSocket conectado", "game", sub.gameID, "total", total)

		case sub := <-h.unregister:
			h.remove(sub)

		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

func (h *Hub) send(msg envelope) {
	h.mutex.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[msg.gameID]))
	for conn := range h.clients[msg.gameID] {
		if msg.conn == nil || msg.conn == conn {
			conns = append(conns, conn)
		}
	}
	h.mutex.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg.data); err != nil {
			slog.Warn("⚠️ error enviando mensaje WebSocket", "game", msg.gameID, "error", err)
			h.remove(subscription{gameID: msg.gameID, conn: conn})
		}
	}
}

func (h *Hub) remove(sub subscription) {
	h.mutex.Lock()
	conns := h.clients[sub.gameID]
	_, ok := conns[sub.conn]
	if ok {
		delete(conns, sub.conn)
		if len(conns) == 0 {
			delete(h.clients, sub.gameID)
		}
	}
	total := len(conns)
	h.mutex.Unlock()

	if ok {
		sub.conn.Close()
		slog.Info("cliente WebSocket desconectado", "game", sub.gameID, "total", total)
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for gameID, conns := range h.clients {
		for conn := range conns {
			conn.Close()
		}
		delete(h.clients, gameID)
	}
}

func (h *Hub) Register(gameID string, conn *websocket.Conn) {
	select {
	case h.register <- subscription{gameID: gameID, conn: conn}:
	case <-h.done:
	}
}

func (h *Hub) Unregister(gameID string, conn *websocket.Conn) {
	select {
	case h.unregister <- subscription{gameID: gameID, conn: conn}:
	case <-h.done:
	}
}

// SendTo encola un mensaje para una sola conexión ya registrada. A diferencia
// de BroadcastMessage no se descarta si el búfer está lleno.
func (h *Hub) SendTo(gameID string, conn *websocket.Conn, msgType string, data interface{}) {
	msgData, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		slog.Error("❌ error serializando mensaje", "type", msgType, "error", err)
		return
	}

	select {
	case h.broadcast <- envelope{gameID: gameID, conn: conn, data: msgData}:
	case <-h.done:
	}
}

// ClientCount número de conexiones abiertas para la partida
func (h *Hub) ClientCount(gameID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[gameID])
}

// BroadcastMessage envía un mensaje a todas las pantallas de la partida. Si
// el búfer está lleno el mensaje se descarta: el siguiente aviso lo cubre.
func (h *Hub) BroadcastMessage(gameID, msgType string, data interface{}) {
	msgData, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		slog.Error("❌ error serializando mensaje", "type", msgType, "error", err)
		return
	}

	select {
	case h.broadcast <- envelope{gameID: gameID, data: msgData}:
	default:
		slog.Warn("⚠️ búfer de difusión lleno, mensaje descartado", "game", gameID, "type", msgType)
	}
}

// Notify se registra con Executor.Observe: agrupa las claves escritas por
// partida y avisa a sus pantallas.
func (h *Hub) Notify(_ context.Context, keys []string) {
	byGame := make(map[string][]string)
	var order []string
	for _, key := range keys {
		gameID, ok := models.GameIDFromKey(key)
		if !ok {
			continue
		}
		if _, seen := byGame[gameID]; !seen {
			order = append(order, gameID)
		}
		byGame[gameID] = append(byGame[gameID], key)
	}

	for _, gameID := range order {
		if h.ClientCount(gameID) == 0 {
			continue
		}
		h.BroadcastMessage(gameID, "stateChanged", StateChangedMessage{GameID: gameID, Keys: byGame[gameID]})
	}
}
