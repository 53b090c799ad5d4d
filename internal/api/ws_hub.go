package api

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"hpmsklad/server/internal/models"
	"hpmsklad/server/internal/services"

	"github.com/gorilla/websocket"
)

// Типы сообщений живой ленты склада
const (
	MessageMovement   = "movement"
	MessagePodMinimem = "pod_minimem"
)

// FeedMessage сообщение, отправляемое клиентам ленты
type FeedMessage struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data"`
	Count int         `json:"count,omitempty"`
}

// Hub управляет WebSocket соединениями живой ленты движений
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.RWMutex
}

// NewHub создает хаб с буферизованным каналом рассылки
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 256), // Буферизованный канал для производительности
	}
}

// Run рассылает сообщения клиентам, пока не отменен ctx.
// При остановке закрывает все соединения.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

func (h *Hub) send(msg []byte) {
	h.mutex.RLock()
	var failed []*websocket.Conn
	for client := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
			failed = append(failed, client)
		}
	}
	h.mutex.RUnlock()

	// Удаляем клиентов с ошибкой записи
	for _, client := range failed {
		h.RemoveClient(client)
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
	h.mutex.Unlock()
}

// AddClient добавляет нового клиента
func (h *Hub) AddClient(conn *websocket.Conn) {
	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()
}

// RemoveClient удаляет клиента
func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mutex.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mutex.Unlock()
}

// BroadcastMessage отправляет сообщение всем подключенным клиентам
func (h *Hub) BroadcastMessage(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		// Если канал переполнен, пропускаем сообщение (не блокируем)
	}
}

// BroadcastJSON кодирует сообщение и рассылает его
func (h *Hub) BroadcastJSON(msg FeedMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("⚠️ Ошибка кодирования сообщения ленты: %v", err)
		return
	}
	h.BroadcastMessage(data)
}

// GetClientsCount возвращает количество подключенных клиентов
func (h *Hub) GetClientsCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// NotifyMovement позволяет подключить хаб напрямую к MovementService
func (h *Hub) NotifyMovement(ev services.MovementEvent) {
	h.BroadcastJSON(FeedMessage{Type: MessageMovement, Data: ev})
}

// BroadcastPodMinimem рассылает позиции, только что упавшие под минимум
func (h *Hub) BroadcastPodMinimem(items []models.Sklad) {
	if len(items) == 0 {
		return
	}
	h.BroadcastJSON(FeedMessage{Type: MessagePodMinimem, Data: items, Count: len(items)})
}
