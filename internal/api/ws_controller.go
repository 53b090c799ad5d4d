package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Разрешаем подключения с любого origin, токен проверяет middleware
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSController отдает живую ленту движений по складу
type WSController struct {
	hub *Hub
}

// NewWSController создает контроллер ленты
func NewWSController(hub *Hub) *WSController {
	return &WSController{hub: hub}
}

// ServeWS обрабатывает WebSocket подключения
// GET /api/v1/ws
func (wc *WSController) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ Ошибка обновления WebSocket соединения: %v", err)
		return
	}

	wc.hub.AddClient(conn)
	log.Printf("📱 Клиент ленты подключен. Всего подключений: %d", wc.hub.GetClientsCount())

	defer func() {
		wc.hub.RemoveClient(conn)
		log.Printf("📱 Клиент ленты отключен. Осталось подключений: %d", wc.hub.GetClientsCount())
	}()

	// Читаем сообщения от клиента (ping/pong для поддержания соединения)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ WebSocket ошибка: %v", err)
			}
			break
		}
	}
}
