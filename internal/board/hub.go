package board

import (
	"sync"

	"ghostnet_client/internal/logger"
)

// Hub рассылает обновленные снимки всем подключенным зрителям доски.
// Одна комната на сессию: матчмейкинга здесь нет, доска показывает
// одну игру.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register добавляет зрителя
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	logger.Component("board").Debug("зритель подключен", "viewer", c.ID, "total", len(h.clients))
}

// Unregister убирает зрителя и закрывает его канал отправки
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		close(c.Send)
		logger.Component("board").Debug("зритель отключен", "viewer", c.ID, "total", len(h.clients))
	}
}

// Broadcast отправляет сообщение всем зрителям; переполненные
// каналы пропускаются, чтобы не блокировать рассылку
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.Send <- msg:
		default:
		}
	}
}
