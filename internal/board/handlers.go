package board

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ghostnet_client/internal/dispatch"
	"ghostnet_client/internal/domain"
	"ghostnet_client/internal/interpreter"
	"ghostnet_client/internal/logger"
)

// Handler содержит зависимости HTTP-поверхности доски
type Handler struct {
	Hub        *Hub
	Dispatcher *dispatch.Dispatcher
	Fog        bool
}

func NewHandler(hub *Hub, d *dispatch.Dispatcher, fog bool) *Handler {
	return &Handler{Hub: hub, Dispatcher: d, Fog: fog}
}

// RegisterRoutes вешает маршруты доски
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/session", h.handleSession)
	r.GET("/api/game", h.handleGame)
	r.GET("/ws", h.handleWS)
}

// handleSession выдает сессионный токен зрителя
func (h *Handler) handleSession(c *gin.Context) {
	viewerID := uuid.NewString()
	token, err := GenerateSessionToken(viewerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "сессии не настроены"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewer": viewerID, "token": token})
}

// handleGame отдает снимок доски с подсказками отрисовки
func (h *Handler) handleGame(c *gin.Context) {
	if !h.authorized(c) {
		return
	}

	var selected *domain.Coord
	if sel := c.Query("selected"); sel != "" {
		coord, err := interpreter.ParseCoord(sel)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		selected = &coord
	}

	view := BuildView(h.Dispatcher.Current(), h.Fog, selected)
	c.JSON(http.StatusOK, view)
}

// handleWS подключает зрителя к рассылке обновлений
func (h *Handler) handleWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "токен обязателен"})
		return
	}
	viewerID, err := ParseSessionToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "неверный токен"})
		return
	}

	allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Component("board").Warn("ошибка обновления ws", "error", err)
		return
	}

	client := NewClient(viewerID, conn, h.Hub)
	go client.Run()
}

func (h *Handler) authorized(c *gin.Context) bool {
	token := c.Query("token")
	if token == "" {
		auth := c.GetHeader("Authorization")
		if len(auth) > 7 && auth[:7] == "Bearer " {
			token = auth[7:]
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "токен обязателен"})
		return false
	}
	if _, err := ParseSessionToken(token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "неверный токен"})
		return false
	}
	return true
}

// PushSnapshot рассылает зрителям свежий снимок; вешается на
// callback диспетчера
func (h *Handler) PushSnapshot(snap dispatch.Snapshot) {
	view := BuildView(snap, h.Fog, nil)
	msg, err := json.Marshal(gin.H{"type": "snapshot", "view": view})
	if err != nil {
		logger.Component("board").Error("ошибка сериализации снимка", "error", err)
		return
	}
	h.Hub.Broadcast(msg)
}
