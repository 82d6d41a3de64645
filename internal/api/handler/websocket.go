package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/qs3c/localdeals_server/internal/api/middleware"
	"github.com/qs3c/localdeals_server/internal/pkg/jwt"
	"github.com/qs3c/localdeals_server/internal/pkg/response"
	"github.com/qs3c/localdeals_server/internal/pkg/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WebSocketHandler struct {
	hub       *ws.Hub
	jwtSecret string
	loader    middleware.ActorLoader
}

func NewWebSocketHandler(hub *ws.Hub, jwtSecret string, loader middleware.ActorLoader) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
		loader:    loader,
	}
}

// Handle WebSocket 连接处理，浏览器无法设置请求头，令牌放在查询参数里
// GET /api/v1/ws?token=xxx
func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.AuthError(c, "missing token")
		return
	}

	claims, err := jwt.ParseToken(token, h.jwtSecret)
	if err != nil {
		response.AuthError(c, "invalid token")
		return
	}
	actor, err := h.loader.LoadActor(claims.UserID)
	if err != nil {
		response.AuthError(c, "account not found or disabled")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", actor.ID).Msg("websocket upgrade failed")
		return
	}

	client := &ws.Client{
		UserID: actor.ID,
		Conn:   conn,
	}

	h.hub.Register(client)

	// 只读不处理，用于感知断开
	go func() {
		defer conn.Close()
		defer h.hub.Unregister(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}
