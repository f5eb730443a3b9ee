package controllers

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-notify/pkg/service"
	appwebsocket "wellness-notify/pkg/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketController struct {
	baseCtx    context.Context
	registry   appwebsocket.ConnectionRegistry
	opts       appwebsocket.Options
	jwtService service.JWTService
	logger     *zap.Logger
}

// NewWebSocketController принимает контекст жизни процесса: контекст запроса отменяется
// раньше, чем закрывается соединение.
func NewWebSocketController(
	baseCtx context.Context,
	registry appwebsocket.ConnectionRegistry,
	opts appwebsocket.Options,
	jwtService service.JWTService,
	logger *zap.Logger,
) *WebSocketController {
	return &WebSocketController{
		baseCtx:    baseCtx,
		registry:   registry,
		opts:       opts,
		jwtService: jwtService,
		logger:     logger,
	}
}

// ServeWs принимает соединение и обслуживает его до закрытия.
// Токен в ?token= необязателен; если он передан, identify допускается только для его владельца.
func (c *WebSocketController) ServeWs(ctx echo.Context) error {
	var verifiedUserID uint64
	if tokenString := ctx.QueryParam("token"); tokenString != "" {
		claims, err := c.jwtService.ValidateToken(tokenString)
		if err != nil || claims.IsRefreshToken {
			c.logger.Warn("WebSocket: недействительный токен", zap.Error(err))
			return ctx.String(http.StatusUnauthorized, "Invalid token")
		}
		verifiedUserID = claims.UserID
	}

	wsConn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		c.logger.Error("WebSocket: не удалось улучшить соединение", zap.Error(err))
		return nil
	}

	conn := appwebsocket.NewConnection(wsConn, c.registry, c.opts, c.logger)
	if verifiedUserID != 0 {
		conn.WithVerifiedUser(verifiedUserID)
	}

	c.logger.Info("WebSocket: соединение принято",
		zap.String("connID", conn.ID()),
		zap.String("remote", ctx.RealIP()),
	)
	conn.Run(c.baseCtx)
	c.logger.Info("WebSocket: соединение закрыто", zap.String("connID", conn.ID()), zap.Uint64("userID", conn.UserID()))
	return nil
}
