package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-notify/internal/controllers"
	"wellness-notify/pkg/config"
	appwebsocket "wellness-notify/pkg/websocket"
)

// runWebSocketRouter вешает канал доставки вне /api: рукопожатие идет через identify, а не через Bearer.
func runWebSocketRouter(e *echo.Echo, deps Dependencies, cfg config.WebSocketConfig, logger *zap.Logger) {
	ctrl := controllers.NewWebSocketController(
		deps.BaseCtx,
		deps.Registry,
		appwebsocket.OptionsFromConfig(cfg),
		deps.JWTService,
		logger,
	)
	e.GET(cfg.Path, ctrl.ServeWs)
}

func runHealthRouter(e *echo.Echo, registry *appwebsocket.Registry) {
	e.GET("/health", controllers.NewHealthController(registry).Health)
}
