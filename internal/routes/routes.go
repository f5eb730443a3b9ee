package routes

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-notify/internal/services"
	"wellness-notify/pkg/config"
	"wellness-notify/pkg/eventbus"
	"wellness-notify/pkg/middleware"
	"wellness-notify/pkg/service"
	appwebsocket "wellness-notify/pkg/websocket"
)

type Loggers struct {
	Main         *zap.Logger
	Auth         *zap.Logger
	Notification *zap.Logger
	WebSocket    *zap.Logger
}

// Dependencies - собранные в main компоненты, которые нужны маршрутам.
type Dependencies struct {
	// BaseCtx живет до остановки процесса; его отмена закрывает все WebSocket-соединения.
	BaseCtx             context.Context
	NotificationService services.NotificationServiceInterface
	Registry            *appwebsocket.Registry
	JWTService          service.JWTService
	Bus                 *eventbus.Bus
}

func InitRouter(e *echo.Echo, deps Dependencies, loggers *Loggers, cfg *config.Config) {
	loggers.Main.Info("InitRouter: Начало создания маршрутов")

	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(deps.JWTService, loggers.Auth)
	secureGroup := api.Group("", authMW.Auth)

	runNotificationRouter(secureGroup, deps.NotificationService, cfg.Server.RequestTimeout, loggers.Notification)
	runWebSocketRouter(e, deps, cfg.WebSocket, loggers.WebSocket)
	runHealthRouter(e, deps.Registry)

	if cfg.Internal.Enabled() && deps.Bus != nil {
		runInternalRouter(e, deps, cfg.Internal, loggers.Notification)
	} else {
		loggers.Main.Warn("INTERNAL_API_KEY не задан, маршруты /internal отключены")
	}

	loggers.Main.Info("INIT_ROUTER: Создание маршрутов завершено")
}
