package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-notify/internal/controllers"
	"wellness-notify/pkg/config"
	"wellness-notify/pkg/middleware"
)

func runInternalRouter(e *echo.Echo, deps Dependencies, cfg config.InternalConfig, logger *zap.Logger) {
	ctrl := controllers.NewInternalController(deps.NotificationService, deps.Bus, logger)

	internal := e.Group("/internal", middleware.ServiceKey(cfg.APIKey, cfg.APIKeyHash, logger))
	{
		internal.POST("/notifications", ctrl.CreateNotification)
		internal.POST("/events/:name", ctrl.PublishEvent)
	}
}
