package routes

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-notify/internal/controllers"
	"wellness-notify/internal/services"
)

func runNotificationRouter(
	secureGroup *echo.Group,
	notificationService services.NotificationServiceInterface,
	timeout time.Duration,
	logger *zap.Logger,
) {
	ctrl := controllers.NewNotificationController(notificationService, timeout, logger)

	notifications := secureGroup.Group("/notifications")
	{
		notifications.GET("", ctrl.GetNotifications)
		notifications.GET("/unread-count", ctrl.GetUnreadCount)
		notifications.GET("/export", ctrl.ExportNotifications)
		notifications.PUT("/read-all", ctrl.MarkAllAsRead)
		notifications.PUT("/:id/read", ctrl.MarkAsRead)
	}
}
