package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-notify/internal/dto"
	"wellness-notify/internal/events"
	"wellness-notify/internal/services"
	apperrors "wellness-notify/pkg/errors"
	"wellness-notify/pkg/eventbus"
	"wellness-notify/pkg/utils"
)

// InternalController - вход для сервисов курсов: прямое создание уведомления или доменное событие.
type InternalController struct {
	notificationService services.NotificationServiceInterface
	bus                 *eventbus.Bus
	logger              *zap.Logger
}

func NewInternalController(notificationService services.NotificationServiceInterface, bus *eventbus.Bus, logger *zap.Logger) *InternalController {
	return &InternalController{notificationService: notificationService, bus: bus, logger: logger}
}

func (c *InternalController) CreateNotification(ctx echo.Context) error {
	var payload dto.CreateNotificationDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат запроса", err, nil), c.logger)
	}

	n, err := c.notificationService.Create(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return ctx.JSON(http.StatusCreated, dto.NotificationResponse{Notification: n})
}

// PublishEvent принимает событие курса и отдает его шине; уведомления создаются асинхронно.
func (c *InternalController) PublishEvent(ctx echo.Context) error {
	name := ctx.Param("name")

	event, err := events.Parse(name, ctx.Bind)
	if err != nil {
		if errors.Is(err, events.ErrUnknownEvent) {
			return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusNotFound, "Неизвестное событие", nil, nil), c.logger)
		}
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат события", err, map[string]interface{}{"event": name}), c.logger)
	}
	if err := ctx.Validate(event); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	c.bus.Publish(ctx.Request().Context(), event)
	c.logger.Info("Событие курса принято", zap.String("event", name))
	return ctx.NoContent(http.StatusAccepted)
}
