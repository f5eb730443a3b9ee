package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wellness-notify/internal/dto"
	"wellness-notify/internal/services"
	apperrors "wellness-notify/pkg/errors"
	"wellness-notify/pkg/utils"
)

type NotificationController struct {
	notificationService services.NotificationServiceInterface
	timeout             time.Duration
	logger              *zap.Logger
}

func NewNotificationController(notificationService services.NotificationServiceInterface, timeout time.Duration, logger *zap.Logger) *NotificationController {
	return &NotificationController{notificationService: notificationService, timeout: timeout, logger: logger}
}

func parseNotificationFilter(ctx echo.Context) (dto.NotificationFilter, error) {
	var filter dto.NotificationFilter

	if raw := ctx.QueryParam("unread"); raw != "" {
		unread, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.NewHttpError(http.StatusBadRequest, "Неверный параметр unread", err, map[string]interface{}{"unread": raw})
		}
		filter.UnreadOnly = unread
	}
	if raw := ctx.QueryParam("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filter, apperrors.NewHttpError(http.StatusBadRequest, "Неверный параметр limit", err, map[string]interface{}{"limit": raw})
		}
		filter.Limit = limit
	}
	if raw := ctx.QueryParam("offset"); raw != "" {
		offset, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filter, apperrors.NewHttpError(http.StatusBadRequest, "Неверный параметр offset", err, map[string]interface{}{"offset": raw})
		}
		filter.Offset = offset
	}
	return filter, nil
}

func (c *NotificationController) GetNotifications(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	filter, err := parseNotificationFilter(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	list, err := c.notificationService.ListForUser(reqCtx, userID, filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return ctx.JSON(http.StatusOK, dto.NotificationListResponse{Notifications: list})
}

func (c *NotificationController) MarkAsRead(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	n, err := c.notificationService.MarkRead(reqCtx, userID, ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return ctx.JSON(http.StatusOK, dto.NotificationResponse{Notification: n})
}

func (c *NotificationController) MarkAllAsRead(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	updated, err := c.notificationService.MarkAllRead(reqCtx, userID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return ctx.JSON(http.StatusOK, dto.MarkAllReadResponse{Updated: updated})
}

func (c *NotificationController) GetUnreadCount(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	count, err := c.notificationService.UnreadCount(reqCtx, userID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return ctx.JSON(http.StatusOK, dto.UnreadCountResponse{Count: count})
}

func (c *NotificationController) ExportNotifications(ctx echo.Context) error {
	reqCtx, cancel := utils.ContextWithTimeout(ctx, c.timeout)
	defer cancel()

	userID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	data, err := c.notificationService.ExportForUser(reqCtx, userID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	fileName := fmt.Sprintf("notifications_%s.xlsx", time.Now().Format("20060102_150405"))
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	return ctx.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
