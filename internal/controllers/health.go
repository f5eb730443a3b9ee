package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ConnectionStats - то, что health-проверке нужно от реестра соединений.
type ConnectionStats interface {
	Count() int
	UserCount() int
}

type HealthController struct {
	stats ConnectionStats
}

func NewHealthController(stats ConnectionStats) *HealthController {
	return &HealthController{stats: stats}
}

func (c *HealthController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": c.stats.Count(),
		"users":       c.stats.UserCount(),
	})
}
