package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "wellness-notify/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorList сопоставляет сентинел-ошибки с HTTP-кодами.
var ErrorList = map[error]int{
	apperrors.ErrNotFound:                http.StatusNotFound,
	apperrors.ErrBadRequest:              http.StatusBadRequest,
	apperrors.ErrInvalidNotificationType: http.StatusBadRequest,
	apperrors.ErrUnauthorized:            http.StatusUnauthorized,
	apperrors.ErrUserIDNotFoundInContext: http.StatusUnauthorized,
	apperrors.ErrEmptyAuthHeader:         http.StatusUnauthorized,
	apperrors.ErrInvalidAuthHeader:       http.StatusUnauthorized,
	apperrors.ErrInvalidToken:            http.StatusUnauthorized,
	apperrors.ErrTokenExpired:            http.StatusUnauthorized,
	apperrors.ErrInvalidSigningMethod:    http.StatusUnauthorized,
	apperrors.ErrInternalServer:          http.StatusInternalServerError,
}

func ErrorResponse(c echo.Context, err error, logger *zap.Logger) error {
	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		if httpErr.Err != nil {
			logger.Error("HTTP Error",
				zap.Int("code", httpErr.Code),
				zap.String("message", httpErr.Message),
				zap.Error(httpErr.Err),
				zap.Any("context", httpErr.Context),
			)
		}

		response := map[string]interface{}{
			"status":  false,
			"message": httpErr.Message,
		}

		if httpErr.Details != nil {
			response["body"] = httpErr.Details
		}

		return c.JSON(httpErr.Code, response)
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		msgs := make([]string, 0, len(validationErrors))
		fields := make(map[string]string, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("Поле '%s' не прошло проверку '%s'", e.Field(), e.Tag()))
			fields[e.Field()] = e.Tag()
		}
		return ErrorResponse(c, &apperrors.HttpError{
			Code:    http.StatusBadRequest,
			Message: "Ошибка валидации: " + strings.Join(msgs, "; "),
			Details: fields,
		}, logger)
	}

	for known, code := range ErrorList {
		if errors.Is(err, known) {
			if code >= http.StatusInternalServerError {
				logger.Error("HTTP Error", zap.Error(err))
			}
			return c.JSON(code, map[string]interface{}{"status": false, "message": known.Error()})
		}
	}

	logger.Error("Unexpected Error", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"status":  false,
		"message": apperrors.ErrInternalServer.Error(),
	})
}
