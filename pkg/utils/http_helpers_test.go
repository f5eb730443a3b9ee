package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "wellness-notify/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runErrorResponse(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, ErrorResponse(c, err, zap.NewNop()))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorResponse_HttpError(t *testing.T) {
	code, body := runErrorResponse(t, apperrors.NewHttpError(http.StatusBadRequest, "Неверный ID", fmt.Errorf("parse"), nil))

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["status"])
	assert.Equal(t, "Неверный ID", body["message"])
}

func TestErrorResponse_WrappedSentinel(t *testing.T) {
	code, _ := runErrorResponse(t, fmt.Errorf("markRead: %w", apperrors.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, code)
}

func TestErrorResponse_Unknown(t *testing.T) {
	code, body := runErrorResponse(t, fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Внутренняя ошибка сервера", body["message"])
}

func TestErrorResponse_ValidationDetails(t *testing.T) {
	payload := struct {
		UserID uint64 `validate:"required,gt=0"`
		Title  string `validate:"required"`
	}{}
	err := validator.New().Struct(payload)
	require.Error(t, err)

	code, body := runErrorResponse(t, fmt.Errorf("create: %w", err))

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["message"], "Ошибка валидации")
	require.IsType(t, map[string]interface{}{}, body["body"])
	fields := body["body"].(map[string]interface{})
	assert.Equal(t, "required", fields["UserID"])
	assert.Equal(t, "required", fields["Title"])
}

func TestErrorResponse_InternalSentinel(t *testing.T) {
	code, body := runErrorResponse(t, fmt.Errorf("%w: panic", apperrors.ErrInternalServer))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Внутренняя ошибка сервера", body["message"])
	assert.Nil(t, body["body"])
}
