package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wellness-notify/pkg/service"
	"wellness-notify/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthEcho(t *testing.T) (*echo.Echo, service.JWTService) {
	t.Helper()
	jwtSvc := service.NewJWTService("secret", time.Hour, zap.NewNop())
	mw := NewAuthMiddleware(jwtSvc, zap.NewNop())

	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		userID, err := utils.GetUserIDFromCtx(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]uint64{"userId": userID})
	}, mw.Auth)
	return e, jwtSvc
}

func TestAuth_ValidToken(t *testing.T) {
	e, jwtSvc := newAuthEcho(t)
	token, err := jwtSvc.GenerateAccessToken(42)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":42}`, rec.Body.String())
}

func TestAuth_Rejects(t *testing.T) {
	e, _ := newAuthEcho(t)

	cases := map[string]string{
		"empty":   "",
		"format":  "Token abc",
		"garbage": "Bearer abc",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set(echo.HeaderAuthorization, header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
