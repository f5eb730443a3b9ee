package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "wellness-notify/pkg/errors"
	"wellness-notify/pkg/utils"
)

const HeaderInternalKey = "X-Internal-Key"

// ServiceKey пропускает только вызовы сервисов курсов с общим ключом.
// Если задан keyHash (bcrypt), ключ в открытом виде не нужен и не сравнивается.
func ServiceKey(key, keyHash string, logger *zap.Logger) echo.MiddlewareFunc {
	match := func(got string) bool {
		if keyHash != "" {
			return bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(got)) == nil
		}
		return subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get(HeaderInternalKey)
			if got == "" || !match(got) {
				logger.Warn("ServiceKey: отклонен вызов без действительного ключа", zap.String("remote", c.RealIP()))
				return utils.ErrorResponse(c, apperrors.ErrUnauthorized, logger)
			}
			return next(c)
		}
	}
}
