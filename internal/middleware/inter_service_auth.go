package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"carousel-service/internal/models"
)

// TokenVerifier проверяет межсервисный токен и возвращает его claims.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, tokenString string) (*models.Claims, error)
}

// InterServiceAuthMiddleware создает Echo middleware для проверки межсервисного JWT.
// Токен передается в заголовке X-Internal-Service-Token.
func InterServiceAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.With(zap.String("path", c.Request().URL.Path))

			tokenString := c.Request().Header.Get("X-Internal-Service-Token")
			if tokenString == "" {
				log.Warn("X-Internal-Service-Token header missing")
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized: Missing inter-service token")
			}

			claims, err := verifier.VerifyToken(c.Request().Context(), tokenString)
			if err != nil {
				status := http.StatusUnauthorized
				msg := "Unauthorized: Invalid inter-service token"
				if errors.Is(err, models.ErrTokenExpired) {
					msg = "Unauthorized: Inter-service token expired"
				} else if errors.Is(err, models.ErrTokenMalformed) || errors.Is(err, models.ErrTokenInvalid) {
					// Используем общее сообщение
				} else {
					log.Error("Unexpected inter-service token verification error", zap.Error(err))
					status = http.StatusInternalServerError
					msg = "Internal server error during inter-service token verification"
				}

				log.Warn("Inter-service token verification failed", zap.Error(err))
				return echo.NewHTTPError(status, msg)
			}

			// Запрос межсервисный, пользовательского контекста нет.
			// Сохраняем идентификатор сервиса-источника из Subject.
			if claims != nil && claims.Subject != "" {
				c.Set(string(models.SourceServiceContextKey), claims.Subject)
				log.Debug("Inter-service request authorized", zap.String("sourceService", claims.Subject))
			} else {
				log.Warn("Inter-service token authorized but Subject (source service) is missing")
			}

			return next(c)
		}
	}
}
