package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/equipment-rental/internal/service"
)

// Context keys set by TokenAuth.
const (
	CtxUserID    = "user_id"
	CtxRole      = "role"
	CtxTokenHash = "token_hash"
)

// Authenticator resolves a raw bearer token.  *service.AuthService
// implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*service.Identity, error)
}

// TokenAuth rejects requests without a valid, unrevoked bearer token and
// stores the caller's id, role and token hash in the context.
func TokenAuth(a Authenticator, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
				return unauthenticated(c)
			}
			raw := strings.TrimSpace(auth[7:])
			if raw == "" {
				return unauthenticated(c)
			}

			id, err := a.Authenticate(c.Request().Context(), raw)
			if errors.Is(err, service.ErrUnauthenticated) {
				return unauthenticated(c)
			}
			if err != nil {
				log.Error("token lookup failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server Error"})
			}

			c.Set(CtxUserID, id.UserID)
			c.Set(CtxRole, id.Role)
			c.Set(CtxTokenHash, id.TokenHash)
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthenticated."})
}
