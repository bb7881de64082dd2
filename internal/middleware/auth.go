package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/smirnovdl/shop-backend/internal/tokens"
)

const ctxIdentity = "identity"

// Identity is the request-scoped caller, bound by the gate for the
// lifetime of one request. There is no process-wide current-user
// register; handlers resolve the caller through IdentityFrom.
type Identity struct {
	UserID uint
	Email  string
	Roles  []string
}

// Authenticate runs once per request, before route dispatch. A missing
// Authorization header lets the request proceed anonymous; a present
// but invalid or expired bearer token short-circuits with 401.
func Authenticate(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}

			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := tokens.ParseAccess(tokenStr, secret)
			if err != nil {
				if errors.Is(err, tokens.ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired, log in again")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ctxIdentity, Identity{
				UserID: claims.UserID,
				Email:  claims.Subject,
				Roles:  claims.Roles,
			})
			return next(c)
		}
	}
}

func IdentityFrom(c echo.Context) (Identity, bool) {
	id, ok := c.Get(ctxIdentity).(Identity)
	return id, ok
}

// RequireAuth guards secured routes: no bound identity means 401, the
// gate itself never enforces this.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := IdentityFrom(c); !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
		}
		return next(c)
	}
}

func RequireRole(required ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
			}
			for _, role := range required {
				if slices.Contains(id.Roles, role) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient rights")
		}
	}
}
