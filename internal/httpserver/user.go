package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smirnovdl/shop-backend/internal/middleware"
	"github.com/smirnovdl/shop-backend/internal/repo"
)

type UserHandler struct {
	Repo *repo.GormRepo
}

// Me resolves the caller from the request-scoped identity bound by the
// authentication gate.
func (h *UserHandler) Me(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
	}

	user, err := h.Repo.GetUserByID(c.Request().Context(), id.UserID)
	if err != nil {
		if repo.NotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return httpError(err)
	}

	return c.JSON(http.StatusOK, user)
}
