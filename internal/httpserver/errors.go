package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/smirnovdl/shop-backend/internal/service"
	"github.com/smirnovdl/shop-backend/internal/tokens"
)

// ErrorBody is the structured error response sent for every failed
// request.
type ErrorBody struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// HTTPErrorHandler renders every error as an ErrorBody. Unexpected
// errors surface as a plain 500 with no internal detail.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		default:
			msg = fmt.Sprint(m)
		}
	}
	if code >= http.StatusInternalServerError {
		msg = "internal server error"
	}

	body := ErrorBody{
		Status:  code,
		Error:   http.StatusText(code),
		Message: msg,
		Path:    c.Request().URL.Path,
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}

// httpError translates service error kinds into HTTP errors.
func httpError(err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, tokens.ErrTokenExpired):
		return echo.NewHTTPError(http.StatusUnauthorized, "token expired, log in again")
	case errors.Is(err, tokens.ErrTokenInvalid):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInsufficientInventory):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return echo.NewHTTPError(http.StatusConflict, "data integrity violation: duplicate key")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return echo.NewHTTPError(http.StatusConflict, "data integrity violation: missing referenced row")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
