package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultorio/turnos/internal/platform/apperr"
)

// StatusOf returns the HTTP status an error is rendered with.
func StatusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if k := apperr.KindOf(err); k != apperr.KindUnknown {
		return apperr.HTTPStatus(k)
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders every error as {"error": "..."}. Classified errors
// keep their message; anything else is logged and hidden behind a 500.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := StatusOf(err)
		var msg string
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			msg = fmt.Sprintf("%v", he.Message)
		case apperr.KindOf(err) != apperr.KindUnknown:
			msg = err.Error()
		default:
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Msg("unhandled error")
			msg = "Error en el servidor"
		}

		if err := writeError(c, code, msg); err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}

// writeError sends the {"error": msg} body, or only the status for HEAD.
func writeError(c echo.Context, code int, msg string) error {
	if c.Request().Method == http.MethodHead {
		return c.NoContent(code)
	}
	return c.JSON(code, map[string]string{"error": msg})
}
