package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	apperrors "schoolhub/internal/errors"
)

// NewErrorHandler renders every error as the standard JSON envelope. Outside
// production the response also carries the stack recorded where the error
// was created, when there is one.
func NewErrorHandler(logger zerolog.Logger, production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		httpErr := apperrors.MapErrorToHTTP(err)
		var appErr *apperrors.Error
		var echoErr *echo.HTTPError
		if !errors.As(err, &appErr) && errors.As(err, &echoErr) {
			httpErr = &apperrors.HTTPError{
				StatusCode: echoErr.Code,
				Message:    fmt.Sprint(echoErr.Message),
				Code:       statusCode(echoErr.Code),
			}
		}

		req := c.Request()
		switch status := httpErr.StatusCode; {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			logger.Warn().
				Str("code", httpErr.Code).
				Str("path", req.URL.Path).
				Str("method", req.Method).
				Str("ip", c.RealIP()).
				Str("user_agent", req.UserAgent()).
				Msg("auth failure")
		case status >= http.StatusInternalServerError:
			logger.Error().
				Err(err).
				Str("path", req.URL.Path).
				Str("method", req.Method).
				Msg("request failed")
		}

		resp := httpErr.ToErrorResponse()
		if !production {
			resp.Stack = apperrors.StackOf(err)
		}

		if req.Method == http.MethodHead {
			err = c.NoContent(httpErr.StatusCode)
		} else {
			err = c.JSON(httpErr.StatusCode, resp)
		}
		if err != nil {
			logger.Error().Err(err).Msg("failed to write error response")
		}
	}
}

// statusCode derives a machine code such as TOO_MANY_REQUESTS from a status.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "HTTP_ERROR"
	}
	return strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text))
}
