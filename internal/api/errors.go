package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/lodgru/internal/gru"
	"github.com/samcharles93/lodgru/internal/metrics"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// ErrorBody is the payload of every non-2xx response.
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorBody{
			Type:    errType,
			Message: msg,
		},
	})
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request", msg)
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found", msg)
}

// writeEngineError maps engine sentinels to 400 responses typed by
// gru.ErrorKind. Anything else is a server error.
func writeEngineError(c *echo.Context, err error) error {
	if kind := gru.ErrorKind(err); kind != "" {
		metrics.RecordValidationError(kind)
		return writeError(c, http.StatusBadRequest, kind, err.Error())
	}
	if errors.Is(err, ErrInvalidRequest) {
		return writeBadRequest(c, err.Error())
	}
	return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
}
