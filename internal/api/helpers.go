package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/charrnn/internal/vocab"
)

func writeBadRequest(c *echo.Context, param, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, param, "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

// classify maps a generation error onto the HTTP status and error body the
// API reports for it.
func classify(err error) (int, ResponseError) {
	var inv invalidRequestError
	switch {
	case errors.Is(err, vocab.ErrUnknownCharacter):
		return http.StatusBadRequest, ResponseError{
			Message: err.Error(),
			Type:    "invalid_request_error",
			Param:   "priming",
			Code:    "unknown_character",
		}
	case errors.As(err, &inv):
		return http.StatusBadRequest, ResponseError{
			Message: inv.msg,
			Type:    "invalid_request_error",
			Param:   inv.param,
		}
	default:
		return http.StatusInternalServerError, ResponseError{
			Message: err.Error(),
			Type:    "server_error",
		}
	}
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func newSampleID() string {
	return "smp_" + uuid.NewString()
}
