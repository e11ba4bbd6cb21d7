// Package response writes the JSON envelope shared by every API route and
// maps pipeline errors to HTTP status codes.
package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pep299/research-blog-pipeline/internal/archive"
	"github.com/pep299/research-blog-pipeline/internal/service"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusOK      = "ok" // health checks only
)

// Envelope is the body of every API response.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WriteJSON writes body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, body Envelope) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(body)
}

// Success writes a 200 envelope carrying data.
func Success(w http.ResponseWriter, message string, data interface{}) error {
	return WriteJSON(w, http.StatusOK, Envelope{Status: StatusSuccess, Message: message, Data: data})
}

// Health writes a 200 envelope with the "ok" status.
func Health(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, Envelope{Status: StatusOK, Data: data})
}

// Fail writes an error envelope.
func Fail(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, Envelope{Status: StatusError, Error: message})
}

func BadRequest(w http.ResponseWriter, message string) error {
	return Fail(w, http.StatusBadRequest, message)
}

func NotFound(w http.ResponseWriter, message string) error {
	return Fail(w, http.StatusNotFound, message)
}

func Unauthorized(w http.ResponseWriter) error {
	return Fail(w, http.StatusUnauthorized, "Unauthorized")
}

// Internal writes a 500 with a fixed message; the cause is not exposed.
func Internal(w http.ResponseWriter, message string) error {
	return Fail(w, http.StatusInternalServerError, message)
}

// RunError writes err from a pipeline or research run with the status
// StatusFor picks.
func RunError(w http.ResponseWriter, err error) error {
	return Fail(w, StatusFor(err), err.Error())
}

// StatusFor maps a run error to a status code. Anything not recognized came
// from an upstream stage (model or lookup) and is a 502.
func StatusFor(err error) int {
	var archiveErr *service.ArchiveError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, service.ErrEmptyTopic):
		return http.StatusBadRequest
	case errors.Is(err, archive.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &archiveErr):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
