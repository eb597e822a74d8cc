package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rideshare/internal/domain"
	"rideshare/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Internal errors are logged by gin and reported without details.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	kind := domain.KindOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	_ = c.Error(err)
	c.JSON(code, ErrorResponse{Error: msg, Kind: kind})
}

// respondBadRequest reports a request body that could not be bound.
func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Kind: domain.KindOf(domain.ErrValidation)})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps error kinds to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrActorRequired):
		return http.StatusUnauthorized

	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound

	// Conflicts with the current state of the ride
	case errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrIllegalTransition):
		return http.StatusConflict

	// Lost every optimistic retry
	case errors.Is(err, domain.ErrVersionConflict):
		return http.StatusPreconditionFailed

	case errors.Is(err, domain.ErrExternalUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
