package api

import (
	"errors"
	"net/http"

	"github.com/mdbase/mdbase/pkg/domain"
	"github.com/mdbase/mdbase/pkg/storage"
)

// Handler provides HTTP handlers for the database API
type Handler struct {
	engine *storage.Engine
}

// NewHandler creates a new API handler over an open engine
func NewHandler(engine *storage.Engine) *Handler {
	return &Handler{engine: engine}
}

// statusFor maps domain error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrIndexExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrIndexNotFound),
		errors.Is(err, domain.ErrCollectionNotFound),
		errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrFieldNotIndexable),
		errors.Is(err, domain.ErrTypeMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
