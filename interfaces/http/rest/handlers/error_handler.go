package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "hrdhat-backend/internal/errors"
)

// ErrorHandler exposes the error log: a read surface for the client's
// error display plus explicit dismissal.
type ErrorHandler struct {
	sink   apperrors.Sink
	logger *zap.Logger
}

// NewErrorHandler creates an error handler.
func NewErrorHandler(sink apperrors.Sink, logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{sink: sink, logger: logger}
}

// ListErrors handles GET /errors.
func (h *ErrorHandler) ListErrors(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"errors": h.sink.Active(),
	})
}

// ClearError handles DELETE /errors/{errorID}.
func (h *ErrorHandler) ClearError(w http.ResponseWriter, r *http.Request) {
	h.sink.Clear(chi.URLParam(r, "errorID"))
	w.WriteHeader(http.StatusNoContent)
}

// ClearErrors handles DELETE /errors.
func (h *ErrorHandler) ClearErrors(w http.ResponseWriter, r *http.Request) {
	h.sink.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}
