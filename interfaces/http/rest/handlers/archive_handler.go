package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrdhat-backend/internal/service/form"
)

// ArchiveHandler handles archived form requests.
type ArchiveHandler struct {
	forms  *form.Service
	logger *zap.Logger
}

// NewArchiveHandler creates an archive handler.
func NewArchiveHandler(forms *form.Service, logger *zap.Logger) *ArchiveHandler {
	return &ArchiveHandler{forms: forms, logger: logger}
}

// ListArchive handles GET /archive.
func (h *ArchiveHandler) ListArchive(w http.ResponseWriter, r *http.Request) {
	forms := h.forms.GetArchive(r.Context())
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"forms": forms})
}

// GetArchivedForm handles GET /archive/{formID}.
func (h *ArchiveHandler) GetArchivedForm(w http.ResponseWriter, r *http.Request) {
	archived, err := h.forms.GetArchivedForm(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, archived)
}

// DeleteArchivedForm handles DELETE /archive/{formID}.
func (h *ArchiveHandler) DeleteArchivedForm(w http.ResponseWriter, r *http.Request) {
	h.forms.DeleteArchivedForm(r.Context(), chi.URLParam(r, "formID"))
	w.WriteHeader(http.StatusNoContent)
}
