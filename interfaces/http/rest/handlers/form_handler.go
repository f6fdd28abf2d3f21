// Package handlers implements the REST endpoints. Request DTOs are
// validated with struct tags before touching the services; responses
// carry domain objects serialized as-is.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"hrdhat-backend/internal/domain"
	apperrors "hrdhat-backend/internal/errors"
	"hrdhat-backend/internal/pdf"
	"hrdhat-backend/internal/service/form"
	"hrdhat-backend/internal/service/modulestate"
	"hrdhat-backend/pkg/auth"
)

var validate = validator.New()

// FormHandler handles draft lifecycle requests.
type FormHandler struct {
	forms  *form.Service
	states *modulestate.Service
	pdfGen *pdf.Generator
	logger *zap.Logger
}

// NewFormHandler creates a form handler.
func NewFormHandler(forms *form.Service, states *modulestate.Service, pdfGen *pdf.Generator, logger *zap.Logger) *FormHandler {
	return &FormHandler{forms: forms, states: states, pdfGen: pdfGen, logger: logger}
}

// CreateDraftRequest is the body for creating a draft.
type CreateDraftRequest struct {
	Title string `json:"title" validate:"omitempty,max=200"`
}

// SubmitRequest is the body for submitting a draft.
type SubmitRequest struct {
	SubmissionType string `json:"submissionType" validate:"required,oneof=as-is validated"`
}

// ConnectivityRequest is the body for flipping connectivity.
type ConnectivityRequest struct {
	Online *bool `json:"online" validate:"required"`
}

// ListForms handles GET /forms.
func (h *FormHandler) ListForms(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}
	forms := h.forms.GetForms(r.Context(), user.UserID)
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"forms": forms})
}

// CreateDraft handles POST /forms.
func (h *FormHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateDraftRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
		if err := validate.Struct(req); err != nil {
			respondError(w, h.logger, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}

	draft, err := h.forms.NewDraft(r.Context(), user.UserID, req.Title)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, draft)
}

// GetForm handles GET /forms/{formID}.
func (h *FormHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	draft, err := h.forms.GetFormByID(r.Context(), user.UserID, chi.URLParam(r, "formID"))
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, draft)
}

// SaveForm handles PUT /forms/{formID}.
func (h *FormHandler) SaveForm(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var draft domain.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	formID := chi.URLParam(r, "formID")
	if draft.ID == "" {
		draft.ID = formID
	}
	if draft.ID != formID {
		respondError(w, h.logger, http.StatusBadRequest, "Form ID in body does not match URL")
		return
	}

	saved, err := h.forms.SaveForm(r.Context(), user.UserID, draft)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, saved)
}

// DeleteForm handles DELETE /forms/{formID}.
func (h *FormHandler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	h.forms.DeleteForm(r.Context(), user.UserID, chi.URLParam(r, "formID"))
	w.WriteHeader(http.StatusNoContent)
}

// SubmitForm handles POST /forms/{formID}/submit.
func (h *FormHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	archived, err := h.forms.SubmitForm(r.Context(), user.UserID,
		chi.URLParam(r, "formID"), domain.SubmissionType(req.SubmissionType))
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, archived)
}

// ExportForm handles POST /forms/{formID}/export.
func (h *FormHandler) ExportForm(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	opts := pdf.DefaultOptions()
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			respondError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	formID := chi.URLParam(r, "formID")
	draft, err := h.forms.GetFormByID(r.Context(), user.UserID, formID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	out, err := h.pdfGen.Generate(draft, opts)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+formID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		h.logger.Error("failed to write pdf response", zap.Error(err))
	}
}

// GetModuleStates handles GET /forms/{formID}/modules.
func (h *FormHandler) GetModuleStates(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	draft, err := h.forms.GetFormByID(r.Context(), user.UserID, chi.URLParam(r, "formID"))
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"formId":  draft.ID,
		"modules": h.states.ForDraft(draft),
	})
}

// SetConnectivity handles PUT /connectivity.
func (h *FormHandler) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, h.logger, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ConnectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	h.forms.SetOnline(r.Context(), user.UserID, *req.Online)
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"online": h.forms.Online()})
}

// respondAppError maps service errors to HTTP status codes.
func respondAppError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case apperrors.IsNotFound(err):
		respondError(w, logger, http.StatusNotFound, "Not found")
	case errors.Is(err, form.ErrConflict):
		respondError(w, logger, http.StatusConflict, err.Error())
	case apperrors.IsValidation(err):
		respondError(w, logger, http.StatusBadRequest, err.Error())
	case apperrors.IsAuth(err):
		respondError(w, logger, http.StatusUnauthorized, err.Error())
	case apperrors.IsNetwork(err):
		respondError(w, logger, http.StatusBadGateway, err.Error())
	default:
		respondError(w, logger, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, logger *zap.Logger, status int, message string) {
	respondJSON(w, logger, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
