// Package rest wires the HTTP surface: draft lifecycle, archive, error
// log, health and metrics.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"hrdhat-backend/interfaces/http/rest/handlers"
	"hrdhat-backend/interfaces/http/rest/middleware"
	apperrors "hrdhat-backend/internal/errors"
	"hrdhat-backend/internal/observability"
	"hrdhat-backend/internal/pdf"
	"hrdhat-backend/internal/service/form"
	"hrdhat-backend/internal/service/modulestate"
	"hrdhat-backend/pkg/auth"
)

// Router creates and configures the HTTP router.
type Router struct {
	forms          *form.Service
	states         *modulestate.Service
	pdfGen         *pdf.Generator
	sink           apperrors.Sink
	metrics        *observability.Metrics
	authValidator  *auth.Validator
	logger         *zap.Logger
	allowedOrigins []string
}

// NewRouter creates a router.
func NewRouter(
	forms *form.Service,
	states *modulestate.Service,
	pdfGen *pdf.Generator,
	sink apperrors.Sink,
	metrics *observability.Metrics,
	authValidator *auth.Validator,
	logger *zap.Logger,
	allowedOrigins []string,
) *Router {
	return &Router{
		forms:          forms,
		states:         states,
		pdfGen:         pdfGen,
		sink:           sink,
		metrics:        metrics,
		authValidator:  authValidator,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.metrics))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.authValidator, rt.logger))

		r.Route("/forms", func(r chi.Router) {
			formHandler := handlers.NewFormHandler(rt.forms, rt.states, rt.pdfGen, rt.logger)
			r.Get("/", formHandler.ListForms)
			r.Post("/", formHandler.CreateDraft)
			r.Get("/{formID}", formHandler.GetForm)
			r.Put("/{formID}", formHandler.SaveForm)
			r.Delete("/{formID}", formHandler.DeleteForm)
			r.Post("/{formID}/submit", formHandler.SubmitForm)
			r.Post("/{formID}/export", formHandler.ExportForm)
			r.Get("/{formID}/modules", formHandler.GetModuleStates)
		})

		r.Route("/archive", func(r chi.Router) {
			archiveHandler := handlers.NewArchiveHandler(rt.forms, rt.logger)
			r.Get("/", archiveHandler.ListArchive)
			r.Get("/{formID}", archiveHandler.GetArchivedForm)
			r.Delete("/{formID}", archiveHandler.DeleteArchivedForm)
		})

		r.Route("/errors", func(r chi.Router) {
			errorHandler := handlers.NewErrorHandler(rt.sink, rt.logger)
			r.Get("/", errorHandler.ListErrors)
			r.Delete("/{errorID}", errorHandler.ClearError)
			r.Delete("/", errorHandler.ClearErrors)
		})

		formHandler := handlers.NewFormHandler(rt.forms, rt.states, rt.pdfGen, rt.logger)
		r.Put("/connectivity", formHandler.SetConnectivity)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
