package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/newsletter-issues", func(r chi.Router) {
			r.Get("/", h.ListIssues)
			r.Post("/", h.CreateIssueNotSupported)
			r.Post("/generate", h.GenerateIssue)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetIssue)
				r.Put("/", h.UpdateIssue)
				r.Delete("/", h.DeleteIssue)

				// Workflow transitions
				r.Post("/submit-for-approval", h.SubmitForApproval)
				r.Post("/approve", h.ApproveIssue)
				r.Post("/reject", h.RejectIssue)
				r.Post("/schedule", h.ScheduleIssue)
				r.Post("/mark-sent", h.MarkIssueSent)

				r.Get("/preview", h.PreviewIssue)
			})
		})

		r.Get("/generation-jobs/{id}", h.GetGenerationJob)

		r.Route("/newsletter-configurations", func(r chi.Router) {
			r.Get("/", h.ListConfigurations)
			r.Post("/", h.CreateConfiguration)
			r.Get("/{id}", h.GetConfiguration)
			r.Put("/{id}", h.UpdateConfiguration)
			r.Delete("/{id}", h.DeleteConfigurationNotSupported)
		})

		r.Route("/segments", func(r chi.Router) {
			r.Get("/", h.ListSegments)
			r.Post("/", h.CreateSegment)
			r.Get("/{id}", h.GetSegment)
			r.Put("/{id}", h.UpdateSegment)
		})
	})

	return r
}
