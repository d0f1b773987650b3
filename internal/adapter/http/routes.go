package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, wsHandler http.HandlerFunc) {
	r.Get("/health", h.Health)
	if wsHandler != nil {
		r.Get("/ws", wsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Analyses
		r.Post("/analyses", h.StartAnalysis)
		r.Get("/analyses/current", h.GetCurrentAnalysis)
		r.Get("/analyses/{id}", h.GetAnalysis)

		// Workspace files (nested under analyses)
		r.Get("/analyses/{id}/files", h.ListFiles)
		r.Get("/analyses/{id}/files/*", h.GetFile)
		r.Put("/analyses/{id}/files/*", h.PutFile)

		// Approvals
		r.Get("/approvals/pending", h.ListPendingApprovals)
		r.Get("/approvals/history", h.ListApprovalHistory)
		r.Get("/approvals/{id}", h.GetApproval)
		r.Post("/approvals/{id}/respond", h.RespondApproval)

		// Documents
		r.Get("/documents", h.ListDocuments)
		r.Get("/documents/{id}", h.GetDocument)
		r.Get("/documents/{id}/pages/{num}/image", h.GetPageImage)
	})
}
