package api

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts every route SPEC_FULL.md's command surface
// section names. Each handler group lives in its own file
// (libraries.go, ingest.go, jobs.go, sessions.go, clips.go,
// diagnostics.go, license.go); the job progress SSE stream lives in
// jobs.go.
func RegisterRoutes(r chi.Router, deps Deps) {
	h := &handlers{deps: deps}

	r.Route("/libraries", func(r chi.Router) {
		r.Post("/", h.createLibrary)
		r.Post("/open", h.openLibrary)
		r.Post("/close", h.closeLibrary)
		r.Get("/root", h.libraryRoot)
	})

	r.Post("/ingest", h.startIngest)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/{id}/cancel", h.cancelJob)
		r.Get("/{id}/events", h.jobEvents)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/{id}/rescan", h.rescanSession)
		r.Post("/{id}/wipe", h.wipeSession)
	})

	r.Route("/clips", func(r chi.Router) {
		r.Post("/{id}/tags", h.updateClipTags)
	})

	r.Route("/diagnostics", func(r chi.Router) {
		r.Get("/", h.getDiagnostics)
		r.Put("/", h.setDiagnostics)
		r.Get("/logs", h.logDirectory)
		r.Post("/logs/export", h.exportLogs)
	})

	r.Route("/license", func(r chi.Router) {
		r.Get("/", h.getLicense)
		r.Post("/", h.activateLicense)
		r.Delete("/", h.deactivateLicense)
		r.Get("/allowed/{feature}", h.licenseAllowed)
	})
}

// handlers holds the shared Deps every route handler reads from.
type handlers struct {
	deps Deps
}
