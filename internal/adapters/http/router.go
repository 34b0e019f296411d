package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/imagelens/backend/internal/application"
)

// Handler is the HTTP adapter entrypoint.
// Keeping only application dependency here preserves clean adapter boundaries.
type Handler struct {
	service        *application.Service
	maxUploadBytes int64
}

// NewHandler constructs an HTTP handler bound to application service.
func NewHandler(service *application.Service, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

// NewRouter registers HTTP routes and middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across endpoints.
func NewRouter(handler *Handler, frontendOrigin string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(corsMiddleware(frontendOrigin))
	r.Use(loggingMiddleware)

	r.Get("/", handler.index)
	r.Get("/api/health", handler.health)
	r.Get("/auth/jwks", handler.jwks)

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/captcha", handler.captcha)
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Get("/verify", handler.verify)
			r.Post("/logout", handler.logout)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Post("/api/analyze", handler.analyze)
		r.Get("/api/history", handler.history)
		r.Get("/api/history/{analysis_id}", handler.analysisDetail)
		r.Get("/api/history/{analysis_id}/image", handler.analysisImage)
		r.Delete("/api/history/{analysis_id}", handler.analysisDelete)
	})

	return r
}
