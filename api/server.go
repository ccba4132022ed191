/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Society routes
		r.Route("/societies", func(r chi.Router) {
			r.Get("/", h.ListSocieties)
			r.Post("/", h.RegisterSociety)
			r.Get("/{id}", h.GetSociety)
			r.Put("/{id}", h.UpdateSociety)
			r.Delete("/{id}", h.DeleteSociety)
		})

		// Member routes
		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
			r.Get("/{id}", h.GetMember)
			r.Put("/{id}", h.UpdateMember)
			r.Delete("/{id}", h.DeleteMember)
		})

		// Receipt routes
		r.Route("/receipts", func(r chi.Router) {
			r.Get("/", h.ListReceipts)
			r.Post("/", h.CreateReceipt)
			r.Get("/next-number", h.NextReceiptNumber)
			r.Post("/bulk", h.BulkGenerate)
			r.Get("/{id}", h.GetReceipt)
			r.Delete("/{id}", h.DeleteReceipt)
		})

		// Backup routes
		r.Route("/backups", func(r chi.Router) {
			r.Get("/", h.ListBackups)
			r.Post("/", h.CreateBackup)
			r.Post("/import", h.ImportBackup)
			r.Get("/settings", h.GetBackupSettings)
			r.Put("/settings", h.UpdateBackupSettings)
			r.Post("/{timestamp}/restore", h.RestoreBackup)
			r.Delete("/{timestamp}", h.DeleteBackup)
		})

		// Session routes
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/", h.Login)
			r.Delete("/", h.Logout)
		})

		// Country table
		r.Get("/countries", h.ListCountries)
	})

	return r
}
