// internal/app/features/viewings/routes.go
package viewings

import (
	"github.com/go-chi/chi/v5"
	"github.com/reelsync/watchparty/internal/app/system/auth"
)

// Routes returns the router for the viewings feature.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/", h.ServeSchedule)
	r.Get("/{viewingID}", h.ServeGet)

	return r
}
