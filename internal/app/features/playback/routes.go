// internal/app/features/playback/routes.go
package playback

import (
	"github.com/go-chi/chi/v5"
	"github.com/reelsync/watchparty/internal/app/system/auth"
)

// Routes returns the router for the playback sync endpoints, mounted
// at /sync.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Use(sm.RequireSignedIn)

	r.Route("/{partyID}", func(r chi.Router) {
		r.Get("/state", h.ServeState)
		r.Delete("/state", h.ServeDetach)
		r.Post("/playback", h.ServeToggle)
	})

	return r
}
