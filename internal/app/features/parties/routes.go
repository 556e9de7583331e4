// internal/app/features/parties/routes.go
package parties

import (
	"github.com/go-chi/chi/v5"
	"github.com/reelsync/watchparty/internal/app/system/auth"
)

// Routes returns the router for the parties feature.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeListPublic)
	r.Post("/", h.ServeCreate)
	r.Get("/resolve", h.ServeResolve)

	r.Route("/{partyID}", func(r chi.Router) {
		r.Get("/", h.ServeGet)
		r.Post("/join", h.ServeJoin)
		r.Post("/leave", h.ServeLeave)
		r.Post("/complete", h.ServeComplete)
		r.Post("/rating", h.ServeRate)
		r.Post("/requests/{email}/approve", h.ServeApprove)
		r.Post("/requests/{email}/reject", h.ServeReject)
	})

	return r
}
