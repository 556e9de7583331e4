// internal/app/features/chat/routes.go
package chat

import (
	"github.com/go-chi/chi/v5"
	"github.com/reelsync/watchparty/internal/app/system/auth"
)

// Routes returns the router for the chat feature, mounted at /chat.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Use(sm.RequireSignedIn)

	r.Route("/{partyID}", func(r chi.Router) {
		r.Get("/", h.ServeList)
		r.Post("/", h.ServePost)
	})

	return r
}
