// internal/app/features/userinfo/handler.go
package userinfo

import (
	"net/http"

	"github.com/reelsync/watchparty/internal/app/system/auth"
	"github.com/reelsync/watchparty/internal/app/system/httpjson"
)

// Handler reports the caller's resolved identity.
type Handler struct{}

// NewHandler constructs a userinfo Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// ServeMe handles GET /me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	httpjson.Write(w, http.StatusOK, u)
}
