// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/reelsync/watchparty/internal/app/system/auth"
	"github.com/reelsync/watchparty/internal/app/system/httpjson"
	"go.uber.org/zap"
)

// Handler clears the caller's session.
type Handler struct {
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

// NewHandler constructs a logout Handler.
func NewHandler(sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{SessionMgr: sm, Log: logger}
}

// ServeLogout handles POST /logout.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("sign-out failed", zap.Error(err))
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
