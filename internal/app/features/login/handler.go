// internal/app/features/login/handler.go
package login

import (
	"net/http"
	"strings"

	"github.com/reelsync/watchparty/internal/app/system/auth"
	"github.com/reelsync/watchparty/internal/app/system/httpjson"
	"go.uber.org/zap"
)

// Handler implements the trust sign-in: the caller asserts a name and
// email and gets a session cookie. This service treats identity as an
// external concern; a deployment fronted by a real identity provider
// replaces this feature without touching the party protocol.
type Handler struct {
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

// NewHandler constructs a login Handler.
func NewHandler(sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{SessionMgr: sm, Log: logger}
}

// loginRequest is the JSON body for sign-in.
type loginRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ServeLogin handles POST /login.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if email == "" || !strings.Contains(email, "@") {
		httpjson.Error(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if name == "" {
		name = email
	}

	u := auth.SessionUser{Email: email, Name: name, AvatarURL: req.AvatarURL}
	if err := h.SessionMgr.SignIn(w, r, u); err != nil {
		h.Log.Error("sign-in failed", zap.String("email", email), zap.Error(err))
		httpjson.Error(w, http.StatusInternalServerError, "sign-in failed")
		return
	}
	httpjson.Write(w, http.StatusOK, u)
}
