// internal/app/features/playback/handler.go
package playback

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reelsync/watchparty/internal/app/party"
	"github.com/reelsync/watchparty/internal/app/system/apierror"
	"github.com/reelsync/watchparty/internal/app/system/auth"
	"github.com/reelsync/watchparty/internal/app/system/httpjson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the synchronization surface: each participant's
// reconciliation tick (state snapshot) and the host's playback toggle.
type Handler struct {
	Parties  party.PartyStore
	Registry *party.Registry
	Log      *zap.Logger
}

// NewHandler constructs a playback Handler.
func NewHandler(parties party.PartyStore, registry *party.Registry, logger *zap.Logger) *Handler {
	return &Handler{Parties: parties, Registry: registry, Log: logger}
}

// ServeState handles GET /sync/{partyID}/state: one reconciliation
// tick for the caller. Attaches a watcher on first call; subsequent
// calls return the interpolated local view. Participants only.
func (h *Handler) ServeState(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	wt, err := h.watcher(r, id, user)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, wt.Snapshot())
}

// toggleRequest is the JSON body for the playback toggle.
type toggleRequest struct {
	Playing bool `json:"playing"`
}

// ServeToggle handles POST /sync/{partyID}/playback, the host
// play/pause action. A guest calling this gets a 403 and no store
// write is issued.
func (h *Handler) ServeToggle(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req toggleRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wt, err := h.watcher(r, id, user)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	if err := wt.Toggle(r.Context(), req.Playing); err != nil {
		apierror.Write(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, wt.Snapshot())
}

// ServeDetach handles DELETE /sync/{partyID}/state. Stops the
// caller's watcher. Other participants' loops and the persisted party
// are unaffected.
func (h *Handler) ServeDetach(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.Registry.Detach(id, user.Email)
	w.WriteHeader(http.StatusNoContent)
}

// watcher returns the caller's watcher for the party, attaching one if
// none is running. Only participants may attach.
func (h *Handler) watcher(r *http.Request, id primitive.ObjectID, user *auth.SessionUser) (*party.Watcher, error) {
	if wt, ok := h.Registry.Get(id, user.Email); ok {
		return wt, nil
	}

	p, err := h.Parties.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if p.IsTerminal() {
		return nil, party.ErrPartyEnded
	}
	if !p.HasParticipant(user.Email) {
		return nil, party.ErrNotParticipant
	}
	return h.Registry.Attach(p, party.Identity{
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}), nil
}

func pathID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "partyID"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid party id")
		return primitive.NilObjectID, false
	}
	return id, true
}
