// internal/app/features/parties/handler.go
package parties

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reelsync/watchparty/internal/app/party"
	"github.com/reelsync/watchparty/internal/app/system/apierror"
	"github.com/reelsync/watchparty/internal/app/system/auth"
	"github.com/reelsync/watchparty/internal/app/system/httpjson"
	"github.com/reelsync/watchparty/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the parties feature:
// creation, invite resolution, the admission handshake, lifecycle
// actions, and rating.
type Handler struct {
	Parties    party.PartyStore
	Resolver   *party.Resolver
	Negotiator *party.Negotiator
	Lifecycle  *party.Controller
	Registry   *party.Registry
	Log        *zap.Logger
}

// NewHandler constructs a parties Handler. Called from bootstrap
// BuildHandler with the engine already wired.
func NewHandler(parties party.PartyStore, resolver *party.Resolver, negotiator *party.Negotiator, lifecycle *party.Controller, registry *party.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		Parties:    parties,
		Resolver:   resolver,
		Negotiator: negotiator,
		Lifecycle:  lifecycle,
		Registry:   registry,
		Log:        logger,
	}
}

// createRequest is the JSON body for party creation.
type createRequest struct {
	Media           models.MediaRef `json:"media"`
	MaxParticipants int             `json:"max_participants"`
	IsPublic        bool            `json:"is_public"`
	AutoAdmit       bool            `json:"auto_admit"`
	ScheduleRef     string          `json:"schedule_ref,omitempty"`
}

// ServeCreate handles POST /parties.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	var req createRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := party.CreateInput{
		Media:           req.Media,
		MaxParticipants: req.MaxParticipants,
		IsPublic:        req.IsPublic,
		AutoAdmit:       req.AutoAdmit,
	}
	if req.ScheduleRef != "" {
		oid, err := primitive.ObjectIDFromHex(req.ScheduleRef)
		if err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid schedule_ref")
			return
		}
		in.ScheduleRef = &oid
	}

	p, err := h.Lifecycle.Create(r.Context(), identity(user), in)
	if err != nil {
		h.Log.Warn("party create failed", zap.String("host", user.Email), zap.Error(err))
		apierror.Write(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, p)
}

// ServeResolve handles GET /parties/resolve?code=..., the invite code
// lookup. Returns the joinable party or 404/409.
func (h *Handler) ServeResolve(w http.ResponseWriter, r *http.Request) {
	p, err := h.Resolver.Resolve(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		apierror.Write(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}

// ServeListPublic handles GET /parties: open, publicly discoverable
// parties.
func (h *Handler) ServeListPublic(w http.ResponseWriter, r *http.Request) {
	out, err := h.Parties.ListPublic(r.Context())
	if err != nil {
		h.Log.Warn("list public parties failed", zap.Error(err))
		apierror.Write(w, err)
		return
	}
	if out == nil {
		out = []models.Party{}
	}
	httpjson.Write(w, http.StatusOK, out)
}

// ServeGet handles GET /parties/{partyID}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.Parties.GetByID(r.Context(), id)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}

// ServeJoin handles POST /parties/{partyID}/join, the admission
// handshake. Responds with admitted or pending.
func (h *Handler) ServeJoin(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	res, err := h.Negotiator.Join(r.Context(), id, identity(user))
	if err != nil {
		apierror.Write(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{
		"admitted": res.Admitted,
		"pending":  res.Pending,
		"party":    res.Party,
	})
}

// ServeApprove handles POST /parties/{partyID}/requests/{email}/approve.
// Host-only; idempotent against double clicks.
func (h *Handler) ServeApprove(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	err := h.Negotiator.Approve(r.Context(), id, identity(user), chi.URLParam(r, "email"))
	if err != nil {
		apierror.Write(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "approved"})
}

// ServeReject handles POST /parties/{partyID}/requests/{email}/reject.
func (h *Handler) ServeReject(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	err := h.Negotiator.Reject(r.Context(), id, identity(user), chi.URLParam(r, "email"))
	if err != nil {
		apierror.Write(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// ServeLeave handles POST /parties/{partyID}/leave. Stops the caller's
// watcher and removes them from participants; the party itself is
// unaffected, even when the host leaves.
func (h *Handler) ServeLeave(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	h.Registry.Detach(id, user.Email)
	if err := h.Negotiator.Leave(r.Context(), id, identity(user)); err != nil {
		apierror.Write(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "left"})
}

// completeRequest optionally pins the final position when the host has
// no running watcher on this node.
type completeRequest struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// ServeComplete handles POST /parties/{partyID}/complete: the host
// ends the party. The final position comes from the host's watcher
// clock when one is attached, else from the request body.
func (h *Handler) ServeComplete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if wt, ok := h.Registry.Get(id, user.Email); ok {
		if err := wt.Complete(r.Context()); err != nil {
			apierror.Write(w, err)
			return
		}
		httpjson.Write(w, http.StatusOK, map[string]string{"status": "ended"})
		return
	}

	var req completeRequest
	_ = httpjson.Decode(r, &req) // elapsed is optional
	if err := h.Lifecycle.Complete(r.Context(), id, identity(user), req.ElapsedSeconds); err != nil {
		apierror.Write(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "ended"})
}

// rateRequest is the JSON body for rating submission.
type rateRequest struct {
	Rating         int  `json:"rating"`
	ElapsedSeconds *int `json:"elapsed_seconds,omitempty"`
}

// ServeRate handles POST /parties/{partyID}/rating. Finalizes the
// caller's own viewing. Elapsed defaults to the caller's last observed
// playback position when a watcher is attached.
func (h *Handler) ServeRate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req rateRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	elapsed := 0
	if req.ElapsedSeconds != nil {
		elapsed = *req.ElapsedSeconds
	} else if wt, ok := h.Registry.Get(id, user.Email); ok {
		elapsed = int(wt.Snapshot().CurrentTime)
	}

	v, err := h.Lifecycle.Rate(r.Context(), identity(user), id, req.Rating, elapsed)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, v)
}

func identity(u *auth.SessionUser) party.Identity {
	if u == nil {
		return party.Identity{}
	}
	return party.Identity{Email: u.Email, Name: u.Name, AvatarURL: u.AvatarURL}
}

// pathID parses the {partyID} URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "partyID"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid party id")
		return primitive.NilObjectID, false
	}
	return id, true
}
