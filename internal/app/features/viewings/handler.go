// internal/app/features/viewings/handler.go
package viewings

import (
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/reelsync/watchparty/internal/app/party"
	"github.com/reelsync/watchparty/internal/app/system/apierror"
	"github.com/reelsync/watchparty/internal/app/system/auth"
	"github.com/reelsync/watchparty/internal/app/system/httpjson"
	"github.com/reelsync/watchparty/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves each participant's own durable viewing history.
// Viewings are single-writer: every endpoint here acts only on the
// caller's records.
type Handler struct {
	Viewings party.ViewingStore
	Log      *zap.Logger
}

// NewHandler constructs a viewings Handler.
func NewHandler(viewings party.ViewingStore, logger *zap.Logger) *Handler {
	return &Handler{Viewings: viewings, Log: logger}
}

// ServeList handles GET /viewings: the caller's history.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	out, err := h.Viewings.ListByOwner(r.Context(), user.Email)
	if err != nil {
		h.Log.Warn("list viewings failed", zap.String("owner", user.Email), zap.Error(err))
		apierror.Write(w, err)
		return
	}
	if out == nil {
		out = []models.Viewing{}
	}
	httpjson.Write(w, http.StatusOK, out)
}

// scheduleRequest is the JSON body for scheduling a viewing.
type scheduleRequest struct {
	Media models.MediaRef `json:"media"`
}

// ServeSchedule handles POST /viewings, scheduling a future viewing.
// A party created later from this viewing links back to it via
// schedule_ref.
func (h *Handler) ServeSchedule(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	var req scheduleRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Media.Title == "" || req.Media.DurationSeconds <= 0 {
		apierror.Write(w, party.ErrMediaMissing)
		return
	}

	media := req.Media
	media.TitleCI = text.Fold(media.Title)
	now := time.Now().UTC()

	v, err := h.Viewings.Create(r.Context(), models.Viewing{
		OwnerEmail: user.Email,
		Media:      media,
		Status:     models.ViewingScheduled,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		h.Log.Warn("schedule viewing failed", zap.String("owner", user.Email), zap.Error(err))
		apierror.Write(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, v)
}

// ServeGet handles GET /viewings/{viewingID}. The caller's own record
// only.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "viewingID"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid viewing id")
		return
	}

	v, err := h.Viewings.GetByID(r.Context(), id)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	if v.OwnerEmail != user.Email {
		apierror.Write(w, party.ErrViewingNotFound)
		return
	}
	httpjson.Write(w, http.StatusOK, v)
}
