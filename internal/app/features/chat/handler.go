// internal/app/features/chat/handler.go
package chat

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/reelsync/watchparty/internal/app/party"
	"github.com/reelsync/watchparty/internal/app/system/apierror"
	"github.com/reelsync/watchparty/internal/app/system/auth"
	"github.com/reelsync/watchparty/internal/app/system/httpjson"
	"github.com/reelsync/watchparty/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the party chat log. Participants only.
type Handler struct {
	Parties     party.PartyStore
	Channel     *party.Channel
	HistorySize int64
	Log         *zap.Logger
}

// NewHandler constructs a chat Handler. historySize caps a full-log
// read; zero means unlimited.
func NewHandler(parties party.PartyStore, channel *party.Channel, historySize int64, logger *zap.Logger) *Handler {
	return &Handler{Parties: parties, Channel: channel, HistorySize: historySize, Log: logger}
}

// ServeList handles GET /chat/{partyID}?since=seq. With since, returns
// only messages past that sequence number (the per-tick poll a client
// runs); without it, recent history.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.requireParticipant(r, id, user.Email); err != nil {
		apierror.Write(w, err)
		return
	}

	var (
		msgs []models.ChatMessage
		err  error
	)
	if raw := r.URL.Query().Get("since"); raw != "" {
		seq, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
		msgs, err = h.Channel.Since(r.Context(), id, seq)
	} else {
		msgs, err = h.Channel.History(r.Context(), id, h.HistorySize)
	}
	if err != nil {
		h.Log.Warn("chat list failed", zap.String("party_id", id.Hex()), zap.Error(err))
		apierror.Write(w, err)
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	httpjson.Write(w, http.StatusOK, msgs)
}

// postRequest is the JSON body for a chat post.
type postRequest struct {
	Text string `json:"text"`
}

// ServePost handles POST /chat/{partyID}. No dedup: rapid duplicate
// submissions produce duplicate entries.
func (h *Handler) ServePost(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.requireParticipant(r, id, user.Email); err != nil {
		apierror.Write(w, err)
		return
	}

	var req postRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.Channel.Post(r.Context(), id, party.Identity{Email: user.Email, Name: user.Name}, req.Text)
	if err != nil {
		apierror.Write(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, msg)
}

func (h *Handler) requireParticipant(r *http.Request, id primitive.ObjectID, email string) error {
	p, err := h.Parties.GetByID(r.Context(), id)
	if err != nil {
		return err
	}
	if !p.HasParticipant(email) {
		return party.ErrNotParticipant
	}
	return nil
}

func pathID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "partyID"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid party id")
		return primitive.NilObjectID, false
	}
	return id, true
}
