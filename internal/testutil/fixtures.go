package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/reelsync/watchparty/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Movie returns a media reference with sensible defaults for tests.
func Movie(title string, durationSeconds int) models.MediaRef {
	return models.MediaRef{
		MediaID:         primitive.NewObjectID().Hex(),
		Title:           title,
		TitleCI:         text.Fold(title),
		DurationSeconds: durationSeconds,
	}
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateParty inserts a scheduled party hosted by hostEmail. The host
// is the first participant, matching what the lifecycle controller
// produces.
func (f *Fixtures) CreateParty(ctx context.Context, hostEmail, hostName, code string, media models.MediaRef) models.Party {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Party{
		ID:         primitive.NewObjectID(),
		HostEmail:  hostEmail,
		HostName:   hostName,
		Media:      media,
		InviteCode: code,
		Status:     models.PartyScheduled,
		Playback: models.PlaybackState{
			CurrentTime: 0,
			IsPlaying:   false,
			LastSyncAt:  now,
		},
		Participants: []models.Participant{
			{Email: hostEmail, Name: hostName, JoinedAt: now},
		},
		MaxParticipants: 10,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := f.db.Collection("parties").InsertOne(ctx, p)
	if err != nil {
		f.t.Fatalf("failed to create test party: %v", err)
	}

	return p
}

// CreateViewing inserts a viewing record for the given owner.
func (f *Fixtures) CreateViewing(ctx context.Context, ownerEmail string, media models.MediaRef, status string) models.Viewing {
	f.t.Helper()

	now := time.Now().UTC()
	v := models.Viewing{
		ID:         primitive.NewObjectID(),
		OwnerEmail: ownerEmail,
		Media:      media,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := f.db.Collection("viewings").InsertOne(ctx, v)
	if err != nil {
		f.t.Fatalf("failed to create test viewing: %v", err)
	}

	return v
}

// CreateChatMessage inserts a chat message with an explicit sequence
// number, bypassing the counter collection.
func (f *Fixtures) CreateChatMessage(ctx context.Context, partyID primitive.ObjectID, seq int64, senderEmail, text string) models.ChatMessage {
	f.t.Helper()

	m := models.ChatMessage{
		ID:          primitive.NewObjectID(),
		PartyID:     partyID,
		Seq:         seq,
		SenderEmail: senderEmail,
		SenderName:  senderEmail,
		MessageType: models.MessageChat,
		Text:        text,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := f.db.Collection("chat_messages").InsertOne(ctx, m)
	if err != nil {
		f.t.Fatalf("failed to create test chat message: %v", err)
	}

	return m
}
