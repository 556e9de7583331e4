package partystore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/reelsync/watchparty/internal/app/party"
	partystore "github.com/reelsync/watchparty/internal/app/store/parties"
	"github.com/reelsync/watchparty/internal/domain/models"
	"github.com/reelsync/watchparty/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func newParty(code string) models.Party {
	now := time.Now().UTC()
	return models.Party{
		HostEmail:  "host@test.com",
		HostName:   "Test Host",
		Media:      testutil.Movie("The Third Man", 6240),
		InviteCode: code,
		Playback:   models.PlaybackState{LastSyncAt: now},
		Participants: []models.Participant{
			{Email: "host@test.com", Name: "Test Host", JoinedAt: now},
		},
		JoinRequests:    []models.JoinRequest{},
		MaxParticipants: 10,
	}
}

// ensureCodeIndex mirrors the unique invite_code index EnsureSchema
// creates in production.
func ensureCodeIndex(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, err := db.Collection("parties").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "invite_code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		t.Fatalf("failed to create invite_code index: %v", err)
	}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := partystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newParty("PARTY-AAAAAA"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Status != models.PartyScheduled {
		t.Errorf("expected status 'scheduled', got %q", created.Status)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_Create_DuplicateCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ensureCodeIndex(t, db)
	store := partystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, newParty("PARTY-BBBBBB")); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, newParty("PARTY-BBBBBB"))
	if !errors.Is(err, party.ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}
}

func TestStore_GetByCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := partystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newParty("PARTY-CCCCCC"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByCode(ctx, "PARTY-CCCCCC")
	if err != nil {
		t.Fatalf("GetByCode failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("got wrong party: %s", got.ID.Hex())
	}

	_, err = store.GetByCode(ctx, "PARTY-ZZZZZZ")
	if !errors.Is(err, party.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := partystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, party.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_AddParticipant_NoDuplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := partystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newParty("PARTY-DDDDDD"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	m := models.Participant{Email: "guest@test.com", Name: "Test Guest", JoinedAt: time.Now().UTC()}
	added, err := store.AddParticipant(ctx, created.ID, m)
	if err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if !added {
		t.Fatal("expected first add to report true")
	}

	// Same email again: the filter guard refuses the push.
	added, err = store.AddParticipant(ctx, created.ID, m)
	if err != nil {
		t.Fatalf("second AddParticipant failed: %v", err)
	}
	if added {
		t.Error("expected duplicate add to report false")
	}

	got, _ := store.GetByID(ctx, created.ID)
	count := 0
	for _, p := range got.Participants {
		if p.Email == m.Email {
			count++
		}
	}
	if count != 1 {
		t.Errorf("participant entries: got %d, want 1", count)
	}
}

func TestStore_RemoveJoinRequest_ReportsRemoval(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := partystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newParty("PARTY-EEEEEE"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	jr := models.JoinRequest{Email: "guest@test.com", Name: "Test Guest", RequestedAt: time.Now().UTC()}
	if _, err := store.AddJoinRequest(ctx, created.ID, jr); err != nil {
		t.Fatalf("AddJoinRequest failed: %v", err)
	}

	removed, err := store.RemoveJoinRequest(ctx, created.ID, jr.Email)
	if err != nil {
		t.Fatalf("RemoveJoinRequest failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to report true")
	}

	// Second removal finds nothing to pull.
	removed, err = store.RemoveJoinRequest(ctx, created.ID, jr.Email)
	if err != nil {
		t.Fatalf("second RemoveJoinRequest failed: %v", err)
	}
	if removed {
		t.Error("expected second removal to report false")
	}
}

func TestStore_RemoveParticipant_AbsentReportsFalse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := partystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newParty("PARTY-PPPPPP"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Nobody by this email is a participant, so nothing is pulled and
	// the call must say so even though updated_at gets touched on a
	// real removal.
	removed, err := store.RemoveParticipant(ctx, created.ID, "nobody@test.com")
	if err != nil {
		t.Fatalf("RemoveParticipant failed: %v", err)
	}
	if removed {
		t.Error("expected removal of an absent participant to report false")
	}

	got, _ := store.GetByID(ctx, created.ID)
	if len(got.Participants) != 1 {
		t.Errorf("participants: got %d, want the host alone", len(got.Participants))
	}
}

func TestStore_SetPlayback(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := partystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newParty("PARTY-FFFFFF"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	pb := models.PlaybackState{CurrentTime: 1234.5, IsPlaying: true, LastSyncAt: time.Now().UTC()}
	if err := store.SetPlayback(ctx, created.ID, pb); err != nil {
		t.Fatalf("SetPlayback failed: %v", err)
	}

	got, _ := store.GetByID(ctx, created.ID)
	if got.Playback.CurrentTime != 1234.5 || !got.Playback.IsPlaying {
		t.Errorf("playback not persisted: %+v", got.Playback)
	}
}

func TestStore_ListPublic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := partystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	pub := newParty("PARTY-GGGGGG")
	pub.IsPublic = true
	created, err := store.Create(ctx, pub)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, newParty("PARTY-HHHHHH")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	out, err := store.ListPublic(ctx)
	if err != nil {
		t.Fatalf("ListPublic failed: %v", err)
	}
	if len(out) != 1 || out[0].ID != created.ID {
		t.Errorf("expected only the public party, got %d entries", len(out))
	}

	// Ended public parties drop out of the listing.
	if err := store.SetStatus(ctx, created.ID, models.PartyEnded); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	out, _ = store.ListPublic(ctx)
	if len(out) != 0 {
		t.Errorf("ended party still listed: %d entries", len(out))
	}
}

func TestStore_CountOpenByHost(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := partystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, err := store.Create(ctx, newParty("PARTY-JJJJJJ"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, newParty("PARTY-KKKKKK")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	n, err := store.CountOpenByHost(ctx, "host@test.com")
	if err != nil {
		t.Fatalf("CountOpenByHost failed: %v", err)
	}
	if n != 2 {
		t.Errorf("open count: got %d, want 2", n)
	}

	if err := store.SetStatus(ctx, a.ID, models.PartyEnded); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	n, _ = store.CountOpenByHost(ctx, "host@test.com")
	if n != 1 {
		t.Errorf("open count after ending one: got %d, want 1", n)
	}
}
