// internal/app/store/parties/partystore.go
package partystore

import (
	"context"
	"errors"
	"fmt"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/reelsync/watchparty/internal/app/party"
	"github.com/reelsync/watchparty/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// openStatuses are the party statuses counted as open/joinable.
var openStatuses = bson.A{models.PartyScheduled, models.PartyLive}

// Store provides typed access to the parties collection. It satisfies
// the engine's PartyStore contract; every mutation touches only its own
// field so concurrent writers cannot clobber unrelated parts of the
// document.
type Store struct {
	c *mongo.Collection
}

// New binds the store to the parties collection.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("parties")}
}

// Create inserts a new party. A duplicate invite code (unique index)
// maps to party.ErrCodeTaken so the caller can regenerate and retry.
func (s *Store) Create(ctx context.Context, p models.Party) (models.Party, error) {
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	if p.Status == "" {
		p.Status = models.PartyScheduled
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Party{}, fmt.Errorf("invite code %q: %w", p.InviteCode, party.ErrCodeTaken)
		}
		return models.Party{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Party, error) {
	var p models.Party
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Party{}, fmt.Errorf("party %s: %w", id.Hex(), party.ErrNotFound)
		}
		return models.Party{}, err
	}
	return p, nil
}

// GetByCode is the indexed invite-code lookup. Callers treat a miss as
// non-authoritative and fall back to List (the invite_code index may
// lag the primary write).
func (s *Store) GetByCode(ctx context.Context, code string) (models.Party, error) {
	var p models.Party
	if err := s.c.FindOne(ctx, bson.M{"invite_code": code}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Party{}, fmt.Errorf("invite code %q: %w", code, party.ErrNotFound)
		}
		return models.Party{}, err
	}
	return p, nil
}

// List returns every party. It exists for the invite resolver's
// full-scan fallback.
func (s *Store) List(ctx context.Context) ([]models.Party, error) {
	cur, err := s.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var out []models.Party
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPublic returns open parties flagged as publicly discoverable.
func (s *Store) ListPublic(ctx context.Context) ([]models.Party, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"is_public": true,
		"status":    bson.M{"$in": openStatuses},
	})
	if err != nil {
		return nil, err
	}
	var out []models.Party
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetPlayback overwrites the playback subdocument. Only ever invoked on
// behalf of the host identity; the store does not re-check that.
func (s *Store) SetPlayback(ctx context.Context, id primitive.ObjectID, pb models.PlaybackState) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"playback":   pb,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// AddParticipant appends the participant unless one with the same email
// is already present. The guard lives in the filter so two concurrent
// joins cannot produce a duplicate entry.
func (s *Store) AddParticipant(ctx context.Context, id primitive.ObjectID, m models.Participant) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "participants.email": bson.M{"$ne": m.Email}},
		bson.M{
			"$push": bson.M{"participants": m},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// RemoveParticipant pulls the participant. The element lives in the
// filter so a removal that matches nothing reports false instead of
// counting the updated_at touch as a modification.
func (s *Store) RemoveParticipant(ctx context.Context, id primitive.ObjectID, email string) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "participants.email": email},
		bson.M{
			"$pull": bson.M{"participants": bson.M{"email": email}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// AddJoinRequest appends a pending request unless one with the same
// email already exists.
func (s *Store) AddJoinRequest(ctx context.Context, id primitive.ObjectID, jr models.JoinRequest) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "join_requests.email": bson.M{"$ne": jr.Email}},
		bson.M{
			"$push": bson.M{"join_requests": jr},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// RemoveJoinRequest pulls the pending request. The reported bool is the
// idempotency hinge for approve/reject: only the invocation that
// actually removed the entry proceeds, so the request must be in the
// filter, not just the $pull.
func (s *Store) RemoveJoinRequest(ctx context.Context, id primitive.ObjectID, email string) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "join_requests.email": email},
		bson.M{
			"$pull": bson.M{"join_requests": bson.M{"email": email}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *Store) CountOpenByHost(ctx context.Context, hostEmail string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"host_email": hostEmail,
		"status":     bson.M{"$in": openStatuses},
	})
}
