// internal/app/store/viewings/viewingstore.go
package viewingstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reelsync/watchparty/internal/app/party"
	"github.com/reelsync/watchparty/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides typed access to the viewings collection. A viewing is
// single-writer (its owner only), so none of these methods need any
// concurrency guard beyond the store's own atomicity.
type Store struct {
	c *mongo.Collection
}

// New binds the store to the viewings collection.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("viewings")}
}

func (s *Store) Create(ctx context.Context, v models.Viewing) (models.Viewing, error) {
	now := time.Now().UTC()
	v.ID = primitive.NewObjectID()
	if v.Status == "" {
		v.Status = models.ViewingScheduled
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, v); err != nil {
		return models.Viewing{}, err
	}
	return v, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Viewing, error) {
	var v models.Viewing
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&v); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Viewing{}, fmt.Errorf("viewing %s: %w", id.Hex(), party.ErrViewingNotFound)
		}
		return models.Viewing{}, err
	}
	return v, nil
}

// GetByOwnerAndMedia returns the owner's most recent viewing of the
// given media.
func (s *Store) GetByOwnerAndMedia(ctx context.Context, ownerEmail, mediaID string) (models.Viewing, error) {
	var v models.Viewing
	err := s.c.FindOne(ctx,
		bson.M{"owner_email": ownerEmail, "media.media_id": mediaID},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Viewing{}, fmt.Errorf("viewing for %s: %w", ownerEmail, party.ErrViewingNotFound)
		}
		return models.Viewing{}, err
	}
	return v, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerEmail string) ([]models.Viewing, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"owner_email": ownerEmail},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Viewing
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	return s.set(ctx, id, bson.M{"status": status})
}

func (s *Store) SetProgress(ctx context.Context, id primitive.ObjectID, elapsedSeconds int) error {
	return s.set(ctx, id, bson.M{"elapsed_seconds": elapsedSeconds})
}

// Finish marks the viewing completed at a final position without a
// rating (host completion of a linked scheduled viewing).
func (s *Store) Finish(ctx context.Context, id primitive.ObjectID, elapsedSeconds int) error {
	return s.set(ctx, id, bson.M{
		"status":          models.ViewingCompleted,
		"elapsed_seconds": elapsedSeconds,
	})
}

// Complete finalizes the viewing with the owner's rating.
func (s *Store) Complete(ctx context.Context, id primitive.ObjectID, rating, elapsedSeconds int) error {
	return s.set(ctx, id, bson.M{
		"status":              models.ViewingCompleted,
		"rating":              rating,
		"rating_submitted_at": time.Now().UTC(),
		"elapsed_seconds":     elapsedSeconds,
	})
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("viewing %s: %w", id.Hex(), party.ErrViewingNotFound)
	}
	return nil
}
