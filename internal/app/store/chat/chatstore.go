// internal/app/store/chat/chatstore.go
package chatstore

import (
	"context"
	"sort"
	"time"

	"github.com/reelsync/watchparty/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides typed access to the chat_messages collection. Chat is
// append-only and lives apart from the party document so posts never
// contend with party mutations.
//
// Ordering is by Seq, a per-party monotonic counter allocated from the
// chat_counters collection at append time. created_at alone cannot
// break ties between writers.
type Store struct {
	c        *mongo.Collection
	counters *mongo.Collection
}

// New binds the store to the chat collections.
func New(db *mongo.Database) *Store {
	return &Store{
		c:        db.Collection("chat_messages"),
		counters: db.Collection("chat_counters"),
	}
}

// Append allocates the next sequence number for the party and inserts
// the message.
func (s *Store) Append(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	seq, err := s.nextSeq(ctx, msg.PartyID)
	if err != nil {
		return models.ChatMessage{}, err
	}

	msg.ID = primitive.NewObjectID()
	msg.Seq = seq
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, msg); err != nil {
		return models.ChatMessage{}, err
	}
	return msg, nil
}

// nextSeq atomically increments and returns the party's counter.
func (s *Store) nextSeq(ctx context.Context, partyID primitive.ObjectID) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": partyID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

// ListByParty returns the most recent limit messages in sequence order.
// limit <= 0 returns the whole log.
func (s *Store) ListByParty(ctx context.Context, partyID primitive.ObjectID, limit int64) ([]models.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{"party_id": partyID}, opts)
	if err != nil {
		return nil, err
	}
	var out []models.ChatMessage
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// ListSince returns messages with Seq greater than seq, oldest first.
func (s *Store) ListSince(ctx context.Context, partyID primitive.ObjectID, seq int64) ([]models.ChatMessage, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"party_id": partyID, "seq": bson.M{"$gt": seq}},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.ChatMessage
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
