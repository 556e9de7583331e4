// internal/domain/models/chatmessage.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat message types.
const (
	MessageChat   = "chat"
	MessageSystem = "system"
)

// SystemSender is the sender identity recorded on system-generated
// chat entries (joins, leaves, playback toggles, party end).
const SystemSender = "system"

// ChatMessage is one entry in a party's append-only chat log.
//
// Seq is a per-party monotonic sequence number allocated at append time.
// It is the ordering key: created_at alone cannot break ties between
// writers, so readers page and order by seq.
type ChatMessage struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PartyID     primitive.ObjectID `bson:"party_id" json:"party_id"`
	Seq         int64              `bson:"seq" json:"seq"`
	SenderEmail string             `bson:"sender_email" json:"sender_email"`
	SenderName  string             `bson:"sender_name" json:"sender_name"`
	MessageType string             `bson:"message_type" json:"message_type"`
	Text        string             `bson:"text" json:"text"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// IsSystem reports whether the message was generated by the service
// rather than typed by a participant.
func (m *ChatMessage) IsSystem() bool {
	return m.MessageType == MessageSystem
}
