// internal/domain/models/viewing.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Viewing status values.
const (
	ViewingScheduled  = "scheduled"
	ViewingInProgress = "in_progress"
	ViewingPaused     = "paused"
	ViewingCompleted  = "completed"
)

// Viewing is a participant-owned, durable record of one person watching
// one piece of content. It is written only by its owner's client and its
// lifecycle is independent of any Party: a shared session ending does not
// retroactively decide an individual's watch history. The owner finalizes
// it by submitting a rating.
type Viewing struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerEmail string             `bson:"owner_email" json:"owner_email"`
	Media      MediaRef           `bson:"media" json:"media"`

	Status         string `bson:"status" json:"status"`
	ElapsedSeconds int    `bson:"elapsed_seconds" json:"elapsed_seconds"`

	// Rating is 1-5, set only when the owner explicitly rates.
	Rating           *int       `bson:"rating,omitempty" json:"rating,omitempty"`
	RatingSubmittedAt *time.Time `bson:"rating_submitted_at,omitempty" json:"rating_submitted_at,omitempty"`

	// PartyID links the viewing to the shared party it was watched in,
	// when there was one.
	PartyID *primitive.ObjectID `bson:"party_id,omitempty" json:"party_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the viewing has been finalized.
func (v *Viewing) IsTerminal() bool {
	return v.Status == ViewingCompleted
}
