// internal/domain/models/party.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Party status values. See the lifecycle notes on Party.Status.
const (
	PartyScheduled = "scheduled"
	PartyLive      = "live"
	PartyEnded     = "ended"
	PartyCompleted = "completed"
)

// MediaRef describes the content a party is watching. It is embedded on
// both Party and Viewing so each keeps its own durable copy of the
// metadata it was created against.
type MediaRef struct {
	MediaID         string `bson:"media_id" json:"media_id"`
	Title           string `bson:"title" json:"title"`
	TitleCI         string `bson:"title_ci" json:"title_ci"`
	DurationSeconds int    `bson:"duration_seconds" json:"duration_seconds"`
	Season          *int   `bson:"season,omitempty" json:"season,omitempty"`
	Episode         *int   `bson:"episode,omitempty" json:"episode,omitempty"`
}

// PlaybackState is the host-authored playback position on a Party.
// Only the host identity may legally write this subdocument; guests
// adopt it wholesale on every sync tick.
type PlaybackState struct {
	CurrentTime float64   `bson:"current_time" json:"current_time"`
	IsPlaying   bool      `bson:"is_playing" json:"is_playing"`
	LastSyncAt  time.Time `bson:"last_sync_at" json:"last_sync_at"`
}

// Participant is one admitted member of a party. Participants[0] is by
// convention the host's own entry, but HostEmail on the Party is the
// source of truth for authorization, not position.
type Participant struct {
	Email     string    `bson:"email" json:"email"`
	Name      string    `bson:"name" json:"name"`
	AvatarURL string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	JoinedAt  time.Time `bson:"joined_at" json:"joined_at"`
}

// JoinRequest is a pending admission request, disjoint from Participants.
type JoinRequest struct {
	Email       string    `bson:"email" json:"email"`
	Name        string    `bson:"name" json:"name"`
	AvatarURL   string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	RequestedAt time.Time `bson:"requested_at" json:"requested_at"`
}

// Party is the shared session document coordinating a group viewing.
//
// Party and its chat log are kept in separate collections so that chat
// appends never contend with read-modify-write cycles on the party
// document itself.
type Party struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HostEmail  string             `bson:"host_email" json:"host_email"`
	HostName   string             `bson:"host_name" json:"host_name"`
	Media      MediaRef           `bson:"media" json:"media"`
	InviteCode string             `bson:"invite_code" json:"invite_code"`

	Status   string        `bson:"status" json:"status"`
	Playback PlaybackState `bson:"playback" json:"playback"`

	Participants []Participant `bson:"participants" json:"participants"`
	JoinRequests []JoinRequest `bson:"join_requests" json:"join_requests"`

	// Admission policy, fixed at creation.
	MaxParticipants int  `bson:"max_participants" json:"max_participants"`
	IsPublic        bool `bson:"is_public" json:"is_public"`
	AutoAdmit       bool `bson:"auto_admit" json:"auto_admit"`

	// ScheduleRef links back to the Viewing that seeded this party,
	// if it was created from a previously scheduled viewing.
	ScheduleRef *primitive.ObjectID `bson:"schedule_ref,omitempty" json:"schedule_ref,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsHost reports whether the given identity is this party's host.
func (p *Party) IsHost(email string) bool {
	return email != "" && email == p.HostEmail
}

// IsTerminal reports whether the party has reached a terminal status.
func (p *Party) IsTerminal() bool {
	return p.Status == PartyEnded || p.Status == PartyCompleted
}

// HasParticipant reports whether the identity is already admitted.
func (p *Party) HasParticipant(email string) bool {
	for _, m := range p.Participants {
		if m.Email == email {
			return true
		}
	}
	return false
}

// HasJoinRequest reports whether the identity has a pending request.
func (p *Party) HasJoinRequest(email string) bool {
	for _, jr := range p.JoinRequests {
		if jr.Email == email {
			return true
		}
	}
	return false
}

// IsFull reports whether the party has reached its participant cap.
func (p *Party) IsFull() bool {
	return p.MaxParticipants > 0 && len(p.Participants) >= p.MaxParticipants
}
