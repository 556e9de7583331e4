// internal/app/party/lifecycle.go
package party

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/reelsync/watchparty/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// createCodeRetries bounds invite-code regeneration on collision.
const createCodeRetries = 5

// DefaultMaxParticipants applies when a creation request does not set a cap.
const DefaultMaxParticipants = 10

// Controller drives the party status state machine
// (scheduled → live → ended|completed) and finalizes viewings on
// termination.
type Controller struct {
	parties  PartyStore
	viewings ViewingStore
	chat     *Channel
	log      *zap.Logger

	codePrefix     string
	maxOpenParties int
}

// NewController constructs the lifecycle controller. maxOpenParties of
// zero disables the per-host cap.
func NewController(parties PartyStore, viewings ViewingStore, chat *Channel, codePrefix string, maxOpenParties int, logger *zap.Logger) *Controller {
	if codePrefix == "" {
		codePrefix = DefaultCodePrefix
	}
	return &Controller{
		parties:        parties,
		viewings:       viewings,
		chat:           chat,
		log:            logger,
		codePrefix:     codePrefix,
		maxOpenParties: maxOpenParties,
	}
}

// CreateInput carries the host's creation request. Admission policy
// flags are fixed for the party's lifetime.
type CreateInput struct {
	Media           models.MediaRef
	MaxParticipants int
	IsPublic        bool
	AutoAdmit       bool

	// ScheduleRef links the party to the viewing that seeded it, when
	// the host is starting a previously scheduled viewing.
	ScheduleRef *primitive.ObjectID
}

// Create makes a new scheduled party with the host as its first
// participant and a freshly generated invite code.
func (c *Controller) Create(ctx context.Context, host Identity, in CreateInput) (models.Party, error) {
	if in.Media.Title == "" || in.Media.DurationSeconds <= 0 {
		return models.Party{}, ErrMediaMissing
	}
	if in.MaxParticipants <= 0 {
		in.MaxParticipants = DefaultMaxParticipants
	}

	if c.maxOpenParties > 0 {
		open, err := c.parties.CountOpenByHost(ctx, host.Email)
		if err != nil {
			return models.Party{}, fmt.Errorf("count open parties: %w", err)
		}
		if open >= int64(c.maxOpenParties) {
			return models.Party{}, ErrTooManyParties
		}
	}

	now := time.Now().UTC()
	media := in.Media
	media.TitleCI = text.Fold(media.Title)

	p := models.Party{
		HostEmail: host.Email,
		HostName:  host.Name,
		Media:     media,
		Status:    models.PartyScheduled,
		Playback:  models.PlaybackState{LastSyncAt: now},
		Participants: []models.Participant{{
			Email:     host.Email,
			Name:      host.Name,
			AvatarURL: host.AvatarURL,
			JoinedAt:  now,
		}},
		JoinRequests:    []models.JoinRequest{},
		MaxParticipants: in.MaxParticipants,
		IsPublic:        in.IsPublic,
		AutoAdmit:       in.AutoAdmit,
		ScheduleRef:     in.ScheduleRef,
	}

	for attempt := 0; attempt < createCodeRetries; attempt++ {
		code, err := GenerateCode(c.codePrefix)
		if err != nil {
			return models.Party{}, err
		}
		p.InviteCode = code

		created, err := c.parties.Create(ctx, p)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, ErrCodeTaken) {
			return models.Party{}, fmt.Errorf("create party: %w", err)
		}
		c.log.Warn("invite code collision, regenerating",
			zap.String("code", code),
			zap.Int("attempt", attempt+1))
	}
	return models.Party{}, fmt.Errorf("create party: %w", ErrCodeTaken)
}

// MarkLive transitions a scheduled party to live once it is open with
// at least one connected participant. Called from the join path; safe
// to call repeatedly.
func (c *Controller) MarkLive(ctx context.Context, p models.Party) error {
	if p.Status != models.PartyScheduled || len(p.Participants) == 0 {
		return nil
	}
	if err := c.parties.SetStatus(ctx, p.ID, models.PartyLive); err != nil {
		return fmt.Errorf("mark party live: %w", err)
	}
	return nil
}

// Complete ends the party: status → ended, playback frozen at elapsed
// with is_playing=false. Host-only. Re-completing an already terminal
// party is a no-op.
//
// If the party was seeded from a scheduled viewing, that linked viewing
// is finished with the frozen elapsed time. Every other participant's
// viewing is untouched: each finalizes their own by rating.
func (c *Controller) Complete(ctx context.Context, partyID primitive.ObjectID, caller Identity, elapsed float64) error {
	p, err := c.parties.GetByID(ctx, partyID)
	if err != nil {
		return fmt.Errorf("load party: %w", err)
	}
	if !p.IsHost(caller.Email) {
		return ErrNotHost
	}
	if p.IsTerminal() {
		return nil
	}

	frozen := models.PlaybackState{
		CurrentTime: elapsed,
		IsPlaying:   false,
		LastSyncAt:  time.Now().UTC(),
	}
	if err := c.parties.SetPlayback(ctx, p.ID, frozen); err != nil {
		return fmt.Errorf("freeze playback: %w", err)
	}
	if err := c.parties.SetStatus(ctx, p.ID, models.PartyEnded); err != nil {
		return fmt.Errorf("end party: %w", err)
	}

	if p.ScheduleRef != nil {
		if err := c.viewings.Finish(ctx, *p.ScheduleRef, int(elapsed)); err != nil {
			c.log.Warn("finishing linked scheduled viewing failed",
				zap.String("party_id", p.ID.Hex()),
				zap.String("viewing_id", p.ScheduleRef.Hex()),
				zap.Error(err))
		}
	}

	c.chat.System(ctx, p.ID, fmt.Sprintf("%s ended the party", caller.Name))
	return nil
}

// Rate finalizes the caller's own viewing for the party's media:
// status=completed, rating, rating_submitted_at, with elapsed taken
// from the caller's last observed playback position. It never touches
// any other participant's viewing.
func (c *Controller) Rate(ctx context.Context, caller Identity, partyID primitive.ObjectID, rating, elapsedSeconds int) (models.Viewing, error) {
	if rating < 1 || rating > 5 {
		return models.Viewing{}, ErrInvalidRating
	}

	p, err := c.parties.GetByID(ctx, partyID)
	if err != nil {
		return models.Viewing{}, fmt.Errorf("load party: %w", err)
	}

	v, err := c.viewings.GetByOwnerAndMedia(ctx, caller.Email, p.Media.MediaID)
	if err != nil {
		return models.Viewing{}, fmt.Errorf("load viewing: %w", err)
	}
	if err := c.viewings.Complete(ctx, v.ID, rating, elapsedSeconds); err != nil {
		return models.Viewing{}, fmt.Errorf("complete viewing: %w", err)
	}
	return c.viewings.GetByID(ctx, v.ID)
}

// EnsureViewing makes sure a viewing record exists and is in progress
// for the identity and media: creates one if absent, or moves an
// existing scheduled/paused viewing to in_progress.
func (c *Controller) EnsureViewing(ctx context.Context, user Identity, media models.MediaRef, partyID primitive.ObjectID) (models.Viewing, error) {
	v, err := c.viewings.GetByOwnerAndMedia(ctx, user.Email, media.MediaID)
	if errors.Is(err, ErrViewingNotFound) {
		now := time.Now().UTC()
		return c.viewings.Create(ctx, models.Viewing{
			OwnerEmail: user.Email,
			Media:      media,
			Status:     models.ViewingInProgress,
			PartyID:    &partyID,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	if err != nil {
		return models.Viewing{}, fmt.Errorf("load viewing: %w", err)
	}

	if v.Status == models.ViewingScheduled || v.Status == models.ViewingPaused {
		if err := c.viewings.SetStatus(ctx, v.ID, models.ViewingInProgress); err != nil {
			return models.Viewing{}, fmt.Errorf("resume viewing: %w", err)
		}
		v.Status = models.ViewingInProgress
	}
	return v, nil
}
