// internal/app/party/join.go
package party

import (
	"context"
	"fmt"
	"time"

	"github.com/reelsync/watchparty/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// JoinResult reports the outcome of a join attempt.
type JoinResult struct {
	// Admitted is true when the identity is now (or already was) a
	// participant. Pending is true when the request awaits host
	// approval. Exactly one of the two is set.
	Admitted bool
	Pending  bool
	Party    models.Party
}

// Negotiator implements the admission handshake: auto-admit versus
// host-approval, plus leave. All host approval decisions are idempotent
// against double-invocation.
type Negotiator struct {
	parties   PartyStore
	lifecycle *Controller
	chat      *Channel
	log       *zap.Logger
}

// NewNegotiator constructs a join Negotiator.
func NewNegotiator(parties PartyStore, lifecycle *Controller, chat *Channel, logger *zap.Logger) *Negotiator {
	return &Negotiator{parties: parties, lifecycle: lifecycle, chat: chat, log: logger}
}

// Join attempts to admit the identity to the party.
//
//   - Already a participant: idempotent success, no second entry.
//   - Auto-admit: appended to participants, a system "joined" message is
//     posted, and a viewing record is ensured.
//   - Otherwise: appended to join_requests (ErrDuplicateRequest if one
//     is already pending); no chat message until approval.
func (n *Negotiator) Join(ctx context.Context, partyID primitive.ObjectID, user Identity) (JoinResult, error) {
	p, err := n.parties.GetByID(ctx, partyID)
	if err != nil {
		return JoinResult{}, fmt.Errorf("load party: %w", err)
	}
	if p.IsTerminal() {
		return JoinResult{}, ErrPartyEnded
	}

	if p.HasParticipant(user.Email) {
		if _, err := n.lifecycle.EnsureViewing(ctx, user, p.Media, p.ID); err != nil {
			n.log.Warn("ensure viewing on rejoin failed",
				zap.String("party_id", p.ID.Hex()),
				zap.Error(err))
		}
		return JoinResult{Admitted: true, Party: p}, nil
	}

	if p.IsFull() {
		return JoinResult{}, ErrPartyFull
	}

	if p.AutoAdmit {
		return n.admit(ctx, p, user)
	}

	if p.HasJoinRequest(user.Email) {
		return JoinResult{}, ErrDuplicateRequest
	}
	added, err := n.parties.AddJoinRequest(ctx, p.ID, models.JoinRequest{
		Email:       user.Email,
		Name:        user.Name,
		AvatarURL:   user.AvatarURL,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return JoinResult{}, fmt.Errorf("add join request: %w", err)
	}
	if !added {
		// Raced with an identical request between read and write.
		return JoinResult{}, ErrDuplicateRequest
	}
	return JoinResult{Pending: true, Party: p}, nil
}

// Approve moves a pending request into participants and posts the join
// message. Approving a request that is no longer pending (double click,
// concurrent reject) is a no-op, not an error. Host-only.
func (n *Negotiator) Approve(ctx context.Context, partyID primitive.ObjectID, caller Identity, email string) error {
	p, err := n.parties.GetByID(ctx, partyID)
	if err != nil {
		return fmt.Errorf("load party: %w", err)
	}
	if !p.IsHost(caller.Email) {
		return ErrNotHost
	}

	var pending models.JoinRequest
	found := false
	for _, jr := range p.JoinRequests {
		if jr.Email == email {
			pending, found = jr, true
			break
		}
	}
	if !found {
		return nil
	}
	if p.IsFull() {
		return ErrPartyFull
	}

	// The remover wins: only the invocation that actually pulled the
	// request out proceeds to admit, so a double click admits once.
	removed, err := n.parties.RemoveJoinRequest(ctx, p.ID, email)
	if err != nil {
		return fmt.Errorf("remove join request: %w", err)
	}
	if !removed {
		return nil
	}

	if _, err := n.admit(ctx, p, Identity{
		Email:     pending.Email,
		Name:      pending.Name,
		AvatarURL: pending.AvatarURL,
	}); err != nil {
		return err
	}
	return nil
}

// Reject removes a pending request with no further trace: no chat
// message, nothing added to participants. Idempotent. Host-only.
func (n *Negotiator) Reject(ctx context.Context, partyID primitive.ObjectID, caller Identity, email string) error {
	p, err := n.parties.GetByID(ctx, partyID)
	if err != nil {
		return fmt.Errorf("load party: %w", err)
	}
	if !p.IsHost(caller.Email) {
		return ErrNotHost
	}

	if _, err := n.parties.RemoveJoinRequest(ctx, p.ID, email); err != nil {
		return fmt.Errorf("remove join request: %w", err)
	}
	return nil
}

// Leave removes a participant and posts a system "left" message. The
// party itself is unaffected: a departing host is removed like anyone
// else and the party stays open (no host reassignment).
func (n *Negotiator) Leave(ctx context.Context, partyID primitive.ObjectID, user Identity) error {
	p, err := n.parties.GetByID(ctx, partyID)
	if err != nil {
		return fmt.Errorf("load party: %w", err)
	}

	removed, err := n.parties.RemoveParticipant(ctx, p.ID, user.Email)
	if err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	if removed {
		n.chat.System(ctx, p.ID, fmt.Sprintf("%s left the party", user.Name))
	}
	return nil
}

// admit appends the participant, posts the join message, ensures the
// viewing, and promotes a scheduled party to live.
func (n *Negotiator) admit(ctx context.Context, p models.Party, user Identity) (JoinResult, error) {
	added, err := n.parties.AddParticipant(ctx, p.ID, models.Participant{
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		JoinedAt:  time.Now().UTC(),
	})
	if err != nil {
		return JoinResult{}, fmt.Errorf("add participant: %w", err)
	}
	if added {
		n.chat.System(ctx, p.ID, fmt.Sprintf("%s joined the party", user.Name))
	}

	if _, err := n.lifecycle.EnsureViewing(ctx, user, p.Media, p.ID); err != nil {
		n.log.Warn("ensure viewing on join failed",
			zap.String("party_id", p.ID.Hex()),
			zap.Error(err))
	}
	if err := n.lifecycle.MarkLive(ctx, p); err != nil {
		n.log.Warn("mark live failed", zap.String("party_id", p.ID.Hex()), zap.Error(err))
	}

	updated, err := n.parties.GetByID(ctx, p.ID)
	if err != nil {
		updated = p
	}
	return JoinResult{Admitted: true, Party: updated}, nil
}
