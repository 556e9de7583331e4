// internal/app/party/store.go
package party

import (
	"context"

	"github.com/reelsync/watchparty/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PartyStore is the narrow document-store contract the engine consumes
// for the shared Party document. The Mongo adapter in store/parties
// satisfies it in production; testutil provides an in-memory fake.
//
// Lookup methods return an error wrapping ErrNotFound when no document
// matches. Mutations follow read-merge-write discipline: each touches
// only its own field so concurrent writers cannot clobber unrelated
// fields of the party document.
type PartyStore interface {
	Create(ctx context.Context, p models.Party) (models.Party, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Party, error)

	// GetByCode performs the indexed lookup by exact normalized invite
	// code. The resolver treats a miss here as non-authoritative and
	// falls back to List (secondary-index writes may lag primary
	// writes in the backing store).
	GetByCode(ctx context.Context, code string) (models.Party, error)
	List(ctx context.Context) ([]models.Party, error)
	ListPublic(ctx context.Context) ([]models.Party, error)

	// SetPlayback overwrites the playback subdocument. Only invoked on
	// behalf of the host identity.
	SetPlayback(ctx context.Context, id primitive.ObjectID, pb models.PlaybackState) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) error

	// AddParticipant appends the participant unless an entry with the
	// same email already exists. Reports whether it was added.
	AddParticipant(ctx context.Context, id primitive.ObjectID, m models.Participant) (bool, error)
	RemoveParticipant(ctx context.Context, id primitive.ObjectID, email string) (bool, error)

	// AddJoinRequest appends the request unless one with the same email
	// already exists. Reports whether it was added.
	AddJoinRequest(ctx context.Context, id primitive.ObjectID, jr models.JoinRequest) (bool, error)

	// RemoveJoinRequest removes the pending request for email. The
	// returned bool reports whether a request was actually removed;
	// approve/reject use it to stay idempotent under double-invocation.
	RemoveJoinRequest(ctx context.Context, id primitive.ObjectID, email string) (bool, error)

	CountOpenByHost(ctx context.Context, hostEmail string) (int64, error)
}

// ChatStore is the append-only chat log contract. Append allocates the
// per-party monotonic sequence number.
type ChatStore interface {
	Append(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error)
	ListByParty(ctx context.Context, partyID primitive.ObjectID, limit int64) ([]models.ChatMessage, error)
	ListSince(ctx context.Context, partyID primitive.ObjectID, seq int64) ([]models.ChatMessage, error)
}

// ViewingStore is the contract for the participant-owned viewing
// records. Every method acts on a single owner's documents; viewings
// are single-writer by construction.
type ViewingStore interface {
	Create(ctx context.Context, v models.Viewing) (models.Viewing, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Viewing, error)
	GetByOwnerAndMedia(ctx context.Context, ownerEmail, mediaID string) (models.Viewing, error)
	ListByOwner(ctx context.Context, ownerEmail string) ([]models.Viewing, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) error
	SetProgress(ctx context.Context, id primitive.ObjectID, elapsedSeconds int) error

	// Finish marks the viewing completed with a final elapsed position,
	// without recording a rating (host-completion of a linked schedule).
	Finish(ctx context.Context, id primitive.ObjectID, elapsedSeconds int) error

	// Complete finalizes the viewing with a rating. Sets
	// status=completed, rating, rating_submitted_at, elapsed_seconds.
	Complete(ctx context.Context, id primitive.ObjectID, rating, elapsedSeconds int) error
}

// Identity is the resolved caller identity handed in by the identity
// collaborator (session cookie in this app).
type Identity struct {
	Email     string
	Name      string
	AvatarURL string
}
