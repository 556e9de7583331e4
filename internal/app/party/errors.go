// internal/app/party/errors.go
package party

import "errors"

// Error taxonomy for the watch-party protocol. User-initiated actions
// (join, approve, reject, toggle, complete, rate) surface these
// synchronously to the caller; background sync failures are logged and
// retried on the next tick instead.
var (
	// ErrNotFound means no party matched the given code or id, or the
	// party is no longer in a joinable status.
	ErrNotFound = errors.New("party not found")

	// ErrPartyFull means the party has reached max_participants.
	ErrPartyFull = errors.New("party is full")

	// ErrDuplicateRequest means the identity already has a pending
	// join request on this party.
	ErrDuplicateRequest = errors.New("join request already pending")

	// ErrNotHost means a non-host identity attempted a host-only
	// action (playback toggle, approve/reject, complete). A conformant
	// client never issues the underlying store write.
	ErrNotHost = errors.New("only the host may perform this action")

	// ErrNotParticipant means the identity is not admitted to the party.
	ErrNotParticipant = errors.New("not a participant of this party")

	// ErrPartyEnded means the party has reached a terminal status.
	ErrPartyEnded = errors.New("party has ended")

	// ErrMediaMissing means the party references content whose metadata
	// is absent or unusable. Chat and join state are unaffected.
	ErrMediaMissing = errors.New("party media is missing")

	// ErrInvalidRating means a rating outside 1-5 was submitted.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrViewingNotFound means no viewing record exists for the owner
	// and media.
	ErrViewingNotFound = errors.New("viewing not found")

	// ErrTooManyParties means the host already has the maximum number
	// of open parties.
	ErrTooManyParties = errors.New("too many open parties for this host")

	// ErrCodeTaken is returned by PartyStore.Create when the generated
	// invite code collides with an existing party. Creation retries
	// with a fresh code.
	ErrCodeTaken = errors.New("invite code already in use")
)
