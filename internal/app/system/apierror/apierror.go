// internal/app/system/apierror/apierror.go
package apierror

import (
	"errors"
	"net/http"

	"github.com/reelsync/watchparty/internal/app/party"
	"github.com/reelsync/watchparty/internal/app/system/httpjson"
)

// statusOf maps engine sentinels to HTTP status codes. Anything
// unrecognized is a 500 (transient store failure surfaced to the
// caller of a user-initiated action).
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, party.ErrNotFound):
		return http.StatusNotFound, "party not found or has ended"
	case errors.Is(err, party.ErrViewingNotFound):
		return http.StatusNotFound, "viewing not found"
	case errors.Is(err, party.ErrPartyEnded):
		return http.StatusGone, "party has ended"
	case errors.Is(err, party.ErrPartyFull):
		return http.StatusConflict, "party is full"
	case errors.Is(err, party.ErrDuplicateRequest):
		return http.StatusConflict, "join request already pending"
	case errors.Is(err, party.ErrNotHost):
		return http.StatusForbidden, "only the host may do that"
	case errors.Is(err, party.ErrNotParticipant):
		return http.StatusForbidden, "not a participant of this party"
	case errors.Is(err, party.ErrMediaMissing):
		return http.StatusUnprocessableEntity, "party media is missing"
	case errors.Is(err, party.ErrInvalidRating):
		return http.StatusBadRequest, "rating must be between 1 and 5"
	case errors.Is(err, party.ErrTooManyParties):
		return http.StatusConflict, "too many open parties"
	case errors.Is(err, party.ErrEmptyMessage):
		return http.StatusBadRequest, "message is empty"
	default:
		return http.StatusInternalServerError, "something went wrong"
	}
}

// Write maps an engine error onto a JSON HTTP error response.
func Write(w http.ResponseWriter, err error) {
	status, msg := statusOf(err)
	httpjson.Error(w, status, msg)
}
