// internal/app/party/invite.go
package party

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/reelsync/watchparty/internal/domain/models"
	"go.uber.org/zap"
)

// DefaultCodePrefix is the canonical invite code prefix. A full code
// looks like "PARTY-7K2Q9X".
const DefaultCodePrefix = "PARTY"

// codeSuffixLen is the length of the random code suffix.
const codeSuffixLen = 6

// Ambiguous characters (0/O, 1/I/L) are excluded so codes survive being
// read aloud or copied by hand.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateCode returns a fresh invite code with the given prefix. The
// suffix is 6 characters from a reduced uppercase alphanumeric alphabet.
func GenerateCode(prefix string) (string, error) {
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	buf := make([]byte, codeSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return prefix + "-" + string(buf), nil
}

// NormalizeCode canonicalizes a human-entered invite code: uppercase,
// all whitespace stripped, and the canonical prefix prepended when the
// input is a bare suffix. Comparison downstream is exact; there are no
// partial matches.
func NormalizeCode(prefix, raw string) string {
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	code := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if code == "" {
		return ""
	}
	if !strings.Contains(code, "-") && len(code) == codeSuffixLen {
		code = prefix + "-" + code
	}
	return code
}

// Resolver converts a human-entered invite code into a joinable Party.
type Resolver struct {
	parties PartyStore
	prefix  string
	log     *zap.Logger
}

// NewResolver constructs a Resolver over the given party store.
func NewResolver(parties PartyStore, prefix string, logger *zap.Logger) *Resolver {
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	return &Resolver{parties: parties, prefix: prefix, log: logger}
}

// Resolve looks up the party for a raw user-entered code.
//
// Resolution is two-phase: an indexed lookup by the normalized code,
// then a full-list linear scan. The fallback tolerates the store's
// secondary-index writes lagging its primary writes and must not be
// removed without a stronger consistency guarantee from the store.
//
// A match must also be joinable: status scheduled or live, and below
// the participant cap. Returns ErrNotFound or ErrPartyFull otherwise.
func (r *Resolver) Resolve(ctx context.Context, raw string) (models.Party, error) {
	code := NormalizeCode(r.prefix, raw)
	if code == "" {
		return models.Party{}, ErrNotFound
	}

	p, err := r.parties.GetByCode(ctx, code)
	if err != nil {
		r.log.Debug("indexed invite lookup missed, scanning",
			zap.String("code", code),
			zap.Error(err))
		p, err = r.scan(ctx, code)
		if err != nil {
			return models.Party{}, err
		}
	}

	return checkJoinable(p)
}

// scan lists every party and matches the code linearly.
func (r *Resolver) scan(ctx context.Context, code string) (models.Party, error) {
	all, err := r.parties.List(ctx)
	if err != nil {
		return models.Party{}, fmt.Errorf("scan parties for invite code: %w", err)
	}
	for _, p := range all {
		if p.InviteCode == code {
			return p, nil
		}
	}
	return models.Party{}, ErrNotFound
}

func checkJoinable(p models.Party) (models.Party, error) {
	if p.Status != models.PartyScheduled && p.Status != models.PartyLive {
		return models.Party{}, ErrNotFound
	}
	if p.IsFull() {
		return models.Party{}, ErrPartyFull
	}
	return p, nil
}
