// internal/app/store/memory/memstore.go
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reelsync/watchparty/internal/app/party"
	"github.com/reelsync/watchparty/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is an in-memory implementation of the engine's store contracts
// (PartyStore, ChatStore, ViewingStore) plus the push-capable Notifier.
// It backs engine tests and local development; the protocol's
// correctness properties must hold against it exactly as against the
// Mongo adapters.
type Store struct {
	mu       sync.Mutex
	parties  map[primitive.ObjectID]models.Party
	chat     map[primitive.ObjectID][]models.ChatMessage
	seqs     map[primitive.ObjectID]int64
	viewings map[primitive.ObjectID]models.Viewing
	watchers map[primitive.ObjectID][]chan struct{}

	// IndexLag simulates the backing store's secondary index lagging
	// its primary writes: while set, GetByCode misses even for codes
	// that exist, forcing resolvers onto the full-scan fallback.
	IndexLag bool

	playbackWrites int
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		parties:  make(map[primitive.ObjectID]models.Party),
		chat:     make(map[primitive.ObjectID][]models.ChatMessage),
		seqs:     make(map[primitive.ObjectID]int64),
		viewings: make(map[primitive.ObjectID]models.Viewing),
		watchers: make(map[primitive.ObjectID][]chan struct{}),
	}
}

/* ── PartyStore ─────────────────────────────────────────────────── */

func (s *Store) Create(_ context.Context, p models.Party) (models.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.parties {
		if existing.InviteCode == p.InviteCode {
			return models.Party{}, fmt.Errorf("invite code %q: %w", p.InviteCode, party.ErrCodeTaken)
		}
	}

	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.parties[p.ID] = clone(p)
	return clone(p), nil
}

func (s *Store) GetByID(_ context.Context, id primitive.ObjectID) (models.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok {
		return models.Party{}, fmt.Errorf("party %s: %w", id.Hex(), party.ErrNotFound)
	}
	return clone(p), nil
}

func (s *Store) GetByCode(_ context.Context, code string) (models.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.IndexLag {
		for _, p := range s.parties {
			if p.InviteCode == code {
				return clone(p), nil
			}
		}
	}
	return models.Party{}, fmt.Errorf("invite code %q: %w", code, party.ErrNotFound)
}

func (s *Store) List(_ context.Context) ([]models.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Party, 0, len(s.parties))
	for _, p := range s.parties {
		out = append(out, clone(p))
	}
	return out, nil
}

func (s *Store) ListPublic(ctx context.Context) ([]models.Party, error) {
	all, _ := s.List(ctx)
	out := all[:0]
	for _, p := range all {
		if p.IsPublic && !p.IsTerminal() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) SetPlayback(_ context.Context, id primitive.ObjectID, pb models.PlaybackState) error {
	s.mu.Lock()
	p, ok := s.parties[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("party %s: %w", id.Hex(), party.ErrNotFound)
	}
	p.Playback = pb
	p.UpdatedAt = time.Now().UTC()
	s.parties[id] = p
	s.playbackWrites++
	s.mu.Unlock()
	s.notify(id)
	return nil
}

func (s *Store) SetStatus(_ context.Context, id primitive.ObjectID, status string) error {
	s.mu.Lock()
	p, ok := s.parties[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("party %s: %w", id.Hex(), party.ErrNotFound)
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	s.parties[id] = p
	s.mu.Unlock()
	s.notify(id)
	return nil
}

func (s *Store) AddParticipant(_ context.Context, id primitive.ObjectID, m models.Participant) (bool, error) {
	s.mu.Lock()
	p, ok := s.parties[id]
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("party %s: %w", id.Hex(), party.ErrNotFound)
	}
	if p.HasParticipant(m.Email) {
		s.mu.Unlock()
		return false, nil
	}
	p.Participants = append(append([]models.Participant{}, p.Participants...), m)
	p.UpdatedAt = time.Now().UTC()
	s.parties[id] = p
	s.mu.Unlock()
	s.notify(id)
	return true, nil
}

func (s *Store) RemoveParticipant(_ context.Context, id primitive.ObjectID, email string) (bool, error) {
	s.mu.Lock()
	p, ok := s.parties[id]
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("party %s: %w", id.Hex(), party.ErrNotFound)
	}
	kept := p.Participants[:0:0]
	removed := false
	for _, m := range p.Participants {
		if m.Email == email {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	p.Participants = kept
	p.UpdatedAt = time.Now().UTC()
	s.parties[id] = p
	s.mu.Unlock()
	if removed {
		s.notify(id)
	}
	return removed, nil
}

func (s *Store) AddJoinRequest(_ context.Context, id primitive.ObjectID, jr models.JoinRequest) (bool, error) {
	s.mu.Lock()
	p, ok := s.parties[id]
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("party %s: %w", id.Hex(), party.ErrNotFound)
	}
	if p.HasJoinRequest(jr.Email) {
		s.mu.Unlock()
		return false, nil
	}
	p.JoinRequests = append(append([]models.JoinRequest{}, p.JoinRequests...), jr)
	p.UpdatedAt = time.Now().UTC()
	s.parties[id] = p
	s.mu.Unlock()
	s.notify(id)
	return true, nil
}

func (s *Store) RemoveJoinRequest(_ context.Context, id primitive.ObjectID, email string) (bool, error) {
	s.mu.Lock()
	p, ok := s.parties[id]
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("party %s: %w", id.Hex(), party.ErrNotFound)
	}
	kept := p.JoinRequests[:0:0]
	removed := false
	for _, jr := range p.JoinRequests {
		if jr.Email == email {
			removed = true
			continue
		}
		kept = append(kept, jr)
	}
	p.JoinRequests = kept
	p.UpdatedAt = time.Now().UTC()
	s.parties[id] = p
	s.mu.Unlock()
	if removed {
		s.notify(id)
	}
	return removed, nil
}

func (s *Store) CountOpenByHost(_ context.Context, hostEmail string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, p := range s.parties {
		if p.HostEmail == hostEmail && !p.IsTerminal() {
			n++
		}
	}
	return n, nil
}

// PlaybackWrites reports how many playback writes the store has
// accepted. Contract tests use it to prove non-host clients never issue
// one.
func (s *Store) PlaybackWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playbackWrites
}

/* ── Notifier (push) ────────────────────────────────────────────── */

// Fetch makes the store usable directly as a sync Source.
func (s *Store) Fetch(ctx context.Context, id primitive.ObjectID) (models.Party, error) {
	return s.GetByID(ctx, id)
}

// Watch returns a channel signalled on every mutation of the party.
// Closed when ctx ends.
func (s *Store) Watch(ctx context.Context, id primitive.ObjectID) <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.watchers[id] = append(s.watchers[id], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		kept := s.watchers[id][:0:0]
		for _, c := range s.watchers[id] {
			if c != ch {
				kept = append(kept, c)
			}
		}
		s.watchers[id] = kept
		// Closed under the same lock notify sends under, so a racing
		// mutation can never send on the closed channel.
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

func (s *Store) notify(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Sends are non-blocking, so holding the lock here is cheap and
	// keeps them ordered against Watch's close.
	for _, ch := range s.watchers[id] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

/* ── ChatStore ──────────────────────────────────────────────────── */

func (s *Store) Append(_ context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[msg.PartyID]++
	msg.ID = primitive.NewObjectID()
	msg.Seq = s.seqs[msg.PartyID]
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	s.chat[msg.PartyID] = append(s.chat[msg.PartyID], msg)
	return msg, nil
}

func (s *Store) ListByParty(_ context.Context, partyID primitive.ObjectID, limit int64) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.chat[partyID]
	if limit > 0 && int64(len(msgs)) > limit {
		msgs = msgs[int64(len(msgs))-limit:]
	}
	return append([]models.ChatMessage{}, msgs...), nil
}

func (s *Store) ListSince(_ context.Context, partyID primitive.ObjectID, seq int64) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range s.chat[partyID] {
		if m.Seq > seq {
			out = append(out, m)
		}
	}
	return out, nil
}

/* ── ViewingStore ───────────────────────────────────────────────── */

func (s *Store) CreateViewing(_ context.Context, v models.Viewing) (models.Viewing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	v.ID = primitive.NewObjectID()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	s.viewings[v.ID] = v
	return v, nil
}

func (s *Store) GetViewing(_ context.Context, id primitive.ObjectID) (models.Viewing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.viewings[id]
	if !ok {
		return models.Viewing{}, fmt.Errorf("viewing %s: %w", id.Hex(), party.ErrViewingNotFound)
	}
	return v, nil
}

func (s *Store) GetByOwnerAndMedia(_ context.Context, ownerEmail, mediaID string) (models.Viewing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.viewings {
		if v.OwnerEmail == ownerEmail && v.Media.MediaID == mediaID {
			return v, nil
		}
	}
	return models.Viewing{}, fmt.Errorf("viewing for %s: %w", ownerEmail, party.ErrViewingNotFound)
}

func (s *Store) ListByOwner(_ context.Context, ownerEmail string) ([]models.Viewing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Viewing
	for _, v := range s.viewings {
		if v.OwnerEmail == ownerEmail {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Store) SetViewingStatus(_ context.Context, id primitive.ObjectID, status string) error {
	return s.mutateViewing(id, func(v *models.Viewing) {
		v.Status = status
	})
}

func (s *Store) SetProgress(_ context.Context, id primitive.ObjectID, elapsedSeconds int) error {
	return s.mutateViewing(id, func(v *models.Viewing) {
		v.ElapsedSeconds = elapsedSeconds
	})
}

func (s *Store) Finish(_ context.Context, id primitive.ObjectID, elapsedSeconds int) error {
	return s.mutateViewing(id, func(v *models.Viewing) {
		v.Status = models.ViewingCompleted
		v.ElapsedSeconds = elapsedSeconds
	})
}

func (s *Store) Complete(_ context.Context, id primitive.ObjectID, rating, elapsedSeconds int) error {
	now := time.Now().UTC()
	return s.mutateViewing(id, func(v *models.Viewing) {
		v.Status = models.ViewingCompleted
		v.Rating = &rating
		v.RatingSubmittedAt = &now
		v.ElapsedSeconds = elapsedSeconds
	})
}

func (s *Store) mutateViewing(id primitive.ObjectID, fn func(*models.Viewing)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.viewings[id]
	if !ok {
		return fmt.Errorf("viewing %s: %w", id.Hex(), party.ErrViewingNotFound)
	}
	fn(&v)
	v.UpdatedAt = time.Now().UTC()
	s.viewings[id] = v
	return nil
}

// Viewings returns the viewing-store view of this in-memory store,
// satisfying the engine's ViewingStore contract (the viewing method
// names would otherwise collide with the party methods above).
func (s *Store) Viewings() *Viewings { return &Viewings{s: s} }

// Viewings adapts Store to the engine's ViewingStore interface.
type Viewings struct{ s *Store }

func (v *Viewings) Create(ctx context.Context, m models.Viewing) (models.Viewing, error) {
	return v.s.CreateViewing(ctx, m)
}

func (v *Viewings) GetByID(ctx context.Context, id primitive.ObjectID) (models.Viewing, error) {
	return v.s.GetViewing(ctx, id)
}

func (v *Viewings) GetByOwnerAndMedia(ctx context.Context, ownerEmail, mediaID string) (models.Viewing, error) {
	return v.s.GetByOwnerAndMedia(ctx, ownerEmail, mediaID)
}

func (v *Viewings) ListByOwner(ctx context.Context, ownerEmail string) ([]models.Viewing, error) {
	return v.s.ListByOwner(ctx, ownerEmail)
}

func (v *Viewings) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	return v.s.SetViewingStatus(ctx, id, status)
}

func (v *Viewings) SetProgress(ctx context.Context, id primitive.ObjectID, elapsedSeconds int) error {
	return v.s.SetProgress(ctx, id, elapsedSeconds)
}

func (v *Viewings) Finish(ctx context.Context, id primitive.ObjectID, elapsedSeconds int) error {
	return v.s.Finish(ctx, id, elapsedSeconds)
}

func (v *Viewings) Complete(ctx context.Context, id primitive.ObjectID, rating, elapsedSeconds int) error {
	return v.s.Complete(ctx, id, rating, elapsedSeconds)
}

func clone(p models.Party) models.Party {
	p.Participants = append([]models.Participant{}, p.Participants...)
	p.JoinRequests = append([]models.JoinRequest{}, p.JoinRequests...)
	return p
}
