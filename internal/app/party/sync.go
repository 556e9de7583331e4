// internal/app/party/sync.go
package party

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reelsync/watchparty/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultSyncInterval is the reconciliation tick interval.
const DefaultSyncInterval = 500 * time.Millisecond

// Source supplies the latest Party document for reconciliation. The
// poll implementation wraps a PartyStore; a push-capable store can
// additionally implement Notifier to wake the watcher early. The
// protocol's guarantees hold under either.
type Source interface {
	Fetch(ctx context.Context, id primitive.ObjectID) (models.Party, error)
}

// Notifier is an optional extension of Source: Watch returns a channel
// that receives a signal whenever the party document may have changed.
// The channel is closed when ctx is done.
type Notifier interface {
	Watch(ctx context.Context, id primitive.ObjectID) <-chan struct{}
}

// PollSource adapts a PartyStore into a Source for interval polling.
type PollSource struct {
	Store PartyStore
}

// Fetch reads the latest party document.
func (s PollSource) Fetch(ctx context.Context, id primitive.ObjectID) (models.Party, error) {
	return s.Store.GetByID(ctx, id)
}

// Snapshot is one participant's locally observed view of the session:
// the interpolated playback clock plus the shared fields adopted on the
// last successful reconciliation.
type Snapshot struct {
	WatcherID   string               `json:"watcher_id"`
	PartyID     string               `json:"party_id"`
	IsHost      bool                 `json:"is_host"`
	Status      string               `json:"status"`
	CurrentTime float64              `json:"current_time"`
	IsPlaying   bool                 `json:"is_playing"`
	LastSyncAt  time.Time            `json:"last_sync_at"`
	Participants []models.Participant `json:"participants"`
	JoinRequests []models.JoinRequest `json:"join_requests"`
}

// WatcherConfig tunes one watcher instance.
type WatcherConfig struct {
	// Interval between reconciliation ticks. Defaults to
	// DefaultSyncInterval.
	Interval time.Duration

	// OnEnded fires once when the watcher observes the party in a
	// terminal status (or its host ends it locally). Called outside
	// the watcher's lock.
	OnEnded func(p models.Party)
}

// Watcher is one participant's synchronization runtime: a ticking
// interpolation clock plus a poll-and-adopt reconciliation loop against
// the shared party document.
//
// The authority rule lives here: only a host watcher ever issues
// playback writes. Guest watchers adopt the host-authored playback
// state wholesale whenever a read shows it changed; between host
// writes the interpolated clock carries the position forward, since
// the stored value only moves on toggle, seek, or completion.
type Watcher struct {
	ID string

	partyID   primitive.ObjectID
	user      Identity
	isHost    bool
	duration  float64
	store     PartyStore
	source    Source
	chat      *Channel
	lifecycle *Controller
	log       *zap.Logger
	interval  time.Duration
	onEnded   func(models.Party)

	mu          sync.Mutex
	currentTime float64
	isPlaying   bool
	lastSyncAt  time.Time
	adopted     models.PlaybackState
	last        models.Party
	ended       bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher builds a watcher for one participant of the given party.
// Call Start to begin the loop.
func NewWatcher(p models.Party, user Identity, store PartyStore, source Source, chat *Channel, lifecycle *Controller, cfg WatcherConfig, logger *zap.Logger) *Watcher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Watcher{
		ID:          uuid.NewString(),
		partyID:     p.ID,
		user:        user,
		isHost:      p.IsHost(user.Email),
		duration:    float64(p.Media.DurationSeconds),
		store:       store,
		source:      source,
		chat:        chat,
		lifecycle:   lifecycle,
		log:         logger,
		interval:    interval,
		onEnded:     cfg.OnEnded,
		currentTime: p.Playback.CurrentTime,
		isPlaying:   p.Playback.IsPlaying,
		lastSyncAt:  p.Playback.LastSyncAt,
		adopted:     p.Playback,
		last:        p,
		done:        make(chan struct{}),
	}
}

// IsHost reports whether this watcher runs with host authority.
func (w *Watcher) IsHost() bool { return w.isHost }

// Start launches the reconciliation loop. It returns immediately.
func (w *Watcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	go w.run(ctx)
}

// Stop cancels the loop and waits for it to exit. Stopping a watcher
// affects nothing but this participant's own loop: other participants
// and the persisted party state are untouched.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var wake <-chan struct{}
	if n, ok := w.source.(Notifier); ok {
		wake = n.Watch(ctx, w.partyID)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.advance(ctx, w.interval)
			if w.reconcile(ctx) {
				return
			}
		case _, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
			if w.reconcile(ctx) {
				return
			}
		}
	}
}

// advance moves the local interpolation clock while playing, clamped to
// the media duration. On hitting the end, a host watcher writes the
// stop back and ends the party so guests converge; a guest pauses
// locally and waits for the host's own convergence.
func (w *Watcher) advance(ctx context.Context, d time.Duration) {
	w.mu.Lock()
	if !w.isPlaying || w.ended {
		w.mu.Unlock()
		return
	}
	w.currentTime += d.Seconds()
	atEnd := w.duration > 0 && w.currentTime >= w.duration
	if atEnd {
		w.currentTime = w.duration
		w.isPlaying = false
	}
	w.mu.Unlock()

	if atEnd && w.isHost {
		if err := w.lifecycle.Complete(ctx, w.partyID, w.user, w.duration); err != nil {
			w.log.Warn("end-of-media completion failed",
				zap.String("party_id", w.partyID.Hex()),
				zap.Error(err))
		}
	}
}

// reconcile re-reads the party and adopts shared state. Returns true
// when the watcher observed a terminal status and should stop. Failures
// are logged and retried on the next tick, never surfaced.
func (w *Watcher) reconcile(ctx context.Context) bool {
	p, err := w.source.Fetch(ctx, w.partyID)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn("sync tick failed",
				zap.String("party_id", w.partyID.Hex()),
				zap.Error(err))
		}
		return false
	}

	w.mu.Lock()
	w.last = p
	if !w.isHost && playbackChanged(w.adopted, p.Playback) {
		// Guests adopt a changed host-authored playback wholesale. No
		// blending with the interpolated clock. An unchanged stored
		// value is left alone: the host only writes on toggle, seek,
		// or completion, so snapping back to it on every read would
		// pin a playing guest to the host's last written position.
		w.currentTime = p.Playback.CurrentTime
		w.isPlaying = p.Playback.IsPlaying
		w.lastSyncAt = p.Playback.LastSyncAt
		w.adopted = p.Playback
	}
	terminal := p.IsTerminal()
	if terminal {
		w.isPlaying = false
		w.ended = true
	}
	w.mu.Unlock()

	if terminal {
		if w.onEnded != nil {
			w.onEnded(p)
		}
		if w.cancel != nil {
			w.cancel()
		}
		return true
	}
	return false
}

// Toggle is the host playback action: flip locally (optimistic), write
// the new playback state to the party, and post a system message. A
// guest calling Toggle gets ErrNotHost and no store write is issued.
func (w *Watcher) Toggle(ctx context.Context, playing bool) error {
	if !w.isHost {
		return ErrNotHost
	}

	w.mu.Lock()
	if w.ended {
		w.mu.Unlock()
		return ErrPartyEnded
	}
	now := time.Now().UTC()
	w.isPlaying = playing
	w.lastSyncAt = now
	t := w.currentTime
	w.mu.Unlock()

	pb := models.PlaybackState{CurrentTime: t, IsPlaying: playing, LastSyncAt: now}
	if err := w.store.SetPlayback(ctx, w.partyID, pb); err != nil {
		return fmt.Errorf("write playback: %w", err)
	}

	verb := "paused"
	if playing {
		verb = "resumed"
	}
	w.chat.System(ctx, w.partyID, fmt.Sprintf("%s %s playback at %s", w.user.Name, verb, clock(t)))
	return nil
}

// Complete ends the party from this watcher at its current local
// position. Host-only (enforced by the lifecycle controller).
func (w *Watcher) Complete(ctx context.Context) error {
	w.mu.Lock()
	t := w.currentTime
	w.mu.Unlock()
	return w.lifecycle.Complete(ctx, w.partyID, w.user, t)
}

// Snapshot returns the participant's current local view.
func (w *Watcher) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		WatcherID:    w.ID,
		PartyID:      w.partyID.Hex(),
		IsHost:       w.isHost,
		Status:       w.last.Status,
		CurrentTime:  w.currentTime,
		IsPlaying:    w.isPlaying,
		LastSyncAt:   w.lastSyncAt,
		Participants: w.last.Participants,
		JoinRequests: w.last.JoinRequests,
	}
}

// playbackChanged reports whether the stored playback differs from the
// last value this watcher adopted. LastSyncAt moves on every host
// write, so it discriminates even a re-write of identical position and
// play state.
func playbackChanged(prev, next models.PlaybackState) bool {
	return prev.CurrentTime != next.CurrentTime ||
		prev.IsPlaying != next.IsPlaying ||
		!prev.LastSyncAt.Equal(next.LastSyncAt)
}

// clock formats seconds as m:ss or h:mm:ss for chat messages.
func clock(seconds float64) string {
	s := int(seconds)
	h, m, sec := s/3600, (s%3600)/60, s%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
