package party_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reelsync/watchparty/internal/app/party"
	"github.com/reelsync/watchparty/internal/domain/models"
)

const testInterval = 10 * time.Millisecond

// attach builds and starts a watcher for the identity against the
// engine's in-memory store, reading the party fresh so host detection
// and the initial clock match the persisted state.
func (e *engine) attach(t *testing.T, p models.Party, user party.Identity, cfg party.WatcherConfig) *party.Watcher {
	t.Helper()
	if cfg.Interval == 0 {
		cfg.Interval = testInterval
	}
	fresh, err := e.store.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	w := party.NewWatcher(fresh, user, e.store, party.PollSource{Store: e.store}, e.channel, e.lifecycle, cfg, zapNop())
	w.Start()
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_GuestToggleRejected(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{AutoAdmit: true})
	if _, err := e.negotiator.Join(ctx, p.ID, guest); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	w := e.attach(t, p, guest, party.WatcherConfig{})
	if w.IsHost() {
		t.Fatal("guest watcher must not have host authority")
	}

	before := e.store.PlaybackWrites()
	err := w.Toggle(ctx, true)
	if !errors.Is(err, party.ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	if got := e.store.PlaybackWrites(); got != before {
		t.Errorf("guest toggle issued a playback write: %d -> %d", before, got)
	}
}

func TestWatcher_HostToggle(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	w := e.attach(t, p, host, party.WatcherConfig{})
	if !w.IsHost() {
		t.Fatal("host watcher must have host authority")
	}

	if err := w.Toggle(ctx, true); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	got, _ := e.store.GetByID(ctx, p.ID)
	if !got.Playback.IsPlaying {
		t.Error("store playback not playing after host toggle")
	}
	if e.store.PlaybackWrites() != 1 {
		t.Errorf("playback writes: got %d, want 1", e.store.PlaybackWrites())
	}
	if !containsText(e.systemTexts(t, p), "Holly Host resumed playback at 0:00") {
		t.Errorf("expected a resumed system message, got %v", e.systemTexts(t, p))
	}

	if err := w.Toggle(ctx, false); err != nil {
		t.Fatalf("pause Toggle failed: %v", err)
	}
	if !containsText(e.systemTexts(t, p), "Holly Host paused playback at 0:00") {
		t.Errorf("expected a paused system message, got %v", e.systemTexts(t, p))
	}
}

func TestWatcher_GuestAdoptsHostState(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{AutoAdmit: true})
	if _, err := e.negotiator.Join(ctx, p.ID, guest); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	hw := e.attach(t, p, host, party.WatcherConfig{})
	gw := e.attach(t, p, guest, party.WatcherConfig{})

	if err := hw.Toggle(ctx, true); err != nil {
		t.Fatalf("host Toggle failed: %v", err)
	}

	// Within a few ticks the guest's local view converges on playing.
	waitFor(t, time.Second, func() bool {
		return gw.Snapshot().IsPlaying
	})

	// Host seeks far ahead via a direct playback write; the guest adopts
	// it wholesale rather than blending with its interpolated clock.
	if err := e.store.SetPlayback(ctx, p.ID, models.PlaybackState{
		CurrentTime: 3000,
		IsPlaying:   true,
		LastSyncAt:  time.Now().UTC(),
	}); err != nil {
		t.Fatalf("SetPlayback failed: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return gw.Snapshot().CurrentTime >= 3000
	})
}

func TestWatcher_GuestClockAdvancesBetweenHostWrites(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{AutoAdmit: true})
	if _, err := e.negotiator.Join(ctx, p.ID, guest); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	// One host write starts playback at 120 and nothing follows it. The
	// guest's local clock must carry the position past 120 on its own
	// ticks rather than snapping back to the stored value on every
	// read.
	if err := e.store.SetPlayback(ctx, p.ID, models.PlaybackState{
		CurrentTime: 120,
		IsPlaying:   true,
		LastSyncAt:  time.Now().UTC(),
	}); err != nil {
		t.Fatalf("SetPlayback failed: %v", err)
	}

	gw := e.attach(t, p, guest, party.WatcherConfig{})
	waitFor(t, time.Second, func() bool {
		return gw.Snapshot().CurrentTime > 120.2
	})
}

func TestWatcher_InterpolatesWhilePlaying(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	w := e.attach(t, p, host, party.WatcherConfig{})
	if err := w.Toggle(ctx, true); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return w.Snapshot().CurrentTime > 0
	})
}

func TestWatcher_PausedClockHolds(t *testing.T) {
	e := newEngine(t)
	p := e.createParty(t, party.CreateInput{})

	w := e.attach(t, p, host, party.WatcherConfig{})

	time.Sleep(5 * testInterval)
	if got := w.Snapshot().CurrentTime; got != 0 {
		t.Errorf("paused clock moved: got %v, want 0", got)
	}
}

func TestWatcher_NaturalEndOfMedia(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	media := testMedia(1) // one second of runtime
	p, err := e.lifecycle.Create(ctx, host, party.CreateInput{Media: media, AutoAdmit: true})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := e.negotiator.Join(ctx, p.ID, guest); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	endedHost := make(chan models.Party, 1)
	endedGuest := make(chan models.Party, 1)
	hw := e.attach(t, p, host, party.WatcherConfig{OnEnded: func(p models.Party) { endedHost <- p }})
	gw := e.attach(t, p, guest, party.WatcherConfig{OnEnded: func(p models.Party) { endedGuest <- p }})

	if err := hw.Toggle(ctx, true); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	// The host clock reaches the end of the media, ends the party, and
	// both watchers observe the terminal state.
	select {
	case <-endedHost:
	case <-time.After(5 * time.Second):
		t.Fatal("host watcher never observed the party end")
	}
	select {
	case <-endedGuest:
	case <-time.After(5 * time.Second):
		t.Fatal("guest watcher never observed the party end")
	}

	got, _ := e.store.GetByID(ctx, p.ID)
	if got.Status != models.PartyEnded {
		t.Errorf("status: got %q, want ended", got.Status)
	}
	if got.Playback.IsPlaying {
		t.Error("playback must be frozen paused at end of media")
	}
	if got.Playback.CurrentTime != 1 {
		t.Errorf("frozen position: got %v, want the media duration 1", got.Playback.CurrentTime)
	}

	snap := gw.Snapshot()
	if snap.IsPlaying {
		t.Error("guest local view still playing after party end")
	}
}

func TestWatcher_StopsOnTerminalStatus(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{AutoAdmit: true})
	if _, err := e.negotiator.Join(ctx, p.ID, guest); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	ended := make(chan models.Party, 1)
	e.attach(t, p, guest, party.WatcherConfig{OnEnded: func(p models.Party) { ended <- p }})

	if err := e.lifecycle.Complete(ctx, p.ID, host, 42); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	select {
	case final := <-ended:
		if final.Status != models.PartyEnded {
			t.Errorf("OnEnded status: got %q, want ended", final.Status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never observed the terminal status")
	}
}

func TestWatcher_PushWake(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{AutoAdmit: true})
	if _, err := e.negotiator.Join(ctx, p.ID, guest); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	// The store implements Notifier, so a watcher built directly on it
	// wakes on mutation instead of waiting out a long poll interval.
	fresh, _ := e.store.GetByID(ctx, p.ID)
	w := party.NewWatcher(fresh, guest, e.store, e.store, e.channel, e.lifecycle, party.WatcherConfig{
		Interval: time.Hour,
	}, zapNop())
	w.Start()
	t.Cleanup(w.Stop)

	if err := e.store.SetPlayback(ctx, p.ID, models.PlaybackState{
		CurrentTime: 7,
		IsPlaying:   true,
		LastSyncAt:  time.Now().UTC(),
	}); err != nil {
		t.Fatalf("SetPlayback failed: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		s := w.Snapshot()
		return s.IsPlaying && s.CurrentTime >= 7
	})
}

func TestWatcher_ToggleAfterEnd(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	p := e.createParty(t, party.CreateInput{})

	w := e.attach(t, p, host, party.WatcherConfig{})
	if err := e.lifecycle.Complete(ctx, p.ID, host, 0); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		return w.Snapshot().Status == models.PartyEnded
	})

	err := w.Toggle(ctx, true)
	if !errors.Is(err, party.ErrPartyEnded) {
		t.Fatalf("expected ErrPartyEnded, got %v", err)
	}
}
