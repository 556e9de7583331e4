package party_test

import (
	"context"
	"testing"
	"time"

	"github.com/reelsync/watchparty/internal/app/party"
	"github.com/reelsync/watchparty/internal/app/store/memory"
	"github.com/reelsync/watchparty/internal/domain/models"
	"github.com/reelsync/watchparty/internal/testutil"
	"go.uber.org/zap"
)

// engine bundles the components under test over a shared in-memory
// store.
type engine struct {
	store      *memory.Store
	channel    *party.Channel
	lifecycle  *party.Controller
	negotiator *party.Negotiator
	resolver   *party.Resolver
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	st := memory.New()
	log := zap.NewNop()
	ch := party.NewChannel(st, log)
	ctl := party.NewController(st, st.Viewings(), ch, "", 0, log)
	return &engine{
		store:      st,
		channel:    ch,
		lifecycle:  ctl,
		negotiator: party.NewNegotiator(st, ctl, ch, log),
		resolver:   party.NewResolver(st, "", log),
	}
}

var (
	host  = party.Identity{Email: "host@test.com", Name: "Holly Host"}
	guest = party.Identity{Email: "guest@test.com", Name: "Gary Guest"}
	other = party.Identity{Email: "other@test.com", Name: "Olive Other"}
)

func (e *engine) createParty(t *testing.T, in party.CreateInput) models.Party {
	t.Helper()
	if in.Media.Title == "" {
		in.Media = testutil.Movie("The Long Goodbye", 6720)
	}
	p, err := e.lifecycle.Create(context.Background(), host, in)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return p
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

// systemTexts returns the texts of all system messages for the party.
func (e *engine) systemTexts(t *testing.T, p models.Party) []string {
	t.Helper()
	msgs, err := e.channel.History(context.Background(), p.ID, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	var out []string
	for _, m := range msgs {
		if m.IsSystem() {
			out = append(out, m.Text)
		}
	}
	return out
}

func containsText(texts []string, want string) bool {
	for _, s := range texts {
		if s == want {
			return true
		}
	}
	return false
}

func zapNop() *zap.Logger { return zap.NewNop() }

// testMedia returns a media reference with the given runtime.
func testMedia(durationSeconds int) models.MediaRef {
	return testutil.Movie("Short Subject", durationSeconds)
}
