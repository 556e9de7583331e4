// internal/app/party/registry.go
package party

import (
	"sync"
	"time"

	"github.com/reelsync/watchparty/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Registry holds the server-side watcher runtime for each connected
// participant, keyed by (party, identity). One watcher per pair: a
// participant re-attaching gets their existing runtime back.
type Registry struct {
	store     PartyStore
	source    Source
	chat      *Channel
	lifecycle *Controller
	interval  time.Duration
	log       *zap.Logger

	mu       sync.Mutex
	watchers map[string]*Watcher
}

// NewRegistry constructs a watcher registry. interval <= 0 uses
// DefaultSyncInterval.
func NewRegistry(store PartyStore, source Source, chat *Channel, lifecycle *Controller, interval time.Duration, logger *zap.Logger) *Registry {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Registry{
		store:     store,
		source:    source,
		chat:      chat,
		lifecycle: lifecycle,
		interval:  interval,
		log:       logger,
		watchers:  make(map[string]*Watcher),
	}
}

func key(partyID primitive.ObjectID, email string) string {
	return partyID.Hex() + "|" + email
}

// Attach returns the participant's watcher for the party, starting a
// new one if none is running. The watcher removes itself when it
// observes the party end.
func (r *Registry) Attach(p models.Party, user Identity) *Watcher {
	k := key(p.ID, user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.watchers[k]; ok {
		return w
	}

	w := NewWatcher(p, user, r.store, r.source, r.chat, r.lifecycle, WatcherConfig{
		Interval: r.interval,
		OnEnded: func(models.Party) {
			r.remove(k)
		},
	}, r.log)
	r.watchers[k] = w
	w.Start()
	r.log.Debug("watcher attached",
		zap.String("party_id", p.ID.Hex()),
		zap.String("watcher_id", w.ID),
		zap.Bool("is_host", w.IsHost()))
	return w
}

// Get returns the running watcher for the pair, if any.
func (r *Registry) Get(partyID primitive.ObjectID, email string) (*Watcher, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watchers[key(partyID, email)]
	return w, ok
}

// Detach stops and removes the participant's watcher. Other
// participants' watchers and the persisted party state are unaffected.
func (r *Registry) Detach(partyID primitive.ObjectID, email string) {
	k := key(partyID, email)
	r.mu.Lock()
	w, ok := r.watchers[k]
	delete(r.watchers, k)
	r.mu.Unlock()
	if ok {
		w.Stop()
	}
}

// StopAll stops every watcher. Used at shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	all := make([]*Watcher, 0, len(r.watchers))
	for _, w := range r.watchers {
		all = append(all, w)
	}
	r.watchers = make(map[string]*Watcher)
	r.mu.Unlock()
	for _, w := range all {
		w.Stop()
	}
}

// remove drops a registry entry without stopping the watcher (used from
// the watcher's own OnEnded, where the loop is already exiting).
func (r *Registry) remove(k string) {
	r.mu.Lock()
	delete(r.watchers, k)
	r.mu.Unlock()
}
