package service

import (
	"sync"
	"time"

	"github.com/tejashwikalptaru/dreamstream/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/dreamstream/internal/adapter/storage/memory"
	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/kv"
	"github.com/tejashwikalptaru/dreamstream/internal/logger"
)

// testEnv bundles a store over a fault-injectable substrate with a live bus.
type testEnv struct {
	substrate *memory.Substrate
	store     *kv.Store
	bus       *eventbus.SyncEventBus
	events    *eventRecorder
}

func newTestEnv() *testEnv {
	substrate := memory.NewSubstrate()
	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(log)
	rec := &eventRecorder{}
	bus.SubscribeAll(rec.record)

	return &testEnv{
		substrate: substrate,
		store:     kv.New(substrate, log),
		bus:       bus,
		events:    rec,
	}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) record(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) ofType(t domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Event
	for _, e := range r.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeClock returns an increasing time on each call, one second apart.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}
