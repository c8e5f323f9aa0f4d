package room

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cashly-rent-a-car/bingo/internal/stats"
	"github.com/cashly-rent-a-car/bingo/internal/store"
	"github.com/cashly-rent-a-car/bingo/internal/utils"
)

// Registry owns the pin -> actor map. It is the only shared mutable structure
// outside the actors and holds its lock only for map access, never while a
// room command runs.
type Registry struct {
	store    store.Store
	reporter *stats.Reporter
	baseURL  string
	grace    time.Duration

	mu    sync.Mutex
	rooms map[string]*Actor
}

func NewRegistry(st store.Store, reporter *stats.Reporter, baseURL string, grace time.Duration) *Registry {
	return &Registry{
		store:    st,
		reporter: reporter,
		baseURL:  baseURL,
		grace:    grace,
		rooms:    make(map[string]*Actor),
	}
}

// CreateRoom allocates an unused pin and starts its actor.
func (r *Registry) CreateRoom() (*Actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < 100; attempt++ {
		pin := utils.GeneratePin()
		if _, taken := r.rooms[pin]; taken {
			continue
		}
		return r.startLocked(pin), nil
	}
	return nil, fmt.Errorf("could not allocate a free room pin")
}

// GetOrCreate returns the actor for the pin, starting it on first use. Pins
// with a persisted snapshot come back with their state restored.
func (r *Registry) GetOrCreate(pin string) (*Actor, error) {
	if !utils.IsValidPin(pin) {
		return nil, fmt.Errorf("invalid room pin %q", pin)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if actor, ok := r.rooms[pin]; ok {
		return actor, nil
	}
	return r.startLocked(pin), nil
}

// Get returns the running actor for the pin, if any.
func (r *Registry) Get(pin string) (*Actor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	actor, ok := r.rooms[pin]
	return actor, ok
}

func (r *Registry) startLocked(pin string) *Actor {
	actor := NewActor(pin, utils.MagicLink(r.baseURL, pin), r.store, r.reporter, r.grace)
	r.rooms[pin] = actor
	go actor.Run()
	log.Printf("[Registry] room %s started", pin)
	return actor
}

// StopAll shuts every actor down; used on server shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for pin, actor := range r.rooms {
		actor.Stop()
		delete(r.rooms, pin)
	}
}
