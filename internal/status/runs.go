// Package status tracks the lifecycle of sync runs started via the
// async API. Progress records live in a process-local registry guarded
// by a mutex; transitions are published on the bus.
package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eyalbz/wacal/internal/bus"
)

// State represents a sync run's lifecycle state.
type State string

const (
	Pending   State = "PENDING"
	Running   State = "RUNNING"
	Completed State = "COMPLETED"
	Failed    State = "FAILED"
	Cancelled State = "CANCELLED"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Pending: {Running, Failed, Cancelled},
	Running: {Completed, Failed, Cancelled},
}

// Run is a snapshot of one sync run's progress.
type Run struct {
	ID            string
	Kind          string // "one" | "all"
	Target        string // chat ID for kind=one, empty for kind=all
	State         State
	StartedAt     time.Time
	FinishedAt    time.Time
	ChatsTotal    int
	ChatsDone     int
	MessagesSeen  int
	EventsCreated int
	Error         string
}

type runEntry struct {
	run             Run
	cancelRequested bool
}

// Registry tracks sync runs and enforces state transitions.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*runEntry
	bus  *bus.Bus
}

// NewRegistry creates an empty run registry.
func NewRegistry(b *bus.Bus) *Registry {
	return &Registry{
		runs: make(map[string]*runEntry),
		bus:  b,
	}
}

// Create registers a new run in Pending state and returns its ID.
func (r *Registry) Create(kind, target string) string {
	id := uuid.New().String()
	r.mu.Lock()
	r.runs[id] = &runEntry{run: Run{
		ID:        id,
		Kind:      kind,
		Target:    target,
		State:     Pending,
		StartedAt: time.Now(),
	}}
	r.mu.Unlock()
	return id
}

// Get returns a snapshot of the run, or false if unknown.
func (r *Registry) Get(id string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.runs[id]
	if !ok {
		return Run{}, false
	}
	return entry.run, true
}

// Transition attempts to move a run to a new state. Returns an error if
// the run is unknown or the transition is invalid.
func (r *Registry) Transition(id string, to State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.runs[id]
	if !ok {
		return fmt.Errorf("unknown run %s", id)
	}
	allowed := validTransitions[entry.run.State]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", entry.run.State, to)
	}
	from := entry.run.State
	entry.run.State = to
	if to == Completed || to == Failed || to == Cancelled {
		entry.run.FinishedAt = time.Now()
	}
	if r.bus != nil {
		r.bus.Publish(bus.Event{
			Kind:      "sync.run_state_changed",
			Timestamp: time.Now(),
			Payload: StateChange{
				RunID: id,
				From:  from,
				To:    to,
			},
		})
	}
	return nil
}

// Update applies fn to the run's mutable progress fields under the lock.
func (r *Registry) Update(id string, fn func(*Run)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.runs[id]; ok {
		fn(&entry.run)
	}
}

// SetError records a run failure message.
func (r *Registry) SetError(id string, err error) {
	r.Update(id, func(run *Run) {
		run.Error = err.Error()
	})
}

// RequestCancel sets the cooperative cancel flag. The run finishes its
// current chat and then stops. Returns false when the run is unknown.
func (r *Registry) RequestCancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.runs[id]
	if !ok {
		return false
	}
	entry.cancelRequested = true
	return true
}

// CancelRequested reports whether a cancel was requested for the run.
func (r *Registry) CancelRequested(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.runs[id]
	return ok && entry.cancelRequested
}

// StateChange is the payload for run state change events.
type StateChange struct {
	RunID string
	From  State
	To    State
}
