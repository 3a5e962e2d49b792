// Package guard implements the session-gated navigation guards. Each guard
// is a small state machine owned by one mounted component instance:
//
//	Pending -> {ViewerPresent, ViewerAbsent} -> Redirecting (terminal)
//
// Transition actions (navigation, plan-selection consumption) run exactly
// once per entry into Redirecting, and a guard unmounted before its session
// query resolves discards the late response.
package guard

import (
	"context"
	"sync"

	"github.com/scriptoria/webclient/internal/session"
)

// State is the guard state machine position.
type State int

const (
	// StatePending means the session query is outstanding; render nothing.
	StatePending State = iota
	// StateViewerPresent means a signed-in viewer resolved.
	StateViewerPresent
	// StateViewerAbsent means the query resolved with no viewer.
	StateViewerAbsent
	// StateRedirecting is terminal; navigation has been issued and nothing
	// renders afterwards.
	StateRedirecting
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateViewerPresent:
		return "viewer-present"
	case StateViewerAbsent:
		return "viewer-absent"
	case StateRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// SessionSource resolves the current viewer. A nil record with a nil error
// means nobody is signed in.
type SessionSource interface {
	CurrentSession(ctx context.Context) (*session.Record, error)
}

// Navigator performs the actual location change once a guard decides to
// redirect.
type Navigator interface {
	Navigate(target string)
}

// lifecycle carries the mount-liveness bookkeeping shared by both guards.
// The generation counter invalidates in-flight session queries: a response
// delivered for an older generation (or after unmount) is discarded.
type lifecycle struct {
	mu         sync.Mutex
	state      State
	generation uint64
	mounted    bool
	settled    chan struct{}
}

// beginMount starts a new generation in Pending.
func (l *lifecycle) beginMount() (uint64, chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	l.mounted = true
	l.state = StatePending
	l.settled = make(chan struct{})
	return l.generation, l.settled
}

// Unmount stops the state machine from acting on any response still in
// flight.
func (l *lifecycle) Unmount() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mounted = false
	l.generation++
}

// Done returns a channel closed when the current mount's session query has
// been delivered (or discarded). Before any mount it returns a closed
// channel.
func (l *lifecycle) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.settled == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return l.settled
}

// State returns the current machine state.
func (l *lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// alive reports whether the given generation may still act.
func (l *lifecycle) alive(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mounted && gen == l.generation
}

// transition moves to next if the generation is still live. A false return
// means the response arrived after unmount and must be dropped.
func (l *lifecycle) transition(gen uint64, next State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.mounted || gen != l.generation {
		return false
	}
	l.state = next
	return true
}
