// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import "fmt"

// taskPhase is the state of one loading task. Exactly one phase
// change happens per driver step.
type taskPhase int

const (
	// phaseCreated is the initial phase, nothing has run yet.
	phaseCreated taskPhase = iota

	// phaseDiscovering means Dependencies is running on a background
	// worker. Synchronous tasks never enter it, they discover within
	// their first step.
	phaseDiscovering

	// phaseWaiting means dependencies were injected and the task sits
	// below them on the stack until they complete.
	phaseWaiting

	// phasePrefetching means Prefetch is running on a background
	// worker.
	phasePrefetching

	// phaseReady means the task finalizes on the next step.
	phaseReady

	// phaseDone means the task was popped, either committed to the
	// cache or discarded.
	phaseDone
)

var phaseNames = map[taskPhase]string{
	phaseCreated:     "created",
	phaseDiscovering: "discovering",
	phaseWaiting:     "waiting",
	phasePrefetching: "prefetching",
	phaseReady:       "ready",
	phaseDone:        "done",
}

func (p taskPhase) String() string {
	return phaseNames[p]
}

// phaseResult carries the outcome of a background phase back to the
// driving goroutine through a one-shot channel.
type phaseResult struct {
	deps       []ID
	prefetched interface{}
	err        error
}

// task drives one identity from requested to cached. It lives on the
// loading stack from the moment an uncached identity is scheduled
// until it commits a resource or is discarded.
type task struct {
	id     ID
	loader loaderEntry
	file   File

	phase taskPhase
	deps  []ID

	// claimed lists the dependencies this task actually took a
	// reference on while injecting: retained cached entries, pending
	// references on in-flight tasks and entries its own pushed tasks
	// will commit. Only these are given back on rollback, deps the
	// injection never reached are not touched.
	claimed []ID

	// signal is the one-shot completion channel of the background
	// phase currently in flight, nil otherwise.
	signal chan phaseResult

	prefetched interface{}

	// started is set on the task's first step. A task that has
	// started may no longer be reordered within the stack.
	started bool

	// topLevel marks tasks created for a queued request rather than
	// an injected dependency. Only they advance the progress counters
	// and carry a completion callback.
	topLevel bool
	onLoaded func(ID, interface{})

	// cancelled is set by an unload request racing the load. A
	// cancelled task never finalizes and its claims are dropped.
	cancelled bool

	// pendingRefs counts dependents that deduplicated against this
	// task while it was in flight. Applied as extra references when
	// the task commits.
	pendingRefs int
}

// transition moves the task to phase next, validating that the move
// is one the state machine allows. An invalid move is a bug in the
// driver, not a loader failure.
func (t *task) transition(next taskPhase) error {
	if !allowedTransition(t.phase, next) {
		return fmt.Errorf("task %s: invalid phase change %s -> %s", t.id, t.phase, next)
	}
	t.phase = next
	return nil
}

func allowedTransition(from, to taskPhase) bool {
	switch from {
	case phaseCreated:
		return to == phaseDiscovering || to == phaseWaiting || to == phasePrefetching || to == phaseDone
	case phaseDiscovering:
		return to == phaseWaiting || to == phasePrefetching || to == phaseDone
	case phaseWaiting:
		return to == phasePrefetching || to == phaseDone
	case phasePrefetching:
		return to == phaseReady || to == phaseDone
	case phaseReady:
		return to == phaseDone
	default:
		return false
	}
}
