// Package trigger implements TriggerVariable, a two-phase latch used to
// synchronize CommsInterface startup and teardown: a side must first be
// activated (it exists and intends to participate) before it can be
// triggered (the awaited condition actually occurred).
package trigger

import (
	"sync"
	"time"
)

// Variable is a two-phase latch: activate() marks a side as
// participating, trigger() signals the awaited condition. wait()
// blocks until both have happened.
type Variable struct {
	mu         sync.Mutex
	activateCV *sync.Cond
	triggerCV  *sync.Cond
	activated  bool
	triggered  bool
}

// New returns a Variable in the inactive, untriggered state.
func New() *Variable {
	v := &Variable{}
	v.activateCV = sync.NewCond(&v.mu)
	v.triggerCV = sync.NewCond(&v.mu)
	return v
}

// Activate transitions inactive -> active, waking any waiters blocked
// on activation. Returns true if this call performed the transition,
// false if already active.
func (v *Variable) Activate() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.activated {
		return false
	}
	v.activated = true
	v.activateCV.Broadcast()
	return true
}

// Trigger transitions active,untriggered -> active,triggered. Returns
// false without effect if the variable is not yet active.
func (v *Variable) Trigger() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.activated {
		return false
	}
	if v.triggered {
		return true
	}
	v.triggered = true
	v.triggerCV.Broadcast()
	return true
}

// Wait blocks until the variable is both activated and triggered.
func (v *Variable) Wait() {
	v.mu.Lock()
	defer v.mu.Unlock()

	for !v.activated {
		v.activateCV.Wait()
	}
	for !v.triggered {
		v.triggerCV.Wait()
	}
}

// WaitFor blocks until activated and triggered, or until d elapses.
// Returns true if the predicate held before the deadline.
func (v *Variable) WaitFor(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		v.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

// Reset releases any pending trigger (so blocked waiters observe
// triggered==true at least once, satisfying the wait() contract) and
// then returns the variable to inactive. The lock is released while
// re-triggering to avoid a self-deadlock against a concurrent Wait.
func (v *Variable) Reset() {
	v.mu.Lock()
	for v.activated && !v.triggered {
		v.mu.Unlock()
		v.Trigger()
		v.mu.Lock()
	}
	v.activated = false
	v.triggered = false
	v.mu.Unlock()
}

// IsActivated reports whether the variable is presently active.
func (v *Variable) IsActivated() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.activated
}

// IsTriggered reports whether the variable has been triggered since
// its last activation.
func (v *Variable) IsTriggered() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.triggered
}
