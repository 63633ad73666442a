//go:build !tinygo

package core

import "sync"

// State mirrors runtime/interrupt.State's role on the tinygo build: an
// opaque token handed back to restoreInterrupts. On the host build there
// is no real interrupt to mask, so a process-wide mutex stands in for it.
// This makes the motion core's critical sections (see scheduler.go,
// executor) genuinely race-detector-meaningful when the ISR is simulated
// by a goroutine, instead of the no-op teacher originally used here.
type State uintptr

var criticalSection sync.Mutex

// disableInterrupts blocks until it holds the single critical-section
// lock shared by the scheduler and the stepper executor, modeling the
// target's single, non-nested interrupt level.
func disableInterrupts() State {
	criticalSection.Lock()
	return 0
}

// restoreInterrupts releases the critical section acquired by a matching
// disableInterrupts call.
func restoreInterrupts(state State) {
	criticalSection.Unlock()
}
