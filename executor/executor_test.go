package executor

import (
	"testing"

	"stepplan/core"
	"stepplan/planner"
)

type fakeBackend struct {
	steps     int
	dirReverse bool
}

func (f *fakeBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error { return nil }
func (f *fakeBackend) Step()                                                        { f.steps++ }
func (f *fakeBackend) SetDirection(dir bool)                                        { f.dirReverse = dir }
func (f *fakeBackend) Stop()                                                        {}
func (f *fakeBackend) GetName() string                                              { return "fake" }

func newTestExecutor(axisCount int) (*Executor, *planner.RingBuffer, []*fakeBackend) {
	ring := planner.NewRingBuffer(8)
	backends := make([]*fakeBackend, axisCount)
	axes := make([]AxisPins, axisCount)
	for i := range backends {
		backends[i] = &fakeBackend{}
		axes[i] = AxisPins{Backend: backends[i], StepsPerMM: 80}
	}
	return New(ring, axes), ring, backends
}

func queueSimpleBlock(ring *planner.RingBuffer, steps uint32) *planner.Block {
	b := ring.ReserveNext()
	*b = planner.Block{
		AxisCount:        1,
		Steps:            [planner.MaxAxes]uint32{steps},
		StepEventCount:   steps,
		NominalRate:      4000,
		InitialRate:      200,
		FinalRate:        200,
		AccelerationSt:   2000,
		AccelerationRate: 1 << 20,
		AccelerateUntil:  steps / 4,
		DecelerateAfter:  steps - steps/4,
	}
	ring.Publish()
	return b
}

func runUntilIdle(t *testing.T, e *Executor, maxFirings int) {
	t.Helper()
	timer := &core.Timer{}
	for i := 0; i < maxFirings; i++ {
		e.running = true
		result := e.fire(timer)
		if result == core.SF_DONE {
			return
		}
		if e.current == nil && e.ring.Empty() {
			return
		}
	}
}

func TestExecutorRunsBlockToCompletion(t *testing.T) {
	e, ring, backends := newTestExecutor(1)
	queueSimpleBlock(ring, 400)

	runUntilIdle(t, e, 5000)

	if !ring.Empty() {
		t.Fatal("expected ring buffer to be drained")
	}
	if backends[0].steps != 400 {
		t.Fatalf("expected 400 steps emitted, got %d", backends[0].steps)
	}
}

func TestExecutorEndstopEndsBlockEarly(t *testing.T) {
	e, ring, backends := newTestExecutor(1)
	b := queueSimpleBlock(ring, 1000)
	b.DirectionBits = 0 // moving in the positive (non-min) direction

	triggerAfter := 20
	calls := 0
	e.SetEndstop(0, &Endstop{
		MinSide: false,
		ReadPin: func() bool {
			calls++
			return calls > triggerAfter
		},
	})
	e.EnableEndstops(true)

	runUntilIdle(t, e, 5000)

	if !ring.Empty() {
		t.Fatal("expected the block to be discarded once the endstop latched")
	}
	if backends[0].steps >= 1000 {
		t.Fatalf("expected the endstop to cut the move short, got %d steps out of 1000", backends[0].steps)
	}
	if e.HitBits()&EndstopHitXMax == 0 {
		t.Fatalf("expected EndstopHitXMax latched, got bits %#x", e.HitBits())
	}
}

func TestQuickStopFlushesQueueAndDrainsSafely(t *testing.T) {
	e, ring, _ := newTestExecutor(1)
	queueSimpleBlock(ring, 2000)
	queueSimpleBlock(ring, 2000)

	timer := &core.Timer{}
	e.running = true
	e.fire(timer) // load the first block and step it partway

	e.QuickStop()

	if !ring.Empty() {
		t.Fatal("expected QuickStop to discard the entire queue")
	}
	if e.current != nil {
		t.Fatal("expected QuickStop to clear the in-progress block")
	}
	if e.cleaningCounter == 0 {
		t.Fatal("expected a nonzero cleaning counter after QuickStop")
	}

	// The ISR should drain the cleaning counter at a safe rate rather
	// than resuming normal dispatch on its very next firing.
	for e.cleaningCounter > 0 {
		e.fire(timer)
	}
	if e.cleaningCounter != 0 {
		t.Fatal("cleaning counter did not drain to zero")
	}
}

func TestBabystepDoesNotAffectCountPosition(t *testing.T) {
	e, _, backends := newTestExecutor(1)
	before := e.AxisPositionMM(0)

	e.Babystep(0, true)
	timer := &core.Timer{}
	e.running = true
	e.fire(timer)

	if backends[0].steps == 0 {
		t.Fatal("expected the babystep to emit a pulse")
	}
	if after := e.AxisPositionMM(0); after != before {
		t.Fatalf("babystep must not move count_position: before=%v after=%v", before, after)
	}
}
