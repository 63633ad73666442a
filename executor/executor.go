// Package executor drains a planner ring buffer through the stepper
// ISR contract: Bresenham multi-axis stepping, fixed-point rate
// integration, endstop debouncing, and per-firing timer reprogramming.
package executor

import (
	"sync/atomic"

	"stepplan/core"
	"stepplan/planner"
)

const (
	minLookahead     = 16   // OCR must stay at least this far ahead of the free-running tick
	idleIntervalTicks = 2000 // ticks between polls while the ring buffer is empty
	cleaningInterval  = 500  // ticks between quick_stop's queue-draining firings
)

// AxisPins is the wiring for one motor axis: its stepper backend, the
// steps/mm conversion st_get_axis_position_mm needs, and the enable pin
// finishAndDisableSteppers drops once the queue is empty.
type AxisPins struct {
	Backend    core.StepperBackend
	StepsPerMM float64

	EnablePin    string // empty: FinishAndDisableSteppers leaves this axis's enable pin alone
	InvertEnable bool
}

// Executor owns every piece of state §5 says only the ISR may touch:
// count_position, the Bresenham counters, and the rate integrators. The
// planner's look-ahead instead touches Block.Busy and trapezoid fields
// under core.Critical.
type Executor struct {
	ring      *planner.RingBuffer
	axes      [planner.MaxAxes]AxisPins
	axisCount int

	endstops      [planner.MaxAxes]*Endstop
	zMotorBEndstop *Endstop // second Z endstop, only consulted when dualZ is set
	enabled       bool
	hitBits       atomic.Uint32
	trigSteps     [planner.MaxAxes]int64

	dualZ *DualZCoordinator

	current             *planner.Block
	counter             [planner.MaxAxes]int64
	countDirection      [planner.MaxAxes]int64
	stepEventsCompleted uint32

	ocrNominal       uint32
	stepLoopsNominal uint8
	stepLoops        uint8

	stepRate         uint32
	accelerationTime uint32
	decelerationTime uint32

	countPosition [planner.MaxAxes]int64

	cleaningCounter uint32

	tick atomic.Uint32 // free-running hardware-timer stand-in the OCR>=TCNT+16 guard checks against

	babystepAxis babystepRequest

	timer   *core.Timer
	running bool
}

type babystepRequest struct {
	pending bool
	axis    int
	forward bool
}

// New builds an Executor over ring, driving axes in the order the
// planner's kinematics model reports them.
func New(ring *planner.RingBuffer, axes []AxisPins) *Executor {
	e := &Executor{ring: ring, axisCount: len(axes)}
	for i, a := range axes {
		e.axes[i] = a
		e.countDirection[i] = 1
	}
	return e
}

// SetEndstop wires a limit switch to the given motor axis index. The
// dual-Z axis's second switch is wired through SetDualZ instead.
func (e *Executor) SetEndstop(axis int, ep *Endstop) { e.endstops[axis] = ep }

// SetDualZ installs a dual-Z coordinator and its second endstop. The
// coordinator must already be the StepperBackend registered for its
// AxisIndex in the axes slice passed to New.
func (e *Executor) SetDualZ(dz *DualZCoordinator, motorBEndstop *Endstop) {
	e.dualZ = dz
	e.zMotorBEndstop = motorBEndstop
}

// EnableEndstops toggles whether §4.7's per-firing endstop check runs.
func (e *Executor) EnableEndstops(enabled bool) { e.enabled = enabled }

// HitBits returns the latched endstop_hit_bits for the foreground to
// poll, matching checkHitEndstops's read-only access.
func (e *Executor) HitBits() uint32 { return e.hitBits.Load() }

// EndstopsHitOnPurpose clears the latched bits after the foreground has
// consumed them (e.g., at the end of a successful home).
func (e *Executor) EndstopsHitOnPurpose() { e.hitBits.Store(0) }

// CountPosition snapshots count_position for every wired axis, for a
// foreground reporter that needs the whole vector at once rather than
// one axis via AxisPositionMM.
func (e *Executor) CountPosition() [planner.MaxAxes]int64 {
	var snap [planner.MaxAxes]int64
	core.Critical(func() {
		snap = e.countPosition
	})
	return snap
}

// AxisCount returns how many of CountPosition's slots are wired axes.
func (e *Executor) AxisCount() int { return e.axisCount }

// CurrentBlockID returns the ring buffer's tail counter, a monotonically
// increasing identifier for the block currently executing (or about to
// execute next if the ring is empty). It wraps at 2^32 like any other
// free-running counter a status frame reports.
func (e *Executor) CurrentBlockID() uint32 { return e.ring.TailIndex() }

// Start registers the ISR firing with the scheduler; each firing
// reschedules itself for the interval it just computed.
func (e *Executor) Start() {
	if e.running {
		return
	}
	e.running = true
	e.timer = &core.Timer{WakeTime: core.GetTime(), Handler: e.fire}
	core.ScheduleTimer(e.timer)
}

// Stop halts further ISR firings; the current block, if any, is left
// exactly where it was (use QuickStop to flush instead).
func (e *Executor) Stop() { e.running = false }

// fire implements §4.6 per firing; it is the Handler a core.Timer calls
// from core.TimerDispatch. Every branch of this function runs with the
// stepper interrupt's implicit exclusivity: nothing outside this
// package writes countPosition, counter, or the rate integrators.
func (e *Executor) fire(t *core.Timer) uint8 {
	if !e.running {
		return core.SF_DONE
	}

	e.applyBabystep()

	if e.cleaningCounter > 0 {
		e.discardCurrent()
		e.cleaningCounter--
		e.tick.Add(cleaningInterval)
		t.WakeTime = e.tick.Load()
		return core.SF_RESCHEDULE
	}

	if e.current == nil {
		if !e.loadNextBlock() {
			e.tick.Add(idleIntervalTicks)
			t.WakeTime = e.tick.Load()
			return core.SF_RESCHEDULE
		}
	}

	if e.enabled {
		e.checkEndstops()
	}

	e.stepBresenham()

	ocr := e.nextInterval()
	if ocr < minLookahead {
		ocr = minLookahead
	}
	next := e.tick.Load() + ocr
	e.tick.Store(next)
	t.WakeTime = next

	if e.stepEventsCompleted >= e.current.StepEventCount {
		e.discardCurrent()
	}

	return core.SF_RESCHEDULE
}

func (e *Executor) loadNextBlock() bool {
	b := e.ring.Current()
	if b == nil {
		return false
	}
	b.Busy = true
	e.current = b
	e.stepEventsCompleted = 0

	for i := 0; i < e.axisCount; i++ {
		e.counter[i] = -int64(b.StepEventCount) / 2
		dir := int64(1)
		if b.DirectionBits&(1<<uint(i)) != 0 {
			dir = -1
		}
		e.countDirection[i] = dir
		e.axes[i].Backend.SetDirection(dir < 0)
	}

	nominal := core.CalcTimer(b.NominalRate)
	e.ocrNominal = nominal.OCR
	e.stepLoopsNominal = nominal.StepLoops

	initial := core.CalcTimer(b.InitialRate)
	e.stepLoops = initial.StepLoops
	e.stepRate = b.InitialRate
	e.accelerationTime = 0
	e.decelerationTime = 0
	e.tick.Add(initial.OCR)

	core.RecordEvent(core.EvtBlockLoaded, 0, core.GetTime(), b.StepEventCount, 0)
	return true
}

func (e *Executor) stepBresenham() {
	b := e.current
	for loop := uint8(0); loop < e.stepLoops; loop++ {
		if e.stepEventsCompleted >= b.StepEventCount {
			break // an endstop already ended this block earlier in the same firing
		}
		for i := 0; i < e.axisCount; i++ {
			e.counter[i] += int64(b.Steps[i])
			if e.counter[i] > 0 {
				e.axes[i].Backend.Step()
				e.counter[i] -= int64(b.StepEventCount)
				e.countPosition[i] += e.countDirection[i]
			}
		}
		e.stepEventsCompleted++
		if e.stepEventsCompleted >= b.StepEventCount {
			break
		}
	}
}

// nextInterval computes the timer period for the next firing following
// §4.6 step 5: accelerate while inside AccelerateUntil, decelerate past
// DecelerateAfter, cruise at the nominal rate between the two.
func (e *Executor) nextInterval() uint32 {
	b := e.current

	switch {
	case e.stepEventsCompleted <= b.AccelerateUntil:
		e.stepRate += uint32((uint64(b.AccelerationRate) * uint64(e.accelerationTime)) >> 24)
		if e.stepRate > b.NominalRate {
			e.stepRate = b.NominalRate
		}
		result := core.CalcTimer(e.stepRate)
		e.accelerationTime += result.OCR
		e.stepLoops = result.StepLoops
		if result.Overflowed {
			core.RecordEvent(core.EvtRateClamped, 0, core.GetTime(), e.stepRate, 0)
		}
		return result.OCR

	case e.stepEventsCompleted > b.DecelerateAfter:
		drop := uint32((uint64(b.AccelerationRate) * uint64(e.decelerationTime)) >> 24)
		if drop >= e.stepRate || e.stepRate-drop < b.FinalRate {
			e.stepRate = b.FinalRate
		} else {
			e.stepRate -= drop
		}
		result := core.CalcTimer(e.stepRate)
		e.decelerationTime += result.OCR
		e.stepLoops = result.StepLoops
		if result.Overflowed {
			core.RecordEvent(core.EvtRateClamped, 0, core.GetTime(), e.stepRate, 0)
		}
		return result.OCR

	default:
		e.stepRate = b.NominalRate
		e.stepLoops = e.stepLoopsNominal
		return e.ocrNominal
	}
}

func (e *Executor) discardCurrent() {
	if e.current != nil {
		e.current.Busy = false
		core.RecordEvent(core.EvtBlockDone, 0, core.GetTime(), e.stepEventsCompleted, 0)
	}
	e.current = nil
	if !e.ring.Empty() {
		e.ring.DiscardCurrent()
	}
}

// checkEndstops implements §4.7: a two-sample-debounced read per
// configured endstop, gated to the side of travel the current block is
// actually moving toward, ending the block immediately on trigger.
func (e *Executor) checkEndstops() {
	b := e.current
	for axis := 0; axis < e.axisCount; axis++ {
		ep := e.endstops[axis]
		if ep == nil {
			continue
		}
		movingNegative := b.DirectionBits&(1<<uint(axis)) != 0
		if ep.MinSide != movingNegative {
			continue
		}
		if !ep.check() {
			continue
		}

		if e.dualZ != nil && axis == e.dualZ.AxisIndex {
			if !e.dualZ.Trigger(0) {
				continue // motor A triggered alone; keep stepping motor B until it triggers too
			}
		}

		e.latchEndstopHit(axis, ep.MinSide)
		e.trigSteps[axis] = e.countPosition[axis]
		e.stepEventsCompleted = b.StepEventCount
		return
	}

	if e.dualZ != nil && e.zMotorBEndstop != nil && e.zMotorBEndstop.check() {
		if e.dualZ.Trigger(1) {
			e.latchEndstopHit(e.dualZ.AxisIndex, e.zMotorBEndstop.MinSide)
			e.trigSteps[e.dualZ.AxisIndex] = e.countPosition[e.dualZ.AxisIndex]
			e.stepEventsCompleted = b.StepEventCount
		}
	}
}

// latchEndstopHit sets the endstop_hit_bits bit for axis/side. The
// dual-Z Max-side trigger path sets the Z_MIN bit rather than Z_MAX, a
// bug carried over unchanged from the firmware this is modeled on: both
// the min and max trigger branches in its dual-Z homing code SBI the
// same bit.
func (e *Executor) latchEndstopHit(axis int, minSide bool) {
	var bit uint32
	if e.dualZ != nil && axis == e.dualZ.AxisIndex {
		bit = EndstopHitZMin
	} else {
		bit = endstopBitFor(axis, minSide)
	}
	for {
		old := e.hitBits.Load()
		if e.hitBits.CompareAndSwap(old, old|bit) {
			break
		}
	}
	core.RecordEvent(core.EvtEndstopTrigger, uint8(axis), core.GetTime(), bit, 0)
}
