package executor

import (
	"stepplan/config"
	"stepplan/core"
	"stepplan/planner"
)

const quickStopCleaningTicks = 8

// Synchronize blocks the caller until the ring buffer is fully drained,
// matching st_synchronize's "block until head == tail" contract.
// idleYield, if non-nil, is called between checks so a host test or a
// real firmware's foreground task can yield instead of busy-spinning;
// Synchronize never times out, matching the original.
func (e *Executor) Synchronize(idleYield func()) {
	for !e.ring.Empty() || e.current != nil {
		if idleYield != nil {
			idleYield()
		}
	}
}

// QuickStop disables further motion immediately: it discards every
// queued block and the block in progress, then loads a cleaning
// counter the ISR drains at a fixed safe rate on its next few firings,
// rather than resuming normal dispatch synchronously, which would race
// the ISR mid-block.
func (e *Executor) QuickStop() {
	core.Critical(func() {
		e.ring.DiscardAll()
		if e.current != nil {
			e.current.Busy = false
		}
		e.current = nil
		e.cleaningCounter = quickStopCleaningTicks
	})
	core.RecordEvent(core.EvtQuickStop, 0, core.GetTime(), 0, 0)
}

// SetPosition rewrites count_position under a critical section, for
// G92-style "this is where we are now" updates. Callers must also
// rewrite the planner's position (planner.Planner.PlanSetPosition) so
// the two halves of machine position stay consistent.
func (e *Executor) SetPosition(steps [planner.MaxAxes]int64) {
	core.Critical(func() {
		e.countPosition = steps
	})
}

// AxisPositionMM atomically snapshots count_position for axis and
// converts it to millimeters via that axis's steps/mm.
func (e *Executor) AxisPositionMM(axis int) float64 {
	var steps int64
	core.Critical(func() {
		steps = e.countPosition[axis]
	})
	stepsPerMM := e.axes[axis].StepsPerMM
	if stepsPerMM == 0 {
		return 0
	}
	return float64(steps) / stepsPerMM
}

// TrigSteps returns the count_position snapshot captured at the moment
// axis's endstop last latched, for homing to compute an offset from.
func (e *Executor) TrigSteps(axis int) int64 {
	var steps int64
	core.Critical(func() {
		steps = e.trigSteps[axis]
	})
	return steps
}

// Babystep requests one step pulse on axis in the given direction,
// applied from the next ISR firing ahead of any queued block's own
// stepping. It deliberately never touches count_position: babystepped
// motion is invisible to the plan, by design.
func (e *Executor) Babystep(axis int, forward bool) {
	core.Critical(func() {
		e.babystepAxis = babystepRequest{pending: true, axis: axis, forward: forward}
	})
}

// FinishAndDisableSteppers waits for the queue to fully drain, then
// drops every wired axis's enable pin. idleYield is passed straight
// through to Synchronize.
func (e *Executor) FinishAndDisableSteppers(idleYield func()) {
	e.Synchronize(idleYield)
	for i := 0; i < e.axisCount; i++ {
		pinName := e.axes[i].EnablePin
		if pinName == "" {
			continue
		}
		pin := config.ResolvePin(pinName)
		level := !e.axes[i].InvertEnable
		_ = core.MustGPIO().SetPin(pin, level)
	}
}

func (e *Executor) applyBabystep() {
	req := e.babystepAxis
	if !req.pending {
		return
	}
	e.babystepAxis.pending = false

	backend := e.axes[req.axis].Backend
	backend.SetDirection(!req.forward)
	backend.Step()
	backend.SetDirection(e.countDirection[req.axis] < 0)
}
