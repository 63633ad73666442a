package executor

import "stepplan/core"

// DualZCoordinator wraps two physical Z motors behind a single
// core.StepperBackend so the Bresenham executor can drive "the Z axis"
// without knowing dual-Z homing exists: ordinary moves step both
// motors together, and during homing each motor's endstop gates only
// that motor out of future Step() calls, independently, until both
// have triggered.
type DualZCoordinator struct {
	MotorA, MotorB core.StepperBackend
	AxisIndex      int

	homing     bool
	aTriggered bool
	bTriggered bool
}

func NewDualZCoordinator(axisIndex int, a, b core.StepperBackend) *DualZCoordinator {
	return &DualZCoordinator{AxisIndex: axisIndex, MotorA: a, MotorB: b}
}

func (d *DualZCoordinator) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	if err := d.MotorA.Init(stepPin, dirPin, invertStep, invertDir); err != nil {
		return err
	}
	return d.MotorB.Init(stepPin, dirPin, invertStep, invertDir)
}

// Step pulses whichever motor(s) have not yet had their endstop trigger
// during the current homing move. Outside homing both always step.
func (d *DualZCoordinator) Step() {
	if !d.aTriggered {
		d.MotorA.Step()
	}
	if !d.bTriggered {
		d.MotorB.Step()
	}
}

func (d *DualZCoordinator) SetDirection(dir bool) {
	d.MotorA.SetDirection(dir)
	d.MotorB.SetDirection(dir)
}

func (d *DualZCoordinator) Stop() {
	d.MotorA.Stop()
	d.MotorB.Stop()
}

func (d *DualZCoordinator) GetName() string { return "dual-z" }

// StartHoming clears both motors' triggered state ahead of a homing
// move; outside a homing move Trigger treats every call as final.
func (d *DualZCoordinator) StartHoming() {
	d.homing = true
	d.aTriggered = false
	d.bTriggered = false
}

// StopHoming restores normal both-motors-always-step behavior.
func (d *DualZCoordinator) StopHoming() {
	d.homing = false
	d.aTriggered = false
	d.bTriggered = false
}

// Trigger records that motor 0 (A) or motor 1 (B)'s endstop fired this
// firing and reports whether the block should end now. Outside homing
// there is only one endstop to read, so any trigger is immediately
// both.
func (d *DualZCoordinator) Trigger(motor int) bool {
	if !d.homing {
		return true
	}
	if motor == 0 {
		d.aTriggered = true
	} else {
		d.bTriggered = true
	}
	return d.aTriggered && d.bTriggered
}
