//go:build rp2040 || rp2350

package piostepper

import (
	"device/arm"
	"device/rp"
	"machine"

	"stepplan/core"
)

// GPIOBackend drives a stepper by toggling SIO registers directly. It
// is the fallback for axes that didn't get a PIO slot from Allocator
// (at most 8 PIO state machines exist across both blocks); slower and
// jitterier than Backend, but needs no PIO resource at all.
type GPIOBackend struct {
	stepPin, dirPin machine.Pin
	stepSetMask     uint32
	stepClearMask   uint32
	dirSetMask      uint32
	dirClearMask    uint32
}

func NewGPIOBackend() *GPIOBackend {
	return &GPIOBackend{}
}

func (b *GPIOBackend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	b.stepPin = machine.Pin(stepPin)
	b.dirPin = machine.Pin(dirPin)

	b.stepPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	b.stepPin.Low()
	b.dirPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	b.dirPin.Low()

	b.stepSetMask = 1 << stepPin
	b.stepClearMask = 1 << stepPin
	b.dirSetMask = 1 << dirPin
	b.dirClearMask = 1 << dirPin

	if invertStep {
		b.stepSetMask, b.stepClearMask = b.stepClearMask, b.stepSetMask
	}
	if invertDir {
		b.dirSetMask, b.dirClearMask = b.dirClearMask, b.dirSetMask
	}
	return nil
}

// Step pulses the step pin high then low, holding high for ~104ns (13
// NOPs @ 125MHz) to clear a TMC driver's minimum pulse width.
func (b *GPIOBackend) Step() {
	rp.SIO.GPIO_OUT_SET.Set(b.stepSetMask)
	arm.Asm("nop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop\nnop")
	rp.SIO.GPIO_OUT_CLR.Set(b.stepClearMask)
}

// SetDirection sets the direction pin, then holds a few NOPs to clear a
// TMC driver's dir-to-step setup time before the next Step call.
func (b *GPIOBackend) SetDirection(dir bool) {
	if dir {
		rp.SIO.GPIO_OUT_SET.Set(b.dirSetMask)
	} else {
		rp.SIO.GPIO_OUT_CLR.Set(b.dirClearMask)
	}
	arm.Asm("nop\nnop\nnop")
}

func (b *GPIOBackend) Stop() {
	rp.SIO.GPIO_OUT_CLR.Set(b.stepClearMask)
}

func (b *GPIOBackend) GetName() string { return "GPIO" }

func (b *GPIOBackend) GetInfo() core.StepperBackendInfo {
	return core.StepperBackendInfo{
		Name:          b.GetName(),
		MaxStepRate:   200000,
		MinPulseNs:    200,
		TypicalJitter: 500,
		CPUOverhead:   15,
	}
}
