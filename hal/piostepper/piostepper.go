//go:build rp2040 || rp2350

// Package piostepper implements core.StepperBackend on the RP2040/RP2350's
// PIO blocks: each axis gets its own state machine running a small
// assembled program that turns a queued step+direction command into a
// hardware-timed pulse, so step timing never competes with the Go
// scheduler the way a software-toggled GPIO pulse does.
package piostepper

import (
	"machine"

	"stepplan/core"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// buildStepProgram assembles the PIO program every Backend loads into
// its state machine: pull a command word, split it into pulse count,
// inter-pulse delay, and direction, then bang out that many step pulses.
//
// Command word layout:
//
//	bits 0-15:  pulse count
//	bits 16-23: delay cycles between pulses
//	bit 24:     direction (0=forward, 1=reverse)
func buildStepProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),
		asm.Out(rp2pio.OutDestX, 16).Encode(),
		asm.Out(rp2pio.OutDestY, 8).Encode(),
		asm.Out(rp2pio.OutDestPins, 1).Encode(),
		// step_loop:
		asm.Set(rp2pio.SetDestPins, 1).Delay(7).Encode(),
		asm.Set(rp2pio.SetDestPins, 0).Encode(),
		// delay_loop:
		asm.Jmp(6, rp2pio.JmpYNZeroDec).Encode(),
		asm.Jmp(4, rp2pio.JmpXNZeroDec).Encode(),
		// .wrap
	}
}

const programOrigin = 0

// Backend drives one stepper axis through a claimed PIO state machine.
// The executor's Bresenham loop calls Step() once per pulse, so Backend
// always queues a one-step command; QueueSteps is exposed separately
// for callers (homing moves, babystep bursts) that want the PIO to run
// ahead without a Go-side call per pulse.
type Backend struct {
	pio       *rp2pio.PIO
	sm        rp2pio.StateMachine
	stepPin   machine.Pin
	dirPin    machine.Pin
	direction bool
	offset    uint8
}

// New claims the given PIO state machine for a new Backend. slot is
// normally obtained from an Allocator so two axes never contend for the
// same state machine.
func New(slot Slot) *Backend {
	var hw *rp2pio.PIO
	if slot.PIONum == 0 {
		hw = rp2pio.PIO0
	} else {
		hw = rp2pio.PIO1
	}
	return &Backend{pio: hw, sm: hw.StateMachine(slot.SMNum)}
}

func (b *Backend) Init(stepPin, dirPin uint8, invertStep, invertDir bool) error {
	b.stepPin = machine.Pin(stepPin)
	b.dirPin = machine.Pin(dirPin)

	b.sm.TryClaim()

	program := buildStepProgram()
	offset, err := b.pio.AddProgram(program, programOrigin)
	if err != nil {
		return err
	}
	b.offset = offset

	b.stepPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})
	b.dirPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(b.stepPin, 1)
	cfg.SetOutPins(b.dirPin, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(1000, 0)

	b.sm.Init(offset, cfg)
	b.sm.SetPindirsConsecutive(b.stepPin, 1, true)
	b.sm.SetPindirsConsecutive(b.dirPin, 1, true)
	b.sm.SetPinsConsecutive(b.stepPin, 1, false)
	b.sm.SetPinsConsecutive(b.dirPin, 1, false)
	b.sm.SetEnabled(true)

	// invertStep/invertDir have no effect here: the PIO program drives
	// the step pin itself, and dir polarity is handled by the caller
	// choosing which way to set SetDirection's bool.
	_ = invertStep
	_ = invertDir
	return nil
}

func (b *Backend) Step() {
	b.QueueSteps(1, 1)
}

// QueueSteps pushes one command word generating count pulses spaced
// delayCycles PIO cycles apart, at whatever direction SetDirection last
// chose. It blocks on FIFO backpressure, matching Step's contract that
// callers from the stepper ISR keep delayCycles small.
func (b *Backend) QueueSteps(count uint16, delayCycles uint8) {
	cmd := uint32(count) | uint32(delayCycles)<<16
	if b.direction {
		cmd |= 1 << 24
	}
	for b.sm.IsTxFIFOFull() {
	}
	b.sm.TxPut(cmd)
}

func (b *Backend) SetDirection(dir bool) { b.direction = dir }

func (b *Backend) Stop() {
	b.sm.SetEnabled(false)
	b.sm.ClearFIFOs()
	b.sm.Restart()
	b.sm.SetEnabled(true)
}

func (b *Backend) GetName() string { return "PIO" }

func (b *Backend) GetInfo() core.StepperBackendInfo {
	return core.StepperBackendInfo{
		Name:          b.GetName(),
		MaxStepRate:   500000,
		MinPulseNs:    64,
		TypicalJitter: 10,
		CPUOverhead:   1,
	}
}
