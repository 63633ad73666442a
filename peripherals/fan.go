//go:build tinygo

// Package peripherals drives the non-real-time outputs a Block carries
// alongside its motion: cooling fan / laser PWM duty, and the hotend
// temperature gate behind the cold-extrude policy. None of this runs
// from the stepper ISR. The executor does not call into this package:
// FanSpeed/LaserIntensity reach these outputs only if a caller passes
// them in.
package peripherals

import "stepplan/core"

// FanOutput drives a block's FanSpeed (0..1) onto a PWM channel.
type FanOutput struct {
	Pin core.PWMPin
}

func (f FanOutput) SetSpeed(fraction float64) error {
	return setDutyFraction(f.Pin, fraction)
}

// LaserOutput drives a block's LaserIntensity the same way FanOutput
// drives cooling, on a separate PWM channel. It does not check the
// block's LaserMode flag; SetIntensity always writes the duty cycle.
type LaserOutput struct {
	Pin core.PWMPin
}

func (l LaserOutput) SetIntensity(fraction float64) error {
	return setDutyFraction(l.Pin, fraction)
}

func setDutyFraction(pin core.PWMPin, fraction float64) error {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	max := core.MustPWM().GetMaxValue()
	return core.MustPWM().SetDutyCycle(pin, core.PWMValue(fraction*float64(max)))
}
