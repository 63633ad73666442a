package kinematics

import "math"

// core2 implements the CoreXY/CoreYX/CoreXZ/CoreZX family: two motors
// (named names[0], names[1]) cooperate to move one pair of head axes
// through a belt arrangement; a third motor (names[2]) drives the
// remaining head axis independently.
//
// Forward: a = p + k*q, b = p - k*q, where (p, q) is (dx, dy) for the
// XY-coupled pair or (dx, dz) for the XZ-coupled pair. swap exchanges
// which output slot (a or b) carries the + vs - combination, matching
// "CoreYX"/"CoreZX" naming the physical motor wiring the other way
// around from "CoreXY"/"CoreXZ".
type core2 struct {
	names   [3]string
	k       float64
	swap    bool
	coupled coupledPair
}

func (c core2) AxisNames() []string { return []string{c.names[0], c.names[1], c.names[2]} }

func (c core2) coupledInputs(dx, dy, dz float64) (p, q, third float64) {
	if c.coupled == axesXY {
		return dx, dy, dz
	}
	return dx, dz, dy
}

func (c core2) ToMotorDelta(dx, dy, dz float64) []float64 {
	p, q, third := c.coupledInputs(dx, dy, dz)
	a := p + c.k*q
	b := p - c.k*q
	if c.swap {
		a, b = b, a
	}
	return []float64{a, b, third}
}

// HeadLength uses the head-space delta directly; for core kinematics the
// motor travel (a, b) is longer than the head's actual path, so the
// trapezoid distance math must use this, not the motor-space vector norm.
func (c core2) HeadLength(dx, dy, dz float64) float64 {
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (c core2) FromMotorDelta(motor []float64) (dx, dy, dz float64) {
	a, b, third := motor[0], motor[1], motor[2]
	if c.swap {
		a, b = b, a
	}
	p := (a + b) / 2
	q := (a - b) / (2 * c.k)
	if c.coupled == axesXY {
		return p, q, third
	}
	return p, third, q
}
