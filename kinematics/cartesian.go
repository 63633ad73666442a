package kinematics

import "math"

// Cartesian is the direct-drive case: each motor moves exactly one head
// axis, one-to-one.
type Cartesian struct{}

func (Cartesian) AxisNames() []string { return []string{"X", "Y", "Z"} }

func (Cartesian) ToMotorDelta(dx, dy, dz float64) []float64 {
	return []float64{dx, dy, dz}
}

func (Cartesian) HeadLength(dx, dy, dz float64) float64 {
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (Cartesian) FromMotorDelta(motor []float64) (dx, dy, dz float64) {
	return motor[0], motor[1], motor[2]
}
