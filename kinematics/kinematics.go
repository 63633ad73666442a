// Package kinematics converts Cartesian head moves into motor-space
// deltas (and back), for both direct-drive (Cartesian) and belt-coupled
// (CoreXY/CoreXZ family) machines.
package kinematics

import "fmt"

// Model maps between a head-space delta (the move the upper layer asked
// for) and motor-space deltas (what each stepper must actually turn).
// AxisNames returns the identifiers used for the motor axes, in the
// fixed order motor-space slices are indexed by.
type Model interface {
	AxisNames() []string
	// ToMotorDelta converts a head-space Cartesian delta (dx, dy, dz) to
	// motor-space deltas, one per AxisNames() entry.
	ToMotorDelta(dx, dy, dz float64) []float64
	// HeadLength returns the Euclidean path length in head space for a
	// head-space delta, used for trapezoid distance math. This is
	// distinct from motor travel for core kinematics.
	HeadLength(dx, dy, dz float64) float64
	// FromMotorDelta is the inverse of ToMotorDelta, recovering a
	// head-space delta from motor-space deltas (e.g. to turn accumulated
	// step counts back into a reported position).
	FromMotorDelta(motor []float64) (dx, dy, dz float64)
}

// New constructs the Model for a named kinematics mode. k is the
// belt-coupling factor for core kinematics (ignored for cartesian,
// defaults to 1 if zero).
func New(mode string, k float64) (Model, error) {
	if k == 0 {
		k = 1
	}
	switch mode {
	case "cartesian":
		return Cartesian{}, nil
	case "corexy":
		return core2{names: [3]string{"A", "B", "Z"}, k: k, swap: false, coupled: axesXY}, nil
	case "coreyx":
		return core2{names: [3]string{"A", "B", "Z"}, k: k, swap: true, coupled: axesXY}, nil
	case "corexz":
		return core2{names: [3]string{"A", "C", "Y"}, k: k, swap: false, coupled: axesXZ}, nil
	case "corezx":
		return core2{names: [3]string{"A", "C", "Y"}, k: k, swap: true, coupled: axesXZ}, nil
	default:
		return nil, fmt.Errorf("kinematics: unknown mode %q", mode)
	}
}

// coupledPair identifies which two Cartesian axes drive the two
// belt-coupled motors; the remaining axis moves independently.
type coupledPair uint8

const (
	axesXY coupledPair = iota // third axis is Z
	axesXZ                    // third axis is Y
)
