package kinematics

import "testing"

func approxEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

func TestCartesianRoundTrip(t *testing.T) {
	m := Cartesian{}
	motor := m.ToMotorDelta(10, -5, 2)
	dx, dy, dz := m.FromMotorDelta(motor)
	if !approxEqual(dx, 10) || !approxEqual(dy, -5) || !approxEqual(dz, 2) {
		t.Fatalf("round trip mismatch: got (%v,%v,%v)", dx, dy, dz)
	}
}

func TestCoreXYHeadLength(t *testing.T) {
	m, err := New("corexy", 1)
	if err != nil {
		t.Fatal(err)
	}
	motor := m.ToMotorDelta(10, 10, 0)
	if motor[0] != 20 || motor[1] != 0 {
		t.Fatalf("unexpected motor delta %v", motor)
	}
	length := m.HeadLength(10, 10, 0)
	if !approxEqual(length, 14.142135623730951) {
		t.Fatalf("unexpected head length %v", length)
	}
}

func TestCoreXYRoundTrip(t *testing.T) {
	m, err := New("corexy", 1)
	if err != nil {
		t.Fatal(err)
	}
	motor := m.ToMotorDelta(3, -7, 1.5)
	dx, dy, dz := m.FromMotorDelta(motor)
	if !approxEqual(dx, 3) || !approxEqual(dy, -7) || !approxEqual(dz, 1.5) {
		t.Fatalf("round trip mismatch: got (%v,%v,%v)", dx, dy, dz)
	}
}

func TestCoreZXRoundTrip(t *testing.T) {
	m, err := New("corezx", 1)
	if err != nil {
		t.Fatal(err)
	}
	motor := m.ToMotorDelta(4, 2, -6)
	dx, dy, dz := m.FromMotorDelta(motor)
	if !approxEqual(dx, 4) || !approxEqual(dy, 2) || !approxEqual(dz, -6) {
		t.Fatalf("round trip mismatch: got (%v,%v,%v)", dx, dy, dz)
	}
}

func TestUnknownMode(t *testing.T) {
	if _, err := New("delta", 1); err == nil {
		t.Fatal("expected error for unsupported mode")
	}
}
