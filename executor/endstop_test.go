package executor

import "testing"

func TestEndstopRequiresTwoConsecutiveActiveReads(t *testing.T) {
	reads := []bool{false, true, false, true, true, true}
	idx := 0
	ep := &Endstop{ReadPin: func() bool {
		v := reads[idx]
		idx++
		return v
	}}

	var got []bool
	for i := 0; i < len(reads); i++ {
		got = append(got, ep.check())
	}

	want := []bool{false, false, false, false, true, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("read %d: got triggered=%v, want %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestEndstopBitMapping(t *testing.T) {
	cases := []struct {
		axis    int
		minSide bool
		want    uint32
	}{
		{0, true, EndstopHitXMin},
		{0, false, EndstopHitXMax},
		{1, true, EndstopHitYMin},
		{1, false, EndstopHitYMax},
		{2, true, EndstopHitZMin},
		{2, false, EndstopHitZMax},
	}
	for _, c := range cases {
		if got := endstopBitFor(c.axis, c.minSide); got != c.want {
			t.Errorf("endstopBitFor(%d, %v) = %#x, want %#x", c.axis, c.minSide, got, c.want)
		}
	}
}
