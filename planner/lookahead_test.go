package planner

import (
	"math"
	"testing"
)

func freshBlock(rb *RingBuffer, millimeters, nominalSpeed, accel float64, stepCount uint32) *Block {
	b := rb.ReserveNext()
	*b = Block{
		AxisCount:      1,
		Steps:          [MaxAxes]uint32{stepCount},
		StepEventCount: stepCount,
		Millimeters:    millimeters,
		NominalSpeed:   nominalSpeed,
		NominalRate:    uint32(nominalSpeed / millimeters * float64(stepCount)),
		AccelerationMMS2: accel,
		AccelerationSt:   accel * float64(stepCount) / millimeters,
		MaxEntrySpeed:    nominalSpeed,
		EntrySpeed:       nominalSpeed,
	}
	calculateTrapezoidForBlock(b, 1, 1)
	rb.Publish()
	return b
}

func TestRecalculateSingleBlockDeceleratesToStop(t *testing.T) {
	rb := NewRingBuffer(4)
	b := freshBlock(rb, 10, 100, 1000, 1000)

	p := &Planner{ring: rb}
	p.recalculate()

	if b.DecelerateAfter > b.StepEventCount {
		t.Fatalf("decelerateAfter %d exceeds step count %d", b.DecelerateAfter, b.StepEventCount)
	}
	if b.FinalRate > b.NominalRate {
		t.Fatalf("final rate %d should not exceed nominal rate %d for a lone block", b.FinalRate, b.NominalRate)
	}
}

func TestRecalculateTightensEntrySpeedAgainstSlowSuccessor(t *testing.T) {
	rb := NewRingBuffer(4)
	// A 1 mm first block at 1000 mm/s^2 cannot shed 200 -> 20 mm/s. Its
	// EntrySpeed starts below MaxEntrySpeed (the reverse pass does not
	// revisit blocks whose entry already sits at the ceiling).
	first := freshBlock(rb, 1, 200, 1000, 200)
	first.MaxEntrySpeed = 200
	first.EntrySpeed = 100
	first.NominalLengthFlag = false

	second := freshBlock(rb, 1, 20, 1000, 200)
	second.MaxEntrySpeed = 20
	second.EntrySpeed = 20

	p := &Planner{ring: rb}
	p.recalculate()

	// The reverse pass must have pulled the first block's entry speed
	// down to what it can decelerate from to meet the second block's
	// low entry speed, rather than leaving it at the full jerk ceiling.
	if first.EntrySpeed >= first.MaxEntrySpeed {
		t.Fatalf("expected reverse pass to tighten entry speed below the jerk ceiling, got %v", first.EntrySpeed)
	}
	want := math.Sqrt(20*20 + 2*1000*1)
	if math.Abs(first.EntrySpeed-want) > 1e-9 {
		t.Fatalf("expected entry speed %v (decelerate to 20 mm/s over 1 mm), got %v", want, first.EntrySpeed)
	}
}

func TestRecalculateSkipsBusyBlock(t *testing.T) {
	rb := NewRingBuffer(4)
	first := freshBlock(rb, 100, 200, 1000, 20000)
	first.Busy = true
	first.EntrySpeed = 5
	first.MaxEntrySpeed = 200
	savedEntry := first.EntrySpeed

	second := freshBlock(rb, 1, 20, 1000, 200)
	second.MaxEntrySpeed = 20
	second.EntrySpeed = 20

	p := &Planner{ring: rb}
	p.recalculate()

	if first.EntrySpeed != savedEntry {
		t.Fatalf("busy block's entry speed must not be touched by recalculate, got %v want %v", first.EntrySpeed, savedEntry)
	}
}
