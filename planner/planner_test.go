package planner

import (
	"testing"

	"stepplan/config"
)

func newTestPlanner(t *testing.T, cfg *config.MachineConfig) *Planner {
	t.Helper()
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestPlanBufferLineSingleShortMove(t *testing.T) {
	cfg := config.DefaultCartesianConfig()
	p := newTestPlanner(t, cfg)

	if err := p.PlanBufferLine(config.Position{X: 10, Y: 0, Z: 0}, 50, 0); err != nil {
		t.Fatalf("PlanBufferLine: %v", err)
	}

	b := p.Ring().Current()
	if b == nil {
		t.Fatal("expected a queued block")
	}
	if b.StepEventCount == 0 {
		t.Fatal("expected nonzero step event count")
	}
	if b.DecelerateAfter < b.AccelerateUntil {
		t.Fatalf("decelerate-after (%d) before accelerate-until (%d)", b.DecelerateAfter, b.AccelerateUntil)
	}
	if b.DecelerateAfter > b.StepEventCount {
		t.Fatalf("decelerate-after (%d) exceeds step count (%d)", b.DecelerateAfter, b.StepEventCount)
	}
	if got := p.GetPosition(); got.X != 10 {
		t.Fatalf("position not updated: %+v", got)
	}
}

func TestPlanBufferLineCornerJerkLimitsEntrySpeed(t *testing.T) {
	cfg := config.DefaultCartesianConfig()
	cfg.MaxXYJerk = 5
	p := newTestPlanner(t, cfg)

	if err := p.PlanBufferLine(config.Position{X: 50, Y: 0, Z: 0}, 200, 0); err != nil {
		t.Fatalf("first move: %v", err)
	}
	if err := p.PlanBufferLine(config.Position{X: 50, Y: 50, Z: 0}, 200, 0); err != nil {
		t.Fatalf("second move (sharp corner): %v", err)
	}

	second := p.Ring().Peek(1)
	if second == nil {
		t.Fatal("expected two queued blocks")
	}
	// A 90-degree corner between a pure +X move and a pure +Y move changes
	// speed on both axes by the full nominal speed; with MaxXYJerk well
	// below that swing the junction speed must be clamped down, not just
	// inherit the second move's own nominal speed.
	if second.EntrySpeed >= second.NominalSpeed {
		t.Fatalf("expected jerk-limited entry speed below nominal; got entry=%v nominal=%v",
			second.EntrySpeed, second.NominalSpeed)
	}
}

func TestPlanBufferLineVeryShortSegmentNoPlateau(t *testing.T) {
	cfg := config.DefaultCartesianConfig()
	cfg.DefaultAccel = 500
	p := newTestPlanner(t, cfg)

	if err := p.PlanBufferLine(config.Position{X: 0.05, Y: 0, Z: 0}, 300, 0); err != nil {
		t.Fatalf("PlanBufferLine: %v", err)
	}

	b := p.Ring().Current()
	if b == nil {
		t.Fatal("expected a queued block")
	}
	// A segment this short at high requested feed rate cannot reach
	// cruise speed before it must start decelerating again: the
	// accelerate and decelerate phases should meet with no flat middle.
	if b.AccelerateUntil != b.DecelerateAfter {
		t.Fatalf("expected no cruise plateau, got accelerateUntil=%d decelerateAfter=%d stepCount=%d",
			b.AccelerateUntil, b.DecelerateAfter, b.StepEventCount)
	}
}

func TestPlanBufferLineCoreXYHeadLengthDrivesTrapezoid(t *testing.T) {
	cfg := config.DefaultCoreXYConfig()
	p := newTestPlanner(t, cfg)

	if err := p.PlanBufferLine(config.Position{X: 10, Y: 10, Z: 0}, 100, 0); err != nil {
		t.Fatalf("PlanBufferLine: %v", err)
	}

	b := p.Ring().Current()
	if b == nil {
		t.Fatal("expected a queued block")
	}
	// The head travels sqrt(200) mm even though each belt motor travels
	// 20mm; Millimeters must reflect head-space distance, not the longer
	// motor-space vector, or the trapezoid's time base would be wrong.
	const want = 14.142135623730951
	if d := b.Millimeters - want; d > 1e-6 || d < -1e-6 {
		t.Fatalf("expected head-space distance %v, got %v", want, b.Millimeters)
	}
	// CoreXY couples dx=dy=10 into motor deltas a=20, b=0; at 80 steps/mm
	// that is 1600 steps on the A motor and none on B.
	if b.Steps[0] != 1600 || b.Steps[1] != 0 {
		t.Fatalf("unexpected motor step counts: %v", b.Steps[:2])
	}
}

func TestPlanBufferLineUnknownToolRejected(t *testing.T) {
	cfg := config.DefaultCartesianConfig()
	p := newTestPlanner(t, cfg)

	if err := p.PlanBufferLine(config.Position{X: 1}, 50, len(cfg.Tools)); err == nil {
		t.Fatal("expected error for out-of-range tool index")
	}
}

func TestPlanBufferLineDropsColdExtrude(t *testing.T) {
	cfg := config.DefaultCartesianConfig()
	cfg.ExtrusionPreventionEnabled = true
	p := newTestPlanner(t, cfg)
	p.SetExtrusionGate(func(tool int) bool { return false })

	if err := p.PlanBufferLine(config.Position{X: 10, E: 5}, 50, 0); err != nil {
		t.Fatalf("PlanBufferLine: %v", err)
	}

	if got := p.GetPosition(); got.E != 0 {
		t.Fatalf("expected E component dropped by the cold-extrude gate, got E=%v", got.E)
	}
	b := p.Ring().Current()
	if b == nil {
		t.Fatal("expected the XY motion to still be queued")
	}
}

func TestPlanBufferLineDropsOverLongExtrude(t *testing.T) {
	cfg := config.DefaultCartesianConfig()
	cfg.ExtrusionPreventionEnabled = true
	cfg.Tools[0].MaxExtrudeLength = 50
	p := newTestPlanner(t, cfg)

	if err := p.PlanBufferLine(config.Position{E: 100}, 50, 0); err != nil {
		t.Fatalf("PlanBufferLine: %v", err)
	}
	if got := p.GetPosition(); got.E != 0 {
		t.Fatalf("expected over-long extrusion dropped, got E=%v", got.E)
	}
}

func TestPlanSetPositionResetsJerkHistory(t *testing.T) {
	cfg := config.DefaultCartesianConfig()
	p := newTestPlanner(t, cfg)

	if err := p.PlanBufferLine(config.Position{X: 50}, 200, 0); err != nil {
		t.Fatalf("PlanBufferLine: %v", err)
	}
	p.PlanSetPosition(config.Position{X: 50, Y: 50})
	if got := p.GetPosition(); got.X != 50 || got.Y != 50 {
		t.Fatalf("PlanSetPosition did not update position: %+v", got)
	}
	if p.state.PreviousNominalSpeed != 0 {
		t.Fatalf("expected jerk history reset, got previous nominal speed %v", p.state.PreviousNominalSpeed)
	}
}
