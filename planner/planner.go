package planner

import (
	"errors"
	"math"

	"stepplan/config"
	"stepplan/core"
	"stepplan/kinematics"
)

// GlobalState is the shared planner-side motion state: last commanded
// position and the junction-jerk bookkeeping carried from one
// plan_buffer_line call to the next.
type GlobalState struct {
	PositionMM           config.Position
	PositionSteps        [MaxAxes]int64
	PreviousSpeed        [MaxAxes]float64
	PreviousNominalSpeed float64
}

// Planner buffers moves into a RingBuffer and keeps their trapezoid
// profiles and junction speeds optimized across the whole buffer.
type Planner struct {
	cfg       *config.MachineConfig
	kin       kinematics.Model
	ring      *RingBuffer
	state     GlobalState
	extruders extruderLastMove
	idleYield func()

	// extrusionGate, if set, reports whether tool's hotend is hot enough
	// to extrude; a nil gate means temperature is never consulted (only
	// the per-tool MaxExtrudeLength check still applies).
	extrusionGate func(tool int) bool
}

// SetExtrusionGate installs the cold-extrude temperature check the
// extrusion-prevention policy consults. Pass nil to disable the
// temperature half of the check while leaving MaxExtrudeLength active.
func (p *Planner) SetExtrusionGate(gate func(tool int) bool) {
	p.extrusionGate = gate
}

var ErrUnknownTool = errors.New("planner: tool index out of range")

// New constructs a Planner over a fresh ring buffer sized from cfg.
func New(cfg *config.MachineConfig) (*Planner, error) {
	kin, err := kinematics.New(cfg.Mode, cfg.CoreFactor)
	if err != nil {
		return nil, err
	}
	return &Planner{
		cfg:       cfg,
		kin:       kin,
		ring:      NewRingBuffer(cfg.RingBufferCapacity),
		idleYield: func() {},
	}, nil
}

// SetIdleYield registers the hook called while plan_buffer_line waits
// for ring buffer space; the host's main loop would otherwise spin.
func (p *Planner) SetIdleYield(fn func()) {
	if fn == nil {
		fn = func() {}
	}
	p.idleYield = fn
}

// Ring exposes the underlying ring buffer to the executor package.
func (p *Planner) Ring() *RingBuffer { return p.ring }

// PlanSetPosition rewrites the planner's notion of current position
// without queuing a move, for G92-style "this is where we are now"
// updates. The caller is responsible for also calling the executor's
// st_set_position so the two stay consistent.
func (p *Planner) PlanSetPosition(pos config.Position) {
	p.state.PositionMM = pos
	for i := range p.state.PreviousSpeed {
		p.state.PreviousSpeed[i] = 0
	}
	p.state.PreviousNominalSpeed = 0
}

// PlanSetEPosition rewrites only the E component of the current
// position.
func (p *Planner) PlanSetEPosition(e float64) {
	p.state.PositionMM.E = e
}

// GetPosition returns the planner's last-commanded position.
func (p *Planner) GetPosition() config.Position {
	return p.state.PositionMM
}

// PlanBufferLine is the planner's ingress point: it takes a target
// position and feed rate, builds a trapezoid-profiled Block, appends it
// to the ring buffer, and re-runs look-ahead across the buffer.
//
// tool selects which ToolConfig (extruder) this move's E component is
// attributed to. It is validated and recorded as the block's ActiveTool
// for every move, including moves with no E delta.
func (p *Planner) PlanBufferLine(target config.Position, feedRateMMS float64, tool int) error {
	if tool < 0 || tool >= len(p.cfg.Tools) {
		return ErrUnknownTool
	}

	for p.ring.Full() {
		p.idleYield()
	}

	current := p.state.PositionMM
	dx := target.X - current.X
	dy := target.Y - current.Y
	dz := target.Z - current.Z
	de := target.E - current.E

	if p.cfg.ExtrusionPreventionEnabled && de != 0 {
		toolCfg := p.cfg.Tools[tool]
		tooLong := toolCfg.MaxExtrudeLength > 0 && math.Abs(de) > toolCfg.MaxExtrudeLength
		tooCold := p.extrusionGate != nil && !p.extrusionGate(tool)
		if tooLong || tooCold {
			core.RecordEvent(core.EvtColdExtrude, uint8(tool), core.GetTime(), 0, 0)
			de = 0
			target.E = current.E
		}
	}

	motorDelta := p.kin.ToMotorDelta(dx, dy, dz)
	headLength := p.kin.HeadLength(dx, dy, dz)
	axisNames := p.kin.AxisNames()

	b := p.ring.ReserveNext()
	*b = Block{}
	b.AxisCount = len(axisNames)
	b.ActiveTool = tool

	toolCfg := p.cfg.Tools[tool]

	var stepsPerMM [MaxAxes]float64
	for i, name := range axisNames {
		stepsPerMM[i] = axisStepsPerMM(p.cfg, name)
		steps := int64(math.Round(motorDelta[i] * stepsPerMM[i]))
		if steps < 0 {
			b.DirectionBits |= 1 << uint(i)
			steps = -steps
		}
		b.Steps[i] = uint32(steps)
	}
	eSteps := int64(math.Round(de * toolCfg.StepsPerMM))

	b.StepEventCount = b.stepEventCount()
	if eSteps != 0 && uint32(absInt64(eSteps)) > b.StepEventCount {
		b.StepEventCount = uint32(absInt64(eSteps))
	}
	b.Millimeters = headLength
	if b.Millimeters == 0 {
		b.Millimeters = math.Abs(de)
	}

	const dropSegments = 0
	if b.StepEventCount <= dropSegments {
		return nil // nothing to enqueue; target reached already
	}

	minFeed := p.cfg.MinTravelFeedrate
	if eSteps != 0 {
		minFeed = p.cfg.MinFeedrate
	}
	if feedRateMMS < minFeed {
		feedRateMMS = minFeed
	}

	moveTime := b.Millimeters / feedRateMMS
	if moveTime <= 0 {
		moveTime = 1e-6
	}

	speedFactor := 1.0
	axisSpeed := [MaxAxes]float64{}
	for i, name := range axisNames {
		v := motorDelta[i] / moveTime
		axisSpeed[i] = v
		if maxFeed := axisMaxVelocity(p.cfg, name); maxFeed > 0 {
			if f := maxFeed / math.Abs(v); v != 0 && f < speedFactor {
				speedFactor = f
			}
		}
	}
	eSpeed := de / moveTime

	nominalSpeed := (b.Millimeters / moveTime) * speedFactor
	if nominalSpeed <= 0 {
		nominalSpeed = MinPlannerSpeed
	}
	b.NominalSpeed = nominalSpeed
	b.NominalRate = uint32(math.Round(float64(b.StepEventCount) * nominalSpeed / b.Millimeters))
	if b.NominalRate < minStepRate {
		b.NominalRate = minStepRate
	}

	// Buffer-starvation stretch: if the queue is shallow, slow the move
	// toward MinSegmentTimeUS so the executor doesn't starve waiting on
	// the next block.
	queued := p.ring.Len()
	if queued > 1 && queued < p.ring.Capacity()/2 {
		segUS := moveTime * 1e6
		minUS := p.cfg.MinSegmentTimeUS
		if segUS < minUS {
			scale := segUS / minUS
			if scale > 0 {
				nominalSpeed *= scale
				b.NominalSpeed = nominalSpeed
				b.NominalRate = uint32(math.Round(float64(b.NominalRate) * scale))
				if b.NominalRate < minStepRate {
					b.NominalRate = minStepRate
				}
			}
		}
	}

	accelMMS2 := p.selectAcceleration(b, de)
	b.AccelerationMMS2 = accelMMS2
	b.AccelerationSt = clampPerAxisAcceleration(p.cfg, axisNames, b, accelMMS2)
	b.AccelerationRate = accelerationRateFixedPoint(b.AccelerationSt, core.StepTimerFreq)

	vJunction := p.junctionSpeed(b, axisSpeed, eSpeed)
	b.MaxEntrySpeed = vJunction

	vAllowable := maxReachable(-b.AccelerationMMS2, MinPlannerSpeed, b.Millimeters)
	b.EntrySpeed = min64(vJunction, vAllowable)
	b.NominalLengthFlag = b.NominalSpeed <= vAllowable
	b.RecalculateFlag = true

	safeSpeed := vJunction
	calculateTrapezoidForBlock(b, b.EntrySpeed/b.NominalSpeed, safeSpeed/b.NominalSpeed)

	p.ring.Publish()

	p.state.PositionMM = target
	for i := range axisNames {
		p.state.PreviousSpeed[i] = axisSpeed[i]
	}
	p.state.PreviousSpeed[3] = eSpeed
	p.state.PreviousNominalSpeed = b.NominalSpeed

	p.extruders.noteMoveForTool(tool, p.ring.Capacity(), p.disableExtruderDriver)

	core.Critical(func() {
		p.recalculate()
	})

	return nil
}

// disableExtruderDriver drops the enable pin for the extruder driver at
// the given index once its idle countdown reaches zero. Tools with no
// EnablePin configured (simulated machines, or extra driver slots beyond
// the configured tool count) are silently skipped.
func (p *Planner) disableExtruderDriver(driver int) {
	if driver < 0 || driver >= len(p.cfg.Tools) {
		return
	}
	pinName := p.cfg.Tools[driver].EnablePin
	if pinName == "" {
		return
	}
	pin := config.ResolvePin(pinName)
	level := !p.cfg.Tools[driver].InvertEnable
	_ = core.MustGPIO().SetPin(pin, level)
	core.RecordEvent(core.EvtDriverIdle, uint8(driver), core.GetTime(), 0, 0)
}

// junctionSpeed implements the jerk-limited cornering speed: start from
// a safe fallback (half the XY jerk budget, clamped down for Z/E jerk
// and the block's own nominal speed), then replace it with the full
// jerk-computation result when a previous block exists to compare
// against. These are two separate branches, not a blended formula,
// matching the control flow this is grounded on.
func (p *Planner) junctionSpeed(b *Block, axisSpeed [MaxAxes]float64, eSpeed float64) float64 {
	vJunction := p.cfg.MaxXYJerk / 2
	zSpeed := axisSpeed[zAxisIndex(p.kin)]
	if math.Abs(zSpeed) > p.cfg.MaxZJerk/2 {
		vJunction = min64(vJunction, p.cfg.MaxZJerk/2)
	}
	toolCfg := p.cfg.Tools[b.ActiveTool]
	if math.Abs(eSpeed) > toolCfg.MaxEJerk/2 {
		vJunction = min64(vJunction, toolCfg.MaxEJerk/2)
	}
	vJunction = min64(vJunction, b.NominalSpeed)

	if p.ring.Len() > 0 && p.state.PreviousNominalSpeed > 0.0001 {
		dsx := axisSpeed[0] - p.state.PreviousSpeed[0]
		dsy := axisSpeed[1] - p.state.PreviousSpeed[1]
		dsz := math.Abs(zSpeed - p.state.PreviousSpeed[zAxisIndex(p.kin)])
		dse := math.Abs(eSpeed - p.state.PreviousSpeed[3])
		jerkXY := math.Hypot(dsx, dsy)

		factor := 1.0
		if jerkXY > p.cfg.MaxXYJerk && jerkXY > 0 {
			factor = p.cfg.MaxXYJerk / jerkXY
		}
		if dsz > p.cfg.MaxZJerk && dsz > 0 {
			factor = min64(factor, p.cfg.MaxZJerk/dsz)
		}
		if dse > toolCfg.MaxEJerk && dse > 0 {
			factor = min64(factor, toolCfg.MaxEJerk/dse)
		}
		vJunction = min64(p.state.PreviousNominalSpeed, b.NominalSpeed*factor)
	}

	return vJunction
}

// selectAcceleration picks travel/retract/print acceleration the way
// the source does: a move with no extrusion uses TravelAcceleration; a
// move that only extrudes (no XYZ motion) uses the active tool's
// RetractAcceleration; everything else uses the machine default.
func (p *Planner) selectAcceleration(b *Block, de float64) float64 {
	xyz := hasXYZMotion(b)
	switch {
	case !xyz && de != 0:
		return p.cfg.Tools[b.ActiveTool].RetractAcceleration
	case xyz && de == 0:
		return p.cfg.TravelAcceleration
	default:
		return p.cfg.DefaultAccel
	}
}

func hasXYZMotion(b *Block) bool {
	for i := 0; i < b.AxisCount; i++ {
		if b.Steps[i] != 0 {
			return true
		}
	}
	return false
}

func zAxisIndex(kin kinematics.Model) int {
	names := kin.AxisNames()
	for i, n := range names {
		if n == "Z" {
			return i
		}
	}
	return len(names) - 1
}

func axisStepsPerMM(cfg *config.MachineConfig, axis string) float64 {
	if a, ok := cfg.Axes[axis]; ok {
		return a.StepsPerMM
	}
	return 1
}

func axisMaxVelocity(cfg *config.MachineConfig, axis string) float64 {
	if a, ok := cfg.Axes[axis]; ok {
		return a.MaxVelocity
	}
	return 0
}

// clampPerAxisAcceleration converts accelMMS2 to steps/s^2 scaled by the
// Bresenham master axis, then clamps it so no single motor axis exceeds
// its own configured MaxAccel, scaled by that axis's share of the
// block's total step count.
func clampPerAxisAcceleration(cfg *config.MachineConfig, axisNames []string, b *Block, accelMMS2 float64) float64 {
	if b.Millimeters == 0 || b.StepEventCount == 0 {
		return 0
	}
	accelSt := accelMMS2 * float64(b.StepEventCount) / b.Millimeters

	for i, name := range axisNames {
		if b.Steps[i] == 0 {
			continue
		}
		axisMaxAccel := axisMaxAcceleration(cfg, name)
		if axisMaxAccel <= 0 {
			continue
		}
		stepsPerMM := axisStepsPerMM(cfg, name)
		axisMaxAccelSt := axisMaxAccel * stepsPerMM
		candidate := axisMaxAccelSt * float64(b.StepEventCount) / float64(b.Steps[i])
		if candidate < accelSt {
			accelSt = candidate
		}
	}
	return accelSt
}

func axisMaxAcceleration(cfg *config.MachineConfig, axis string) float64 {
	if a, ok := cfg.Axes[axis]; ok {
		return a.MaxAccel
	}
	return 0
}

// accelerationRateFixedPoint precomputes the 24.8-style scale factor the
// executor's ISR multiplies its elapsed-time accumulator by:
// rate_delta = (accelerationRate * elapsedTicks) >> 24. elapsedTicks
// accumulates in core.CalcTimer's own tick base (core.StepTimerFreq),
// so timerFreq here must be that same base or the two disagree.
func accelerationRateFixedPoint(accelerationSt float64, timerFreq uint32) uint32 {
	if accelerationSt <= 0 {
		return 0
	}
	return uint32(accelerationSt * 16777216.0 / float64(timerFreq))
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
