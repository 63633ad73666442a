// Package telemetry is a one-way diagnostics transport: it frames the
// machine's latched real-time state (current block id, count_position,
// endstop_hit_bits) and writes it to any io.Writer, CRC16-checked the
// same way the Klipper wire protocol is. It is deliberately not the
// out-of-scope G-code/command channel; nothing decoded here is ever fed
// back into the planner or executor.
package telemetry

import "stepplan/planner"

// StatusSource is what a Reporter polls each cycle. *executor.Executor
// implements it directly.
type StatusSource interface {
	CurrentBlockID() uint32
	CountPosition() [planner.MaxAxes]int64
	AxisCount() int
	HitBits() uint32
}

// StatusSnapshot is one polled sample, independent of wire encoding.
type StatusSnapshot struct {
	Sequence       uint8
	Clock          uint32
	BlockID        uint32
	AxisCount      int
	CountPosition  [planner.MaxAxes]int64
	EndstopHitBits uint32
}

// Snapshot reads src and the given clock value into a StatusSnapshot.
// Sequence is left zero; callers that frame a stream of snapshots set
// it themselves (see Reporter).
func Snapshot(src StatusSource, clock uint32) StatusSnapshot {
	return StatusSnapshot{
		Clock:          clock,
		BlockID:        src.CurrentBlockID(),
		AxisCount:      src.AxisCount(),
		CountPosition:  src.CountPosition(),
		EndstopHitBits: src.HitBits(),
	}
}
