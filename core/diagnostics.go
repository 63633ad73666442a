package core

// DiagnosticSink receives human-readable diagnostic lines. The real-time
// executor never calls it directly (see RecordEvent); it is drained from
// the foreground, matching the teacher's split between a ring buffer
// written from interrupt context and a writer invoked only outside it.
type DiagnosticSink func(string)

// DiagnosticEvent captures one real-time occurrence for post-mortem
// inspection: a step-rate clamp, an endstop trigger, a block load, etc.
type DiagnosticEvent struct {
	Kind   uint8
	Axis   uint8
	Clock  uint32
	Value1 uint32
	Value2 uint32
}

// Diagnostic event kinds.
const (
	EvtBlockLoaded    = 1 // executor popped a block off the ring buffer
	EvtBlockDone      = 2 // block fully stepped and discarded
	EvtRateClamped    = 3 // calc_timer floored the interval at the 100-tick minimum
	EvtEndstopTrigger = 4 // an endstop's two-sample debounce latched
	EvtColdExtrude    = 5 // an E move was dropped by the temperature gate
	EvtQuickStop      = 6 // quick_stop discarded the queue
	EvtDriverIdle     = 7 // an extruder driver's enable pin was dropped after its idle countdown expired
)

const diagnosticRingSize = 32

var (
	diagnosticSink    DiagnosticSink = func(string) {}
	diagnosticEnabled bool

	diagRing     [diagnosticRingSize]DiagnosticEvent
	diagRingHead uint8
)

// SetDiagnosticSink registers where foreground-polled diagnostic text is
// delivered (UART, log file, telemetry frame, ...).
func SetDiagnosticSink(sink DiagnosticSink) {
	if sink == nil {
		sink = func(string) {}
	}
	diagnosticSink = sink
}

// SetDiagnosticsEnabled toggles whether Diagnosef actually reaches the
// sink. Event recording via RecordEvent is always active and cheap
// enough to run unconditionally in the ISR.
func SetDiagnosticsEnabled(enabled bool) {
	diagnosticEnabled = enabled
}

// Diagnosef writes a line to the diagnostic sink if enabled. Never call
// this from the stepper ISR; it may allocate and block.
func Diagnosef(msg string) {
	if diagnosticEnabled {
		diagnosticSink(msg)
	}
}

// RecordEvent appends an event to the fixed-size ring. Safe to call from
// the stepper ISR: no allocation, no blocking, always overwrites the
// oldest slot.
func RecordEvent(kind, axis uint8, clock, v1, v2 uint32) {
	idx := diagRingHead
	diagRing[idx] = DiagnosticEvent{Kind: kind, Axis: axis, Clock: clock, Value1: v1, Value2: v2}
	diagRingHead = (idx + 1) % diagnosticRingSize
}

// DrainEvents returns a copy of the ring buffer contents ordered oldest
// to newest. Call only from the foreground; it is not interrupt-safe
// against concurrent RecordEvent writes (mirrors the teacher's dump
// routine, which is documented as a shutdown/error-path-only call).
func DrainEvents() []DiagnosticEvent {
	out := make([]DiagnosticEvent, 0, diagnosticRingSize)
	start := diagRingHead
	for i := uint8(0); i < diagnosticRingSize; i++ {
		idx := (start + i) % diagnosticRingSize
		evt := diagRing[idx]
		if evt.Kind == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// ClearEvents resets the diagnostic ring buffer.
func ClearEvents() {
	for i := range diagRing {
		diagRing[i] = DiagnosticEvent{}
	}
	diagRingHead = 0
}
