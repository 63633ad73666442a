package telemetry

import (
	"io"

	"stepplan/core"
)

// Reporter polls a StatusSource and writes framed status snapshots to
// an io.Writer. It carries its own sequence counter, incremented once
// per successful write, matching the teacher's wire messages.
type Reporter struct {
	dst StatusSource
	w   io.Writer
	seq uint8
}

// NewReporter builds a Reporter that polls src and writes to w. w is
// typically a *host/serial.NativePort, but any io.Writer works, which
// is what makes this package's tests able to target a bytes.Buffer
// instead of real hardware.
func NewReporter(src StatusSource, w io.Writer) *Reporter {
	return &Reporter{dst: src, w: w}
}

// PublishOnce polls src for a fresh snapshot and writes one framed
// message. CountPosition is a single core.Critical snapshot and HitBits
// an atomic load, same as any other foreground read of executor state.
func (r *Reporter) PublishOnce() error {
	snap := Snapshot(r.dst, core.GetTime())
	frame := EncodeStatusFrame(r.seq, snap)
	_, err := r.w.Write(frame)
	if err == nil {
		r.seq++
	}
	return err
}
