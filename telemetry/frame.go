package telemetry

import (
	"errors"

	"stepplan/planner"
	"stepplan/protocol"
)

const frameSyncByte = 0x7e

var (
	ErrFrameTooShort  = errors.New("telemetry: frame shorter than its declared length")
	ErrBadSync        = errors.New("telemetry: missing trailing sync byte")
	ErrBadCRC         = errors.New("telemetry: CRC16 mismatch")
	ErrTooManyAxes    = errors.New("telemetry: axis count exceeds planner.MaxAxes")
	ErrTruncatedField = errors.New("telemetry: frame truncated mid-field")
)

// EncodeStatusFrame frames snap the way the wire protocol frames any
// other message: [length, sequence] header, a VLQ-encoded payload, and
// a CRC16 + sync-byte trailer covering everything before it.
func EncodeStatusFrame(seq uint8, snap StatusSnapshot) []byte {
	out := protocol.NewScratchOutput()

	out.Output([]byte{0, seq & protocol.MessageSeqMask})

	protocol.EncodeVLQUint(out, snap.Clock)
	protocol.EncodeVLQUint(out, snap.BlockID)
	axisCount := snap.AxisCount
	if axisCount > planner.MaxAxes {
		axisCount = planner.MaxAxes
	}
	protocol.EncodeVLQUint(out, uint32(axisCount))
	for i := 0; i < axisCount; i++ {
		protocol.EncodeVLQInt(out, int32(snap.CountPosition[i]))
	}
	protocol.EncodeVLQUint(out, snap.EndstopHitBits)

	length := out.CurPosition() + protocol.MessageTrailer
	out.Update(0, byte(length))

	crc := protocol.CRC16(out.Result())
	out.Output([]byte{byte(crc >> 8), byte(crc), frameSyncByte})

	return append([]byte(nil), out.Result()...)
}

// DecodeStatusFrame parses one frame written by EncodeStatusFrame off
// the front of data. It does not consume data; callers pop bytes off
// their own InputBuffer once a frame validates.
func DecodeStatusFrame(data []byte) (StatusSnapshot, error) {
	if len(data) < protocol.MessageMin {
		return StatusSnapshot{}, ErrFrameTooShort
	}
	length := int(data[0])
	if length < protocol.MessageMin || length > len(data) {
		return StatusSnapshot{}, ErrFrameTooShort
	}
	frame := data[:length]
	if frame[length-1] != frameSyncByte {
		return StatusSnapshot{}, ErrBadSync
	}

	body := frame[:length-protocol.MessageTrailer]
	wantCRC := uint16(frame[length-3])<<8 | uint16(frame[length-2])
	if protocol.CRC16(body) != wantCRC {
		return StatusSnapshot{}, ErrBadCRC
	}

	var snap StatusSnapshot
	snap.Sequence = body[1] & protocol.MessageSeqMask
	payload := body[protocol.MessageHeader:]

	clock, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return StatusSnapshot{}, ErrTruncatedField
	}
	blockID, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return StatusSnapshot{}, ErrTruncatedField
	}
	axisCountRaw, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return StatusSnapshot{}, ErrTruncatedField
	}
	if axisCountRaw > planner.MaxAxes {
		return StatusSnapshot{}, ErrTooManyAxes
	}
	axisCount := int(axisCountRaw)
	for i := 0; i < axisCount; i++ {
		v, err := protocol.DecodeVLQInt(&payload)
		if err != nil {
			return StatusSnapshot{}, ErrTruncatedField
		}
		snap.CountPosition[i] = int64(v)
	}
	hitBits, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return StatusSnapshot{}, ErrTruncatedField
	}

	snap.Clock = clock
	snap.BlockID = blockID
	snap.AxisCount = axisCount
	snap.EndstopHitBits = hitBits
	return snap, nil
}
