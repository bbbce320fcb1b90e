package protocol

import "fmt"

const (
	// CurveLength is the number of points in one slot's throttle response
	// curve.
	CurveLength = 96

	// ProfileBlockSize is the wire size of one curve block: index byte plus
	// 16 curve values.
	ProfileBlockSize = 17

	// BlocksPerSlot is how many blocks compose one slot's curve.
	BlocksPerSlot = 6

	blockPayload = 16
)

// BuildThrottleProfileBlock encodes block blockIndex (0..5) of a 96-value
// curve. A wrong curve length or block index is caller misuse and fails the
// call.
func BuildThrottleProfileBlock(curve []byte, blockIndex int) ([ProfileBlockSize]byte, error) {
	var out [ProfileBlockSize]byte
	if len(curve) != CurveLength {
		return out, fmt.Errorf("%w: got %d", ErrCurveLength, len(curve))
	}
	if blockIndex < 0 || blockIndex >= BlocksPerSlot {
		return out, fmt.Errorf("%w: %d", ErrBlockIndex, blockIndex)
	}
	out[0] = byte(blockIndex)
	copy(out[1:], curve[blockIndex*blockPayload:(blockIndex+1)*blockPayload])
	return out, nil
}
