package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrShortFrame marks notifications too short to decode. Callers are
	// expected to log and drop the frame, not abort.
	ErrShortFrame = errors.New("short frame")

	// ErrBlockIndex and ErrCurveLength indicate caller misuse of the
	// throttle-profile block builder.
	ErrBlockIndex  = errors.New("block index out of range")
	ErrCurveLength = errors.New("throttle curve must be 96 values")
)

// incompleteThreshold is the boundary below which a truncated notification
// is reported as incomplete rather than merely short.
const incompleteThreshold = 10

// ShortFrameError reports a notification shorter than its minimum decodable
// length. Frames under 10 bytes are reported as incomplete.
type ShortFrameError struct {
	Characteristic Characteristic
	Got            int
	Want           int
}

func (e *ShortFrameError) Error() string {
	if e.Want >= incompleteThreshold && e.Got < incompleteThreshold {
		return fmt.Sprintf("incomplete %s frame: %d of %d bytes", e.Characteristic, e.Got, e.Want)
	}
	return fmt.Sprintf("short %s frame: %d of %d bytes", e.Characteristic, e.Got, e.Want)
}

func (e *ShortFrameError) Is(target error) bool {
	return target == ErrShortFrame
}

// SlotIDError reports a slot id outside [1,NumSlots].
type SlotIDError struct {
	Slot int
}

func (e *SlotIDError) Error() string {
	return fmt.Sprintf("slot id %d out of range 1..%d", e.Slot, NumSlots)
}
