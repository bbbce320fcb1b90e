package protocol

import "encoding/binary"

// SlotNotificationSize is the minimum wire size of a slot notification.
const SlotNotificationSize = 18

// SlotNotification carries the four lane sensor timestamps for one slot.
// All timestamps are 32-bit centisecond counters that wrap at 2^32.
type SlotNotification struct {
	Status     byte
	SlotID     byte // 1..6
	Lane1Entry uint32
	Lane2Entry uint32
	Lane1Exit  uint32
	Lane2Exit  uint32
}

// DecodeSlotNotification decodes an 18-byte slot frame. Timestamps are
// little-endian u32. Shorter input yields ErrShortFrame; the frame is
// dropped by callers, never partially applied.
func DecodeSlotNotification(data []byte) (SlotNotification, error) {
	if len(data) < SlotNotificationSize {
		return SlotNotification{}, &ShortFrameError{Characteristic: CharSlot, Got: len(data), Want: SlotNotificationSize}
	}
	return SlotNotification{
		Status:     data[0],
		SlotID:     data[1],
		Lane1Entry: binary.LittleEndian.Uint32(data[2:6]),
		Lane2Entry: binary.LittleEndian.Uint32(data[6:10]),
		Lane1Exit:  binary.LittleEndian.Uint32(data[10:14]),
		Lane2Exit:  binary.LittleEndian.Uint32(data[14:18]),
	}, nil
}

// Controller is one hand controller's state, unpacked from a single byte:
// bits 0-5 throttle, bit 6 brake, bit 7 lane-change.
type Controller struct {
	Throttle   byte // 0..63
	Brake      bool
	LaneChange bool
}

// ThrottleFrame is a decoded throttle notification: a header byte followed
// by up to six controller bytes.
type ThrottleFrame struct {
	Header      byte
	Controllers []Controller
}

// DecodeThrottleNotification decodes a throttle frame. Truncated controller
// arrays are tolerated: up to min(len-1, 6) controllers are decoded. Only a
// zero-length frame is an error.
func DecodeThrottleNotification(data []byte) (ThrottleFrame, error) {
	if len(data) < 1 {
		return ThrottleFrame{}, &ShortFrameError{Characteristic: CharThrottle, Got: 0, Want: 1}
	}
	n := len(data) - 1
	if n > NumSlots {
		n = NumSlots
	}
	frame := ThrottleFrame{
		Header:      data[0],
		Controllers: make([]Controller, n),
	}
	for i := 0; i < n; i++ {
		b := data[1+i]
		frame.Controllers[i] = Controller{
			Throttle:   b & 0x3F,
			Brake:      b&0x40 != 0,
			LaneChange: b&0x80 != 0,
		}
	}
	return frame, nil
}

// TrackNotification is a track status frame. Beyond the status byte the
// payload is opaque and passed through to consumers untouched.
type TrackNotification struct {
	Status  byte
	Payload []byte
}

// DecodeTrackNotification decodes a track frame.
func DecodeTrackNotification(data []byte) (TrackNotification, error) {
	if len(data) < 1 {
		return TrackNotification{}, &ShortFrameError{Characteristic: CharTrack, Got: 0, Want: 1}
	}
	return TrackNotification{
		Status:  data[0],
		Payload: append([]byte(nil), data[1:]...),
	}, nil
}
