package protocol_test

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"pitlane/pkg/protocol"
)

func slotFrame(status, slot byte, t1, t2, t3, t4 uint32) []byte {
	buf := make([]byte, protocol.SlotNotificationSize)
	buf[0] = status
	buf[1] = slot
	binary.LittleEndian.PutUint32(buf[2:6], t1)
	binary.LittleEndian.PutUint32(buf[6:10], t2)
	binary.LittleEndian.PutUint32(buf[10:14], t3)
	binary.LittleEndian.PutUint32(buf[14:18], t4)
	return buf
}

func TestDecodeSlotNotification(t *testing.T) {
	frame := slotFrame(0x02, 3, 500, 300, 510, 310)
	n, err := protocol.DecodeSlotNotification(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Status != 0x02 || n.SlotID != 3 {
		t.Fatalf("unexpected header: %+v", n)
	}
	if n.Lane1Entry != 500 || n.Lane2Entry != 300 || n.Lane1Exit != 510 || n.Lane2Exit != 310 {
		t.Fatalf("unexpected timestamps: %+v", n)
	}
}

func TestDecodeSlotNotificationShort(t *testing.T) {
	_, err := protocol.DecodeSlotNotification(make([]byte, 17))
	if !errors.Is(err, protocol.ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
}

func TestDecodeSlotNotificationIncomplete(t *testing.T) {
	_, err := protocol.DecodeSlotNotification(make([]byte, 6))
	if !errors.Is(err, protocol.ErrShortFrame) {
		t.Fatalf("expected ErrShortFrame, got %v", err)
	}
	var sf *protocol.ShortFrameError
	if !errors.As(err, &sf) {
		t.Fatalf("expected ShortFrameError, got %T", err)
	}
	if sf.Got != 6 || sf.Want != protocol.SlotNotificationSize {
		t.Fatalf("unexpected lengths: %+v", sf)
	}
}

func TestShortFrameWordingBoundary(t *testing.T) {
	cases := []struct {
		got  int
		want string
	}{
		{got: 9, want: "incomplete"},
		{got: 10, want: "short"},
		{got: 17, want: "short"},
	}
	for _, c := range cases {
		_, err := protocol.DecodeSlotNotification(make([]byte, c.got))
		if err == nil {
			t.Fatalf("%d bytes: expected error", c.got)
		}
		if !strings.Contains(err.Error(), c.want+" ") {
			t.Fatalf("%d bytes: error %q does not say %q", c.got, err, c.want)
		}
	}
}

func TestDecodeThrottleNotification(t *testing.T) {
	frame := []byte{0xAA, 0x3F, 0x40, 0x80, 0xC5}
	decoded, err := protocol.DecodeThrottleNotification(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Header != 0xAA {
		t.Fatalf("unexpected header: 0x%02x", decoded.Header)
	}
	want := []protocol.Controller{
		{Throttle: 63},
		{Brake: true},
		{LaneChange: true},
		{Throttle: 5, Brake: true, LaneChange: true},
	}
	if len(decoded.Controllers) != len(want) {
		t.Fatalf("unexpected controller count: %d", len(decoded.Controllers))
	}
	for i := range want {
		if decoded.Controllers[i] != want[i] {
			t.Fatalf("controller %d mismatch: got %+v want %+v", i, decoded.Controllers[i], want[i])
		}
	}
}

func TestDecodeThrottleNotificationCapsAtSixControllers(t *testing.T) {
	frame := make([]byte, 9)
	decoded, err := protocol.DecodeThrottleNotification(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded.Controllers) != protocol.NumSlots {
		t.Fatalf("expected %d controllers, got %d", protocol.NumSlots, len(decoded.Controllers))
	}
}

func TestDecodeThrottleNotificationEmpty(t *testing.T) {
	if _, err := protocol.DecodeThrottleNotification(nil); err == nil {
		t.Fatalf("expected error for empty throttle frame")
	}
}

func TestDecodeTrackNotification(t *testing.T) {
	decoded, err := protocol.DecodeTrackNotification([]byte{0x01, 0xDE, 0xAD})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Status != 0x01 || len(decoded.Payload) != 2 {
		t.Fatalf("unexpected track frame: %+v", decoded)
	}
}

func TestBuildThrottleProfileBlock(t *testing.T) {
	curve := make([]byte, protocol.CurveLength)
	for i := range curve {
		curve[i] = byte(i)
	}

	for k := 0; k < protocol.BlocksPerSlot; k++ {
		block, err := protocol.BuildThrottleProfileBlock(curve, k)
		if err != nil {
			t.Fatalf("block %d: unexpected error: %v", k, err)
		}
		if block[0] != byte(k) {
			t.Fatalf("block %d: wrong index byte %d", k, block[0])
		}
		for j := 0; j < 16; j++ {
			if block[1+j] != curve[k*16+j] {
				t.Fatalf("block %d byte %d: got %d want %d", k, j, block[1+j], curve[k*16+j])
			}
		}
	}
}

func TestBuildThrottleProfileBlockMisuse(t *testing.T) {
	curve := make([]byte, protocol.CurveLength)
	if _, err := protocol.BuildThrottleProfileBlock(curve, 6); !errors.Is(err, protocol.ErrBlockIndex) {
		t.Fatalf("expected ErrBlockIndex, got %v", err)
	}
	if _, err := protocol.BuildThrottleProfileBlock(curve, -1); !errors.Is(err, protocol.ErrBlockIndex) {
		t.Fatalf("expected ErrBlockIndex, got %v", err)
	}
	if _, err := protocol.BuildThrottleProfileBlock(make([]byte, 95), 0); !errors.Is(err, protocol.ErrCurveLength) {
		t.Fatalf("expected ErrCurveLength, got %v", err)
	}
}

func TestThrottleProfileCharacteristic(t *testing.T) {
	c, err := protocol.ThrottleProfileCharacteristic(1)
	if err != nil || c != protocol.CharThrottleProfile1 {
		t.Fatalf("slot 1: got %v, %v", c, err)
	}
	c, err = protocol.ThrottleProfileCharacteristic(6)
	if err != nil || c != protocol.CharThrottleProfile6 {
		t.Fatalf("slot 6: got %v, %v", c, err)
	}
	if _, err := protocol.ThrottleProfileCharacteristic(7); err == nil {
		t.Fatalf("expected error for slot 7")
	}
}
