package engine_test

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"pitlane/pkg/engine"
	"pitlane/pkg/protocol"
	"pitlane/pkg/timing"
	"pitlane/pkg/transport"
)

func startPipeline(t *testing.T) (context.CancelFunc, chan transport.Notification, chan engine.Event, *engine.Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	hub := engine.NewHub()
	go hub.Run(ctx)

	in := make(chan transport.Notification, 16)
	d := engine.NewDispatcher(hub, &timing.Set{})
	go d.Run(ctx, in)

	sub := hub.Subscribe()
	return cancel, in, sub, d
}

func slotNotification(slot byte, t1, t2 uint32) transport.Notification {
	payload := make([]byte, protocol.SlotNotificationSize)
	payload[1] = slot
	binary.LittleEndian.PutUint32(payload[2:6], t1)
	binary.LittleEndian.PutUint32(payload[6:10], t2)
	return transport.Notification{Characteristic: protocol.CharSlot, Payload: payload}
}

func waitEvent(t *testing.T, sub <-chan engine.Event) engine.Event {
	t.Helper()
	select {
	case ev := <-sub:
		return ev
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for event")
		return engine.Event{}
	}
}

func TestDispatcherEmitsLapEvents(t *testing.T) {
	cancel, in, sub, _ := startPipeline(t)
	defer cancel()

	// Baseline crossing produces no event.
	in <- slotNotification(4, 500, 300)
	in <- slotNotification(4, 500, 1300)

	ev := waitEvent(t, sub)
	if ev.Kind != engine.KindLap || ev.Slot != 4 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	lap, ok := ev.Data.(engine.LapEvent)
	if !ok {
		t.Fatalf("unexpected data type: %T", ev.Data)
	}
	if lap.Lap != 2 || lap.Lane != 2 || lap.Seconds != 8.0 || lap.BestSeconds != 8.0 {
		t.Fatalf("unexpected lap event: %+v", lap)
	}
}

func TestDispatcherDropsMalformedSlotFrames(t *testing.T) {
	cancel, in, sub, d := startPipeline(t)
	defer cancel()

	in <- transport.Notification{Characteristic: protocol.CharSlot, Payload: []byte{0x01, 0x02}}
	in <- slotNotification(9, 100, 0) // slot id out of range

	deadline := time.Now().Add(time.Second)
	for d.Dropped() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.Dropped() != 2 {
		t.Fatalf("dropped count: got %d want 2", d.Dropped())
	}

	select {
	case ev := <-sub:
		t.Fatalf("unexpected event from malformed frame: %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDispatcherEmitsControllerEvents(t *testing.T) {
	cancel, in, sub, _ := startPipeline(t)
	defer cancel()

	in <- transport.Notification{
		Characteristic: protocol.CharThrottle,
		Payload:        []byte{0x00, 0x3F, 0xC0},
	}

	first := waitEvent(t, sub)
	second := waitEvent(t, sub)

	c1, ok := first.Data.(engine.ControllerEvent)
	if !ok || c1.Slot != 1 || c1.Throttle != 63 || c1.Brake || c1.LaneChange {
		t.Fatalf("unexpected first controller event: %+v", first.Data)
	}
	c2, ok := second.Data.(engine.ControllerEvent)
	if !ok || c2.Slot != 2 || c2.Throttle != 0 || !c2.Brake || !c2.LaneChange {
		t.Fatalf("unexpected second controller event: %+v", second.Data)
	}
}

func TestDispatcherEmitsTrackEvents(t *testing.T) {
	cancel, in, sub, _ := startPipeline(t)
	defer cancel()

	in <- transport.Notification{Characteristic: protocol.CharTrack, Payload: []byte{0x07, 0x01}}

	ev := waitEvent(t, sub)
	track, ok := ev.Data.(engine.TrackEvent)
	if !ok || track.Status != 0x07 {
		t.Fatalf("unexpected track event: %+v", ev.Data)
	}
}

func TestDispatcherResetLaps(t *testing.T) {
	cancel, in, sub, d := startPipeline(t)
	defer cancel()

	in <- slotNotification(1, 500, 0)
	in <- slotNotification(1, 1300, 0)
	waitEvent(t, sub)

	d.ResetLaps()

	// First post-reset crossing must not be reported as a lap.
	in <- slotNotification(1, 9000, 0)
	select {
	case ev := <-sub:
		t.Fatalf("lap reported from post-reset baseline: %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHeartbeatErrorEvent(t *testing.T) {
	ev := engine.HeartbeatErrorEvent("write failed")
	if ev.Kind != engine.KindHeartbeatError {
		t.Fatalf("unexpected kind: %v", ev.Kind)
	}
	hb, ok := ev.Data.(engine.HeartbeatEvent)
	if !ok || hb.Message != "write failed" {
		t.Fatalf("unexpected data: %+v", ev.Data)
	}
}
