package main

import (
	"testing"

	"pitlane/pkg/protocol"
	"pitlane/pkg/timing"
)

func TestMockCarCrossingsDriveLapEngine(t *testing.T) {
	grid := newMockGrid(1, 500)
	car := grid[0]

	var eng timing.Engine
	laps := 0
	var now uint32
	for now = 0; now < 5000; now += centisPerTick {
		frame, crossed := car.advance(now)
		if !crossed {
			continue
		}
		sn, err := protocol.DecodeSlotNotification(frame)
		if err != nil {
			t.Fatalf("mock emitted undecodable frame: %v", err)
		}
		if sn.SlotID != 1 {
			t.Fatalf("unexpected slot id %d", sn.SlotID)
		}
		res := eng.Update(sn.Lane1Entry, sn.Lane2Entry)
		if res.Completed {
			laps++
			// Period 500 centiseconds plus bounded jitter.
			if res.Seconds < 4.5 || res.Seconds > 6.5 {
				t.Fatalf("implausible mock lap time: %v", res.Seconds)
			}
		}
	}
	if laps < 5 {
		t.Fatalf("expected at least 5 laps, got %d", laps)
	}
}

func TestMockCarAlternatesLanes(t *testing.T) {
	grid := newMockGrid(1, 200)
	car := grid[0]

	var lanes []int
	var eng timing.Engine
	for now := uint32(0); now < 3000; now += centisPerTick {
		frame, crossed := car.advance(now)
		if !crossed {
			continue
		}
		sn, _ := protocol.DecodeSlotNotification(frame)
		res := eng.Update(sn.Lane1Entry, sn.Lane2Entry)
		lanes = append(lanes, res.Lane)
	}
	if len(lanes) < 4 {
		t.Fatalf("too few crossings: %d", len(lanes))
	}
	for i := 1; i < len(lanes); i++ {
		if lanes[i] == lanes[i-1] {
			t.Fatalf("lane did not alternate at crossing %d: %v", i, lanes)
		}
	}
}

func TestMockThrottleFrameDecodes(t *testing.T) {
	frame := mockThrottleFrame(7, 4)
	decoded, err := protocol.DecodeThrottleNotification(frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded.Controllers) != 4 {
		t.Fatalf("controller count: %d", len(decoded.Controllers))
	}
	for i, c := range decoded.Controllers {
		if c.Throttle > 63 {
			t.Fatalf("controller %d throttle out of range: %d", i, c.Throttle)
		}
	}
}
