// Package timing derives lap times from the raw dual-lane centisecond
// timestamps reported in slot notifications.
package timing

import (
	"sync"

	"pitlane/pkg/protocol"
)

const centisecondsPerSecond = 100.0

// Engine is the per-slot lap state machine. The first crossing after a
// reset only establishes the timing baseline; laps are reported from the
// second crossing on. Not safe for concurrent use; one producer per slot.
type Engine struct {
	lap         int
	lane        int
	baseline    uint32
	hasBaseline bool
	lastLap     float64
	bestLap     float64
	hasBest     bool
}

// Result is the outcome of feeding one pair of lane timestamps to Update.
type Result struct {
	Completed   bool
	Lap         int
	Lane        int
	Seconds     float64
	BestSeconds float64
}

// Snapshot is a read-only copy of the engine state.
type Snapshot struct {
	Started     bool
	Lap         int
	Lane        int
	LastSeconds float64
	BestSeconds float64
}

// Update consumes the two lane entry timestamps of a slot notification.
// Each counter is monotonic per lane until it wraps at 2^32 centiseconds;
// the elapsed time is computed in 32-bit modular arithmetic so a wrap still
// yields the correct small delta.
func (e *Engine) Update(t1, t2 uint32) Result {
	// Ties go to lane 1. Observed device behavior, not a documented
	// protocol guarantee.
	crossing, lane := t1, 1
	if t2 > t1 {
		crossing, lane = t2, 2
	}

	if !e.hasBaseline {
		e.hasBaseline = true
		e.baseline = crossing
		e.lap = 1
		e.lane = lane
		return Result{Lap: e.lap, Lane: lane, BestSeconds: e.bestLap}
	}

	if crossing == e.baseline {
		// No new sensor event on either lane.
		return Result{Lap: e.lap, Lane: e.lane, BestSeconds: e.bestLap}
	}

	elapsed := crossing - e.baseline
	seconds := float64(elapsed) / centisecondsPerSecond

	e.lap++
	e.lane = lane
	e.lastLap = seconds
	if !e.hasBest || seconds < e.bestLap {
		e.bestLap = seconds
		e.hasBest = true
	}
	e.baseline = crossing

	return Result{
		Completed:   true,
		Lap:         e.lap,
		Lane:        lane,
		Seconds:     seconds,
		BestSeconds: e.bestLap,
	}
}

// Reset returns the engine to the awaiting-baseline state. Called on
// disconnect and reconnect: the counters restart across sessions, so the
// first notification afterwards must never be reported as a lap.
func (e *Engine) Reset() {
	*e = Engine{}
}

// Snapshot returns the current state for display.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Started:     e.hasBaseline,
		Lap:         e.lap,
		Lane:        e.lane,
		LastSeconds: e.lastLap,
		BestSeconds: e.bestLap,
	}
}

// Set owns one engine per slot and routes decoded slot notifications to
// them. Updates come from the single dispatcher goroutine; the lock exists
// because Reset and Snapshot are called from other goroutines
// (reconnection handling, display).
type Set struct {
	mu      sync.Mutex
	engines [protocol.NumSlots]Engine
}

// Update feeds a slot notification to its engine. Returns false for slot
// ids outside 1..6; the notification is dropped.
func (s *Set) Update(n protocol.SlotNotification) (Result, bool) {
	if n.SlotID < 1 || n.SlotID > protocol.NumSlots {
		return Result{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engines[n.SlotID-1].Update(n.Lane1Entry, n.Lane2Entry), true
}

// Reset resets every slot's engine.
func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.engines {
		s.engines[i].Reset()
	}
}

// SlotSnapshot returns the state of a slot id in 1..6; the zero snapshot
// otherwise.
func (s *Set) SlotSnapshot(id int) Snapshot {
	if id < 1 || id > protocol.NumSlots {
		return Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engines[id-1].Snapshot()
}
