package engine

import (
	"context"
	"sync/atomic"
	"time"

	"pitlane/pkg/protocol"
	"pitlane/pkg/timing"
	"pitlane/pkg/transport"
)

// Dispatcher is the single decode-and-dispatch step: it consumes raw
// notifications, decodes them, feeds slot frames through the lap engines,
// and publishes events. Running it as one goroutine keeps event ordering
// explicit and gives the lap engines a single producer.
type Dispatcher struct {
	hub          *Hub
	laps         *timing.Set
	dropped      atomic.Uint64
	errorHandler func(error)
}

type DispatcherOption func(*Dispatcher)

// WithDispatchErrorHandler receives every decode error. Malformed frames
// are dropped either way.
func WithDispatchErrorHandler(fn func(error)) DispatcherOption {
	return func(d *Dispatcher) {
		if fn != nil {
			d.errorHandler = fn
		}
	}
}

func NewDispatcher(hub *Hub, laps *timing.Set, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{hub: hub, laps: laps}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dropped returns how many malformed notifications were discarded.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// ResetLaps returns every slot's lap engine to the awaiting-baseline
// state. Call on reconnection so stale counters are never read as laps.
func (d *Dispatcher) ResetLaps() {
	d.laps.Reset()
}

// Run consumes notifications until ctx is cancelled or in is closed.
func (d *Dispatcher) Run(ctx context.Context, in <-chan transport.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-in:
			if !ok {
				return
			}
			d.dispatch(n)
		}
	}
}

func (d *Dispatcher) dispatch(n transport.Notification) {
	now := time.Now()
	switch n.Characteristic {
	case protocol.CharSlot:
		d.dispatchSlot(n.Payload, now)
	case protocol.CharThrottle:
		d.dispatchThrottle(n.Payload, now)
	case protocol.CharTrack:
		d.dispatchTrack(n.Payload, now)
	default:
		// Unknown characteristics are ignored, not errors: the device
		// notifies on characteristics this core does not consume.
	}
}

func (d *Dispatcher) dispatchSlot(payload []byte, now time.Time) {
	sn, err := protocol.DecodeSlotNotification(payload)
	if err != nil {
		d.drop(err)
		return
	}
	res, ok := d.laps.Update(sn)
	if !ok {
		d.drop(&protocol.SlotIDError{Slot: int(sn.SlotID)})
		return
	}
	if !res.Completed {
		return
	}
	d.hub.Publish(Event{
		Kind:      KindLap,
		Slot:      int(sn.SlotID),
		Timestamp: now,
		Payload:   payload,
		Data: LapEvent{
			Slot:        int(sn.SlotID),
			Lap:         res.Lap,
			Lane:        res.Lane,
			Seconds:     res.Seconds,
			BestSeconds: res.BestSeconds,
		},
	})
}

func (d *Dispatcher) dispatchThrottle(payload []byte, now time.Time) {
	tf, err := protocol.DecodeThrottleNotification(payload)
	if err != nil {
		d.drop(err)
		return
	}
	for i, c := range tf.Controllers {
		d.hub.Publish(Event{
			Kind:      KindController,
			Slot:      i + 1,
			Timestamp: now,
			Payload:   payload,
			Data: ControllerEvent{
				Slot:       i + 1,
				Throttle:   c.Throttle,
				Brake:      c.Brake,
				LaneChange: c.LaneChange,
			},
		})
	}
}

func (d *Dispatcher) dispatchTrack(payload []byte, now time.Time) {
	tn, err := protocol.DecodeTrackNotification(payload)
	if err != nil {
		d.drop(err)
		return
	}
	d.hub.Publish(Event{
		Kind:      KindTrack,
		Timestamp: now,
		Payload:   payload,
		Data:      TrackEvent{Status: tn.Status},
	})
}

func (d *Dispatcher) drop(err error) {
	d.dropped.Add(1)
	if d.errorHandler != nil {
		d.errorHandler(err)
	}
}
