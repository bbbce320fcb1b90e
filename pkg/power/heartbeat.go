// Package power owns everything that writes to the powerbase: the
// periodic heartbeat that keeps track power alive, the shutdown sequence,
// and the throttle-profile uploader. The device cuts power if the command
// frame stops arriving, so the heartbeat loop must neither stall nor
// flood the link.
package power

import (
	"context"
	"sync"
	"time"

	"pitlane/pkg/protocol"
	"pitlane/pkg/transport"
)

// DefaultInterval is the heartbeat period. The device watchdog tolerates
// roughly half a second of silence; 200ms leaves headroom for link jitter.
const DefaultInterval = 200 * time.Millisecond

// interWriteDelay paces consecutive writes in multi-frame sequences so the
// link is never flooded.
const interWriteDelay = 50 * time.Millisecond

// CommandSource supplies the frame for each heartbeat tick. Implemented by
// Controls; tests substitute fakes.
type CommandSource interface {
	CurrentFrame() protocol.CommandFrame
}

// HeartbeatError reports a failed heartbeat write. After one of these the
// loop has stopped and track power cannot be assumed to be maintained; the
// caller decides whether to restart.
type HeartbeatError struct {
	Message string
}

func (e HeartbeatError) Error() string {
	return "heartbeat: " + e.Message
}

// Heartbeat drives the periodic command-frame loop. One session at a time;
// Start while running is a no-op, Stop is idempotent.
type Heartbeat struct {
	tr       transport.Transport
	interval time.Duration
	errs     chan HeartbeatError

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type HeartbeatOption func(*Heartbeat)

func WithInterval(d time.Duration) HeartbeatOption {
	return func(h *Heartbeat) {
		if d > 0 {
			h.interval = d
		}
	}
}

func NewHeartbeat(tr transport.Transport, opts ...HeartbeatOption) *Heartbeat {
	h := &Heartbeat{
		tr:       tr,
		interval: DefaultInterval,
		errs:     make(chan HeartbeatError, 1),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Errors delivers at most one HeartbeatError per session.
func (h *Heartbeat) Errors() <-chan HeartbeatError {
	return h.errs
}

// Running reports whether a session is active.
func (h *Heartbeat) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancel != nil
}

// Start begins a heartbeat session. Each tick asks src for the current
// frame and writes it; writes happen inline on the loop goroutine, so they
// never overlap and a slow write delays the next tick instead of stacking.
func (h *Heartbeat) Start(src CommandSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		return
	}

	// A stale undelivered error from a previous session must not occupy
	// the slot this session's failure needs.
	select {
	case <-h.errs:
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	h.cancel = cancel
	h.done = done
	go h.run(ctx, src, done)
}

// Stop ends the session. It blocks until the loop goroutine has exited, so
// once Stop returns no further write is issued; a write already in flight
// completes first and its result is discarded.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (h *Heartbeat) run(ctx context.Context, src CommandSource, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame := src.CurrentFrame().Marshal()
			if ctx.Err() != nil {
				// Stopped while building the frame; do not write it.
				return
			}
			err := h.tr.WriteCharacteristic(protocol.CharCommand, frame[:])
			if ctx.Err() != nil {
				// Stopped mid-write; result discarded.
				return
			}
			if err != nil {
				h.fail(err)
				return
			}
		}
	}
}

// fail tears down the session and surfaces exactly one error. Fail-stop:
// continuing to heartbeat after a failed write risks frames the device may
// reject. Runs on the loop goroutine, so it must not wait on done.
func (h *Heartbeat) fail(err error) {
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
		h.done = nil
	}
	h.mu.Unlock()

	select {
	case h.errs <- HeartbeatError{Message: err.Error()}:
	default:
	}
}

// SendPowerOffSequence shuts track power down. The device latches ghost
// mode internally and ignores a plain power-off while latched, so the
// sequence is mandatory: a racing frame with all power zero and every
// ghost flag cleared, the inter-write delay, then the stop frame. Commonly
// runs during teardown; callers bound it with a short ctx deadline.
func SendPowerOffSequence(ctx context.Context, tr transport.Transport) error {
	unlatch := protocol.BuildCommand(protocol.PowerOnRacing, [protocol.NumSlots]protocol.SlotCommand{})
	if err := tr.WriteCharacteristic(protocol.CharCommand, unlatch[:]); err != nil {
		return err
	}

	timer := time.NewTimer(interWriteDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	stop := protocol.BuildCommand(protocol.NoPowerTimerStopped, [protocol.NumSlots]protocol.SlotCommand{})
	return tr.WriteCharacteristic(protocol.CharCommand, stop[:])
}
