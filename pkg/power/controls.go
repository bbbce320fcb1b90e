package power

import (
	"sync"

	"pitlane/pkg/curve"
	"pitlane/pkg/protocol"
)

// SlotControl is the externally-owned configuration for one slot: what the
// UI layer edits and the heartbeat transmits.
type SlotControl struct {
	Power       byte
	PowerBitSix bool
	Ghost       bool
	Rumble      byte
	Brake       byte
	Kers        bool
	Profile     curve.Profile
}

// Controls is the shared per-slot configuration store. UI code writes
// whole-slot updates; the heartbeat reads a consistent snapshot each tick.
// All access goes through the lock, so a tick never observes a
// half-applied update.
type Controls struct {
	mu    sync.RWMutex
	mode  protocol.CommandType
	slots [protocol.NumSlots]SlotControl
}

func NewControls() *Controls {
	return &Controls{mode: protocol.NoPowerTimerStopped}
}

// SetMode switches the command type transmitted on every tick.
func (c *Controls) SetMode(t protocol.CommandType) {
	c.mu.Lock()
	c.mode = t
	c.mu.Unlock()
}

// Mode returns the current command type.
func (c *Controls) Mode() protocol.CommandType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// SetSlot replaces the configuration of a slot id in 1..6 atomically.
func (c *Controls) SetSlot(id int, s SlotControl) error {
	if id < 1 || id > protocol.NumSlots {
		return &protocol.SlotIDError{Slot: id}
	}
	c.mu.Lock()
	c.slots[id-1] = s
	c.mu.Unlock()
	return nil
}

// Slot returns a copy of a slot's configuration; the zero value for ids
// outside 1..6.
func (c *Controls) Slot(id int) SlotControl {
	if id < 1 || id > protocol.NumSlots {
		return SlotControl{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slots[id-1]
}

// CurrentFrame implements CommandSource. It snapshots the store under the
// read lock and builds the frame from the snapshot.
func (c *Controls) CurrentFrame() protocol.CommandFrame {
	c.mu.RLock()
	mode := c.mode
	slots := c.slots
	c.mu.RUnlock()

	frame := protocol.CommandFrame{Type: mode}
	for i, s := range slots {
		frame.Slots[i] = protocol.SlotCommand{
			Power:       s.Power,
			PowerBitSix: s.PowerBitSix,
			Ghost:       s.Ghost,
			Rumble:      s.Rumble,
			Brake:       s.Brake,
			Kers:        s.Kers,
		}
	}
	return frame
}

// Curves generates the selected throttle curve for every slot, in slot
// order, ready for UploadProfiles.
func (c *Controls) Curves() [protocol.NumSlots][]byte {
	c.mu.RLock()
	slots := c.slots
	c.mu.RUnlock()

	var out [protocol.NumSlots][]byte
	for i, s := range slots {
		generated := curve.Generate(s.Profile)
		out[i] = generated[:]
	}
	return out
}
