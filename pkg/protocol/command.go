package protocol

// CommandType selects the powerbase operating mode carried in byte 0 of the
// command frame.
type CommandType byte

const (
	NoPowerTimerStopped CommandType = 0
	NoPowerTimerTicking CommandType = 1
	PowerOnRaceTrigger  CommandType = 2
	PowerOnRacing       CommandType = 3
	PowerOnTimerHalt    CommandType = 4
	NoPowerReboot       CommandType = 5
)

var commandTypeNames = map[CommandType]string{
	NoPowerTimerStopped: "no-power-timer-stopped",
	NoPowerTimerTicking: "no-power-timer-ticking",
	PowerOnRaceTrigger:  "power-on-race-trigger",
	PowerOnRacing:       "power-on-racing",
	PowerOnTimerHalt:    "power-on-timer-halt",
	NoPowerReboot:       "no-power-reboot",
}

func (t CommandType) String() string {
	if name, ok := commandTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// CommandFrameSize is the fixed wire size of a command frame.
const CommandFrameSize = 20

const maxPower = 0x3F

// SlotCommand is the per-slot portion of a command frame.
//
// PowerBitSix is transmitted as bit 6 of the power byte. Its device-side
// meaning is not documented; it is carried as an opaque pass-through bit.
type SlotCommand struct {
	Power       byte // 0..63, clamped on encode
	PowerBitSix bool
	Ghost       bool
	Rumble      byte
	Brake       byte
	Kers        bool
}

// CommandFrame is the decoded form of the 20-byte frame the heartbeat loop
// transmits on every tick.
type CommandFrame struct {
	Type  CommandType
	Slots [NumSlots]SlotCommand
}

// BuildCommand encodes a command frame. It is total: power values above 63
// are clamped, never rejected.
//
// Layout: [0] type, [1..6] power bytes (bits 0-5 power, bit 6 pass-through,
// bit 7 ghost), [7..12] rumble, [13..18] brake, [19] KERS bitmask.
func BuildCommand(t CommandType, slots [NumSlots]SlotCommand) [CommandFrameSize]byte {
	var out [CommandFrameSize]byte
	out[0] = byte(t)
	for i, s := range slots {
		p := s.Power
		if p > maxPower {
			p = maxPower
		}
		v := p & maxPower
		if s.PowerBitSix {
			v |= 0x40
		}
		if s.Ghost {
			v |= 0x80
		}
		out[1+i] = v
		out[7+i] = s.Rumble
		out[13+i] = s.Brake
		if s.Kers {
			out[19] |= 1 << i
		}
	}
	return out
}

// Marshal encodes the frame for transmission.
func (f CommandFrame) Marshal() [CommandFrameSize]byte {
	return BuildCommand(f.Type, f.Slots)
}

// DecodeCommand is the inverse of BuildCommand. Used by the mock powerbase
// and round-trip tests; the real device only ever receives this frame.
func DecodeCommand(data []byte) (CommandFrame, error) {
	if len(data) < CommandFrameSize {
		return CommandFrame{}, &ShortFrameError{Characteristic: CharCommand, Got: len(data), Want: CommandFrameSize}
	}
	f := CommandFrame{Type: CommandType(data[0])}
	for i := 0; i < NumSlots; i++ {
		v := data[1+i]
		f.Slots[i] = SlotCommand{
			Power:       v & maxPower,
			PowerBitSix: v&0x40 != 0,
			Ghost:       v&0x80 != 0,
			Rumble:      data[7+i],
			Brake:       data[13+i],
			Kers:        data[19]&(1<<i) != 0,
		}
	}
	return f, nil
}
