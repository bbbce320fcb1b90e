package protocol

// NumSlots is the number of independently controlled car slots on the
// powerbase.
const NumSlots = 6

// Characteristic identifies one GATT characteristic of the powerbase
// service. The one-byte IDs are also used on the bridge wire format; the
// full UUIDs are what a real GATT transport resolves them to.
type Characteristic byte

const (
	CharCommand  Characteristic = 0x01
	CharSlot     Characteristic = 0x02
	CharThrottle Characteristic = 0x03
	CharTrack    Characteristic = 0x04

	// Six throttle-profile characteristics, one per slot.
	CharThrottleProfile1 Characteristic = 0x10
	CharThrottleProfile2 Characteristic = 0x11
	CharThrottleProfile3 Characteristic = 0x12
	CharThrottleProfile4 Characteristic = 0x13
	CharThrottleProfile5 Characteristic = 0x14
	CharThrottleProfile6 Characteristic = 0x15
)

// ServiceUUID is the powerbase GATT service.
const ServiceUUID = "00003b08-0000-1000-8000-00805f9b34fb"

var characteristicUUIDs = map[Characteristic]string{
	CharCommand:          "00003b09-0000-1000-8000-00805f9b34fb",
	CharSlot:             "00003b0a-0000-1000-8000-00805f9b34fb",
	CharThrottle:         "00003b0b-0000-1000-8000-00805f9b34fb",
	CharTrack:            "00003b0c-0000-1000-8000-00805f9b34fb",
	CharThrottleProfile1: "00003b0d-0000-1000-8000-00805f9b34fb",
	CharThrottleProfile2: "00003b0e-0000-1000-8000-00805f9b34fb",
	CharThrottleProfile3: "00003b0f-0000-1000-8000-00805f9b34fb",
	CharThrottleProfile4: "00003b10-0000-1000-8000-00805f9b34fb",
	CharThrottleProfile5: "00003b11-0000-1000-8000-00805f9b34fb",
	CharThrottleProfile6: "00003b12-0000-1000-8000-00805f9b34fb",
}

var characteristicNames = map[Characteristic]string{
	CharCommand:          "command",
	CharSlot:             "slot",
	CharThrottle:         "throttle",
	CharTrack:            "track",
	CharThrottleProfile1: "throttle-profile-1",
	CharThrottleProfile2: "throttle-profile-2",
	CharThrottleProfile3: "throttle-profile-3",
	CharThrottleProfile4: "throttle-profile-4",
	CharThrottleProfile5: "throttle-profile-5",
	CharThrottleProfile6: "throttle-profile-6",
}

// UUID returns the full 128-bit UUID string for the characteristic, or ""
// if the ID is unknown.
func (c Characteristic) UUID() string {
	return characteristicUUIDs[c]
}

func (c Characteristic) String() string {
	if name, ok := characteristicNames[c]; ok {
		return name
	}
	return "unknown"
}

// ThrottleProfileCharacteristic returns the profile characteristic for a
// slot id in [1,NumSlots].
func ThrottleProfileCharacteristic(slot int) (Characteristic, error) {
	if slot < 1 || slot > NumSlots {
		return 0, &SlotIDError{Slot: slot}
	}
	return CharThrottleProfile1 + Characteristic(slot-1), nil
}
