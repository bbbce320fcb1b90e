// Package transport defines the injected link to the powerbase and
// provides the TCP bridge implementation used for development. Real GATT
// connectivity lives outside this module and only has to satisfy the
// Transport interface and feed the notification channel.
package transport

import (
	"errors"

	"pitlane/pkg/protocol"
)

// Notification is one raw characteristic update pushed by the powerbase.
type Notification struct {
	Characteristic protocol.Characteristic
	Payload        []byte
}

// Transport is the write half of the link. WriteCharacteristic returns an
// error when the device refuses the write or the link is down; callers
// treat any error as a failed write.
type Transport interface {
	WriteCharacteristic(c protocol.Characteristic, payload []byte) error
}

// ErrNotConnected is returned by writes while the link is down.
var ErrNotConnected = errors.New("transport: not connected")
