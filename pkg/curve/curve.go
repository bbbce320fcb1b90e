// Package curve generates the 96-point throttle response curves the
// powerbase stores per slot, and slices them into upload blocks.
package curve

import (
	"fmt"
	"strings"

	"pitlane/pkg/protocol"
)

// Profile selects the shape of the throttle response curve.
type Profile int

const (
	Linear Profile = iota
	Exponential
	Stepped
)

var profileNames = map[Profile]string{
	Linear:      "linear",
	Exponential: "exponential",
	Stepped:     "stepped",
}

func (p Profile) String() string {
	if name, ok := profileNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParseProfile maps a config-file profile name to a Profile.
func ParseProfile(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear", "":
		return Linear, nil
	case "exponential", "exp":
		return Exponential, nil
	case "stepped", "step":
		return Stepped, nil
	}
	return Linear, fmt.Errorf("unknown throttle profile %q", name)
}

// Generate produces the 96-value response curve for a profile. Pure and
// deterministic; unknown profiles fall back to Linear.
func Generate(p Profile) [protocol.CurveLength]byte {
	var out [protocol.CurveLength]byte
	for i := 0; i < protocol.CurveLength; i++ {
		out[i] = value(p, i)
	}
	return out
}

func value(p Profile, i int) byte {
	switch p {
	case Exponential:
		f := float64(i+1) / protocol.CurveLength
		return byte(255.0 * f * f)
	case Stepped:
		band := i / (protocol.CurveLength / 4)
		return byte((band + 1) * 63)
	default:
		v := 256*(i+1)/protocol.CurveLength - 1
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		return byte(v)
	}
}

// SliceBlocks splits a curve into the six 17-byte transmit blocks, indexed
// 0..5 in upload order.
func SliceBlocks(curve []byte) ([protocol.BlocksPerSlot][protocol.ProfileBlockSize]byte, error) {
	var blocks [protocol.BlocksPerSlot][protocol.ProfileBlockSize]byte
	for k := 0; k < protocol.BlocksPerSlot; k++ {
		block, err := protocol.BuildThrottleProfileBlock(curve, k)
		if err != nil {
			return blocks, err
		}
		blocks[k] = block
	}
	return blocks, nil
}
