package protocol

import "fmt"

// The development bridge link carries (characteristic, payload) records as
// COBS frames delimited by 0x00, so notification payloads may contain any
// byte value. Real GATT delivery has no framing layer; this codec exists
// for the TCP bridge and the mock powerbase.

// CobsEncode encodes data as a COBS frame without the trailing 0x00
// delimiter.
func CobsEncode(data []byte) []byte {
	out := make([]byte, 0, len(data)+1+len(data)/254)
	codeIdx := 0
	out = append(out, 0)
	code := byte(1)

	for _, b := range data {
		if b == 0 {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
			continue
		}
		out = append(out, b)
		code++
		if code == 0xFF {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
		}
	}
	out[codeIdx] = code
	return out
}

// CobsDecode decodes a COBS frame without the trailing 0x00 delimiter.
func CobsDecode(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, nil
	}

	out := make([]byte, 0, len(frame))
	for i := 0; i < len(frame); {
		code := frame[i]
		if code == 0 {
			return nil, fmt.Errorf("invalid COBS code 0x00")
		}
		i++

		count := int(code) - 1
		if i+count > len(frame) {
			return nil, fmt.Errorf("cobs frame truncated")
		}

		out = append(out, frame[i:i+count]...)
		i += count

		if code != 0xFF && i < len(frame) {
			out = append(out, 0x00)
		}
	}

	return out, nil
}
