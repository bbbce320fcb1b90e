// Package logger writes the event stream as JSON Lines, one decoded event
// per line.
package logger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"time"

	"pitlane/pkg/engine"
)

type JSONLWriter struct {
	enc *json.Encoder
}

type jsonRecord struct {
	TS         string `json:"ts"`
	Kind       string `json:"kind"`
	Slot       int    `json:"slot,omitempty"`
	PayloadHex string `json:"payload_hex,omitempty"`
	Data       any    `json:"data,omitempty"`
}

func NewJSONLWriter(w io.Writer) *JSONLWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{enc: enc}
}

func (j *JSONLWriter) Consume(ctx context.Context, in <-chan engine.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			ts := ev.Timestamp
			if ts.IsZero() {
				ts = time.Now()
			}
			_ = j.enc.Encode(jsonRecord{
				TS:         ts.UTC().Format(time.RFC3339Nano),
				Kind:       ev.Kind.String(),
				Slot:       ev.Slot,
				PayloadHex: hex.EncodeToString(ev.Payload),
				Data:       ev.Data,
			})
		}
	}
}
