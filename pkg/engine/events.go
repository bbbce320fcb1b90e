package engine

import "time"

// Kind discriminates the events flowing through the hub.
type Kind int

const (
	KindLap Kind = iota
	KindController
	KindTrack
	KindHeartbeatError
)

var kindNames = map[Kind]string{
	KindLap:            "lap",
	KindController:     "controller",
	KindTrack:          "track",
	KindHeartbeatError: "heartbeat-error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is the normalized payload flowing through the pipeline. Payload is
// the raw notification bytes; Data the decoded form.
type Event struct {
	Kind      Kind
	Slot      int // 0 when not slot-scoped
	Timestamp time.Time
	Payload   []byte
	Data      any
}

// LapEvent reports a completed lap.
type LapEvent struct {
	Slot        int     `json:"slot"`
	Lap         int     `json:"lap"`
	Lane        int     `json:"lane"`
	Seconds     float64 `json:"seconds"`
	BestSeconds float64 `json:"best_seconds"`
}

// ControllerEvent reports one hand controller's state.
type ControllerEvent struct {
	Slot       int  `json:"slot"`
	Throttle   byte `json:"throttle"`
	Brake      bool `json:"brake"`
	LaneChange bool `json:"lane_change"`
}

// TrackEvent passes a track status frame through undecoded.
type TrackEvent struct {
	Status byte `json:"status"`
}

// HeartbeatEvent surfaces a heartbeat failure; track power is no longer
// being maintained.
type HeartbeatEvent struct {
	Message string `json:"message"`
}

// HeartbeatErrorEvent wraps a heartbeat failure message for publishing.
func HeartbeatErrorEvent(message string) Event {
	return Event{
		Kind:      KindHeartbeatError,
		Timestamp: time.Now(),
		Data:      HeartbeatEvent{Message: message},
	}
}
