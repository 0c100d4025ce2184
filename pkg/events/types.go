// Package events defines the command event emitted after every dispatch and
// the publishers that deliver it.
package events

import "time"

// Transports a command can arrive on.
const (
	TransportHTTP  = "http"
	TransportComms = "comms"
)

// CommandEvent describes one dispatched command. It never carries params.
type CommandEvent struct {
	RequestID  string `json:"requestId"`
	Func       string `json:"func"`
	Transport  string `json:"transport"`
	Outcome    string `json:"outcome"`
	DurationMs int64  `json:"durationMs"`
	Timestamp  string `json:"timestamp"`
}

// NewCommandEvent fills Timestamp (RFC 3339, UTC) and DurationMs from start.
func NewCommandEvent(requestID, fn, transport, outcome string, start time.Time) *CommandEvent {
	now := time.Now()
	return &CommandEvent{
		RequestID:  requestID,
		Func:       fn,
		Transport:  transport,
		Outcome:    outcome,
		DurationMs: now.Sub(start).Milliseconds(),
		Timestamp:  now.UTC().Format(time.RFC3339Nano),
	}
}
