package events

import "context"

// EventPublisher is the interface for publishing command events.
type EventPublisher interface {
	PublishCommand(ctx context.Context, event *CommandEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (gateway without COMMS).
type NoOpPublisher struct{}

// PublishCommand is a no-op.
func (p *NoOpPublisher) PublishCommand(_ context.Context, _ *CommandEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *CommandEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *CommandEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishCommand calls the callback.
func (p *CallbackPublisher) PublishCommand(ctx context.Context, event *CommandEvent) error {
	return p.callback(ctx, event)
}
