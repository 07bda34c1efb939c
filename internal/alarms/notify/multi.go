package notify

import (
	"context"
	"errors"
)

// ErrNoChannel is returned when a report has nowhere to go.
var ErrNoChannel = errors.New("notify: no delivery channel configured")

// Message is one rendered report.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// Channel delivers a rendered report.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// MultiChannel delivers to every channel and joins their errors.
type MultiChannel struct {
	channels []Channel
}

// NewMultiChannel constructs a MultiChannel, skipping nil channels.
func NewMultiChannel(channels ...Channel) *MultiChannel {
	m := &MultiChannel{}
	for _, ch := range channels {
		if ch != nil {
			m.channels = append(m.channels, ch)
		}
	}
	return m
}

// Len returns the number of channels.
func (m *MultiChannel) Len() int {
	if m == nil {
		return 0
	}
	return len(m.channels)
}

// Send forwards msg to all channels. An empty MultiChannel fails with ErrNoChannel.
func (m *MultiChannel) Send(ctx context.Context, msg Message) error {
	if m.Len() == 0 {
		return ErrNoChannel
	}
	var errs []error
	for _, ch := range m.channels {
		if err := ch.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
