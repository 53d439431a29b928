// Package brokertest provides an in-memory broker.Publisher.
package brokertest

import (
	"context"
	"sync"

	"github.com/fekuna/omnipos-pricing-service/internal/broker"
)

type Message struct {
	Key   string
	Event broker.Event
}

// Recorder keeps every published event in order.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (r *Recorder) Publish(_ context.Context, key string, event broker.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.messages = append(r.messages, Message{Key: key, Event: event})
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}
