//go:build unit || e2e

package fake

import (
	"context"
	"sync"

	"academy-booking/internal/usecase/shared"
)

type Message struct {
	RoutingKey string
	Body       []byte
}

type Publisher struct {
	mu       sync.Mutex
	Err      error
	Messages []Message
}

func (p *Publisher) Publish(_ context.Context, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Messages = append(p.Messages, Message{RoutingKey: routingKey, Body: body})
	return nil
}

var _ shared.EventPublisher = (*Publisher)(nil)
