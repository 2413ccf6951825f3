//go:build unit || e2e

package fake

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"academy-booking/internal/infra/gateway"
	"academy-booking/internal/pkg/config"
	"academy-booking/internal/usecase/shared"
)

// Gateway signs with the real client and answers CreateOrder from memory.
type Gateway struct {
	*gateway.Client

	mu     sync.Mutex
	calls  int
	delay  time.Duration
	errs   []error
	orders []shared.ExternalOrder
}

func NewGateway() *Gateway {
	client := gateway.NewClient(config.NewTestConfig().Payment, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &Gateway{Client: client}
}

// FailNext queues errors returned by the next CreateOrder calls, in order.
func (g *Gateway) FailNext(errs ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs = append(g.errs, errs...)
}

// SetDelay makes every CreateOrder take d, or until its context is done.
func (g *Gateway) SetDelay(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delay = d
}

func (g *Gateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*shared.ExternalOrder, error) {
	g.mu.Lock()
	g.calls++
	delay := g.delay
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		return nil, err
	}
	order := shared.ExternalOrder{
		ID:       fmt.Sprintf("order_%04d", len(g.orders)+1),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}
	g.orders = append(g.orders, order)
	return &order, nil
}

func (g *Gateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *Gateway) LastOrder() shared.ExternalOrder {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.orders) == 0 {
		return shared.ExternalOrder{}
	}
	return g.orders[len(g.orders)-1]
}

var _ shared.PaymentGateway = (*Gateway)(nil)
