// Package notifications routes live deliveries to the sink of each channel kind.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/strogmv/notifyevents/internal/domain"
	"github.com/strogmv/notifyevents/internal/pkg/circuitbreaker"
	"github.com/strogmv/notifyevents/internal/pkg/logger"
	"github.com/strogmv/notifyevents/internal/port"
)

// BreakerSettings configures the per-kind circuit breakers.
type BreakerSettings struct {
	Threshold   int
	Timeout     time.Duration
	HalfOpenMax int
}

type route struct {
	sink    port.ChannelSink
	breaker *circuitbreaker.Breaker
}

// Dispatcher delivers persisted events through the sink registered for their kind.
type Dispatcher struct {
	routes   map[domain.Kind]route
	timeout  time.Duration
	breakers BreakerSettings
}

// NewDispatcher builds a dispatcher. A zero timeout leaves the caller's deadline in place.
func NewDispatcher(timeout time.Duration, breakers BreakerSettings) *Dispatcher {
	if breakers.Threshold <= 0 {
		breakers.Threshold = 5
	}
	if breakers.Timeout <= 0 {
		breakers.Timeout = 30 * time.Second
	}
	if breakers.HalfOpenMax <= 0 {
		breakers.HalfOpenMax = 1
	}
	return &Dispatcher{
		routes:   make(map[domain.Kind]route),
		timeout:  timeout,
		breakers: breakers,
	}
}

// Register routes kind to sink behind its own breaker.
func (d *Dispatcher) Register(kind domain.Kind, sink port.ChannelSink) {
	d.routes[kind] = route{
		sink:    sink,
		breaker: circuitbreaker.NewBreaker("dispatch."+string(kind), d.breakers.Threshold, d.breakers.Timeout, d.breakers.HalfOpenMax),
	}
}

// Breaker returns the breaker guarding kind, or nil when kind is not routed.
func (d *Dispatcher) Breaker(kind domain.Kind) *circuitbreaker.Breaker {
	return d.routes[kind].breaker
}

// DispatchNow sends event through the sink of kind.
func (d *Dispatcher) DispatchNow(ctx context.Context, event domain.NotificationEvent, kind domain.Kind) error {
	r, ok := d.routes[kind]
	if !ok {
		return fmt.Errorf("notification channel %q is not supported", kind)
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	msg := port.DispatchMessage{
		EventID:     event.ID,
		Kind:        kind,
		MediumID:    event.NotificationMediumID,
		SendTo:      event.SendTo,
		Data:        event.Data,
		Attachments: event.Attachments,
	}
	err := r.breaker.Execute(func() error {
		return r.sink.Send(ctx, msg)
	})
	if err != nil {
		logger.From(ctx).Warn("Live dispatch failed",
			slog.Int64("event_id", event.ID),
			slog.String("kind", string(kind)),
			slog.String("breaker", r.breaker.State().String()),
			slog.Any("error", err))
		return fmt.Errorf("send via %s: %w", kind, err)
	}
	return nil
}

var _ port.LiveDispatcher = (*Dispatcher)(nil)
