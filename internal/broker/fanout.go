// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package broker

import (
	"context"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/beacon-watch/beacon/internal/logging"
	"github.com/beacon-watch/beacon/internal/metrics"
	"github.com/beacon-watch/beacon/internal/models"
)

// FanoutPublisher emits tick and website lifecycle events over core NATS.
// Delivery is at-most-once; the persisted tick is the durable record, so a
// dropped event only costs a missed live update.
type FanoutPublisher struct {
	nc         *natsgo.Conn
	serializer *Serializer
	breaker    *gobreaker.CircuitBreaker[any]
}

// NewFanoutPublisher wraps an existing NATS connection.
func NewFanoutPublisher(nc *natsgo.Conn) *FanoutPublisher {
	return &FanoutPublisher{
		nc:         nc,
		serializer: NewSerializer(),
	}
}

// WithCircuitBreaker adds a breaker around publishes. The worker uses this
// so a broker outage degrades to skipped live updates instead of a stalled
// probe loop.
func (p *FanoutPublisher) WithCircuitBreaker(name string) *FanoutPublisher {
	p.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("fan-out breaker state change")
		},
	})
	return p
}

// PublishTick emits a tick event on the ticks subject.
func (p *FanoutPublisher) PublishTick(ev *models.TickEvent) error {
	data, err := p.serializer.MarshalTickEvent(ev)
	if err != nil {
		return err
	}
	if err := p.publish(SubjectTicks, data); err != nil {
		return fmt.Errorf("publish tick for website %s: %w", ev.WebsiteID, err)
	}
	metrics.RecordTickPublished()
	return nil
}

// PublishWebsiteEvent emits a lifecycle event on the websites subject.
func (p *FanoutPublisher) PublishWebsiteEvent(ev *models.WebsiteEvent) error {
	data, err := p.serializer.MarshalWebsiteEvent(ev)
	if err != nil {
		return err
	}
	if err := p.publish(SubjectWebsites, data); err != nil {
		return fmt.Errorf("publish website %s event for %s: %w", ev.Kind, ev.WebsiteID, err)
	}
	return nil
}

func (p *FanoutPublisher) publish(subject string, data []byte) error {
	if p.breaker == nil {
		return p.nc.Publish(subject, data)
	}
	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.nc.Publish(subject, data)
	})
	return err
}

// Connected reports whether the underlying NATS connection is up.
func (p *FanoutPublisher) Connected() bool {
	return p.nc.Status() == natsgo.CONNECTED
}

// FanoutSubscriber receives fan-out events for the gateway bridge.
type FanoutSubscriber struct {
	nc   *natsgo.Conn
	subs []*natsgo.Subscription
}

// NewFanoutSubscriber wraps an existing NATS connection.
func NewFanoutSubscriber(nc *natsgo.Conn) *FanoutSubscriber {
	return &FanoutSubscriber{nc: nc}
}

// Subscribe delivers raw payloads from subject on the returned channel
// until ctx is canceled. The channel is buffered; if the consumer falls
// behind, events are dropped with a warning rather than blocking NATS.
// The channel is never closed: an async callback already in flight when
// the subscription is torn down may still send, so consumers must select
// on ctx instead of waiting for a close.
func (s *FanoutSubscriber) Subscribe(ctx context.Context, subject string) (<-chan []byte, error) {
	ch := make(chan []byte, 256)

	sub, err := s.nc.Subscribe(subject, func(msg *natsgo.Msg) {
		select {
		case ch <- msg.Data:
		default:
			logging.Warn().Str("subject", subject).Msg("fan-out channel full, dropping event")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()

	return ch, nil
}

// Close drains all subscriptions.
func (s *FanoutSubscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
}
