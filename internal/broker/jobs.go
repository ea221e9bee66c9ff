// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/beacon-watch/beacon/internal/metrics"
	"github.com/beacon-watch/beacon/internal/models"
)

// JobPublisher appends probe jobs to the JetStream stream. Used by the
// producer only.
type JobPublisher struct {
	publisher  message.Publisher
	serializer *Serializer
	logger     watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewJobPublisher creates a JetStream-backed publisher. The stream must
// already exist; provisioning belongs to StreamInitializer.
func NewJobPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*JobPublisher, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("job publisher disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("job publisher reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create job publisher: %w", err)
	}

	return &JobPublisher{
		publisher:  pub,
		serializer: NewSerializer(),
		logger:     logger,
	}, nil
}

// PublishJobs appends one message per job. Returns on the first failure;
// the producer treats a partial batch as a failed cycle and retries whole
// websites next cycle, which is harmless because probes are idempotent.
func (p *JobPublisher) PublishJobs(ctx context.Context, jobs []models.ProbeJob) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("job publisher is closed")
	}
	p.mu.RUnlock()

	for i := range jobs {
		data, err := p.serializer.MarshalJob(&jobs[i])
		if err != nil {
			return err
		}
		msg := message.NewMessage(watermill.NewUUID(), data)
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)

		if err := p.publisher.Publish(TopicProbeJobs, msg); err != nil {
			return fmt.Errorf("publish job for website %s: %w", jobs[i].ID, err)
		}
		metrics.RecordJobPublished()
	}
	return nil
}

// Close shuts the publisher down.
func (p *JobPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// JobSubscriber is one region's durable view of the probe stream. Workers
// in the same region share the durable consumer, so jobs load-balance
// within a region while every region sees every job.
type JobSubscriber struct {
	subscriber message.Subscriber
	config     SubscriberConfig
	logger     watermill.LoggerAdapter
}

// NewJobSubscriber creates a durable queue-group subscriber for a region.
func NewJobSubscriber(cfg SubscriberConfig, logger watermill.LoggerAdapter) (*JobSubscriber, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("region required for job subscriber")
	}
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("job subscriber disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("job subscriber reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverNew(),
		natsgo.BindStream(StreamName),
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: ConsumerName(cfg.Region),
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    ConsumerName(cfg.Region),
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create job subscriber for region %s: %w", cfg.Region, err)
	}

	return &JobSubscriber{
		subscriber: sub,
		config:     cfg,
		logger:     logger,
	}, nil
}

// Subscribe returns the channel of job messages for this region. Callers
// ack on success, nack to trigger redelivery, or leave the message
// untouched until AckWait expires.
func (s *JobSubscriber) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	messages, err := s.subscriber.Subscribe(ctx, TopicProbeJobs)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", TopicProbeJobs, err)
	}
	return messages, nil
}

// Close shuts the subscriber down.
func (s *JobSubscriber) Close() error {
	return s.subscriber.Close()
}
