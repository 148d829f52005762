package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/taekabu/linkfan/internal/app/kv"
	"github.com/taekabu/linkfan/internal/app/model"
	"go.uber.org/zap"
)

const (
	clickFetchBatch   = 10
	clickFetchMaxWait = 5 * time.Second
)

// ClickConsumer drains click events from JetStream and folds them into the
// click counters. A failed increment is logged and the message acked
// anyway: counting is best-effort and nothing is redelivered forever.
type ClickConsumer struct {
	js       nats.JetStreamContext
	logger   *zap.Logger
	counters kv.CounterStore
	stopChan chan struct{}

	fetch func(batch int, maxWait time.Duration) ([]*nats.Msg, error)
}

// NewClickConsumer creates a new click event consumer.
func NewClickConsumer(js nats.JetStreamContext, logger *zap.Logger, counters kv.CounterStore) *ClickConsumer {
	return &ClickConsumer{
		js:       js,
		logger:   logger,
		counters: counters,
		stopChan: make(chan struct{}),
	}
}

// Start ensures the stream and durable consumer exist, then begins
// consuming on a background goroutine.
func (c *ClickConsumer) Start() error {
	_, err := c.js.StreamInfo(model.ClickStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ClickStreamName,
			Subjects: []string{model.ClickStreamSubject},
			MaxBytes: model.ClickStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.ClickStreamName, model.ClickConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.ClickStreamName, &nats.ConsumerConfig{
			Durable:   model.ClickConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ClickStreamSubject, model.ClickConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	c.fetch = func(batch int, maxWait time.Duration) ([]*nats.Msg, error) {
		return sub.Fetch(batch, nats.MaxWait(maxWait))
	}

	go c.consume()
	return nil
}

// Stop ends the consume loop. Already-fetched messages finish processing;
// the durable consumer keeps the rest for the next start.
func (c *ClickConsumer) Stop() {
	close(c.stopChan)
}

func (c *ClickConsumer) consume() {
	ctx := context.Background()
	for {
		select {
		case <-c.stopChan:
			c.logger.Info("click consumer stopped")
			return
		default:
		}

		msgs, err := c.fetch(clickFetchBatch, clickFetchMaxWait)
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			c.handle(ctx, msg)
		}
	}
}

func (c *ClickConsumer) handle(ctx context.Context, msg *nats.Msg) {
	var event model.ClickEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logger.Error("failed to unmarshal click event", zap.Error(err))
		msg.Ack()
		return
	}

	if err := c.counters.Increment(ctx, kv.CounterClick, event.DestinationID); err != nil {
		c.logger.Error("failed to count click",
			zap.String("id", event.ID),
			zap.Int64("destination_id", event.DestinationID),
			zap.Error(err))
		msg.Ack()
		return
	}

	c.logger.Debug("click counted",
		zap.String("id", event.ID),
		zap.Int64("destination_id", event.DestinationID),
		zap.String("campaign", event.CampaignSlug),
		zap.Time("timestamp", event.Timestamp),
	)
	msg.Ack()
}
