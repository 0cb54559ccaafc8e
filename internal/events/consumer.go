// internal/events/consumer.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Handler returns nil only when the message may be committed.
type Handler func(ctx context.Context, env Envelope) error

// messageReader is satisfied by *kafka.Reader.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       messageReader
	backoff time.Duration
	// maxAttempts bounds handler calls per message; zero retries until ctx ends.
	maxAttempts int
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			GroupID:        groupID,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0,
		}),
		backoff:     time.Second,
		maxAttempts: 10,
	}
}

// Run feeds envelopes of the wanted type to h until ctx is done. Other event
// types and undecodable messages are committed and skipped. A failing
// handler is retried in place with backoff; nothing after it is fetched
// until it succeeds or maxAttempts is used up, in which case the message is
// logged and committed.
func (c *Consumer) Run(ctx context.Context, eventType string, h Handler) error {
	defer c.r.Close()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		log := logrus.WithFields(logrus.Fields{
			"topic":     m.Topic,
			"partition": m.Partition,
			"offset":    m.Offset,
		})

		var env Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			log.WithError(err).Warn("Skipping undecodable event")
		} else if env.EventType == eventType {
			if !c.handle(ctx, log.WithField("event_id", env.EventID), env, h) {
				return nil
			}
		}

		if err := c.r.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// handle calls h until it succeeds or the attempts run out. It returns false
// when ctx ended first.
func (c *Consumer) handle(ctx context.Context, log *logrus.Entry, env Envelope, h Handler) bool {
	for attempt := 1; ; attempt++ {
		err := h(ctx, env)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		log := log.WithError(err).WithField("attempt", attempt)
		if c.maxAttempts > 0 && attempt >= c.maxAttempts {
			log.Error("Event handler gave up, committing past the event")
			return true
		}
		log.Warn("Event handler failed, retrying")

		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.backoff):
		}
	}
}
