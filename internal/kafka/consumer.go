package kafka

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config holds reader settings for the swap event stream.
type Config struct {
	Brokers        []string
	Topic          string
	GroupID        string
	MinBytes       int           // default 1KB
	MaxBytes       int           // default 10MB
	CommitInterval time.Duration // default 1s (0 = sync each msg)
	MaxWait        time.Duration // default 50ms
	RetryWait      time.Duration // pause after a transient fetch error, default 200ms
}

// Consumer reads swap events published by the outbox relay. Offsets are
// committed per message by the caller, so delivery is at-least-once and
// downstream storage has to dedupe on event id.
type Consumer struct {
	r         *kafka.Reader
	retryWait time.Duration
}

func NewConsumerFromConfig(c Config) *Consumer {
	min := c.MinBytes
	if min <= 0 {
		min = 1 << 10 // 1KB
	}
	max := c.MaxBytes
	if max <= 0 {
		max = 10 << 20 // 10MB
	}
	ci := c.CommitInterval
	if ci <= 0 {
		ci = time.Second
	}

	mw := c.MaxWait
	if mw <= 0 {
		mw = 50 * time.Millisecond
	}

	rw := c.RetryWait
	if rw <= 0 {
		rw = 200 * time.Millisecond
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.Brokers,
		GroupID:        c.GroupID,
		Topic:          c.Topic,
		MinBytes:       min,
		MaxBytes:       max,
		CommitInterval: ci,
		MaxWait:        mw,
	})

	return &Consumer{r: r, retryWait: rw}
}

type Message = kafka.Message

// Fetch blocks until a message arrives or ctx ends. Transient broker errors
// are logged and retried after RetryWait, so callers only ever see ctx errors.
func (c *Consumer) Fetch(ctx context.Context) (Message, error) {
	for {
		m, err := c.r.FetchMessage(ctx)
		if err == nil {
			return m, nil
		}
		if ctx.Err() != nil {
			return Message{}, ctx.Err()
		}
		log.Printf("[kafka] fetch err (topic=%s): %v", c.r.Config().Topic, err)
		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-time.After(c.retryWait):
		}
	}
}

func (c *Consumer) Commit(ctx context.Context, m Message) error {
	return c.r.CommitMessages(ctx, m)
}

func (c *Consumer) Close() error { return c.r.Close() }
