package eventbus

import (
	"context"
	"time"

	"github.com/campusworks/acadia/pkg/log/ctxlogger"
	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler processes one delivered message. Delivery is at-least-once, so
// handlers must be idempotent.
type Handler func(ctx context.Context, key, value []byte) error

// Subscription binds a topic to its handler within a consumer group.
type Subscription struct {
	Topic   string
	Handler Handler
}

// Reader is the subset of kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs one subscription as a long-lived loop: fetch, handle with a
// bounded timeout, commit. A failing handler does not crash the loop and does
// not block later messages: the message is dead-lettered and committed.
type Consumer struct {
	reader         Reader
	topic          string
	groupID        string
	handler        Handler
	deadLetters    *DeadLetterStore
	log            *zap.Logger
	metrics        *Metrics
	handleTimeout  time.Duration
	fetchRetryWait time.Duration
}

func NewConsumer(brokers []string, groupID string, sub Subscription, dlq *DeadLetterStore, log *zap.Logger, metrics *Metrics) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    sub.Topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newConsumer(reader, groupID, sub, dlq, log, metrics)
}

// NewConsumerWithReader allows injecting a test reader.
func NewConsumerWithReader(r Reader, groupID string, sub Subscription, dlq *DeadLetterStore, log *zap.Logger, metrics *Metrics) *Consumer {
	return newConsumer(r, groupID, sub, dlq, log, metrics)
}

func newConsumer(r Reader, groupID string, sub Subscription, dlq *DeadLetterStore, log *zap.Logger, metrics *Metrics) *Consumer {
	return &Consumer{
		reader:         r,
		topic:          sub.Topic,
		groupID:        groupID,
		handler:        sub.Handler,
		deadLetters:    dlq,
		log:            log.Named("eventbus.consumer").With(zap.String("topic", sub.Topic), zap.String("group", groupID)),
		metrics:        metrics,
		handleTimeout:  10 * time.Second,
		fetchRetryWait: time.Second,
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	c.log.Info("consumer attached")
	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.fetchRetryWait):
			}
			continue
		}

		c.handleOne(ctx, m)

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.log.Error("commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

func (c *Consumer) handleOne(ctx context.Context, m kafka.Message) {
	processCtx, cancel := context.WithTimeout(ctx, c.handleTimeout)
	defer cancel()
	processCtx = ctxlogger.ContextWithEventSubject(processCtx, c.topic)

	err := c.invoke(processCtx, m)
	if err == nil {
		return
	}

	c.log.Error("handler failed, dead-lettering",
		zap.Int64("offset", m.Offset), zap.Error(err))
	c.metrics.recordDeadLetter(c.topic)

	// Recording uses a fresh context: the handler timeout may already be
	// spent, and losing the dead letter too would hide the gap entirely.
	recordCtx, recordCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer recordCancel()
	if dlqErr := c.deadLetters.Record(recordCtx, c.topic, c.groupID, m.Key, m.Value, err); dlqErr != nil {
		c.log.Error("dead-letter write failed", zap.Error(dlqErr))
	}
}

func (c *Consumer) invoke(ctx context.Context, m kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DeliveryError{Topic: c.topic, Err: panicError{r}}
		}
	}()
	return c.handler(ctx, m.Key, m.Value)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

type panicError struct{ value any }

func (p panicError) Error() string { return "handler panic" }
