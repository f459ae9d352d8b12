package eventbus

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/campusworks/acadia/pkg/backoff"
	"github.com/campusworks/acadia/pkg/log/ctxlogger"
	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is the interface services use to emit events. Publishing is
// best-effort: the owning row is committed before Publish is called and a
// failed publish never rolls it back.
type Publisher interface {
	Publish(ctx context.Context, topic string, value any) error
	Close() error
}

// Writer is the subset of kafka.Writer the publisher needs. Injectable for
// tests.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher is the kafka-backed Publisher. It is exported so callers can
// hold the connectivity surface (VerifyConnectivity, Degraded) directly.
type KafkaPublisher struct {
	writer   Writer
	log      *zap.Logger
	metrics  *Metrics
	degraded atomic.Bool
}

// NewPublisher wraps a kafka writer targeting the given brokers. The topic is
// set per message so one writer serves every topic a service produces.
func NewPublisher(brokers []string, log *zap.Logger, metrics *Metrics) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: w, log: log, metrics: metrics}
}

// NewPublisherWithWriter allows injecting a test writer.
func NewPublisherWithWriter(w Writer, log *zap.Logger, metrics *Metrics) *KafkaPublisher {
	return &KafkaPublisher{writer: w, log: log, metrics: metrics}
}

// VerifyConnectivity dials the broker with the given retry policy. When every
// attempt fails the publisher degrades instead of taking the service down:
// publishes become logged no-ops surfaced through the degraded gauge.
func (p *KafkaPublisher) VerifyConnectivity(ctx context.Context, brokers []string, policy backoff.Policy) error {
	err := policy.Retry(ctx, func(ctx context.Context) error {
		conn, dialErr := kafka.DialContext(ctx, "tcp", brokers[0])
		if dialErr != nil {
			return dialErr
		}
		return conn.Close()
	})
	if err != nil {
		p.degraded.Store(true)
		p.metrics.setDegraded(true)
		p.log.Error("broker unreachable, continuing in degraded mode", zap.Error(err))
		return nil
	}
	p.degraded.Store(false)
	p.metrics.setDegraded(false)
	return nil
}

// Degraded reports whether the publisher is dropping events.
func (p *KafkaPublisher) Degraded() bool { return p.degraded.Load() }

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return &DeliveryError{Topic: topic, Err: err}
	}

	if p.degraded.Load() {
		p.metrics.recordPublishFailure(topic)
		ctxlogger.WithContext(ctx, p.log).Warn("publish dropped: degraded mode",
			zap.String("topic", topic))
		return nil
	}

	msg := kafka.Message{Topic: topic, Value: b}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.metrics.recordPublishFailure(topic)
		return &DeliveryError{Topic: topic, Err: err}
	}
	p.metrics.recordPublished(topic)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
