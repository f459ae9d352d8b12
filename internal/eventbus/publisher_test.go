package eventbus

import (
	"context"
	"errors"
	"testing"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeWriter records messages written and can be told to fail.
type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishWritesTopicAndJSONPayload(t *testing.T) {
	fw := &fakeWriter{}
	p := NewPublisherWithWriter(fw, zap.NewNop(), NewMetrics())

	err := p.Publish(context.Background(), TopicTenantCreated, map[string]string{"id": "42", "domain": "x.edu"})
	require.NoError(t, err)
	require.Len(t, fw.msgs, 1)
	assert.Equal(t, TopicTenantCreated, fw.msgs[0].Topic)
	assert.JSONEq(t, `{"id":"42","domain":"x.edu"}`, string(fw.msgs[0].Value))
}

func TestPublishWrapsWriterErrorAsDeliveryError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker gone")}
	p := NewPublisherWithWriter(fw, zap.NewNop(), NewMetrics())

	err := p.Publish(context.Background(), TopicUserCreated, map[string]string{"id": "1"})
	var dErr *DeliveryError
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, TopicUserCreated, dErr.Topic)
}

func TestDegradedPublisherDropsWithoutError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("should not be reached")}
	p := NewPublisherWithWriter(fw, zap.NewNop(), NewMetrics())
	p.degraded.Store(true)

	err := p.Publish(context.Background(), TopicDocumentCreated, map[string]string{"id": "9"})
	assert.NoError(t, err)
	assert.Empty(t, fw.msgs)
}
