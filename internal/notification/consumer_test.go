package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	auditdomain "github.com/campusworks/acadia/internal/audit/domain"
	documentdomain "github.com/campusworks/acadia/internal/document/domain"
	"github.com/campusworks/acadia/internal/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	notices []Notice
}

func (c *captureNotifier) Notify(_ context.Context, notice Notice) error {
	c.notices = append(c.notices, notice)
	return nil
}

func handlerFor(t *testing.T, c *Consumer, topic string) eventbus.Handler {
	t.Helper()
	for _, sub := range c.Subscriptions() {
		if sub.Topic == topic {
			return sub.Handler
		}
	}
	t.Fatalf("no subscription for topic %s", topic)
	return nil
}

func TestDocumentCreatedNotice(t *testing.T) {
	sink := &captureNotifier{}
	c := NewConsumer(sink)

	payload, err := json.Marshal(documentdomain.DocumentSnapshot{
		ID:       "1",
		Title:    "Quality Manual",
		Version:  "v2",
		Revision: 3,
	})
	require.NoError(t, err)

	h := handlerFor(t, c, eventbus.TopicDocumentCreated)
	require.NoError(t, h(context.Background(), nil, payload))

	require.Len(t, sink.notices, 1)
	assert.Equal(t, eventbus.TopicDocumentCreated, sink.notices[0].Kind)
	assert.Contains(t, sink.notices[0].Subject, "Quality Manual")
	assert.Contains(t, sink.notices[0].Body, "revision 3")
}

func TestRejectedProgramCarriesReason(t *testing.T) {
	sink := &captureNotifier{}
	c := NewConsumer(sink)

	payload, err := json.Marshal(auditdomain.ProgramSnapshot{
		ID:              "1",
		Title:           "Annual Review",
		Status:          auditdomain.ProgramDraft,
		RejectionReason: "scope too narrow",
		OccurredAt:      time.Now().UTC(),
	})
	require.NoError(t, err)

	h := handlerFor(t, c, eventbus.TopicAuditProgramRejected)
	require.NoError(t, h(context.Background(), nil, payload))

	require.Len(t, sink.notices, 1)
	assert.Contains(t, sink.notices[0].Body, "scope too narrow")
}

func TestMalformedPayloadErrors(t *testing.T) {
	c := NewConsumer(&captureNotifier{})

	for _, sub := range c.Subscriptions() {
		assert.Error(t, sub.Handler(context.Background(), nil, []byte("{broken")), sub.Topic)
	}
}
