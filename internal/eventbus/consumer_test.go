package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	dbpkg "github.com/campusworks/acadia/pkg/db"
	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeReader feeds a fixed batch of messages, then blocks until cancel.
type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

func newTestDeadLetterStore(t *testing.T) *DeadLetterStore {
	t.Helper()
	db, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&DeadLetter{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewDeadLetterStore(db, node)
}

func runUntilDrained(c *Consumer, r *fakeReader) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	deadline := time.After(2 * time.Second)
	for len(r.msgs) > 0 {
		select {
		case <-deadline:
			cancel()
			<-done
			return
		case <-time.After(time.Millisecond):
		}
	}
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done
}

func TestConsumerCommitsHandledMessages(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Offset: 1, Value: []byte(`{"id":"1"}`)},
		{Offset: 2, Value: []byte(`{"id":"2"}`)},
	}}

	var seen []string
	sub := Subscription{Topic: TopicTenantCreated, Handler: func(_ context.Context, _, value []byte) error {
		seen = append(seen, string(value))
		return nil
	}}
	c := NewConsumerWithReader(r, "test-group", sub, newTestDeadLetterStore(t), zap.NewNop(), NewMetrics())

	runUntilDrained(c, r)

	assert.Equal(t, []string{`{"id":"1"}`, `{"id":"2"}`}, seen)
	assert.Len(t, r.committed, 2)
}

func TestFailingHandlerDeadLettersAndDoesNotBlock(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Offset: 1, Key: []byte("bad"), Value: []byte(`not json`)},
		{Offset: 2, Value: []byte(`{"id":"2"}`)},
	}}

	handled := 0
	sub := Subscription{Topic: TopicUserCreated, Handler: func(_ context.Context, key, _ []byte) error {
		if string(key) == "bad" {
			return errors.New("malformed payload")
		}
		handled++
		return nil
	}}
	dlq := newTestDeadLetterStore(t)
	c := NewConsumerWithReader(r, "test-group", sub, dlq, zap.NewNop(), NewMetrics())

	runUntilDrained(c, r)

	// The poisoned message is committed so the next one still flows.
	assert.Len(t, r.committed, 2)
	assert.Equal(t, 1, handled)

	entries, err := dlq.List(context.Background(), TopicUserCreated, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "malformed payload", entries[0].Reason)
	assert.Equal(t, "test-group", entries[0].GroupID)
}

func TestPanickingHandlerIsCaught(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{{Offset: 1, Value: []byte(`{}`)}}}

	sub := Subscription{Topic: TopicDocumentCreated, Handler: func(context.Context, []byte, []byte) error {
		panic("boom")
	}}
	dlq := newTestDeadLetterStore(t)
	c := NewConsumerWithReader(r, "test-group", sub, dlq, zap.NewNop(), NewMetrics())

	runUntilDrained(c, r)

	assert.Len(t, r.committed, 1)
	entries, err := dlq.List(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
