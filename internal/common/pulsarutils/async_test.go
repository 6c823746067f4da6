package pulsarutils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type testMessageId struct {
	pulsar.MessageID
	id int
}

type testMessage struct {
	pulsar.Message
	messageId pulsar.MessageID
	payload   []byte
}

func (m testMessage) ID() pulsar.MessageID {
	return m.messageId
}

func (m testMessage) Payload() []byte {
	return m.payload
}

func newTestMessage(id int, payload []byte) testMessage {
	return testMessage{messageId: testMessageId{id: id}, payload: payload}
}

type testConsumer struct {
	pulsar.Consumer
	mu       sync.Mutex
	msgs     []pulsar.Message
	failures int
}

func (c *testConsumer) Receive(ctx context.Context) (pulsar.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return nil, errors.New("connection reset")
	}
	if len(c.msgs) == 0 {
		c.mu.Unlock()
		<-ctx.Done()
		c.mu.Lock()
		return nil, context.DeadlineExceeded
	}
	msg := c.msgs[0]
	c.msgs = c.msgs[1:]
	return msg, nil
}

type errorCounter struct {
	count int
}

func (e *errorCounter) RecordPulsarConnectionError() {
	e.count++
}

func TestReceiveForwardsMessages(t *testing.T) {
	msgs := []pulsar.Message{
		newTestMessage(1, []byte("a")),
		newTestMessage(2, []byte("b")),
		newTestMessage(3, []byte("c")),
	}
	consumer := &testConsumer{msgs: msgs}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := Receive(ctx, consumer, 10*time.Millisecond, time.Millisecond, nil)

	var received []pulsar.Message
	for msg := range out {
		received = append(received, msg)
		if len(received) == len(msgs) {
			cancel()
		}
	}
	assert.Equal(t, msgs, received)
}

func TestReceiveRetriesAfterError(t *testing.T) {
	msgs := []pulsar.Message{newTestMessage(1, []byte("a"))}
	consumer := &testConsumer{msgs: msgs, failures: 2}
	m := &errorCounter{}

	ctx, cancel := context.WithCancel(context.Background())
	out := Receive(ctx, consumer, 10*time.Millisecond, time.Millisecond, m)

	msg := <-out
	cancel()
	for range out {
	}
	assert.Equal(t, msgs[0], msg)
	assert.Equal(t, 2, m.count)
}

func TestReceiveClosesChannelOnCancel(t *testing.T) {
	consumer := &testConsumer{}
	ctx, cancel := context.WithCancel(context.Background())
	out := Receive(ctx, consumer, 5*time.Millisecond, time.Millisecond, nil)
	cancel()

	select {
	case _, open := <-out:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
