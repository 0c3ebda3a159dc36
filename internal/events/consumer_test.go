package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/hellOoSaksit/PixelShop/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockReader replays queued messages, then blocks until the context ends.
type MockReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	errs     []error
	// failWith, when set, is returned by every read once the queues are empty
	failWith error
	reads    int
	closed   bool
}

func (m *MockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	m.reads++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		m.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(m.messages) > 0 {
		msg := m.messages[0]
		m.messages = m.messages[1:]
		m.mu.Unlock()
		return msg, nil
	}
	if m.failWith != nil {
		err := m.failWith
		m.mu.Unlock()
		return kafka.Message{}, err
	}
	m.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *MockReader) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *MockReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type MockInvalidator struct {
	mu        sync.Mutex
	forgotten []string
}

func (m *MockInvalidator) Forget(visitorID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forgotten = append(m.forgotten, visitorID)
}

func (m *MockInvalidator) Forgotten() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.forgotten...)
}

func publishedMessage(t *testing.T) kafka.Message {
	t.Helper()
	w := &MockWriter{}
	require.NoError(t, NewKafkaPublisher(w).PublishCheckoutSucceeded(context.Background(), succeededSession()))
	return w.Messages[0]
}

func TestConsumer_InvalidatesCartOnCheckoutSucceeded(t *testing.T) {
	reader := &MockReader{
		errs: []error{errors.New("transient")},
		messages: []kafka.Message{
			{Value: []byte(`{"visitor_id":"ignored"}`), Headers: []kafka.Header{{Key: "event_type", Value: []byte("other")}}},
			{Value: []byte(`not json`), Headers: []kafka.Header{{Key: "event_type", Value: []byte(EventCheckoutSucceeded)}}},
			publishedMessage(t),
		},
	}
	carts := &MockInvalidator{}
	c := NewCartInvalidationConsumer(reader, carts, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(carts.Forgotten()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{"visitor-1"}, carts.Forgotten())
	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}

func TestConsumer_MissingVisitor(t *testing.T) {
	c := NewCartInvalidationConsumer(&MockReader{}, &MockInvalidator{}, logger.Discard())
	err := c.handle(kafka.Message{
		Value:   []byte(`{"checkout_id":"c"}`),
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(EventCheckoutSucceeded)}},
	})
	assert.ErrorContains(t, err, "missing visitor_id")
}

func TestConsumer_StopsWhenReaderClosed(t *testing.T) {
	reader := &MockReader{failWith: io.EOF}
	c := NewCartInvalidationConsumer(reader, &MockInvalidator{}, logger.Discard())

	done := make(chan struct{})
	go func() {
		c.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer kept reading from a closed reader")
	}
	assert.Equal(t, 1, reader.readCount())
}

func TestConsumer_BacksOffOnPersistentErrors(t *testing.T) {
	reader := &MockReader{failWith: errors.New("broker unreachable")}
	c := NewCartInvalidationConsumer(reader, &MockInvalidator{}, logger.Discard())
	c.backoff.InitialInterval = 20 * time.Millisecond
	c.backoff.MaxInterval = 40 * time.Millisecond
	c.backoff.RandomizationFactor = 0

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	c.Run(ctx)

	// 20ms, 30ms, then 40ms steps: about six reads in 200ms, never a hot loop
	assert.GreaterOrEqual(t, reader.readCount(), 2)
	assert.LessOrEqual(t, reader.readCount(), 12)
}
