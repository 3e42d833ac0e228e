package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type memStore struct {
	mu      sync.Mutex
	pending []Event
	sent    []int64
	failed  map[int64]string
	lockErr error
}

func newMemStore(events ...Event) *memStore {
	return &memStore{pending: events, failed: make(map[int64]string)}
}

func (s *memStore) LockBatch(_ context.Context, relayID string, batchSize int, _ time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockErr != nil {
		return nil, s.lockErr
	}
	n := min(batchSize, len(s.pending))
	batch := s.pending[:n]
	s.pending = s.pending[n:]
	for i := range batch {
		batch[i].RelayID = relayID
		batch[i].Status = StatusInProgress
	}
	return batch, nil
}

func (s *memStore) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *memStore) MarkFailed(_ context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = errMsg
	return nil
}

func (s *memStore) ExtendLease(_ context.Context, _ string, _ []int64, _ time.Duration) error {
	return nil
}

func (s *memStore) snapshot() ([]int64, map[int64]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sent := append([]int64(nil), s.sent...)
	failed := make(map[int64]string, len(s.failed))
	for k, v := range s.failed {
		failed[k] = v
	}
	return sent, failed
}

type memProducer struct {
	mu       sync.Mutex
	messages []kafka.Message
	failKeys map[string]error
}

func (p *memProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		if err, ok := p.failKeys[string(m.Key)]; ok {
			return err
		}
		p.messages = append(p.messages, m)
	}
	return nil
}

func (p *memProducer) snapshot() []kafka.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.Message(nil), p.messages...)
}

func testEvent(id int64, aggregateID string) Event {
	return Event{
		ID:            id,
		AggregateType: "order",
		AggregateID:   aggregateID,
		Type:          "OrderCreated",
		Payload:       []byte(`{"orderId":"` + aggregateID + `"}`),
		Headers:       map[string]string{"source": "marketplace-api"},
		Status:        StatusPending,
	}
}

// runRelay starts the relay in the background and returns a stop func
// that cancels it and waits for the goroutine to exit. Tests defer the
// stop before goleak so the check sees a quiet process.
func runRelay(t *testing.T, store Store, producer Producer) func() {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	relay := NewRelay(log, store, NewDispatcher(log, producer, "order.events"), "test-relay")
	relay.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestRelayPublishesPendingEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemStore(testEvent(1, "o1"), testEvent(2, "o2"))
	producer := &memProducer{}
	stop := runRelay(t, store, producer)
	defer stop()

	require.Eventually(t, func() bool {
		sent, _ := store.snapshot()
		return len(sent) == 2
	}, time.Second, 10*time.Millisecond)

	msgs := producer.snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, "order.events", msgs[0].Topic)
	assert.Equal(t, []byte("o1"), msgs[0].Key)

	var eventType string
	for _, h := range msgs[0].Headers {
		if h.Key == "event_type" {
			eventType = string(h.Value)
		}
	}
	assert.Equal(t, "OrderCreated", eventType)
}

func TestRelayMarksFailedEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemStore(testEvent(1, "o1"), testEvent(2, "broken"))
	producer := &memProducer{failKeys: map[string]error{"broken": errors.New("broker unavailable")}}
	stop := runRelay(t, store, producer)
	defer stop()

	require.Eventually(t, func() bool {
		sent, failed := store.snapshot()
		return len(sent) == 1 && len(failed) == 1
	}, time.Second, 10*time.Millisecond)

	sent, failed := store.snapshot()
	assert.Equal(t, []int64{1}, sent)
	assert.Equal(t, "broker unavailable", failed[2])
}

func TestRelayStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemStore()
	stop := runRelay(t, store, &memProducer{})
	stop()

	// No events, no writes; just a clean shutdown.
	sent, failed := store.snapshot()
	assert.Empty(t, sent)
	assert.Empty(t, failed)
}

func TestRelaySurvivesStoreErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMemStore(testEvent(1, "o1"))
	store.lockErr = errors.New("pg restarting")
	producer := &memProducer{}
	stop := runRelay(t, store, producer)
	defer stop()

	time.Sleep(50 * time.Millisecond)
	store.mu.Lock()
	store.lockErr = nil
	store.mu.Unlock()

	require.Eventually(t, func() bool {
		sent, _ := store.snapshot()
		return len(sent) == 1
	}, time.Second, 10*time.Millisecond)
}
