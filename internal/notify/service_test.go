package notify

import (
	"encoding/json"
	"sync"
	"testing"

	"cloud.google.com/go/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWaker struct {
	mu sync.Mutex
	n  int
}

func (w *countingWaker) Wake() {
	w.mu.Lock()
	w.n++
	w.mu.Unlock()
}

func (w *countingWaker) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

func notification(t *testing.T, addr string, historyID uint64) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(GmailNotification{EmailAddress: addr, HistoryID: historyID})
	require.NoError(t, err)
	return &pubsub.Message{Data: data}
}

func TestHandleMessageWakesOncePerHistoryID(t *testing.T) {
	w := &countingWaker{}
	s := &Service{watchedEmail: "box@org.example", pipeline: w}

	s.handleMessage(notification(t, "box@org.example", 10))
	s.handleMessage(notification(t, "box@org.example", 10))
	s.handleMessage(notification(t, "box@org.example", 9))
	assert.Equal(t, 1, w.count(), "redelivered and stale notifications are dropped")

	s.handleMessage(notification(t, "box@org.example", 11))
	assert.Equal(t, 2, w.count())
}

func TestHandleMessageIgnoresOtherMailboxes(t *testing.T) {
	w := &countingWaker{}
	s := &Service{watchedEmail: "box@org.example", pipeline: w}

	s.handleMessage(notification(t, "other@org.example", 10))
	assert.Equal(t, 0, w.count())
}

func TestHandleMessageIgnoresMalformedPayload(t *testing.T) {
	w := &countingWaker{}
	s := &Service{watchedEmail: "box@org.example", pipeline: w}

	s.handleMessage(&pubsub.Message{Data: []byte("not json")})
	assert.Equal(t, 0, w.count())
}

func TestHandleMessageConcurrentDelivery(t *testing.T) {
	w := &countingWaker{}
	s := &Service{watchedEmail: "box@org.example", pipeline: w}

	// Receive runs callbacks on multiple goroutines; the same redelivered
	// notification must wake the pipeline exactly once.
	data, err := json.Marshal(GmailNotification{EmailAddress: "box@org.example", HistoryID: 42})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(&pubsub.Message{Data: data})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, w.count())
}
