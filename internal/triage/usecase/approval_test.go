package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailtriage/internal/triage/domain"
)

func newTestQueue(mail *fakeMail) (*ApprovalQueue, *fakeLedger) {
	ledger := newFakeLedger()
	correlations := newFakeCorrelations()
	executor := NewExecutor(mail, ledger, correlations, testPolicy(), "Processed", testSentinel)
	queue := NewApprovalQueue(executor, mail, ledger, "Processed", "Rejected")
	return queue, ledger
}

func TestEnqueueIsIdempotent(t *testing.T) {
	mail := newFakeMail()
	queue, _ := newTestQueue(mail)
	msg := testMessage("m1")
	decision := domain.RoutingDecision{Categories: []string{"donor"}}

	assert.True(t, queue.Enqueue(context.Background(), msg, decision, "body"))
	assert.False(t, queue.Enqueue(context.Background(), msg, decision, "body"), "re-arrival of a pending message is a no-op")

	assert.Len(t, queue.List(), 1)
	assert.Equal(t, []string{"Processed/pending_review"}, mail.labels["m1"], "pending tag applied once")
}

func TestApproveExecutesStoredDecision(t *testing.T) {
	mail := newFakeMail()
	queue, ledger := newTestQueue(mail)
	msg := testMessage("m1")

	queue.Enqueue(context.Background(), msg, domain.RoutingDecision{
		Categories:    []string{"donor"},
		AllRecipients: []string{"charlie@elsewhere.example"},
	}, "body")

	summary, err := queue.Approve(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@testorg.example", "charlie@elsewhere.example"}, summary.ForwardedTo)
	assert.Empty(t, queue.List())
	assert.Equal(t, []string{"Processed/pending_review"}, mail.removedLabels["m1"], "resolution clears the review marker")

	seen, _ := ledger.Seen(msg.ProcessedKey())
	assert.True(t, seen)

	_, err = queue.Approve(context.Background(), "m1")
	assert.ErrorIs(t, err, domain.ErrNotPending)
}

func TestApproveRunsExecutorAtMostOnce(t *testing.T) {
	mail := newFakeMail()
	queue, _ := newTestQueue(mail)
	queue.Enqueue(context.Background(), testMessage("m1"), domain.RoutingDecision{Categories: []string{"donor"}}, "body")

	var approved int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := queue.Approve(context.Background(), "m1"); err == nil {
				atomic.AddInt32(&approved, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), approved)
	assert.Len(t, mail.forwards, 1)
}

func TestRejectFilesWithoutRouting(t *testing.T) {
	mail := newFakeMail()
	queue, ledger := newTestQueue(mail)
	msg := testMessage("m1")

	queue.Enqueue(context.Background(), msg, domain.RoutingDecision{
		Categories:    []string{"donor"},
		AllRecipients: []string{"charlie@elsewhere.example"},
	}, "body")
	mail.labels["m1"] = nil // reset the pending tag for a clean assertion

	require.NoError(t, queue.Reject(context.Background(), "m1", "looks misclassified"))

	assert.Empty(t, mail.forwards, "rejection must not forward")
	assert.Empty(t, mail.replies)
	assert.Equal(t, []string{"Rejected"}, mail.moves["m1"])
	assert.Equal(t, []string{"Processed"}, mail.labels["m1"], "umbrella tag only, no category tags")
	assert.Equal(t, []string{"Processed/pending_review"}, mail.removedLabels["m1"], "resolution clears the review marker")
	assert.True(t, mail.read["m1"])

	seen, _ := ledger.Seen(msg.ProcessedKey())
	assert.True(t, seen, "a rejected message is still terminally handled")

	assert.ErrorIs(t, queue.Reject(context.Background(), "m1", ""), domain.ErrNotPending)
}

func TestListIsOldestFirst(t *testing.T) {
	mail := newFakeMail()
	queue, _ := newTestQueue(mail)

	for _, id := range []string{"b", "a", "c"} {
		queue.Enqueue(context.Background(), testMessage(id), domain.RoutingDecision{Categories: []string{"donor"}}, "body")
	}

	items := queue.List()
	require.Len(t, items, 3)
	// Same enqueue minute: order falls back to message id.
	assert.Equal(t, "a", items[0].Message.ID)
	assert.Equal(t, "b", items[1].Message.ID)
	assert.Equal(t, "c", items[2].Message.ID)
}
