package usecase

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"mailtriage/internal/triage/domain"
	"mailtriage/internal/triage/repository"
)

// ApprovalQueue holds classified messages until an operator approves or
// rejects them. The queue lives in memory only; the pending tag applied on
// enqueue keeps items discoverable after a restart. The dashboard goroutine
// and the poll loop share it, so every access goes through the mutex and
// entries are only ever inserted or deleted whole.
type ApprovalQueue struct {
	mu    sync.Mutex
	items map[string]*domain.PendingApproval

	executor     *Executor
	mail         MailService
	ledger       repository.ProcessedLedger
	tagPrefix    string
	rejectFolder string
}

// NewApprovalQueue creates an approval gate in front of the executor.
func NewApprovalQueue(executor *Executor, mail MailService, ledger repository.ProcessedLedger, tagPrefix, rejectFolder string) *ApprovalQueue {
	return &ApprovalQueue{
		items:        make(map[string]*domain.PendingApproval),
		executor:     executor,
		mail:         mail,
		ledger:       ledger,
		tagPrefix:    tagPrefix,
		rejectFolder: rejectFolder,
	}
}

// Enqueue stores a classified message for operator review. Re-arrival of a
// message that is already pending is a no-op; the return value reports
// whether a new entry was created.
func (q *ApprovalQueue) Enqueue(ctx context.Context, msg *domain.Message, decision domain.RoutingDecision, cleanBody string) bool {
	q.mu.Lock()
	if _, exists := q.items[msg.ID]; exists {
		q.mu.Unlock()
		log.Printf("[Approval] %s already pending, skipping", msg.ID)
		return false
	}
	q.items[msg.ID] = &domain.PendingApproval{
		Message:    msg,
		Decision:   decision,
		CleanBody:  cleanBody,
		EnqueuedAt: time.Now().Format("2006-01-02 15:04"),
	}
	q.mu.Unlock()

	// Tag immediately so a restart can rediscover the pending item.
	if err := q.mail.AddLabels(ctx, msg.ID, []string{q.pendingTag()}); err != nil {
		log.Printf("[Approval] could not tag pending message %s: %v", msg.ID, err)
	}
	log.Printf("[Approval] stored for review: %s", msg.Subject)
	return true
}

// List returns the pending items, oldest first.
func (q *ApprovalQueue) List() []*domain.PendingApproval {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*domain.PendingApproval, 0, len(q.items))
	for _, item := range q.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EnqueuedAt == out[j].EnqueuedAt {
			return out[i].Message.ID < out[j].Message.ID
		}
		return out[i].EnqueuedAt < out[j].EnqueuedAt
	})
	return out
}

// Approve runs the executor with the decision stored at classification time;
// the classifier is not re-invoked. The entry is removed before execution so
// concurrent approvals trigger the executor at most once.
func (q *ApprovalQueue) Approve(ctx context.Context, id string) (*domain.ActionSummary, error) {
	q.mu.Lock()
	item, ok := q.items[id]
	if ok {
		delete(q.items, id)
	}
	q.mu.Unlock()

	if !ok {
		return nil, domain.ErrNotPending
	}

	q.clearPendingTag(ctx, id)
	return q.executor.Execute(ctx, item.Message, item.Decision), nil
}

// Reject performs the minimal terminal action: file into the rejection
// folder if configured, add only the umbrella processed tag, mark read. The
// category-specific tags and forwards an approval would have applied are
// deliberately skipped.
func (q *ApprovalQueue) Reject(ctx context.Context, id, reason string) error {
	q.mu.Lock()
	item, ok := q.items[id]
	if ok {
		delete(q.items, id)
	}
	q.mu.Unlock()

	if !ok {
		return domain.ErrNotPending
	}

	log.Printf("[Approval] rejected %s: %s", id, reason)

	q.clearPendingTag(ctx, id)
	if q.rejectFolder != "" {
		if err := q.mail.Move(ctx, id, q.rejectFolder); err != nil {
			log.Printf("[Approval] could not move rejected message: %v", err)
		}
	}
	if err := q.mail.AddLabels(ctx, id, []string{q.tagPrefix}); err != nil {
		log.Printf("[Approval] could not tag rejected message: %v", err)
	}
	if err := q.mail.MarkRead(ctx, id); err != nil {
		log.Printf("[Approval] could not mark rejected message read: %v", err)
	}
	if err := q.ledger.Mark(item.Message.ProcessedKey()); err != nil {
		log.Printf("[Approval] could not mark ledger: %v", err)
	}
	return nil
}

func (q *ApprovalQueue) pendingTag() string {
	return q.tagPrefix + "/pending_review"
}

// clearPendingTag removes the review marker once an item is resolved either
// way. Best effort: a leftover marker is cosmetic, not a dedup signal.
func (q *ApprovalQueue) clearPendingTag(ctx context.Context, id string) {
	if err := q.mail.RemoveLabels(ctx, id, []string{q.pendingTag()}); err != nil {
		log.Printf("[Approval] could not clear pending tag on %s: %v", id, err)
	}
}
