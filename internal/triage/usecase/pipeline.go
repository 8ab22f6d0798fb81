package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"mailtriage/internal/triage/domain"
	"mailtriage/internal/triage/repository"
	"mailtriage/pkg/config"

	"github.com/cenkalti/backoff/v3"
)

// reconnectThreshold is how many consecutive failed cycles force a fresh
// credential acquisition.
const reconnectThreshold = 3

// Pipeline is the single-threaded poll loop:
// sync -> dedup filter -> classify -> (approval gate |) execute -> persist cursor.
// Only the approval dashboard runs concurrently with it, against structures
// that confine their writes to whole-entry insert/delete.
type Pipeline struct {
	mail         MailService
	engine       *SyncEngine
	gateway      *Gateway
	executor     *Executor
	relay        *ReplyRelay
	approvals    *ApprovalQueue
	ledger       repository.ProcessedLedger
	cursors      repository.CursorStore
	correlations repository.ForwardCorrelationStore

	folders        []string
	interval       time.Duration
	approvalMode   bool
	tagPrefix      string
	correlationTTL time.Duration

	wake                chan struct{}
	consecutiveFailures int

	// retries holds ids of messages whose classification produced no
	// decision. The feed has already moved past them, so each cycle refetches
	// and re-handles them until a decision lands or the message goes away.
	// Touched only by the poll loop goroutine.
	retries map[string]struct{}
}

// NewPipeline wires the triage pipeline from its parts.
func NewPipeline(cfg *config.Config, mail MailService, engine *SyncEngine, gateway *Gateway, executor *Executor, relay *ReplyRelay, approvals *ApprovalQueue, ledger repository.ProcessedLedger, cursors repository.CursorStore, correlations repository.ForwardCorrelationStore) *Pipeline {
	return &Pipeline{
		mail:           mail,
		engine:         engine,
		gateway:        gateway,
		executor:       executor,
		relay:          relay,
		approvals:      approvals,
		ledger:         ledger,
		cursors:        cursors,
		correlations:   correlations,
		folders:        cfg.WatchedFolders,
		interval:       cfg.PollInterval,
		approvalMode:   cfg.ApprovalMode,
		tagPrefix:      cfg.ProcessedTagPrefix,
		correlationTTL: cfg.CorrelationTTL,
		wake:           make(chan struct{}, 1),
		retries:        make(map[string]struct{}),
	}
}

// Wake asks the loop to run a cycle immediately instead of waiting out the
// poll interval. Used by the push notifier; safe from any goroutine.
func (p *Pipeline) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run polls until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	log.Printf("[Pipeline] monitoring %v every %s (approval mode: %v)", p.folders, p.interval, p.approvalMode)

	go p.evictLoop(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.runCycle(ctx); err != nil {
			p.consecutiveFailures++
			log.Printf("[Pipeline] cycle failed (attempt %d): %v", p.consecutiveFailures, err)
			if p.consecutiveFailures >= reconnectThreshold {
				p.reconnect(ctx)
			}
		} else {
			p.consecutiveFailures = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.wake:
		}
	}
}

// runCycle processes every watched folder once. The cursor is persisted only
// after the folder's events were handled; a failure leaves it untouched so
// the next cycle retries from the same point.
func (p *Pipeline) runCycle(ctx context.Context) error {
	p.retryUnclassified(ctx)

	for _, folder := range p.folders {
		cursor, err := p.cursors.Load(folder)
		if err != nil {
			return fmt.Errorf("could not load cursor for %s: %w", folder, err)
		}

		events, newCursor, err := p.engine.Sync(ctx, folder, cursor)
		if err != nil {
			return fmt.Errorf("sync failed for %s: %w", folder, err)
		}

		for _, ev := range events {
			p.handleEvent(ctx, folder, ev)
		}

		if newCursor == "" && cursor != "" {
			// Invalidated: drop the cursor so the next cycle reseeds from
			// the backfill window. Not the same as "no changes".
			if err := p.cursors.Delete(folder); err != nil {
				return fmt.Errorf("could not clear cursor for %s: %w", folder, err)
			}
		} else if newCursor != "" && newCursor != cursor {
			if err := p.cursors.Save(folder, newCursor); err != nil {
				return fmt.Errorf("could not persist cursor for %s: %w", folder, err)
			}
		}
	}
	return nil
}

// retryUnclassified re-handles messages left without a decision in an
// earlier cycle. They are refetched by id so the filters run against current
// mailbox state; a fetch failure keeps the id for the next cycle.
func (p *Pipeline) retryUnclassified(ctx context.Context) {
	if len(p.retries) == 0 {
		return
	}
	ids := make([]string, 0, len(p.retries))
	for id := range p.retries {
		ids = append(ids, id)
	}

	for _, id := range ids {
		msg, err := p.mail.GetMessage(ctx, id)
		if err != nil {
			log.Printf("[Pipeline] could not refetch unclassified message %s: %v", id, err)
			continue
		}
		delete(p.retries, id)
		p.handleEvent(ctx, "retry", domain.ChangeEvent{ID: id, Message: msg})
	}
}

// handleEvent runs the dedup filters and hands one change event to the
// classifier and executor. Events are independently idempotent: any error
// here leaves the message unprocessed for the next cycle rather than
// failing the whole cycle.
func (p *Pipeline) handleEvent(ctx context.Context, folder string, ev domain.ChangeEvent) {
	if ev.Removed || ev.Message == nil {
		delete(p.retries, ev.ID)
		return
	}
	msg := ev.Message

	// Remote tag and local ledger are independent signals of prior
	// handling; either alone can be stale after a crash, so both are
	// checked before any side effect.
	if msg.HasLabelPrefix(p.tagPrefix) {
		return
	}
	if seen, err := p.ledger.Seen(msg.ProcessedKey()); err != nil {
		log.Printf("[Pipeline] ledger lookup failed for %s: %v", msg.ID, err)
		return
	} else if seen {
		return
	}

	if msg.IsRead {
		return
	}

	if p.relay.IsStaffReply(msg) {
		if err := p.relay.Relay(ctx, msg); err != nil {
			log.Printf("[Pipeline] relay failed for %s: %v", msg.ID, err)
		}
		return
	}

	log.Printf("[Pipeline] new: [%s] %s | %s | %s", folder, msg.ReceivedAt.Format("2006-01-02 15:04"), msg.From, msg.Subject)

	body := CleanBody(msg.Body, msg.IsHTML)
	decision := p.gateway.Classify(ctx, msg.Subject, body)
	if decision.IsEmpty() {
		// Classification failed or found nothing; leave the message unread
		// and untouched, and remember it for the next cycle. The cursor
		// still advances, so the feed will not re-yield it.
		log.Printf("[Pipeline] no decision for %s, retrying next cycle", msg.ID)
		p.retries[msg.ID] = struct{}{}
		return
	}

	if p.approvalMode {
		p.approvals.Enqueue(ctx, msg, decision, body)
		return
	}

	summary := p.executor.Execute(ctx, msg, decision)
	log.Printf("[Pipeline] handled %s: categories=%v forwarded=%v replied=%v", msg.ID, decision.Categories, summary.ForwardedTo, summary.Replied)
}

// reconnect forces fresh credentials, backing off exponentially between
// attempts.
func (p *Pipeline) reconnect(ctx context.Context) {
	log.Printf("[Pipeline] %d consecutive failures, re-authenticating", p.consecutiveFailures)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxElapsedTime = 5 * time.Minute

	for {
		if err := p.mail.Reconnect(ctx); err == nil {
			log.Printf("[Pipeline] re-authenticated")
			p.consecutiveFailures = 0
			return
		} else {
			log.Printf("[Pipeline] re-authentication failed: %v", err)
		}

		next := bo.NextBackOff()
		if next == backoff.Stop {
			log.Printf("[Pipeline] giving up on re-authentication until next cycle")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(next):
		}
	}
}

// evictLoop bounds forward-correlation growth by dropping entries older
// than the configured TTL once a day.
func (p *Pipeline) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.correlations.EvictOlderThan(time.Now().Add(-p.correlationTTL))
			if err != nil {
				log.Printf("[Pipeline] correlation eviction failed: %v", err)
			} else if n > 0 {
				log.Printf("[Pipeline] evicted %d stale forward correlation(s)", n)
			}
		}
	}
}
