package usecase

import (
	"context"
	"errors"
	"log"
	"time"

	"mailtriage/internal/triage/domain"
)

// SyncEngine turns the provider's change feed into per-cycle event batches
// and owns the cursor lifecycle policy.
type SyncEngine struct {
	mail           MailService
	backfillWindow time.Duration
}

// NewSyncEngine creates a sync engine with the given backfill lookback.
func NewSyncEngine(mail MailService, backfillWindow time.Duration) *SyncEngine {
	return &SyncEngine{mail: mail, backfillWindow: backfillWindow}
}

// Sync fetches the next batch of change events for a folder.
//
// Cursor policy:
//   - no cursor: bounded backfill from now minus the backfill window
//   - cursor invalidated by the provider: return no events and an empty
//     cursor; the caller treats empty-after-present as "reseed next cycle"
//   - any other error: return the original cursor unchanged so the next
//     cycle retries from the same point; never silently advance
func (e *SyncEngine) Sync(ctx context.Context, folder, cursor string) ([]domain.ChangeEvent, string, error) {
	if cursor == "" {
		since := time.Now().Add(-e.backfillWindow)
		events, next, err := e.mail.Backfill(ctx, folder, since)
		if err != nil {
			return nil, cursor, err
		}
		log.Printf("[Sync] %s: backfill since %s yielded %d event(s)", folder, since.Format(time.RFC3339), len(events))
		return events, next, nil
	}

	events, next, err := e.mail.ListChanges(ctx, folder, cursor)
	if err != nil {
		if errors.Is(err, domain.ErrCursorInvalidated) {
			log.Printf("[Sync] %s: cursor invalidated, reseeding from backfill window next cycle", folder)
			return nil, "", nil
		}
		return nil, cursor, err
	}
	return events, next, nil
}
