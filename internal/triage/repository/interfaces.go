package repository

import "time"

// ProcessedLedger is the idempotency ledger: once a message key is marked,
// the pipeline must never run the executor for it again.
type ProcessedLedger interface {
	// Seen reports whether the key was marked in this or a prior run.
	Seen(key string) (bool, error)
	// Mark records the key. Call only after side effects have been issued.
	Mark(key string) error
}

// ForwardCorrelationStore remembers who a forwarded message went to, so a
// staff reply can CC the remaining recipients.
type ForwardCorrelationStore interface {
	Record(messageID string, recipients []string) error
	Recipients(messageID string) ([]string, error)
	// EvictOlderThan drops entries created before the cutoff and returns the
	// number removed. Keeps the store from growing without bound.
	EvictOlderThan(cutoff time.Time) (int64, error)
}

// CursorStore persists the per-folder sync cursor across restarts.
type CursorStore interface {
	// Load returns the stored cursor, or "" when none exists.
	Load(folder string) (string, error)
	Save(folder, cursor string) error
	Delete(folder string) error
}
