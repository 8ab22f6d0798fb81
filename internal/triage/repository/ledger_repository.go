package repository

import (
	"sync"
	"time"

	"mailtriage/internal/triage/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// processedLedger implements ProcessedLedger on top of postgres with an
// in-process cache as the fast path. The remote processed tag remains the
// authoritative signal; this ledger only saves remote round trips and covers
// the window where the tag write was lost.
type processedLedger struct {
	db *gorm.DB

	mu    sync.Mutex
	cache map[string]bool
}

// NewProcessedLedger creates a new instance of processedLedger
func NewProcessedLedger(db *gorm.DB) ProcessedLedger {
	return &processedLedger{
		db:    db,
		cache: make(map[string]bool),
	}
}

func (r *processedLedger) Seen(key string) (bool, error) {
	r.mu.Lock()
	if r.cache[key] {
		r.mu.Unlock()
		return true, nil
	}
	r.mu.Unlock()

	var row domain.ProcessedMessage
	err := r.db.Where("message_key = ?", key).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}

	r.mu.Lock()
	r.cache[key] = true
	r.mu.Unlock()
	return true, nil
}

func (r *processedLedger) Mark(key string) error {
	now := time.Now()
	row := domain.ProcessedMessage{
		ID:          uuid.New().String(),
		MessageKey:  key,
		ProcessedAt: now,
		CreatedAt:   now,
	}

	// FirstOrCreate keeps re-marks idempotent under the unique index.
	err := r.db.Where("message_key = ?", key).FirstOrCreate(&row).Error
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.cache[key] = true
	r.mu.Unlock()
	return nil
}
