package repository

import (
	"encoding/json"
	"time"

	"mailtriage/internal/triage/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// forwardCorrelationStore implements ForwardCorrelationStore backed by
// postgres, with recipients stored as a JSON-encoded array.
type forwardCorrelationStore struct {
	db *gorm.DB
}

// NewForwardCorrelationStore creates a new instance of forwardCorrelationStore
func NewForwardCorrelationStore(db *gorm.DB) ForwardCorrelationStore {
	return &forwardCorrelationStore{db: db}
}

func (r *forwardCorrelationStore) Record(messageID string, recipients []string) error {
	encoded, err := json.Marshal(recipients)
	if err != nil {
		return err
	}

	row := domain.ForwardCorrelation{
		ID:         uuid.New().String(),
		MessageID:  messageID,
		Recipients: string(encoded),
		CreatedAt:  time.Now(),
	}

	// Re-forwarding the same message replaces the recipient set.
	return r.db.Where("message_id = ?", messageID).
		Assign(domain.ForwardCorrelation{Recipients: string(encoded)}).
		FirstOrCreate(&row).Error
}

func (r *forwardCorrelationStore) Recipients(messageID string) ([]string, error) {
	var row domain.ForwardCorrelation
	err := r.db.Where("message_id = ?", messageID).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	var recipients []string
	if err := json.Unmarshal([]byte(row.Recipients), &recipients); err != nil {
		return nil, err
	}
	return recipients, nil
}

func (r *forwardCorrelationStore) EvictOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&domain.ForwardCorrelation{})
	return res.RowsAffected, res.Error
}
