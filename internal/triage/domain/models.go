package domain

import "time"

// ProcessedMessage is one row of the idempotency ledger: a message whose
// side effects were fully issued in some prior cycle. The ledger is
// append-only; rows are never updated.
type ProcessedMessage struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	MessageKey  string    `json:"message_key" gorm:"uniqueIndex;not null"`
	ProcessedAt time.Time `json:"processed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// ForwardCorrelation maps a forwarded original message to the staff
// recipients it was sent to, so a later staff reply can CC the rest.
// Recipients are stored as a JSON-encoded array.
type ForwardCorrelation struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	MessageID  string    `json:"message_id" gorm:"uniqueIndex;not null"`
	Recipients string    `json:"recipients" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

// SyncCursor persists the per-folder change-feed position for the database
// cursor backend.
type SyncCursor struct {
	Folder    string    `json:"folder" gorm:"primaryKey"`
	Cursor    string    `json:"cursor"`
	UpdatedAt time.Time `json:"updated_at"`
}
