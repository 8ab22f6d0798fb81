package usecase

import (
	"context"
	"time"

	"mailtriage/internal/triage/domain"
)

// MailService is everything the pipeline needs from the mail provider.
// pkg/gmail implements it; tests supply an in-memory fake.
type MailService interface {
	// ListChanges resumes the folder's change feed from cursor and returns
	// events in page order with the cursor to persist next. An expired
	// cursor surfaces as domain.ErrCursorInvalidated.
	ListChanges(ctx context.Context, folder, cursor string) ([]domain.ChangeEvent, string, error)
	// Backfill lists every message received since the given time and returns
	// a fresh cursor positioned at the current head of the feed.
	Backfill(ctx context.Context, folder string, since time.Time) ([]domain.ChangeEvent, string, error)
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	// AddLabels union-merges the named tags onto the message; labels owned
	// by other tools are never removed.
	AddLabels(ctx context.Context, id string, names []string) error
	// RemoveLabels strips the named tags; names that do not exist are skipped.
	RemoveLabels(ctx context.Context, id string, names []string) error
	MarkRead(ctx context.Context, id string) error
	Move(ctx context.Context, id, folder string) error
	SendReply(ctx context.Context, msg *domain.Message, htmlBody string, cc []string) error
	SendForward(ctx context.Context, msg *domain.Message, to []string, bodyHTML string) error
	// Watch registers a push notification channel for the mailbox.
	Watch(ctx context.Context, topicName string) error
	// Reconnect forces fresh credential acquisition.
	Reconnect(ctx context.Context) error
}
