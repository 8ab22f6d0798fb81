package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrCursorInvalidated is returned by the mail provider when the change-feed
// cursor is expired or gone and sync must reseed from the backfill window.
var ErrCursorInvalidated = errors.New("sync cursor invalidated")

// ErrNotPending is returned by the approval queue when the referenced
// message id has no pending entry.
var ErrNotPending = errors.New("message is not pending approval")

// Message is a read-mostly projection of a remote mailbox message. The mail
// service owns the authoritative copy; every mutation is a remote call.
type Message struct {
	ID             string    `json:"id"`
	ThreadID       string    `json:"thread_id"`
	InternetMsgID  string    `json:"internet_message_id"`
	Subject        string    `json:"subject"`
	From           string    `json:"from"`
	FromName       string    `json:"from_name"`
	To             []string  `json:"to"`
	ReceivedAt     time.Time `json:"received_at"`
	IsRead         bool      `json:"is_read"`
	Labels         []string  `json:"labels"`
	Body           string    `json:"body"`
	IsHTML         bool      `json:"is_html"`
}

// ProcessedKey returns the stable dedup identity for the message. The RFC 822
// Message-ID survives across feed views where the mailbox-local id may not;
// the local id is the fallback for drafts and other header-less edge cases.
func (m *Message) ProcessedKey() string {
	if m.InternetMsgID != "" {
		return m.InternetMsgID
	}
	return m.ID
}

// HasLabelPrefix reports whether any label on the message starts with prefix.
func (m *Message) HasLabelPrefix(prefix string) bool {
	for _, l := range m.Labels {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

// ChangeEvent is one entry of a folder's change feed: either a removal
// (only the id survives) or an upserted message.
type ChangeEvent struct {
	Removed bool     `json:"removed"`
	ID      string   `json:"id"`
	Message *Message `json:"message,omitempty"`
}

// ActionSummary records the externally visible side effects the executor
// performed for one message.
type ActionSummary struct {
	MessageID   string   `json:"message_id"`
	Replied     bool     `json:"replied"`
	ForwardedTo []string `json:"forwarded_to,omitempty"`
	MovedTo     []string `json:"moved_to,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	MarkedRead  bool     `json:"marked_read"`
	Failures    []string `json:"failures,omitempty"`
}
