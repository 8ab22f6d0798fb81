package usecase

import (
	"context"
	"sync"
	"time"

	"mailtriage/internal/triage/domain"
)

type sentReply struct {
	To   string
	Body string
	CC   []string
}

type sentForward struct {
	OriginalID string
	To         []string
	Body       string
}

// fakeMail is an in-memory MailService for tests. Side effects are recorded
// for assertion; per-call error hooks simulate provider failures.
type fakeMail struct {
	mu sync.Mutex

	messages map[string]*domain.Message

	changeEvents   []domain.ChangeEvent
	changeCursor   string
	changeErr      error
	backfillEvents []domain.ChangeEvent
	backfillCursor string
	backfillErr    error
	backfillSince  time.Time

	replies       []sentReply
	forwards      []sentForward
	labels        map[string][]string
	removedLabels map[string][]string
	read          map[string]bool
	moves         map[string][]string
	reconnects    int

	replyErr   error
	forwardErr error
	labelErr   error
	readErr    error
	moveErr    error
}

func newFakeMail() *fakeMail {
	return &fakeMail{
		messages:      make(map[string]*domain.Message),
		labels:        make(map[string][]string),
		removedLabels: make(map[string][]string),
		read:          make(map[string]bool),
		moves:         make(map[string][]string),
	}
}

func (f *fakeMail) ListChanges(ctx context.Context, folder, cursor string) ([]domain.ChangeEvent, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.changeErr != nil {
		return nil, "", f.changeErr
	}
	return f.changeEvents, f.changeCursor, nil
}

func (f *fakeMail) Backfill(ctx context.Context, folder string, since time.Time) ([]domain.ChangeEvent, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backfillSince = since
	if f.backfillErr != nil {
		return nil, "", f.backfillErr
	}
	return f.backfillEvents, f.backfillCursor, nil
}

func (f *fakeMail) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := f.messages[id]; ok {
		return msg, nil
	}
	return nil, domain.ErrCursorInvalidated
}

func (f *fakeMail) AddLabels(ctx context.Context, id string, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.labelErr != nil {
		return f.labelErr
	}
	f.labels[id] = append(f.labels[id], names...)
	return nil
}

func (f *fakeMail) RemoveLabels(ctx context.Context, id string, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.labelErr != nil {
		return f.labelErr
	}
	f.removedLabels[id] = append(f.removedLabels[id], names...)
	return nil
}

func (f *fakeMail) MarkRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return f.readErr
	}
	f.read[id] = true
	return nil
}

func (f *fakeMail) Move(ctx context.Context, id, folder string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moveErr != nil {
		return f.moveErr
	}
	f.moves[id] = append(f.moves[id], folder)
	return nil
}

func (f *fakeMail) SendReply(ctx context.Context, msg *domain.Message, htmlBody string, cc []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replies = append(f.replies, sentReply{To: msg.From, Body: htmlBody, CC: cc})
	return nil
}

func (f *fakeMail) SendForward(ctx context.Context, msg *domain.Message, to []string, bodyHTML string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forwardErr != nil {
		return f.forwardErr
	}
	f.forwards = append(f.forwards, sentForward{OriginalID: msg.ID, To: to, Body: bodyHTML})
	return nil
}

func (f *fakeMail) Watch(ctx context.Context, topicName string) error { return nil }

func (f *fakeMail) Reconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	return nil
}

type fakeLedger struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{keys: make(map[string]bool)}
}

func (l *fakeLedger) Seen(key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	return l.keys[key], nil
}

func (l *fakeLedger) Mark(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.keys[key] = true
	return nil
}

type fakeCorrelations struct {
	mu       sync.Mutex
	byMsgID  map[string][]string
	recorded map[string]time.Time
}

func newFakeCorrelations() *fakeCorrelations {
	return &fakeCorrelations{
		byMsgID:  make(map[string][]string),
		recorded: make(map[string]time.Time),
	}
}

func (c *fakeCorrelations) Record(messageID string, recipients []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byMsgID[messageID] = append([]string(nil), recipients...)
	c.recorded[messageID] = time.Now()
	return nil
}

func (c *fakeCorrelations) Recipients(messageID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byMsgID[messageID], nil
}

func (c *fakeCorrelations) EvictOlderThan(cutoff time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for id, at := range c.recorded {
		if at.Before(cutoff) {
			delete(c.byMsgID, id)
			delete(c.recorded, id)
			n++
		}
	}
	return n, nil
}

type memCursorStore struct {
	mu      sync.Mutex
	cursors map[string]string
}

func newMemCursorStore() *memCursorStore {
	return &memCursorStore{cursors: make(map[string]string)}
}

func (s *memCursorStore) Load(folder string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[folder], nil
}

func (s *memCursorStore) Save(folder, cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[folder] = cursor
	return nil
}

func (s *memCursorStore) Delete(folder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, folder)
	return nil
}

type fakeClassifier struct {
	resp    string
	err     error
	prompts []string
}

func (f *fakeClassifier) ClassifyEmail(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.resp, f.err
}

// testPolicy is a small routing policy exercising every action type: a reply
// category, two forwarding categories with overlapping recipients, a
// leave-unread category and an irrelevant one.
func testPolicy() *domain.RoutingPolicy {
	return &domain.RoutingPolicy{
		Organization: "Testorg",
		Mission:      "a test fixture",
		ApplyFormURL: "https://testorg.example/apply",
		VolunteerURL: "https://testorg.example/volunteer",
		Rules: []domain.RoutingRule{
			{
				Category: "legal",
				Folder:   "Apply for help",
				Reply:    domain.ReplyApplyForm,
			},
			{
				Category:   "donor",
				Folder:     "Donor related",
				Recipients: []string{"alice@testorg.example"},
			},
			{
				Category:   "media",
				Folder:     "Media",
				Recipients: []string{"alice@testorg.example", "bob@testorg.example"},
			},
			{
				Category: "marketing",
				Folder:   "Sales emails",
			},
			{
				Category:   "spam",
				Folder:     "Irrelevant/Spam",
				Irrelevant: true,
			},
		},
		LeaveUnread:    []string{"marketing"},
		StaffAddresses: []string{"alice@testorg.example", "bob@testorg.example"},
	}
}

func testMessage(id string) *domain.Message {
	return &domain.Message{
		ID:            id,
		ThreadID:      "t-" + id,
		InternetMsgID: "<" + id + "@mail.example>",
		Subject:       "Subject " + id,
		From:          "sender@elsewhere.example",
		FromName:      "Some Sender",
		ReceivedAt:    time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		Body:          "<p>Hello, I need help with something.</p>",
		IsHTML:        true,
	}
}
