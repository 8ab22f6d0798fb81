package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"mailtriage/internal/triage/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const pageSize = 50

// Service is the Gmail mail provider for the triage pipeline. It owns the
// OAuth token source for the watched mailbox and a label name<->id cache.
type Service struct {
	clientID     string
	clientSecret string
	refreshToken string

	mu        sync.Mutex
	srv       *gmail.Service
	labelByID map[string]string
	idByLabel map[string]string
}

// NewService creates the provider and performs the initial authentication.
func NewService(ctx context.Context, clientID, clientSecret, refreshToken string) (*Service, error) {
	s := &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
	}
	if err := s.Reconnect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reconnect discards the current client and token source and builds fresh
// ones. The pipeline calls this after repeated consecutive cycle failures.
func (s *Service) Reconnect(ctx context.Context) error {
	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: s.refreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Now(), // force an immediate refresh
	}

	client := oauth2.NewClient(ctx, config.TokenSource(ctx, token))

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("unable to create Gmail service: %w", err)
	}

	s.mu.Lock()
	s.srv = srv
	s.labelByID = nil
	s.idByLabel = nil
	s.mu.Unlock()
	return nil
}

func (s *Service) service() *gmail.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv
}

// ListChanges walks the history feed for one folder starting at cursor and
// returns the change events in page order plus the cursor to persist for the
// next cycle. An expired cursor surfaces as domain.ErrCursorInvalidated.
func (s *Service) ListChanges(ctx context.Context, folder, cursor string) ([]domain.ChangeEvent, string, error) {
	srv := s.service()

	startID, err := strconv.ParseUint(cursor, 10, 64)
	if err != nil {
		// A cursor we cannot parse is as good as an expired one.
		return nil, "", domain.ErrCursorInvalidated
	}

	labelID, err := s.labelID(folder, false)
	if err != nil {
		return nil, "", err
	}

	var events []domain.ChangeEvent
	seen := map[string]bool{}
	newCursor := cursor
	pageToken := ""

	for {
		call := srv.Users.History.List("me").
			StartHistoryId(startID).
			LabelId(labelID).
			MaxResults(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			if isGoneError(err) {
				return nil, "", domain.ErrCursorInvalidated
			}
			return nil, "", fmt.Errorf("unable to list history for %s: %w", folder, err)
		}

		for _, h := range resp.History {
			for _, d := range h.MessagesDeleted {
				if d.Message == nil || seen["del:"+d.Message.Id] {
					continue
				}
				seen["del:"+d.Message.Id] = true
				events = append(events, domain.ChangeEvent{Removed: true, ID: d.Message.Id})
			}
			for _, a := range h.MessagesAdded {
				if a.Message == nil || seen[a.Message.Id] {
					continue
				}
				seen[a.Message.Id] = true
				msg, err := s.GetMessage(ctx, a.Message.Id)
				if err != nil {
					// The message may already be gone again; skip it and let
					// the next cycle pick it up if it still exists.
					log.Printf("[Gmail] could not fetch changed message %s: %v", a.Message.Id, err)
					continue
				}
				events = append(events, domain.ChangeEvent{ID: msg.ID, Message: msg})
			}
		}

		if resp.HistoryId != 0 {
			newCursor = strconv.FormatUint(resp.HistoryId, 10)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return events, newCursor, nil
}

// Backfill performs the initial bounded query for a folder with no cursor:
// every message received since the given time, plus a fresh cursor taken
// from the mailbox profile. The profile snapshot is taken before the walk so
// a message arriving mid-walk is replayed (and deduplicated) rather than lost.
func (s *Service) Backfill(ctx context.Context, folder string, since time.Time) ([]domain.ChangeEvent, string, error) {
	srv := s.service()

	profile, err := srv.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, "", fmt.Errorf("unable to read mailbox profile: %w", err)
	}
	newCursor := strconv.FormatUint(profile.HistoryId, 10)

	q := fmt.Sprintf("in:%s after:%d", strings.ToLower(folder), since.Unix())

	var events []domain.ChangeEvent
	pageToken := ""
	for {
		call := srv.Users.Messages.List("me").Q(q).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, "", fmt.Errorf("unable to backfill %s: %w", folder, err)
		}

		for _, m := range resp.Messages {
			msg, err := s.GetMessage(ctx, m.Id)
			if err != nil {
				log.Printf("[Gmail] could not fetch backfill message %s: %v", m.Id, err)
				continue
			}
			events = append(events, domain.ChangeEvent{ID: msg.ID, Message: msg})
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return events, newCursor, nil
}

// GetMessage fetches one message by id and converts it to the domain shape.
func (s *Service) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	srv := s.service()

	msg, err := srv.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message: %w", err)
	}

	return s.convertMessage(msg)
}

// AddLabels applies the given label names to a message, creating any label
// that does not exist yet. Gmail's modify call is a pure union: labels owned
// by other tools are never touched.
func (s *Service) AddLabels(ctx context.Context, id string, names []string) error {
	srv := s.service()

	ids := make([]string, 0, len(names))
	for _, name := range names {
		labelID, err := s.labelID(name, true)
		if err != nil {
			return err
		}
		ids = append(ids, labelID)
	}

	_, err := srv.Users.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		AddLabelIds: ids,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to add labels: %w", err)
	}
	return nil
}

// RemoveLabels strips the given label names from a message. Names that were
// never created resolve to nothing and are skipped.
func (s *Service) RemoveLabels(ctx context.Context, id string, names []string) error {
	srv := s.service()

	ids := make([]string, 0, len(names))
	for _, name := range names {
		labelID, err := s.labelID(name, false)
		if err != nil {
			continue
		}
		ids = append(ids, labelID)
	}
	if len(ids) == 0 {
		return nil
	}

	_, err := srv.Users.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: ids,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to remove labels: %w", err)
	}
	return nil
}

// MarkRead marks a message as read.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	srv := s.service()

	_, err := srv.Users.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to mark message as read: %w", err)
	}
	return nil
}

// Move files a message into the named folder: the folder label replaces
// INBOX, everything else stays.
func (s *Service) Move(ctx context.Context, id, folder string) error {
	srv := s.service()

	labelID, err := s.labelID(folder, true)
	if err != nil {
		return err
	}

	_, err = srv.Users.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		AddLabelIds:    []string{labelID},
		RemoveLabelIds: []string{"INBOX"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to move message: %w", err)
	}
	return nil
}

// SendReply sends an HTML reply to the original sender of msg, threading it
// into the same conversation. Additional addresses go on CC.
func (s *Service) SendReply(ctx context.Context, msg *domain.Message, htmlBody string, cc []string) error {
	srv := s.service()

	profile, err := srv.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to read mailbox profile: %w", err)
	}

	subject := msg.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	raw, err := buildMIME(profile.EmailAddress, []string{msg.From}, cc, subject, msg.InternetMsgID, htmlBody)
	if err != nil {
		return err
	}

	_, err = srv.Users.Messages.Send("me", &gmail.Message{
		Raw:      base64.RawURLEncoding.EncodeToString(raw),
		ThreadId: msg.ThreadID,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to send reply: %w", err)
	}
	return nil
}

// SendForward forwards msg to the given recipients with bodyHTML prepended
// above the quoted original.
func (s *Service) SendForward(ctx context.Context, msg *domain.Message, to []string, bodyHTML string) error {
	srv := s.service()

	profile, err := srv.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to read mailbox profile: %w", err)
	}

	subject := msg.Subject
	if !strings.HasPrefix(strings.ToLower(subject), "fwd:") {
		subject = "Fwd: " + subject
	}

	quoted := fmt.Sprintf(
		"<br><hr><p>---------- Forwarded message ----------<br>From: %s<br>Date: %s<br>Subject: %s</p>%s",
		msg.From, msg.ReceivedAt.Format(time.RFC1123), msg.Subject, msg.Body,
	)

	raw, err := buildMIME(profile.EmailAddress, to, nil, subject, msg.InternetMsgID, bodyHTML+quoted)
	if err != nil {
		return err
	}

	_, err = srv.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.RawURLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to send forward: %w", err)
	}
	return nil
}

// Watch sets up push notifications for the mailbox on the given topic.
func (s *Service) Watch(ctx context.Context, topicName string) error {
	srv := s.service()

	// Only one push client is allowed per mailbox; clear any stale watch.
	_ = srv.Users.Stop("me").Do()

	resp, err := srv.Users.Watch("me", &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to watch mailbox: %w", err)
	}
	log.Printf("[Gmail] watch started, expiration: %d, historyId: %d", resp.Expiration, resp.HistoryId)
	return nil
}

// labelID resolves a label name to its id, optionally creating the label.
// System folder names (INBOX, SPAM, ...) are their own ids.
func (s *Service) labelID(name string, create bool) (string, error) {
	upper := strings.ToUpper(name)
	switch upper {
	case "INBOX", "SPAM", "TRASH", "UNREAD", "STARRED", "SENT", "DRAFT", "IMPORTANT":
		return upper, nil
	}

	s.mu.Lock()
	if id, ok := s.idByLabel[name]; ok {
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	if err := s.refreshLabels(); err != nil {
		return "", err
	}

	s.mu.Lock()
	id, ok := s.idByLabel[name]
	s.mu.Unlock()
	if ok {
		return id, nil
	}
	if !create {
		return "", fmt.Errorf("label %q does not exist", name)
	}

	label, err := s.service().Users.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create label %q: %w", name, err)
	}

	s.mu.Lock()
	s.idByLabel[name] = label.Id
	s.labelByID[label.Id] = name
	s.mu.Unlock()
	return label.Id, nil
}

func (s *Service) refreshLabels() error {
	resp, err := s.service().Users.Labels.List("me").Do()
	if err != nil {
		return fmt.Errorf("unable to retrieve labels: %w", err)
	}

	byID := make(map[string]string, len(resp.Labels))
	byName := make(map[string]string, len(resp.Labels))
	for _, l := range resp.Labels {
		byID[l.Id] = l.Name
		byName[l.Name] = l.Id
	}

	s.mu.Lock()
	s.labelByID = byID
	s.idByLabel = byName
	s.mu.Unlock()
	return nil
}

func (s *Service) labelName(id string) string {
	s.mu.Lock()
	name, ok := s.labelByID[id]
	s.mu.Unlock()
	if ok {
		return name
	}
	if err := s.refreshLabels(); err != nil {
		return id
	}
	s.mu.Lock()
	name, ok = s.labelByID[id]
	s.mu.Unlock()
	if !ok {
		return id
	}
	return name
}

// convertMessage maps a Gmail API message to the domain projection, with
// label ids translated to names.
func (s *Service) convertMessage(msg *gmail.Message) (*domain.Message, error) {
	if msg.Payload == nil {
		return nil, fmt.Errorf("message %s has no payload", msg.Id)
	}

	from := getHeader(msg.Payload.Headers, "From")
	fromAddr := from
	fromName := ""
	if idx := strings.Index(from, "<"); idx >= 0 {
		fromName = strings.TrimSpace(strings.Trim(from[:idx], `" `))
		fromAddr = strings.Trim(from[idx:], "<> ")
	}

	var to []string
	if toHeader := getHeader(msg.Payload.Headers, "To"); toHeader != "" {
		to = []string{toHeader}
	}

	labels := make([]string, 0, len(msg.LabelIds))
	for _, id := range msg.LabelIds {
		labels = append(labels, s.labelName(id))
	}

	body, isHTML := getEmailBody(msg.Payload)

	return &domain.Message{
		ID:            msg.Id,
		ThreadID:      msg.ThreadId,
		InternetMsgID: strings.Trim(getHeader(msg.Payload.Headers, "Message-Id"), "<> "),
		Subject:       getHeader(msg.Payload.Headers, "Subject"),
		From:          strings.ToLower(fromAddr),
		FromName:      fromName,
		To:            to,
		ReceivedAt:    time.Unix(msg.InternalDate/1000, 0),
		IsRead:        !hasLabel(msg.LabelIds, "UNREAD"),
		Labels:        labels,
		Body:          body,
		IsHTML:        isHTML,
	}, nil
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

// decodeBody tolerates both padded and unpadded base64url payloads.
func decodeBody(data string) ([]byte, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
	}
	return decoded, err
}

func getEmailBody(payload *gmail.MessagePart) (string, bool) {
	// If the payload itself is the body
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := decodeBody(payload.Body.Data)
		if err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	var htmlBody string
	var plainBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.MimeType == "text/html" {
				if part.Body != nil && part.Body.Data != "" {
					if data, err := decodeBody(part.Body.Data); err == nil {
						htmlBody = string(data)
					}
				}
			} else if part.MimeType == "text/plain" {
				if part.Body != nil && part.Body.Data != "" {
					if data, err := decodeBody(part.Body.Data); err == nil {
						plainBody = string(data)
					}
				}
			}

			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}

	findBody(payload.Parts)

	if htmlBody != "" {
		return htmlBody, true
	}
	return plainBody, false
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}

func isGoneError(err error) bool {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code == 404 || apiErr.Code == 410
	}
	return false
}
