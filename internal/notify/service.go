package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"mailtriage/internal/triage/usecase"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// waker is the part of the pipeline the notifier drives.
type waker interface {
	Wake()
}

type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service listens on the Pub/Sub topic Gmail publishes watch notifications to
// and wakes the poll loop when something lands in the watched mailbox. The
// loop still ticks on its own interval, so push delivery is an accelerant,
// never a dependency.
type Service struct {
	pubsubClient *pubsub.Client
	mail         usecase.MailService
	pipeline     waker
	watchedEmail string
	topicName    string
	subName      string
	// Deduplication: Pub/Sub is at-least-once and Receive runs callbacks on
	// multiple goroutines, so the last historyId seen sits behind a mutex.
	mu            sync.Mutex
	lastHistoryID uint64
}

func NewService(projectID, topicName, watchedEmail string, mail usecase.MailService, pipeline waker, credentialsFile string) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Service{
		pubsubClient: client,
		mail:         mail,
		pipeline:     pipeline,
		watchedEmail: watchedEmail,
		topicName:    topicName,
		subName:      topicName + "-sub", // Convention: topic-sub
	}, nil
}

func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	go s.renewWatchLoop(ctx)

	// Ensure subscription exists
	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic does not exist, cannot create subscription")
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) handleMessage(msg *pubsub.Message) {
	var notification GmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	if !strings.EqualFold(notification.EmailAddress, s.watchedEmail) {
		log.Printf("[PubSub] Ignoring notification for unwatched mailbox: %s", notification.EmailAddress)
		return
	}

	// Skip if we already processed this historyId
	s.mu.Lock()
	if notification.HistoryID <= s.lastHistoryID {
		s.mu.Unlock()
		return
	}
	s.lastHistoryID = notification.HistoryID
	s.mu.Unlock()

	log.Printf("[PubSub] Mailbox activity for %s (historyId: %d), waking pipeline", notification.EmailAddress, notification.HistoryID)
	s.pipeline.Wake()
}

// renewWatchLoop re-registers the Gmail watch daily. Watches expire after
// seven days; renewing early keeps push delivery uninterrupted.
func (s *Service) renewWatchLoop(ctx context.Context) {
	renew := func() {
		if err := s.mail.Watch(ctx, fmt.Sprintf("projects/%s/topics/%s", s.pubsubClient.Project(), s.topicName)); err != nil {
			log.Printf("[PubSub] Failed to register Gmail watch: %v", err)
		} else {
			log.Printf("[PubSub] Gmail watch registered on topic %s", s.topicName)
		}
	}
	renew()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			renew()
		}
	}
}
