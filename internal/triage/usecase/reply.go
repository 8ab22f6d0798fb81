package usecase

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"mailtriage/internal/triage/domain"
	"mailtriage/internal/triage/repository"
)

// ReplyRelay detects staff answers to forwarded messages and relays them to
// the original sender. The link between the two is the hidden sentinel the
// executor embeds in every forward; no database lookup is needed to
// recognize a staff reply, only to reconstruct the CC set.
type ReplyRelay struct {
	mail         MailService
	correlations repository.ForwardCorrelationStore
	ledger       repository.ProcessedLedger
	policy       *domain.RoutingPolicy
	tagPrefix    string
	sentinel     string
	idRe         *regexp.Regexp
}

// NewReplyRelay creates a relay for the given sentinel token.
func NewReplyRelay(mail MailService, correlations repository.ForwardCorrelationStore, ledger repository.ProcessedLedger, policy *domain.RoutingPolicy, tagPrefix, sentinel string) *ReplyRelay {
	return &ReplyRelay{
		mail:         mail,
		correlations: correlations,
		ledger:       ledger,
		policy:       policy,
		tagPrefix:    tagPrefix,
		sentinel:     sentinel,
		idRe:         regexp.MustCompile(regexp.QuoteMeta(sentinel) + `\s*([^\s<&]+)`),
	}
}

// IsStaffReply reports whether the message is an internal reply to a
// forward: sent by configured staff, carrying the sentinel, and not yet
// marked processed.
func (r *ReplyRelay) IsStaffReply(msg *domain.Message) bool {
	return r.policy.IsStaff(msg.From) &&
		strings.Contains(msg.Body, r.sentinel) &&
		!msg.HasLabelPrefix(r.tagPrefix)
}

// Relay extracts the staff member's answer and sends it to the original
// sender, CC'ing the other recorded forward recipients.
func (r *ReplyRelay) Relay(ctx context.Context, msg *domain.Message) error {
	log.Printf("[Relay] staff reply detected from %s: %s", msg.From, msg.Subject)

	idx := strings.Index(msg.Body, r.sentinel)
	if idx < 0 {
		return fmt.Errorf("reply from %s does not contain the reference sentinel", msg.From)
	}

	// Everything before the sentinel is the human-authored answer; the
	// sentinel and the quoted history after it are discarded.
	replyHTML := msg.Body[:idx]
	if strings.TrimSpace(StripHTML(replyHTML)) == "" {
		log.Printf("[Relay] reply from %s is empty after stripping markup, not relaying", msg.From)
		return nil
	}

	match := r.idRe.FindStringSubmatch(msg.Body)
	if match == nil {
		return fmt.Errorf("could not extract the original message id from reply")
	}
	originalID := strings.TrimSpace(match[1])

	original, err := r.mail.GetMessage(ctx, originalID)
	if err != nil {
		return fmt.Errorf("could not fetch original message %s: %w", originalID, err)
	}

	var cc []string
	recipients, err := r.correlations.Recipients(originalID)
	if err != nil {
		log.Printf("[Relay] could not load forward correlation for %s: %v", originalID, err)
	}
	for _, addr := range recipients {
		if !strings.EqualFold(addr, msg.From) {
			cc = append(cc, addr)
		}
	}

	if err := r.mail.SendReply(ctx, original, replyHTML, cc); err != nil {
		return fmt.Errorf("could not relay reply to %s: %w", original.From, err)
	}
	log.Printf("[Relay] relayed reply to %s, cc: %v", original.From, cc)

	repliedTag := r.tagPrefix + "/replied/" + msg.From
	if err := r.mail.MarkRead(ctx, msg.ID); err != nil {
		log.Printf("[Relay] could not mark staff reply read: %v", err)
	}
	if err := r.mail.AddLabels(ctx, msg.ID, []string{r.tagPrefix, repliedTag}); err != nil {
		log.Printf("[Relay] could not tag staff reply: %v", err)
	}
	// Best effort: the original gets the replied marker too so operators can
	// see the thread was answered.
	if err := r.mail.AddLabels(ctx, original.ID, []string{repliedTag}); err != nil {
		log.Printf("[Relay] could not tag original message: %v", err)
	}

	if err := r.ledger.Mark(msg.ProcessedKey()); err != nil {
		log.Printf("[Relay] could not mark ledger: %v", err)
	}
	return nil
}
