package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"mailtriage/internal/triage/domain"
	"mailtriage/internal/triage/repository"
)

// Executor applies the category-to-action mapping for one classified
// message. It is best-effort complete: a failed remote call inside one
// branch is logged and recorded but never aborts the remaining branches,
// because partial routing beats leaving a message wholly unprocessed.
//
// The dedup contract: Execute is called at most once per message within a
// run (the pipeline checks the remote processed tag and the local ledger
// first), and it marks the ledger only after actions have been issued.
type Executor struct {
	mail         MailService
	ledger       repository.ProcessedLedger
	correlations repository.ForwardCorrelationStore
	policy       *domain.RoutingPolicy
	tagPrefix    string
	sentinel     string
}

// NewExecutor creates a routing executor.
func NewExecutor(mail MailService, ledger repository.ProcessedLedger, correlations repository.ForwardCorrelationStore, policy *domain.RoutingPolicy, tagPrefix, sentinel string) *Executor {
	return &Executor{
		mail:         mail,
		ledger:       ledger,
		correlations: correlations,
		policy:       policy,
		tagPrefix:    tagPrefix,
		sentinel:     sentinel,
	}
}

// Execute performs every action the decision calls for and returns a summary
// of the externally visible side effects.
func (x *Executor) Execute(ctx context.Context, msg *domain.Message, decision domain.RoutingDecision) *domain.ActionSummary {
	summary := &domain.ActionSummary{MessageID: msg.ID}

	recipients := make(map[string]string) // lowercased -> original form
	for _, addr := range decision.AllRecipients {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients[strings.ToLower(addr)] = addr
		}
	}

	for _, category := range decision.Categories {
		rule := x.policy.Rule(category)
		if rule == nil {
			log.Printf("[Executor] %s: unknown category %q, tagging only", msg.ID, category)
			continue
		}

		switch rule.Reply {
		case domain.ReplyApplyForm:
			body := applyFormReply(x.policy, decision.SenderName, decision.NeedsPersonalReply, time.Now())
			if err := x.mail.SendReply(ctx, msg, body, nil); err != nil {
				x.fail(summary, "reply", category, err)
			} else {
				summary.Replied = true
			}
		case domain.ReplyVolunteer:
			body := volunteerReply(x.policy, decision.SenderName, time.Now())
			if err := x.mail.SendReply(ctx, msg, body, nil); err != nil {
				x.fail(summary, "reply", category, err)
			} else {
				summary.Replied = true
			}
		}

		for _, addr := range rule.Recipients {
			recipients[strings.ToLower(addr)] = addr
		}

		if rule.Folder != "" {
			if err := x.mail.Move(ctx, msg.ID, rule.Folder); err != nil {
				x.fail(summary, "move", category, err)
			} else {
				summary.MovedTo = append(summary.MovedTo, rule.Folder)
			}
		}
	}

	// One forward to the union of recipients, never one per category. The
	// hidden sentinel lets a staff reply be correlated back to the sender.
	if len(recipients) > 0 {
		to := make([]string, 0, len(recipients))
		for _, addr := range recipients {
			to = append(to, addr)
		}
		sort.Strings(to)

		body := fmt.Sprintf(
			`<p>Please press "Reply All" and reply to the shared mailbox; your answer will automatically be relayed to the original sender.</p><div style="display:none;">%s%s</div>`,
			x.sentinel, msg.ID,
		)
		if err := x.mail.SendForward(ctx, msg, to, body); err != nil {
			x.fail(summary, "forward", "", err)
		} else {
			summary.ForwardedTo = to
			if err := x.correlations.Record(msg.ID, to); err != nil {
				log.Printf("[Executor] %s: could not record forward correlation: %v", msg.ID, err)
			}
		}
	}

	tags := x.tagsFor(decision.Categories)
	if err := x.mail.AddLabels(ctx, msg.ID, tags); err != nil {
		x.fail(summary, "tag", "", err)
	} else {
		summary.Tags = tags
	}

	if !x.allLeaveUnread(decision.Categories) {
		if err := x.mail.MarkRead(ctx, msg.ID); err != nil {
			x.fail(summary, "mark-read", "", err)
		} else {
			summary.MarkedRead = true
		}
	}

	if err := x.ledger.Mark(msg.ProcessedKey()); err != nil {
		log.Printf("[Executor] %s: could not mark ledger: %v", msg.ID, err)
	}

	return summary
}

// tagsFor builds the machine-readable marker set: one namespaced tag per
// category plus the umbrella marker. Irrelevant categories nest one level
// deeper, mirroring the folder hierarchy.
func (x *Executor) tagsFor(categories []string) []string {
	tags := []string{x.tagPrefix}
	for _, c := range categories {
		rule := x.policy.Rule(c)
		if rule != nil && rule.Irrelevant {
			tags = append(tags, x.tagPrefix+"/irrelevant/"+c)
		} else {
			tags = append(tags, x.tagPrefix+"/"+c)
		}
	}
	return tags
}

func (x *Executor) allLeaveUnread(categories []string) bool {
	if len(categories) == 0 {
		return false
	}
	for _, c := range categories {
		found := false
		for _, lu := range x.policy.LeaveUnread {
			if c == lu {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (x *Executor) fail(summary *domain.ActionSummary, action, category string, err error) {
	desc := action
	if category != "" {
		desc = action + "/" + category
	}
	log.Printf("[Executor] %s: %s failed: %v", summary.MessageID, desc, err)
	summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %v", desc, err))
}
