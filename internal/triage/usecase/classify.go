package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"mailtriage/internal/triage/domain"
	"mailtriage/pkg/ai"
)

const classifyTimeout = 90 * time.Second

// Gateway wraps the LLM call with prompt construction, response parsing and
// the safe fallback: any failure at all degrades to the empty decision,
// which leaves the message unread and untouched. It never returns an error.
type Gateway struct {
	provider ai.ClassifierService
	policy   *domain.RoutingPolicy
}

// NewGateway creates a classification gateway over the given provider.
func NewGateway(provider ai.ClassifierService, policy *domain.RoutingPolicy) *Gateway {
	return &Gateway{provider: provider, policy: policy}
}

// Classify assigns routing categories to one message.
func (g *Gateway) Classify(ctx context.Context, subject, body string) domain.RoutingDecision {
	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	raw, err := g.provider.ClassifyEmail(ctx, g.buildPrompt(subject, body))
	if err != nil {
		log.Printf("[Classify] provider error: %v", err)
		return domain.RoutingDecision{}
	}

	decision, err := parseDecision(raw)
	if err != nil {
		log.Printf("[Classify] could not parse decision: %v", err)
		return domain.RoutingDecision{}
	}
	return decision
}

// parseDecision tolerates decorative fences around the JSON payload and
// rejects anything that is not an object.
func parseDecision(raw string) (domain.RoutingDecision, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```json") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "```json"))
	} else if strings.HasPrefix(raw, "```") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "```"))
	}
	if strings.HasSuffix(raw, "```") {
		raw = strings.TrimSpace(strings.TrimSuffix(raw, "```"))
	}

	if !strings.HasPrefix(raw, "{") {
		return domain.RoutingDecision{}, fmt.Errorf("response is not a JSON object")
	}

	var decision domain.RoutingDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return domain.RoutingDecision{}, err
	}

	categories := decision.Categories[:0]
	for _, c := range decision.Categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			categories = append(categories, c)
		}
	}
	decision.Categories = categories
	return decision, nil
}

// buildPrompt embeds the routing policy into the classification request. The
// policy wording is configuration; only the response contract is fixed here.
func (g *Gateway) buildPrompt(subject, body string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an email routing assistant for %s, %s.\n\n", g.policy.Organization, g.policy.Mission)
	b.WriteString("Your job is to classify incoming emails based on their content, sender intent, and relevance to the organization's mission. Do not rely on keywords alone. Use the routing rules below to assign one or more categories and determine appropriate recipients if applicable.\n")
	b.WriteString("Additionally, identify the sender's name when possible and include it as `name_sender` in the JSON. Prefer the From display name; if unavailable or generic, use a clear sign-off in the body. If you cannot determine the name confidently, set `name_sender` to exactly \"Sender\".\n\n")

	b.WriteString("HUMAN-STYLE REPLY ESCALATION:\n")
	b.WriteString("Set `needs_personal_reply=true` only if the email is personal or referral-like, or contains substantial case detail: referral signals (a person or organization told the sender to contact us), a personal narrative with specifics (names, dates, locations, case numbers, attached evidence), or a clearly individualized appeal. If the email is short, vague, and generic, set `needs_personal_reply=false` even if it asks for help.\n\n")

	b.WriteString("ROUTING RULES & RECIPIENTS:\n\n")
	var forwarding []string
	for _, rule := range g.policy.Rules {
		fmt.Fprintf(&b, "- \"%s\" -> %s", rule.Category, rule.Description)
		if len(rule.Recipients) > 0 {
			fmt.Fprintf(&b, " Forward to: %s", strings.Join(rule.Recipients, ", "))
			forwarding = append(forwarding, rule.Category)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nIMPORTANT GUIDELINES:\n")
	b.WriteString("1. Emails can and should have multiple categories when appropriate.\n")
	fmt.Fprintf(&b, "2. Use `all_recipients` only for the forwarding categories: %s. For every other category leave `all_recipients` empty.\n", strings.Join(forwarding, ", "))
	b.WriteString("3. Never mark generic, untargeted, or mass-promotional email as \"marketing\"; that is \"cold_outreach\".\n")
	b.WriteString("4. If \"legal\" applies, still include all other relevant categories; it is additive, never exclusive.\n\n")

	b.WriteString("Return a JSON object with:\n")
	fmt.Fprintf(&b, "- `categories`: array from [%s]\n", quotedList(g.policy.Categories()))
	b.WriteString("- `all_recipients`: list of email addresses (may be empty)\n")
	b.WriteString("- `needs_personal_reply`: boolean per the escalation section\n")
	b.WriteString("- `reason`: object mapping each category to a brief justification\n")
	b.WriteString("- `escalation_reason`: brief string explaining why `needs_personal_reply` is true (empty string if false)\n")
	b.WriteString("- `name_sender`: the sender's name if confidently identified; otherwise exactly \"Sender\"\n\n")

	fmt.Fprintf(&b, "Subject: %s\n\nBody:\n%s\n", subject, body)
	return b.String()
}

func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = `"` + s + `"`
	}
	return strings.Join(quoted, ",")
}
