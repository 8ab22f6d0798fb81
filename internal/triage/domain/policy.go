package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ReplyKind selects the auto-reply template a rule triggers.
type ReplyKind string

const (
	ReplyNone      ReplyKind = ""
	ReplyApplyForm ReplyKind = "apply_form"
	ReplyVolunteer ReplyKind = "volunteer_form"
)

// RoutingRule describes how one category is handled. Recipients are only
// honoured for forwarding categories; Folder is a best-effort move target.
type RoutingRule struct {
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Recipients  []string  `json:"recipients,omitempty"`
	Folder      string    `json:"folder,omitempty"`
	Reply       ReplyKind `json:"reply,omitempty"`
	Irrelevant  bool      `json:"irrelevant,omitempty"`
}

// RoutingPolicy is the organization's routing configuration. It is data, not
// code: the classifier prompt and the executor's category dispatch are both
// derived from it.
type RoutingPolicy struct {
	Organization   string        `json:"organization"`
	Mission        string        `json:"mission"`
	ApplyFormURL   string        `json:"apply_form_url,omitempty"`
	VolunteerURL   string        `json:"volunteer_form_url,omitempty"`
	Rules          []RoutingRule `json:"rules"`
	LeaveUnread    []string      `json:"leave_unread"`
	StaffAddresses []string      `json:"staff_addresses"`
}

// Rule returns the rule for a category, or nil if the category is unknown.
func (p *RoutingPolicy) Rule(category string) *RoutingRule {
	for i := range p.Rules {
		if p.Rules[i].Category == category {
			return &p.Rules[i]
		}
	}
	return nil
}

// Categories returns every category name the policy knows about.
func (p *RoutingPolicy) Categories() []string {
	out := make([]string, 0, len(p.Rules))
	for _, r := range p.Rules {
		out = append(out, r.Category)
	}
	return out
}

// IsStaff reports whether addr belongs to the configured staff set.
func (p *RoutingPolicy) IsStaff(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	for _, s := range p.StaffAddresses {
		if strings.ToLower(s) == addr {
			return true
		}
	}
	return false
}

// LoadRoutingPolicy reads a policy JSON document from path. An empty path
// yields the built-in default policy.
func LoadRoutingPolicy(path string) (*RoutingPolicy, error) {
	if path == "" {
		return DefaultRoutingPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routing policy: %w", err)
	}
	var policy RoutingPolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse routing policy: %w", err)
	}
	if len(policy.Rules) == 0 {
		return nil, fmt.Errorf("routing policy %s defines no rules", path)
	}
	return &policy, nil
}

// DefaultRoutingPolicy returns the stock nonprofit routing rules. Deployments
// are expected to override these via ROUTING_POLICY_PATH.
func DefaultRoutingPolicy() *RoutingPolicy {
	return &RoutingPolicy{
		Organization: "the organization",
		Mission:      "a nonprofit organization",
		Rules: []RoutingRule{
			{
				Category:    "legal",
				Description: "The sender is explicitly asking for legal help or representation. Refer them to the application form; no forwarding.",
				Folder:      "Apply for help",
				Reply:       ReplyApplyForm,
			},
			{
				Category:    "donor",
				Description: "The sender is a donor or is asking about a specific donation (payment issues, receipts, follow-ups).",
				Folder:      "Donor related",
			},
			{
				Category:    "sponsorship",
				Description: "The sender is requesting sponsorship or financial support from the organization.",
			},
			{
				Category:    "organizational",
				Description: "Questions about internal operations, leadership, partnerships or collaboration.",
				Folder:      "Organizational inquiries",
			},
			{
				Category:    "volunteer",
				Description: "The sender is offering to volunteer time or skills, or asking about volunteering.",
				Folder:      "Volunteer",
				Reply:       ReplyVolunteer,
			},
			{
				Category:    "job_application",
				Description: "The sender is applying for a paid job, sending a resume, or asking about open positions.",
				Folder:      "Job applications",
			},
			{
				Category:    "internship",
				Description: "The sender is applying for or inquiring about an internship.",
				Folder:      "Internship",
			},
			{
				Category:    "fellowship",
				Description: "The sender is applying for, asking about, or offering a fellowship.",
				Folder:      "Fellowship",
			},
			{
				Category:    "media",
				Description: "The sender is a reporter or journalist asking for comments, interviews, or statements.",
				Folder:      "Media",
			},
			{
				Category:    "marketing",
				Description: "A product or service offer that is relevant, contextually aware, and niche-specific. Generic mass promotion is never marketing.",
				Folder:      "Sales emails",
			},
			{
				Category:    "cold_outreach",
				Description: "Unsolicited sales mail with no meaningful awareness of the organization's work.",
				Folder:      "Irrelevant/Cold outreach",
				Irrelevant:  true,
			},
			{
				Category:    "spam",
				Description: "Obvious scams, phishing, or malicious mail.",
				Folder:      "Irrelevant/Spam",
				Irrelevant:  true,
			},
			{
				Category:    "newsletter",
				Description: "Bulk content such as PR updates, blog digests, or mass announcements.",
				Folder:      "For reference/Newsletters",
				Irrelevant:  true,
			},
			{
				Category:    "irrelevant_other",
				Description: "Anything unrelated to the organization's mission: misdirected or off-topic mail.",
				Folder:      "Irrelevant/Other",
				Irrelevant:  true,
			},
		},
		LeaveUnread: []string{"marketing"},
	}
}
