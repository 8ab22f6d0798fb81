package domain

// RoutingDecision is the structured output of email classification.
// An empty decision (no categories) means "leave the message untouched";
// the classification gateway degrades to it on any failure.
type RoutingDecision struct {
	Categories         []string          `json:"categories"`
	AllRecipients      []string          `json:"all_recipients"`
	NeedsPersonalReply bool              `json:"needs_personal_reply"`
	Reason             map[string]string `json:"reason,omitempty"`
	EscalationReason   string            `json:"escalation_reason,omitempty"`
	SenderName         string            `json:"name_sender,omitempty"`
}

// IsEmpty reports whether the decision carries no categories, i.e. the
// neutral fallback decision.
func (d RoutingDecision) IsEmpty() bool {
	return len(d.Categories) == 0
}

// PendingApproval is an item held by the approval gate: a classified message
// waiting for an operator to approve or reject it. At most one entry exists
// per message id.
type PendingApproval struct {
	Message    *Message        `json:"message"`
	Decision   RoutingDecision `json:"decision"`
	CleanBody  string          `json:"clean_body"`
	EnqueuedAt string          `json:"enqueued_at"`
}
