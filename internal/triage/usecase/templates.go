package usecase

import (
	"fmt"
	"time"

	"mailtriage/internal/triage/domain"
)

// greeting personalizes the reply opening when the classifier identified a
// sender name, else falls back to a time-of-day greeting.
func greeting(senderName string, now time.Time) string {
	if senderName != "" && senderName != "Sender" {
		return fmt.Sprintf("Dear %s,", senderName)
	}

	switch hour := now.Hour(); {
	case hour >= 5 && hour < 12:
		return "Good morning,"
	case hour >= 12 && hour < 17:
		return "Good afternoon,"
	case hour >= 17 && hour < 21:
		return "Good evening,"
	default:
		return "Good morning,"
	}
}

// applyFormReply is the legal-inquiry auto reply. The personal variant is
// used when the classifier flagged the message as needing a human-style
// response.
func applyFormReply(policy *domain.RoutingPolicy, senderName string, personal bool, now time.Time) string {
	if personal {
		return fmt.Sprintf(`
			<p>%s</p>

			<p>Thank you for contacting %s. We are grateful that you reached out and placed your trust in us to potentially support your legal matter.</p>

			<p>If you have not already done so, please submit a formal application for legal assistance through our website:<br>
			<a href="%s">%s</a></p>

			<p>Once submitted, our team will carefully review your application and follow up with next steps. If you have any questions about the application process or need help completing it, please don't hesitate to reach out.</p>

			<p>We appreciate your patience as we work through applications, and we look forward to learning more about how we might be able to help.</p>

			<p>Warm regards,<br>
			The %s Team</p>
		`, greeting(senderName, now), policy.Organization, policy.ApplyFormURL, policy.ApplyFormURL, policy.Organization)
	}

	return fmt.Sprintf(`
		<p>%s</p>

		<p>Thank you for contacting %s.</p>

		<p>If you have not already done so, please submit a formal application for legal assistance through our website:<br>
		<a href="%s">%s</a></p>

		<p>This ensures our team has the information needed to review your case promptly.</p>

		<p>Sincerely,<br>
		The %s Team</p>
	`, greeting(senderName, now), policy.Organization, policy.ApplyFormURL, policy.ApplyFormURL, policy.Organization)
}

// volunteerReply points the sender at the volunteer application form.
func volunteerReply(policy *domain.RoutingPolicy, senderName string, now time.Time) string {
	return fmt.Sprintf(`
		<p>%s</p>

		<p>Thank you for your interest in volunteering with %s!</p>

		<p>We are grateful for your willingness to support our mission. To get started, please complete our volunteer application form:</p>

		<p><a href="%s">Volunteer Application Form</a></p>

		<p>Once you submit the form, our team will review your application and follow up with next steps about volunteer opportunities that match your skills and interests.</p>

		<p>Best regards,<br>
		The %s Team</p>
	`, greeting(senderName, now), policy.Organization, policy.VolunteerURL, policy.Organization)
}
