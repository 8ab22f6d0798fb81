package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour int) time.Time {
	return time.Date(2026, 3, 14, hour, 0, 0, 0, time.UTC)
}

func TestGreeting(t *testing.T) {
	cases := []struct {
		name   string
		sender string
		hour   int
		want   string
	}{
		{"named sender", "Jane Doe", 14, "Dear Jane Doe,"},
		{"placeholder name falls through", "Sender", 9, "Good morning,"},
		{"morning", "", 5, "Good morning,"},
		{"late morning", "", 11, "Good morning,"},
		{"afternoon", "", 12, "Good afternoon,"},
		{"evening", "", 17, "Good evening,"},
		{"night wraps to morning", "", 23, "Good morning,"},
		{"small hours", "", 3, "Good morning,"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, greeting(tc.sender, at(tc.hour)))
		})
	}
}

func TestApplyFormReplyVariants(t *testing.T) {
	policy := testPolicy()

	personal := applyFormReply(policy, "Jane", true, at(10))
	assert.Contains(t, personal, "Dear Jane,")
	assert.Contains(t, personal, policy.ApplyFormURL)
	assert.Contains(t, personal, "placed your trust")

	standard := applyFormReply(policy, "", false, at(10))
	assert.Contains(t, standard, "Good morning,")
	assert.Contains(t, standard, policy.ApplyFormURL)
	assert.NotContains(t, standard, "placed your trust")
}

func TestVolunteerReply(t *testing.T) {
	policy := testPolicy()
	got := volunteerReply(policy, "Sam", at(10))
	assert.Contains(t, got, "Dear Sam,")
	assert.Contains(t, got, policy.VolunteerURL)
	assert.Contains(t, got, "Testorg")
}
