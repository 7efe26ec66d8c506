package mailer

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackMessage(t *testing.T) {
	svc := NewEmailService("smtp.local", 587, "user", "pass", "noreply@lingua.test", "LinguaBridge", "ops@lingua.test").(*emailService)
	rating := 4

	m := svc.feedbackMessage(FeedbackNotice{
		UserID:      "user-1",
		UserEmail:   "ana@lingua.test",
		SessionID:   "sess-1",
		Type:        "bug",
		Rating:      &rating,
		Text:        "Audio <stops> early\nafter page two",
		SubmittedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, []string{"ops@lingua.test"}, m.GetHeader("To"))
	assert.Equal(t, []string{"ana@lingua.test"}, m.GetHeader("Reply-To"))
	assert.Equal(t, []string{"[Feedback] BUG from ana@lingua.test"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "4 / 5")
	assert.Contains(t, raw, "sess-1")
}

func TestFeedbackMessageWithoutEmail(t *testing.T) {
	svc := NewEmailService("smtp.local", 587, "", "", "noreply@lingua.test", "LinguaBridge", "ops@lingua.test").(*emailService)

	m := svc.feedbackMessage(FeedbackNotice{UserID: "user-9", Type: "general", Text: "Great tool overall."})

	assert.Empty(t, m.GetHeader("Reply-To"))
	assert.Equal(t, []string{"[Feedback] GENERAL from user-9"}, m.GetHeader("Subject"))
}
