// FILE: internal/pkg/mailer/email_service.go
package mailer

import (
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

// FeedbackNotice is what the operator inbox receives for each accepted
// feedback entry.
type FeedbackNotice struct {
	UserID      string
	UserEmail   string
	SessionID   string
	Type        string
	Rating      *int
	Text        string
	SubmittedAt time.Time
}

type IEmailService interface {
	SendFeedbackNotice(notice FeedbackNotice) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
	recipient   string
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName, recipient string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		senderName:  senderName,
		recipient:   recipient,
	}
}

func (s *emailService) SendFeedbackNotice(notice FeedbackNotice) error {
	m := s.feedbackMessage(notice)

	if err := s.dialer.DialAndSend(m); err != nil {
		log.Printf("[MAILER ERROR] Failed to forward feedback from %s: %v", notice.UserID, err)
		return err
	}

	log.Printf("[MAILER] Feedback from %s forwarded to %s", notice.UserID, s.recipient)
	return nil
}

func (s *emailService) feedbackMessage(notice FeedbackNotice) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", s.recipient)
	if notice.UserEmail != "" {
		m.SetHeader("Reply-To", notice.UserEmail)
	}
	m.SetHeader("Subject", fmt.Sprintf("[Feedback] %s from %s", strings.ToUpper(notice.Type), displayName(notice)))

	rating := "not given"
	if notice.Rating != nil {
		rating = fmt.Sprintf("%d / 5", *notice.Rating)
	}

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>New %s feedback</h2>
			<p><strong>User:</strong> %s</p>
			<p><strong>Session:</strong> %s</p>
			<p><strong>Rating:</strong> %s</p>
			<p><strong>Submitted:</strong> %s</p>
			<blockquote style="border-left: 4px solid #007BFF; margin: 0; padding-left: 12px;">%s</blockquote>
		</div>
	`,
		html.EscapeString(notice.Type),
		html.EscapeString(displayName(notice)),
		html.EscapeString(notice.SessionID),
		rating,
		notice.SubmittedAt.UTC().Format(time.RFC1123),
		strings.ReplaceAll(html.EscapeString(notice.Text), "\n", "<br>"),
	)

	m.SetBody("text/html", body)
	return m
}

func displayName(notice FeedbackNotice) string {
	if notice.UserEmail != "" {
		return notice.UserEmail
	}
	return notice.UserID
}
