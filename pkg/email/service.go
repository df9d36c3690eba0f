package email

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/pulsecrm/backend/pkg/models"
)

// Service handles email sending
type Service struct {
	fromEmail   string
	fromName    string
	sendGridKey string
	useSendGrid bool
}

// NewService creates a new email service
// If sendGridAPIKey is provided, emails will be sent via SendGrid
// Otherwise, emails will be logged to console (development mode)
func NewService(fromEmail, fromName, sendGridAPIKey string) *Service {
	useSendGrid := sendGridAPIKey != ""
	if useSendGrid {
		log.Printf("✅ Email service initialized with SendGrid")
	} else {
		log.Printf("⚠️  Email service in console-only mode (set SENDGRID_API_KEY for production)")
	}

	return &Service{
		fromEmail:   fromEmail,
		fromName:    fromName,
		sendGridKey: sendGridAPIKey,
		useSendGrid: useSendGrid,
	}
}

// SendFollowUpReminder sends an agent the list of follow-ups due today
func (s *Service) SendFollowUpReminder(toEmail, toName string, due []models.FollowUp) error {
	if len(due) == 0 {
		return nil
	}

	subject := fmt.Sprintf("You have %d follow-up(s) due today", len(due))
	body, plainText := reminderBodies(toName, due)

	if s.useSendGrid {
		return s.sendViaSendGrid(toEmail, toName, subject, body, plainText)
	}

	// Development mode: log to console
	return s.logEmailToConsole(toEmail, toName, subject)
}

// reminderBodies renders the HTML and plain-text parts of the follow-up
// reminder. Both parts use plain ASCII separators.
func reminderBodies(toName string, due []models.FollowUp) (string, string) {
	var htmlItems, textItems strings.Builder
	for _, fu := range due {
		htmlItems.WriteString(fmt.Sprintf("<li>Lead %s - due %s", fu.LeadID, fu.DueDate.Format("15:04")))
		if fu.Notes != "" {
			htmlItems.WriteString(": " + fu.Notes)
		}
		htmlItems.WriteString("</li>")
		textItems.WriteString(fmt.Sprintf("- Lead %s, due %s", fu.LeadID, fu.DueDate.Format("15:04")))
		if fu.Notes != "" {
			textItems.WriteString(": " + fu.Notes)
		}
		textItems.WriteString("\n")
	}

	html := fmt.Sprintf(`
		<html>
		<body>
			<h2>Follow-ups due today</h2>
			<p>Hi %s,</p>
			<p>You have %d follow-up(s) scheduled for today, %s:</p>
			<ul>%s</ul>
			<p>Thanks,<br>The PulseCRM Team</p>
		</body>
		</html>
	`, toName, len(due), time.Now().Format("January 2"), htmlItems.String())

	plainText := fmt.Sprintf(`
Hi %s,

You have %d follow-up(s) scheduled for today, %s:

%s
Thanks,
The PulseCRM Team
	`, toName, len(due), time.Now().Format("January 2"), textItems.String())

	return html, plainText
}

// SendRawEmail sends an email with custom subject and body content.
// Uses SendGrid in production, logs to console in development.
func (s *Service) SendRawEmail(toEmail, toName, subject, htmlBody, plainTextBody string) error {
	if s.useSendGrid {
		return s.sendViaSendGrid(toEmail, toName, subject, htmlBody, plainTextBody)
	}

	log.Printf("📧 [EMAIL] %s", subject)
	log.Printf("   To: %s <%s>", toName, toEmail)
	log.Printf("   From: %s <%s>", s.fromName, s.fromEmail)
	log.Printf("   ⚠️  Email NOT sent (development mode)")
	return nil
}

// sendViaSendGrid sends email using SendGrid API
func (s *Service) sendViaSendGrid(toEmail, toName, subject, htmlBody, plainTextBody string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)

	message := mail.NewSingleEmail(from, subject, to, plainTextBody, htmlBody)

	client := sendgrid.NewSendClient(s.sendGridKey)
	response, err := client.Send(message)

	if err != nil {
		log.Printf("❌ SendGrid error: %v", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 400 {
		log.Printf("❌ SendGrid returned error status %d: %s", response.StatusCode, response.Body)
		return fmt.Errorf("sendgrid returned error status: %d", response.StatusCode)
	}

	log.Printf("✅ Email sent successfully to %s (SendGrid status: %d)", toEmail, response.StatusCode)
	return nil
}

// logEmailToConsole logs email details to console (development mode)
func (s *Service) logEmailToConsole(toEmail, toName, subject string) error {
	log.Printf("📧 [EMAIL] %s", subject)
	log.Printf("   To: %s <%s>", toName, toEmail)
	log.Printf("   From: %s <%s>", s.fromName, s.fromEmail)
	log.Printf("   ---")
	log.Printf("   ⚠️  Email NOT sent (development mode)")
	log.Printf("   Set SENDGRID_API_KEY environment variable to enable email sending")
	log.Printf("   ---")
	return nil
}
