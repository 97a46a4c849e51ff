package notification

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/threeeaglesforge/leadverify/internal/domain"
)

// MailerConfig holds the content settings of the outbound emails.
type MailerConfig struct {
	SiteName string
	SiteURL  string
	// OperatorEmail receives "new verified inquiry" notices. Empty disables them.
	OperatorEmail string
	// NewsletterSource is the subscription source that gets the welcome issue.
	NewsletterSource string
	// WelcomeIssuePath points at the latest issue HTML.
	WelcomeIssuePath string
	WelcomeSubject   string
}

// Mailer turns workflow events into messages and hands them to a Sender.
type Mailer struct {
	config MailerConfig
	sender Sender
	// readFile is swapped in tests.
	readFile func(name string) ([]byte, error)
}

// NewMailer creates a mailer.
func NewMailer(config MailerConfig, sender Sender) *Mailer {
	return &Mailer{config: config, sender: sender, readFile: os.ReadFile}
}

// SendConfirmation sends the "confirm your request/subscription" email.
func (m *Mailer) SendConfirmation(ctx context.Context, subject *domain.Subject, verifyURL string, ttl time.Duration) error {
	data := struct {
		SiteName, Email, URL, Expiry string
	}{m.config.SiteName, subject.Email, verifyURL, humanizeTTL(ttl)}

	var (
		title string
		body  string
		err   error
	)
	switch subject.Kind {
	case domain.SubjectKindLead:
		title = "Confirm your request — " + m.config.SiteName
		body, err = render(confirmRequestTmpl, data)
	case domain.SubjectKindSubscription:
		title = "Confirm your subscription to " + m.config.SiteName
		body, err = render(confirmSubscriptionTmpl, data)
	default:
		return fmt.Errorf("no confirmation email for kind %q", subject.Kind)
	}
	if err != nil {
		return err
	}

	return m.sender.Send(ctx, Message{To: subject.Email, Subject: title, HTMLBody: body})
}

// SendVerified sends what follows a fresh verification: the operator notice and the
// acknowledgement for leads, the welcome issue for newsletter subscriptions.
func (m *Mailer) SendVerified(ctx context.Context, subject *domain.Subject) error {
	switch subject.Kind {
	case domain.SubjectKindLead:
		return collect(
			m.sendOperatorNotice(ctx, subject),
			m.sendLeadReceived(ctx, subject),
		)
	case domain.SubjectKindSubscription:
		return m.sendWelcomeIssue(ctx, subject)
	default:
		return fmt.Errorf("no verified email for kind %q", subject.Kind)
	}
}

func (m *Mailer) sendOperatorNotice(ctx context.Context, subject *domain.Subject) error {
	if m.config.OperatorEmail == "" {
		return fmt.Errorf("%w: operator email not configured", domain.ErrNotificationSkipped)
	}

	name := subject.DisplayName()
	title := "New verified inquiry — " + m.config.SiteName
	if name != "" {
		title += " (" + name + ")"
	}

	body, err := render(operatorInquiryTmpl, struct {
		Name, Email, Phone, Message, Source, Submitted string
	}{
		Name:      name,
		Email:     subject.Email,
		Phone:     subject.Phone,
		Message:   subject.Message,
		Source:    subject.Source,
		Submitted: subject.CreatedAt.Format(time.RFC1123),
	})
	if err != nil {
		return err
	}

	return m.sender.Send(ctx, Message{To: m.config.OperatorEmail, Subject: title, HTMLBody: body})
}

func (m *Mailer) sendLeadReceived(ctx context.Context, subject *domain.Subject) error {
	body, err := render(leadReceivedTmpl, struct {
		Name, SiteName, SiteURL string
	}{subject.FirstName, m.config.SiteName, m.config.SiteURL})
	if err != nil {
		return err
	}

	return m.sender.Send(ctx, Message{
		To:       subject.Email,
		Subject:  "Thanks — we received your message",
		HTMLBody: body,
	})
}

func (m *Mailer) sendWelcomeIssue(ctx context.Context, subject *domain.Subject) error {
	if m.config.NewsletterSource == "" || subject.Source != m.config.NewsletterSource {
		return fmt.Errorf("%w: source %q does not get the welcome issue", domain.ErrNotificationSkipped, subject.Source)
	}
	if m.config.WelcomeIssuePath == "" {
		return fmt.Errorf("%w: welcome issue path not configured", domain.ErrNotificationSkipped)
	}

	html, err := m.readFile(m.config.WelcomeIssuePath)
	if err != nil {
		return fmt.Errorf("%w: latest issue unavailable: %v", domain.ErrNotificationSkipped, err)
	}

	return m.sender.Send(ctx, Message{To: subject.Email, Subject: m.config.WelcomeSubject, HTMLBody: string(html)})
}

// collect joins real failures. Only when every part was skipped is the result a skip.
func collect(results ...error) error {
	var failures []error
	skipped := 0
	for _, err := range results {
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotificationSkipped):
			skipped++
		default:
			failures = append(failures, err)
		}
	}
	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	if skipped == len(results) {
		return domain.ErrNotificationSkipped
	}
	return nil
}
