package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/fjstoneservices/site-api/pkg/logging"
)

// DefaultFromName is the display name used when none is configured.
const DefaultFromName = "F&J's Stone Services"

// CategoryQuoteRequest tags staff notifications for new quote requests in
// the provider's analytics.
const CategoryQuoteRequest = "quote-request"

// EmailSender delivers one transactional message. SendGrid, SES and the
// development stub implement it.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a single-recipient message with text and optional HTML.
type EmailMessage struct {
	To       string
	ToName   string
	ReplyTo  string
	Subject  string
	Body     string
	HTML     string
	Category string
}

func (m EmailMessage) validate() error {
	switch {
	case strings.TrimSpace(m.To) == "":
		return fmt.Errorf("%w: recipient required", ErrInvalidMessage)
	case strings.TrimSpace(m.Subject) == "":
		return fmt.Errorf("%w: subject required", ErrInvalidMessage)
	case m.Body == "" && m.HTML == "":
		return fmt.Errorf("%w: body required", ErrInvalidMessage)
	case strings.ContainsAny(m.Subject+m.ReplyTo+m.To, "\r\n"):
		return fmt.Errorf("%w: header contains a line break", ErrInvalidMessage)
	}
	return nil
}

// sender is the From identity shared by the provider implementations.
type sender struct {
	fromEmail string
	fromName  string
}

func newSender(fromEmail, fromName string) sender {
	if strings.TrimSpace(fromName) == "" {
		fromName = DefaultFromName
	}
	return sender{fromEmail: strings.TrimSpace(fromEmail), fromName: fromName}
}

func (s sender) from() string {
	return fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
}

// StubEmailSender logs messages instead of sending them. It backs the
// development-only "log" provider.
type StubEmailSender struct {
	logger *logging.Logger
}

// NewStubEmailSender creates a logging-only sender.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

// Send validates msg and logs its envelope.
func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	s.logger.Info("email not sent (stub sender)", "to", msg.To, "subject", msg.Subject, "reply_to", msg.ReplyTo, "category", msg.Category)
	return nil
}
