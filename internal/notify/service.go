package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjstoneservices/site-api/pkg/logging"
)

// QuoteNotifier emails staff about new quote requests.
type QuoteNotifier struct {
	email      EmailSender
	recipients []string
	opts       EmailOptions
	logger     *logging.Logger
}

// NewQuoteNotifier creates a notifier. A nil sender or an empty recipient
// list disables sending.
func NewQuoteNotifier(email EmailSender, recipients []string, opts EmailOptions, logger *logging.Logger) *QuoteNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &QuoteNotifier{
		email:      email,
		recipients: recipients,
		opts:       opts,
		logger:     logger,
	}
}

// Enabled reports whether Send will attempt delivery.
func (n *QuoteNotifier) Enabled() bool {
	return n != nil && n.email != nil && len(n.recipients) > 0
}

// Send renders the quote email and sends one copy per recipient with the
// submitter as reply-to. Each recipient is attempted once.
func (n *QuoteNotifier) Send(ctx context.Context, data QuoteEmail) error {
	if !n.Enabled() {
		n.logger.Warn("notify: email not configured, skipping quote notification", "lead_id", data.RequestID)
		return ErrEmailDisabled
	}

	subject, html, text, err := BuildQuoteEmail(data, n.opts)
	if err != nil {
		return err
	}

	var errs []error
	for _, to := range n.recipients {
		if err := n.email.Send(ctx, EmailMessage{
			To:       to,
			ReplyTo:  data.Email,
			Subject:  subject,
			Body:     text,
			HTML:     html,
			Category: CategoryQuoteRequest,
		}); err != nil {
			n.logger.Error("notify: failed to send quote notification", "error", err, "lead_id", data.RequestID, "to", to)
			errs = append(errs, fmt.Errorf("notify: send to %s: %w", to, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	n.logger.Info("notify: quote notification sent", "lead_id", data.RequestID, "recipients", len(n.recipients), "photos", len(data.PhotoLinks))
	return nil
}
