package bootstrap

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/fjstoneservices/site-api/internal/config"
	"github.com/fjstoneservices/site-api/internal/notify"
	"github.com/fjstoneservices/site-api/pkg/logging"
)

// BuildEmailSender returns the transactional email provider named by
// EMAIL_PROVIDER. The second value names the provider in use. A missing
// SendGrid key yields a nil sender and "disabled": quotes are still stored
// and the notifier reports ErrEmailDisabled. The "log" provider writes
// messages to the log and is refused in production.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (notify.EmailSender, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.EmailProvider {
	case "ses":
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
		return sender, "ses", nil
	case "", "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			logger.Warn("SENDGRID_API_KEY not set; quote email notifications are disabled")
			return nil, "disabled", nil
		}
		return sender, "sendgrid", nil
	case "log":
		if cfg.IsProduction() {
			return nil, "", fmt.Errorf("bootstrap: log email provider is not allowed in production")
		}
		logger.Warn("quote emails will be written to the log instead of sent")
		return notify.NewStubEmailSender(logger), "log", nil
	default:
		return nil, "", fmt.Errorf("bootstrap: unknown email provider %q", cfg.EmailProvider)
	}
}
