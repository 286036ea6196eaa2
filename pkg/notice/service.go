package notice

import (
	"embed"
	"log/slog"

	"github.com/tienda-labs/storeauth/pkg/notification"
)

// Notice types sent by the account flows
const (
	EmailVerificationCodeNotice notification.NoticeType = "email_verification_code"
	PasswordRecoveryCodeNotice  notification.NoticeType = "password_recovery_code"
	WelcomeNotice               notification.NoticeType = "welcome"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile("templates/" + filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NewNotificationManager builds a notification manager with the email
// notifier and the account notice templates registered.
func NewNotificationManager(smtpConfig notification.SMTPConfig) (*notification.NotificationManager, error) {
	notificationManager := notification.NewNotificationManager()

	emailNotifier, err := notification.NewEmailNotifier(smtpConfig)
	if err != nil {
		return nil, err
	}

	notificationManager.RegisterNotifier(notification.EmailSystem, emailNotifier)

	if err := RegisterNotices(notificationManager); err != nil {
		return nil, err
	}

	return notificationManager, nil
}

// RegisterNotices registers the account notice templates on a manager.
// Split out so tests can register them on a manager backed by a mock
// notifier.
func RegisterNotices(nm *notification.NotificationManager) error {
	err := nm.RegisterNotification(EmailVerificationCodeNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Verify your email address",
		Html:    loadTemplate("email/verification_code.tmpl"),
	})
	if err != nil {
		slog.Error("failed to register email verification notice", "err", err)
		return err
	}

	err = nm.RegisterNotification(PasswordRecoveryCodeNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Password recovery code",
		Html:    loadTemplate("email/password_recovery.tmpl"),
	})
	if err != nil {
		slog.Error("failed to register password recovery notice", "err", err)
		return err
	}

	err = nm.RegisterNotification(WelcomeNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Welcome aboard",
		Html:    loadTemplate("email/welcome.tmpl"),
	})
	if err != nil {
		slog.Error("failed to register welcome notice", "err", err)
		return err
	}

	return nil
}
