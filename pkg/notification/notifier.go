package notification

// NotificationSystem represents a delivery channel (e.g., email, SMS).
type NotificationSystem string

// NoticeType represents a kind of notice (e.g., "email_verification_code").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"
	SMSSystem   NotificationSystem = "sms"
)

// NotificationData is the addressing and template data for one notice
type NotificationData struct {
	To   string            // Recipient identifier (e.g., email address, phone number)
	Data map[string]string // Template data (e.g., "Code", "Name")
}

// NoticeTemplate is a registered template for one notice type on one system
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
