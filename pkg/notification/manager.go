package notification

import (
	"fmt"
)

// NotificationManager manages notifiers and notice templates.
type NotificationManager struct {
	notifiers map[NotificationSystem]Notifier
	registry  map[NoticeType]map[NotificationSystem]NoticeTemplate
}

// NewNotificationManager creates and returns a new NotificationManager.
func NewNotificationManager() *NotificationManager {
	return &NotificationManager{
		notifiers: make(map[NotificationSystem]Notifier),
		registry:  make(map[NoticeType]map[NotificationSystem]NoticeTemplate),
	}
}

// RegisterNotifier registers a notifier for a specific system.
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.notifiers[system] = notifier
}

// RegisterNotification adds a notice template to the registry.
func (nm *NotificationManager) RegisterNotification(noticeType NoticeType, system NotificationSystem, template NoticeTemplate) error {
	if noticeType == "" || system == "" {
		return fmt.Errorf("invalid input: notice type and system cannot be empty")
	}
	if template.Text == "" && template.Html == "" {
		return fmt.Errorf("invalid input: template for %s/%s has no body", noticeType, system)
	}

	if _, exists := nm.registry[noticeType]; !exists {
		nm.registry[noticeType] = make(map[NotificationSystem]NoticeTemplate)
	}

	nm.registry[noticeType][system] = template
	return nil
}

// Send sends a notice using the specified system and type.
func (nm *NotificationManager) Send(noticeType NoticeType, system NotificationSystem, notification NotificationData) error {
	systemTemplates, exists := nm.registry[noticeType]
	if !exists {
		return fmt.Errorf("no templates registered for notice type: %s", noticeType)
	}

	template, exists := systemTemplates[system]
	if !exists {
		return fmt.Errorf("no template registered for system: %s under notice type: %s", system, noticeType)
	}

	notifier, exists := nm.notifiers[system]
	if !exists {
		return fmt.Errorf("no notifier registered for system: %s", system)
	}

	return notifier.Send(noticeType, notification, template)
}
