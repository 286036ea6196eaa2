package notification

// MockNotifier records sent notices for tests
type MockNotifier struct {
	SentNotices       []NoticeType
	SentNotifications []NotificationData
	Err               error
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	if m.Err != nil {
		return m.Err
	}
	m.SentNotices = append(m.SentNotices, noticeType)
	m.SentNotifications = append(m.SentNotifications, notification)
	return nil
}
