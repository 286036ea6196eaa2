// Package notification routes notices to delivery channels. A
// NotificationManager holds one Notifier per system and a registry of
// templates keyed by notice type; callers hand it addressing plus
// template data and never touch SMTP directly.
package notification
