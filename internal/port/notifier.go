package port

import "context"

type NotificationLevel string

const (
	NotificationInfo    NotificationLevel = "info"
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
)

type Notification struct {
	Level   NotificationLevel
	Title   string
	Message string
}

// Notifier receives user-facing outcomes from callers of the cart store.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
