// model/notification.go
package model

import "time"

// Notification source identifiers.
const (
	SourceTraining  = "training"
	SourceQMS       = "qms"
	SourceDocuments = "documents"
)

type NotificationItem struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Unread    bool      `json:"unread"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationSnapshot is the aggregated view cached per session. A failing
// source contributes zero items; UnreadCount never reflects an error.
type NotificationSnapshot struct {
	UnreadCount int                `json:"unreadCount"`
	Items       []NotificationItem `json:"items"`
}
