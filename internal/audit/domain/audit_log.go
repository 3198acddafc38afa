package domain

import "time"

// AuditLog represents an audit event. UserID is empty for events without a known principal.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
