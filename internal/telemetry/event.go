// Package telemetry carries auth lifecycle events from the services to Kafka or OpenTelemetry logs.
package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the auth and session services and the gRPC interceptor.
const (
	EventRegister       = "auth.register"
	EventLoginSuccess   = "auth.login_success"
	EventLoginFailure   = "auth.login_failure"
	EventRefresh        = "auth.refresh"
	EventSessionExpired = "auth.session_expired"
	EventSessionRevoked = "session.revoked"
	EventGRPCRequest    = "grpc_request"
)

// Event is the wire shape written to Kafka and read back by the Loki worker.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"event_type"`
	UserID    string          `json:"user_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent builds an event stamped now. metadata is JSON-encoded; nil or unencodable metadata is dropped.
func NewEvent(eventType, source, userID, sessionID string, metadata any) *Event {
	e := &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		UserID:    userID,
		SessionID: sessionID,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			e.Metadata = b
		}
	}
	return e
}

// EventEmitter emits telemetry events (e.g. to Kafka or OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
