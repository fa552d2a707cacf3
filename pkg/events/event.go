package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TWOFACTOR_ENABLED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation used across the event bus.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Security event types consumed by the notification worker.
const (
	TypeTwoFactorEnabled     = "TWOFACTOR_ENABLED"
	TypeTwoFactorDisabled    = "TWOFACTOR_DISABLED"
	TypeBackupCodesGenerated = "BACKUP_CODES_GENERATED"
	TypePasswordChanged      = "PASSWORD_CHANGED"
	TypeAccountDeleted       = "ACCOUNT_DELETED"
)

// NewSecurityEvent builds an event carrying the acting user's identity.
func NewSecurityEvent(eventType, userId, email string, extra map[string]interface{}) BaseEvent {
	data := map[string]interface{}{
		"user_id": userId,
		"email":   email,
	}
	for k, v := range extra {
		data[k] = v
	}
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
