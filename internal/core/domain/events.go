package domain

import "time"

// CheckInEventType names a check-in lifecycle transition.
type CheckInEventType string

const (
	CheckInCreated   CheckInEventType = "created"
	CheckInValidated CheckInEventType = "validated"
	CheckInExpired   CheckInEventType = "expired"
)

// CheckInEvent is the message published on every check-in transition.
type CheckInEvent struct {
	Type       CheckInEventType `json:"type"`
	CheckIn    CheckIn          `json:"check_in"`
	OccurredAt time.Time        `json:"occurred_at"`
}
