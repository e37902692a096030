package models

import "time"

const (
	PresenceActive   = "active"
	PresenceInactive = "inactive"
)

// PresenceSession marks that a user is currently viewing the scheduler.
// Ephemeral bookkeeping only; booking correctness never depends on it.
type PresenceSession struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	Status    string    `bson:"status" json:"status"` // active|inactive
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
