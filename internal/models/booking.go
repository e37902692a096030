package models

import "time"

type BookingStatus string

const (
	BookingScheduled BookingStatus = "scheduled"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
)

// BookedStatuses are the statuses under which a slot counts as taken.
var BookedStatuses = []BookingStatus{BookingScheduled, BookingConfirmed}

// HoldsSlot reports whether a booking in this status still occupies its slot.
func (s BookingStatus) HoldsSlot() bool {
	for _, b := range BookedStatuses {
		if s == b {
			return true
		}
	}
	return false
}

// Booking is a user's interview appointment. At most one row per user:
// rebooking overwrites date/slot/meeting fields in place and keeps the
// queue number.
type Booking struct {
	ID     string `gorm:"column:id;type:text;primaryKey" json:"id"`
	UserID string `gorm:"column:user_id;type:text;uniqueIndex" json:"user_id"`

	MeetingDate     time.Time `gorm:"column:meeting_date;type:timestamptz" json:"meeting_date"`
	MeetingTimeSlot string    `gorm:"column:meeting_time_slot;type:text" json:"meeting_time_slot"`
	DurationMinutes int       `gorm:"column:duration_minutes" json:"duration_minutes"`

	Status BookingStatus `gorm:"column:status;type:text" json:"status"`

	// Unique within a date among assigned numbers; gaps from cancellations
	// are never renumbered.
	QueueNumber *int `gorm:"column:queue_number" json:"queue_number"`

	// External meeting reference; absent when provisioning never succeeded.
	ZoomMeetingID *string `gorm:"column:zoom_meeting_id;type:text" json:"zoom_meeting_id"`
	ZoomJoinURL   *string `gorm:"column:zoom_join_url;type:text" json:"zoom_join_url"`
	ZoomPassword  *string `gorm:"column:zoom_password;type:text" json:"zoom_password"`

	InterviewerNotes *string `gorm:"column:interviewer_notes;type:text" json:"interviewer_notes"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`

	User *RegisterUser `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Booking) TableName() string { return "meetings" }
