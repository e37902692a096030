// Package timeslot derives the fixed catalog of bookable time windows for a
// calendar date. Slots are identified by their label ("HH:MM - HH:MM"); the
// label is the only form persisted with a booking.
package timeslot

import (
	"fmt"
	"strings"
	"time"
)

// Slot is one bookable window. StartOffset is minutes after midnight.
type Slot struct {
	Label       string
	StartOffset int
}

// Generate walks wall-clock minutes from startHour in steps of
// slotMinutes+gapMinutes and emits one slot per step while the slot still
// ends at or before endHour. The gap is not part of the label.
func Generate(startHour, endHour, slotMinutes, gapMinutes int) []Slot {
	var slots []Slot
	cur := startHour * 60
	for cur+slotMinutes <= endHour*60 {
		end := cur + slotMinutes
		label := fmt.Sprintf("%02d:%02d - %02d:%02d", cur/60, cur%60, end/60, end%60)
		slots = append(slots, Slot{Label: label, StartOffset: cur})
		cur += slotMinutes + gapMinutes
	}
	return slots
}

// StartAt resolves a date ("2006-01-02") and a slot label to the slot's start
// instant in loc. The zone is always explicit; there is no server-local
// fallback.
func StartAt(date, label string, loc *time.Location) (time.Time, error) {
	start, _, ok := strings.Cut(label, " - ")
	if !ok {
		return time.Time{}, fmt.Errorf("malformed slot label %q", label)
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+strings.TrimSpace(start), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot start: %w", err)
	}
	return t, nil
}

// DayBounds returns [00:00, next day 00:00) of date in loc.
func DayBounds(date string, loc *time.Location) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse date: %w", err)
	}
	return day, day.AddDate(0, 0, 1), nil
}
