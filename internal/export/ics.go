// Package export renders bookings into downloadable calendar documents.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/models"
)

const prodID = "-//Interview Booking//Booking Calendar//EN"

// BookingICS renders a single booking as a VCALENDAR with one VEVENT and a
// 15 minute display reminder. Times are emitted in loc.
func BookingICS(b *models.Booking, loc *time.Location, now time.Time) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("export: nil booking")
	}

	start, end, err := eventWindow(b, loc)
	if err != nil {
		return nil, err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)

	event := ical.NewComponent(ical.CompEvent)
	event.Props.SetText(ical.PropUID, fmt.Sprintf("%s@interview-booking", b.ID))
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, end)
	event.Props.SetText(ical.PropSummary, summary(b))
	event.Props.SetText(ical.PropDescription, description(b))
	if b.ZoomJoinURL != nil && *b.ZoomJoinURL != "" {
		event.Props.SetText(ical.PropLocation, *b.ZoomJoinURL)
	}
	event.Props.SetText(ical.PropStatus, "CONFIRMED")

	alarm := ical.NewComponent(ical.CompAlarm)
	alarm.Props.SetText(ical.PropAction, "DISPLAY")
	alarm.Props.SetText(ical.PropDescription, "Interview starting soon")
	trigger := ical.NewProp(ical.PropTrigger)
	trigger.Value = "-PT15M"
	alarm.Props.Set(trigger)
	event.Children = append(event.Children, alarm)

	cal.Children = append(cal.Children, event)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("export: encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// eventWindow resolves the concrete start and end from the booking's date
// and "HH:MM - HH:MM" slot label.
func eventWindow(b *models.Booking, loc *time.Location) (time.Time, time.Time, error) {
	parts := strings.Split(b.MeetingTimeSlot, " - ")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("export: malformed time slot %q", b.MeetingTimeSlot)
	}
	date := b.MeetingDate.In(loc).Format("2006-01-02")
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+strings.TrimSpace(parts[0]), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("export: parse slot start: %w", err)
	}
	dur := b.DurationMinutes
	if dur <= 0 {
		dur = 10
	}
	return start, start.Add(time.Duration(dur) * time.Minute), nil
}

func summary(b *models.Booking) string {
	if b.QueueNumber != nil {
		return fmt.Sprintf("Interview (queue #%d)", *b.QueueNumber)
	}
	return "Interview"
}

func description(b *models.Booking) string {
	var sb strings.Builder
	sb.WriteString("Online interview appointment.")
	if b.ZoomMeetingID != nil && *b.ZoomMeetingID != "" {
		fmt.Fprintf(&sb, "\nMeeting ID: %s", *b.ZoomMeetingID)
	}
	if b.ZoomPassword != nil && *b.ZoomPassword != "" {
		fmt.Fprintf(&sb, "\nPasscode: %s", *b.ZoomPassword)
	}
	if b.ZoomJoinURL != nil && *b.ZoomJoinURL != "" {
		fmt.Fprintf(&sb, "\nJoin: %s", *b.ZoomJoinURL)
	}
	return sb.String()
}
