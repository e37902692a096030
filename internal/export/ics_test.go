package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/models"
)

func TestBookingICS(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)

	q := 3
	zoomID := "84512345678"
	joinURL := "https://zoom.example/j/84512345678"
	pw := "x1y2z3"
	b := &models.Booking{
		ID:              "b1",
		UserID:          "u1",
		MeetingDate:     time.Date(2026, 9, 15, 0, 0, 0, 0, loc),
		MeetingTimeSlot: "09:30 - 09:40",
		DurationMinutes: 10,
		Status:          models.BookingScheduled,
		QueueNumber:     &q,
		ZoomMeetingID:   &zoomID,
		ZoomJoinURL:     &joinURL,
		ZoomPassword:    &pw,
	}

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	raw, err := BookingICS(b, loc, now)
	require.NoError(t, err)

	ics := string(raw)
	assert.Contains(t, ics, "BEGIN:VCALENDAR")
	assert.Contains(t, ics, "BEGIN:VEVENT")
	assert.Contains(t, ics, "UID:b1@interview-booking")
	assert.Contains(t, ics, "SUMMARY:Interview (queue #3)")
	assert.Contains(t, ics, "Meeting ID: 84512345678")
	assert.Contains(t, ics, "TRIGGER:-PT15M")
	assert.Contains(t, ics, "BEGIN:VALARM")

	// event spans 09:30 to 09:40 local time
	assert.True(t, strings.Contains(ics, "093000") || strings.Contains(ics, "T09:30"))
}

func TestBookingICSRejectsMalformedSlot(t *testing.T) {
	loc := time.UTC
	b := &models.Booking{ID: "b1", MeetingTimeSlot: "garbage", MeetingDate: time.Now()}

	_, err := BookingICS(b, loc, time.Now())
	require.Error(t, err)

	_, err = BookingICS(nil, loc, time.Now())
	require.Error(t, err)
}
