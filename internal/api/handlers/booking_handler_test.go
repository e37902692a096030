package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/config"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/models"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/realtime"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/services"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/timeslot"
)

type stubBookingSvc struct {
	alloc *services.Allocation
	err   error
}

func (s *stubBookingSvc) Allocate(context.Context, string, string, string) (*services.Allocation, error) {
	return s.alloc, s.err
}

func (s *stubBookingSvc) MySlot(context.Context, string, string) (string, error) { return "", nil }
func (s *stubBookingSvc) BookingOf(context.Context, string) (*models.Booking, error) {
	return nil, nil
}
func (s *stubBookingSvc) Upcoming(context.Context) ([]models.Booking, error) { return nil, nil }
func (s *stubBookingSvc) Complete(context.Context, string, *string) error { return nil }
func (s *stubBookingSvc) Reschedule(context.Context, string, string, string, int) (*services.Allocation, error) {
	return s.alloc, s.err
}
func (s *stubBookingSvc) Cancel(context.Context, string) error { return nil }

type stubAvailability struct{}

func (stubAvailability) BookedSlots(context.Context, string) ([]string, error) { return nil, nil }
func (stubAvailability) Catalog() []timeslot.Slot { return nil }
func (stubAvailability) Dates() []string { return nil }

type noopPresence struct{}

func (noopPresence) Activate(context.Context, string) error { return nil }
func (noopPresence) Release(context.Context, string) error { return nil }
func (noopPresence) IsActive(context.Context, string) (bool, error) { return false, nil }

// bookingTestServer wires the booking and websocket routes behind a header
// based identity so tests can act as several users at once.
func bookingTestServer(t *testing.T, svc services.BookingService) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	hub := realtime.NewHub(log)
	cfg := &config.BookingConfig{Location: time.UTC}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if u := c.GetHeader("X-User"); u != "" {
			c.Set("user_id", u)
		}
		c.Next()
	})
	r.POST("/booking", NewBookingHandler(svc, hub, cfg, log).Create)
	r.GET("/ws", NewWSHandler(hub, stubAvailability{}, noopPresence{}, log).Serve)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

// dialPeer opens a websocket as userID, joins the date room, and waits for
// a snapshot reply so the join is known to be processed before returning.
func dialPeer(t *testing.T, ts *httptest.Server, userID, date string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"X-User": []string{userID}})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	join := realtime.Marshal(realtime.EventJoinDateRoom, realtime.SlotEvent{Date: date})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, join))
	snap := realtime.Marshal(realtime.EventGetAvailableSlots, realtime.SlotEvent{Date: date})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, snap))

	env := readEnvelope(t, conn)
	require.Equal(t, realtime.EventAvailableSlots, env.Event)
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) realtime.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env realtime.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func postBooking(t *testing.T, ts *httptest.Server, userID, date, slot string) *http.Response {
	t.Helper()
	body := `{"meetingDate":"` + date + `","meetingTimeSlot":"` + slot + `"}`
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/booking", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", userID)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateBroadcastsBookedAndFreedSlots(t *testing.T) {
	const date = "2026-09-15"
	svc := &stubBookingSvc{alloc: &services.Allocation{
		Booking: &models.Booking{
			ID:              "b1",
			UserID:          "u1",
			MeetingDate:     time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
			MeetingTimeSlot: "10:00 - 10:10",
			Status:          models.BookingScheduled,
		},
		Rebooked: true,
		PrevDate: date,
		PrevSlot: "09:30 - 09:40",
	}}
	ts := bookingTestServer(t, svc)
	peer := dialPeer(t, ts, "u2", date)

	resp := postBooking(t, ts, "u1", date, "10:00 - 10:10")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	booked := readEnvelope(t, peer)
	assert.Equal(t, realtime.EventSlotBooked, booked.Event)

	unbooked := readEnvelope(t, peer)
	assert.Equal(t, realtime.EventSlotUnbooked, unbooked.Event)
	var ev realtime.SlotEvent
	require.NoError(t, json.Unmarshal(unbooked.Data, &ev))
	assert.Equal(t, "09:30 - 09:40", ev.TimeSlot)
}

func TestCreateRebookingSameSlotAnnouncesOnlyBooked(t *testing.T) {
	const date = "2026-09-15"
	const slot = "09:30 - 09:40"
	svc := &stubBookingSvc{alloc: &services.Allocation{
		Booking: &models.Booking{
			ID:              "b1",
			UserID:          "u1",
			MeetingDate:     time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
			MeetingTimeSlot: slot,
			Status:          models.BookingScheduled,
		},
		Rebooked: true,
		PrevDate: date,
		PrevSlot: slot,
	}}
	ts := bookingTestServer(t, svc)
	peer := dialPeer(t, ts, "u2", date)

	resp := postBooking(t, ts, "u1", date, slot)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	booked := readEnvelope(t, peer)
	assert.Equal(t, realtime.EventSlotBooked, booked.Event)

	// the held slot was not freed, so no contradictory unbooked event
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := peer.ReadMessage()
	assert.Error(t, err)
}

func TestCreateOriginatorGetsNoEcho(t *testing.T) {
	const date = "2026-09-15"
	svc := &stubBookingSvc{alloc: &services.Allocation{
		Booking: &models.Booking{
			ID:              "b1",
			UserID:          "u1",
			MeetingDate:     time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
			MeetingTimeSlot: "09:30 - 09:40",
			Status:          models.BookingScheduled,
		},
	}}
	ts := bookingTestServer(t, svc)
	self := dialPeer(t, ts, "u1", date)

	resp := postBooking(t, ts, "u1", date, "09:30 - 09:40")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, self.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := self.ReadMessage()
	assert.Error(t, err)
}
