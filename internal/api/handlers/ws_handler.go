package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/realtime"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/services"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/utils"
)

type WSHandler struct {
	hub          *realtime.Hub
	availability services.AvailabilityService
	presence     services.PresenceService
	log          *logrus.Logger
	upgrader     websocket.Upgrader
}

func NewWSHandler(hub *realtime.Hub, availability services.AvailabilityService, presence services.PresenceService, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		hub:          hub,
		availability: availability,
		presence:     presence,
		log:          log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

// Serve authenticates before upgrading, so a bad token costs a plain 401
// instead of a dropped websocket.
func (h *WSHandler) Serve(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}

	client := realtime.NewClient(h.hub, conn, userID)
	h.hub.Register(client)
	go client.WriteLoop()

	// Presence marks the account busy for the duration of the socket.
	// Failures never gate the connection.
	h.markPresence(userID, true)

	client.ReadLoop(h.dispatch)

	h.markPresence(userID, false)
}

func (h *WSHandler) markPresence(userID string, active bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if active {
		err = h.presence.Activate(ctx, userID)
	} else {
		err = h.presence.Release(ctx, userID)
	}
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"active":  active,
		}).Warn("presence update failed")
	}
}

func (h *WSHandler) dispatch(c *realtime.Client, env realtime.Envelope) {
	switch env.Event {
	case realtime.EventJoinDateRoom:
		var ev realtime.SlotEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil || ev.Date == "" {
			h.sendError(c, "date is required")
			return
		}
		h.hub.Join(c, ev.Date)

	case realtime.EventLeaveDateRoom:
		var ev realtime.SlotEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil || ev.Date == "" {
			h.sendError(c, "date is required")
			return
		}
		h.hub.Leave(c, ev.Date)

	case realtime.EventNotifySlotBooked, realtime.EventNotifySlotUnbooked:
		var ev realtime.SlotEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil || ev.Date == "" || ev.TimeSlot == "" {
			h.sendError(c, "date and timeSlot are required")
			return
		}
		out := realtime.EventSlotBooked
		if env.Event == realtime.EventNotifySlotUnbooked {
			out = realtime.EventSlotUnbooked
		}
		// Relay to peers in the room; the originator already knows.
		h.hub.Broadcast(ev.Date, realtime.Marshal(out, ev), c)

	case realtime.EventGetAvailableSlots:
		var ev realtime.SlotEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil || ev.Date == "" {
			h.sendError(c, "date is required")
			return
		}
		h.sendSnapshot(c, ev.Date)

	default:
		h.sendError(c, "unknown event")
	}
}

// sendSnapshot answers only the requester; peers refresh on their own
// notifications.
func (h *WSHandler) sendSnapshot(c *realtime.Client, date string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	booked, err := h.availability.BookedSlots(ctx, date)
	if err != nil {
		h.log.WithError(err).WithField("date", date).Warn("availability lookup failed")
		c.Send(realtime.Marshal(realtime.EventSlotsError, gin.H{
			"code":    utils.ErrCode(err),
			"message": "failed to load available slots",
		}))
		return
	}
	c.Send(realtime.Marshal(realtime.EventAvailableSlots, realtime.SlotsSnapshot{
		Date:        date,
		BookedSlots: booked,
	}))
}

func (h *WSHandler) sendError(c *realtime.Client, msg string) {
	c.Send(realtime.Marshal(realtime.EventSlotsError, gin.H{
		"code":    utils.CodeInvalidArgument,
		"message": msg,
	}))
}
