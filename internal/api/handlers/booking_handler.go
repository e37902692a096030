package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/config"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/export"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/realtime"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/services"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/utils"
)

type BookingHandler struct {
	svc services.BookingService
	hub *realtime.Hub
	cfg *config.BookingConfig
	log *logrus.Logger
}

func NewBookingHandler(svc services.BookingService, hub *realtime.Hub, cfg *config.BookingConfig, log *logrus.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, hub: hub, cfg: cfg, log: log}
}

// freedSlot reports whether a rebooking actually vacated its previous
// slot. Rebooking the slot already held frees nothing, and announcing it
// as unbooked would leave peers showing a taken slot as free.
func freedSlot(alloc *services.Allocation, date, slotLabel string) bool {
	if !alloc.Rebooked || alloc.PrevSlot == "" {
		return false
	}
	return alloc.PrevDate != date || alloc.PrevSlot != slotLabel
}

type CreateBookingRequest struct {
	MeetingDate     string `json:"meetingDate" binding:"required"`
	MeetingTimeSlot string `json:"meetingTimeSlot" binding:"required"`
}

type CreateBookingResponse struct {
	Booking  *BookingView `json:"booking"`
	Rebooked bool         `json:"rebooked"`
}

// Create commits a booking and then tells everyone watching the affected
// dates. The caller learns the outcome from the HTTP response, so the
// broadcast excludes their own connections.
func (h *BookingHandler) Create(c *gin.Context) {
	const op = "BookingHandler.Create"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	alloc, err := h.svc.Allocate(c.Request.Context(), userID, req.MeetingDate, req.MeetingTimeSlot)
	if err != nil {
		writeError(c, err)
		return
	}

	h.hub.BroadcastExceptUser(req.MeetingDate, userID, realtime.Marshal(realtime.EventSlotBooked, realtime.SlotEvent{
		Date:     req.MeetingDate,
		TimeSlot: req.MeetingTimeSlot,
	}))
	if freedSlot(alloc, req.MeetingDate, req.MeetingTimeSlot) {
		h.hub.BroadcastExceptUser(alloc.PrevDate, userID, realtime.Marshal(realtime.EventSlotUnbooked, realtime.SlotEvent{
			Date:     alloc.PrevDate,
			TimeSlot: alloc.PrevSlot,
		}))
	}

	c.JSON(http.StatusOK, CreateBookingResponse{
		Booking:  bookingView(alloc.Booking, h.cfg.Location),
		Rebooked: alloc.Rebooked,
	})
}

// MySlot reports the caller's own slot on a date so the client can render
// it distinctly from slots taken by others.
func (h *BookingHandler) MySlot(c *gin.Context) {
	const op = "BookingHandler.MySlot"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	date := c.Query("date")
	if date == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "date is required", nil))
		return
	}

	slot, err := h.svc.MySlot(c.Request.Context(), userID, date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "timeSlot": slot})
}

func (h *BookingHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	b, err := h.svc.BookingOf(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookingView(b, h.cfg.Location))
}

// Calendar serves the caller's booking as an .ics download.
func (h *BookingHandler) Calendar(c *gin.Context) {
	const op = "BookingHandler.Calendar"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	b, err := h.svc.BookingOf(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	ics, err := export.BookingICS(b, h.cfg.Location, time.Now())
	if err != nil {
		h.log.WithError(err).WithField("booking_id", b.ID).Error("calendar export failed")
		writeError(c, utils.E(utils.CodeInternal, op, "failed to render calendar", err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="interview.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", ics)
}
