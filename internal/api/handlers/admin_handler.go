package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/config"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/realtime"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/services"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/utils"
)

// AdminHandler covers the interviewer surface: list upcoming meetings,
// mark them done, move them, or tear them down.
type AdminHandler struct {
	svc services.BookingService
	hub *realtime.Hub
	cfg *config.BookingConfig
	log *logrus.Logger
}

func NewAdminHandler(svc services.BookingService, hub *realtime.Hub, cfg *config.BookingConfig, log *logrus.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, hub: hub, cfg: cfg, log: log}
}

type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks the operator credential against ADMIN_USERNAME and the
// bcrypt ADMIN_PASSWORD_HASH and issues an admin session cookie.
func (h *AdminHandler) Login(c *gin.Context) {
	const op = "AdminHandler.Login"

	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	username := os.Getenv("ADMIN_USERNAME")
	hash := os.Getenv("ADMIN_PASSWORD_HASH")
	if username == "" || hash == "" {
		writeError(c, utils.E(utils.CodeInternal, op, "admin login is not configured", nil))
		return
	}
	if req.Username != username || utils.CheckPassword(hash, req.Password) != nil {
		writeError(c, utils.E(utils.CodeUnauthorized, op, "invalid credentials", nil))
		return
	}

	token, err := utils.SignToken("admin", "", "", username, utils.RoleAdmin, sessionTTL)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to issue session token", err))
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("token", token, int(sessionTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"role": utils.RoleAdmin})
}

type AdminBookingView struct {
	BookingView
	UserName  string `json:"userName,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
	UserPhone string `json:"userPhone,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

func (h *AdminHandler) Upcoming(c *gin.Context) {
	list, err := h.svc.Upcoming(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]AdminBookingView, 0, len(list))
	for i := range list {
		b := &list[i]
		v := AdminBookingView{BookingView: *bookingView(b, h.cfg.Location)}
		if b.User != nil {
			v.UserName = b.User.Name
			v.UserEmail = b.User.Email
			v.UserPhone = b.User.Phone
		}
		if b.InterviewerNotes != nil {
			v.Notes = *b.InterviewerNotes
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"meetings": out})
}

type CompleteRequest struct {
	Notes *string `json:"notes"`
}

func (h *AdminHandler) Complete(c *gin.Context) {
	const op = "AdminHandler.Complete"

	id := c.Param("id")
	if id == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing booking id", nil))
		return
	}

	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	if err := h.svc.Complete(c.Request.Context(), id, req.Notes); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

type RescheduleRequest struct {
	MeetingDate     string `json:"meetingDate"`
	MeetingTimeSlot string `json:"meetingTimeSlot"`
	DurationMinutes int    `json:"durationMinutes"`
}

func (h *AdminHandler) Reschedule(c *gin.Context) {
	const op = "AdminHandler.Reschedule"

	id := c.Param("id")
	if id == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing booking id", nil))
		return
	}

	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	res, err := h.svc.Reschedule(c.Request.Context(), id, req.MeetingDate, req.MeetingTimeSlot, req.DurationMinutes)
	if err != nil {
		writeError(c, err)
		return
	}

	updated := res.Booking
	date := updated.MeetingDate.In(h.cfg.Location).Format("2006-01-02")
	h.hub.Broadcast(date, realtime.Marshal(realtime.EventSlotBooked, realtime.SlotEvent{
		Date:     date,
		TimeSlot: updated.MeetingTimeSlot,
	}), nil)
	if freedSlot(res, date, updated.MeetingTimeSlot) {
		h.hub.Broadcast(res.PrevDate, realtime.Marshal(realtime.EventSlotUnbooked, realtime.SlotEvent{
			Date:     res.PrevDate,
			TimeSlot: res.PrevSlot,
		}), nil)
	}

	c.JSON(http.StatusOK, bookingView(updated, h.cfg.Location))
}

// Cancel tears down the external meeting. The slot stays assigned to the
// applicant; only the video room goes away.
func (h *AdminHandler) Cancel(c *gin.Context) {
	const op = "AdminHandler.Cancel"

	id := c.Param("id")
	if id == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing booking id", nil))
		return
	}

	if err := h.svc.Cancel(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "meeting removed"})
}
