package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/models"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/services"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/utils"
)

const sessionTTL = 7 * 24 * time.Hour

type ReservationHandler struct {
	svc services.ReservationService
	loc *time.Location
}

func NewReservationHandler(svc services.ReservationService, loc *time.Location) *ReservationHandler {
	return &ReservationHandler{svc: svc, loc: loc}
}

type CheckUserRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type CheckUserResponse struct {
	User       UserSummary  `json:"user"`
	HasBooking bool         `json:"hasBooking"`
	Booking    *BookingView `json:"booking,omitempty"`
}

type UserSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
}

type BookingView struct {
	ID              string  `json:"id"`
	MeetingDate     string  `json:"meetingDate"`
	MeetingTimeSlot string  `json:"meetingTimeSlot"`
	DurationMinutes int     `json:"durationMinutes"`
	Status          string  `json:"status"`
	QueueNumber     *int    `json:"queueNumber,omitempty"`
	ZoomMeetingID   *string `json:"zoomMeetingId,omitempty"`
	ZoomJoinURL     *string `json:"zoomJoinUrl,omitempty"`
	ZoomPassword    *string `json:"zoomPassword,omitempty"`
}

func bookingView(b *models.Booking, loc *time.Location) *BookingView {
	if b == nil {
		return nil
	}
	return &BookingView{
		ID:              b.ID,
		MeetingDate:     b.MeetingDate.In(loc).Format("2006-01-02"),
		MeetingTimeSlot: b.MeetingTimeSlot,
		DurationMinutes: b.DurationMinutes,
		Status:          string(b.Status),
		QueueNumber:     b.QueueNumber,
		ZoomMeetingID:   b.ZoomMeetingID,
		ZoomJoinURL:     b.ZoomJoinURL,
		ZoomPassword:    b.ZoomPassword,
	}
}

// Check resolves an applicant by email or phone, rejects unapproved or
// already-active accounts, and issues the session cookie used by every
// later booking call.
func (h *ReservationHandler) Check(c *gin.Context) {
	const op = "ReservationHandler.Check"

	var req CheckUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Email == "" && req.Phone == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "email or phone is required", nil))
		return
	}

	user, booking, err := h.svc.CheckUser(c.Request.Context(), req.Email, req.Phone)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := utils.SignToken(user.ID, user.Email, user.Phone, user.Name, utils.RoleUser, sessionTTL)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to issue session token", err))
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("token", token, int(sessionTTL.Seconds()), "/", "", false, true)

	c.JSON(http.StatusOK, CheckUserResponse{
		User: UserSummary{
			ID:     user.ID,
			Title:  user.Title,
			Name:   user.Name,
			Email:  user.Email,
			Phone:  user.Phone,
			Status: string(user.Status),
		},
		HasBooking: booking != nil,
		Booking:    bookingView(booking, h.loc),
	})
}
