package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/services"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/utils"
)

type SlotsHandler struct {
	svc services.AvailabilityService
}

func NewSlotsHandler(svc services.AvailabilityService) *SlotsHandler {
	return &SlotsHandler{svc: svc}
}

type SlotInfo struct {
	Label       string `json:"label"`
	StartOffset int    `json:"startOffset"`
}

// Catalog returns the bookable dates and the fixed slot grid shared by
// every date.
func (h *SlotsHandler) Catalog(c *gin.Context) {
	slots := h.svc.Catalog()
	out := make([]SlotInfo, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotInfo{Label: s.Label, StartOffset: s.StartOffset})
	}
	c.JSON(http.StatusOK, gin.H{
		"dates": h.svc.Dates(),
		"slots": out,
	})
}

// Booked returns the occupied slot labels for one date.
func (h *SlotsHandler) Booked(c *gin.Context) {
	const op = "SlotsHandler.Booked"

	date := c.Query("date")
	if date == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "date is required", nil))
		return
	}

	booked, err := h.svc.BookedSlots(c.Request.Context(), date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":        date,
		"bookedSlots": booked,
	})
}
