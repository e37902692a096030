package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/api/handlers"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/api/middleware"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/realtime"
)

type Deps struct {
	Reservation *handlers.ReservationHandler
	Booking     *handlers.BookingHandler
	Slots       *handlers.SlotsHandler
	Admin       *handlers.AdminHandler
	WS          *handlers.WSHandler
	Hub         *realtime.Hub
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"sockets": d.Hub.Connections(),
		})
	})

	api := r.Group("/api")

	// Public: identity check issues the session cookie, and the slot
	// catalog is readable before sign-in.
	api.POST("/reservation/check", d.Reservation.Check)
	api.GET("/slots/catalog", d.Slots.Catalog)
	api.GET("/slots/booked", d.Slots.Booked)
	api.POST("/admin/login", d.Admin.Login)

	// Applicant routes (JWT)
	auth := api.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.POST("/booking", d.Booking.Create)
	auth.GET("/booking", d.Booking.Get)
	auth.GET("/booking/me", d.Booking.MySlot)
	auth.GET("/booking/calendar.ics", d.Booking.Calendar)

	// WebSocket
	auth.GET("/ws", d.WS.Serve)

	// Interviewer routes
	admin := api.Group("/admin")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())

	admin.GET("/meetings", d.Admin.Upcoming)
	admin.POST("/meetings/:id/complete", d.Admin.Complete)
	admin.PATCH("/meetings/:id", d.Admin.Reschedule)
	admin.DELETE("/meetings/:id", d.Admin.Cancel)
}
