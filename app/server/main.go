package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/config"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/api/handlers"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/api/middleware"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/api/routes"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/cache"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/logger"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/models"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/providers/zoom"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/realtime"
	mongorepo "github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/repositories/mongo"
	pgrepo "github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/repositories/postgres"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/services"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("postgres init failed")
	}
	log.Info("postgres connected")

	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("redis init failed")
	}
	log.Info("redis connected")

	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("mongo init failed")
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.WithError(err).Fatal("mongo index init failed")
	}
	log.Info("mongo connected")

	if err := config.PostgresDB.AutoMigrate(&models.RegisterUser{}, &models.Booking{}); err != nil {
		log.WithError(err).Fatal("postgres migrate failed")
	}

	bookingCfg, err := config.LoadBookingConfig()
	if err != nil {
		log.WithError(err).Fatal("booking config load failed")
	}

	provider, err := zoom.NewZoomAPI()
	if err != nil {
		log.WithError(err).Fatal("zoom provider init failed")
	}

	userRepo := pgrepo.NewUserRepo(config.PostgresDB)
	bookingRepo := pgrepo.NewBookingRepo(config.PostgresDB)
	presenceRepo := mongorepo.NewPresenceRepo(config.MongoDatabase())

	redisCache := cache.NewRedisCache(config.RedisClient)
	teardownQueue := &workers.RedisTeardownQueue{Redis: config.RedisClient}

	presenceSvc := services.NewPresenceService(presenceRepo)
	availabilitySvc := services.NewAvailabilityService(bookingRepo, redisCache, bookingCfg, log)
	reservationSvc := services.NewReservationService(userRepo, bookingRepo, presenceSvc, log)
	bookingSvc := services.NewBookingService(userRepo, bookingRepo, provider, teardownQueue, redisCache, bookingCfg, log)

	hub := realtime.NewHub(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	teardownPool := &workers.TeardownWorkerPool{
		Redis:    config.RedisClient,
		Provider: provider,
		Logger:   log,
	}
	if err := teardownPool.Start(ctx); err != nil {
		log.WithError(err).Fatal("teardown worker start failed")
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Reservation: handlers.NewReservationHandler(reservationSvc, bookingCfg.Location),
		Booking:     handlers.NewBookingHandler(bookingSvc, hub, bookingCfg, log),
		Slots:       handlers.NewSlotsHandler(availabilitySvc),
		Admin:       handlers.NewAdminHandler(bookingSvc, hub, bookingCfg, log),
		WS:          handlers.NewWSHandler(hub, availabilitySvc, presenceSvc, log),
		Hub:         hub,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	log.Info("server stopped")
}
