package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/config"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/cache"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/repositories/postgres"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/timeslot"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/utils"
)

// availabilityTTL keeps the cache a read accelerator only: the allocator
// invalidates on commit, the TTL covers out-of-band writes.
const availabilityTTL = 15 * time.Second

type AvailabilityService interface {
	// BookedSlots returns the slot labels taken on date. A store failure is
	// an explicit error, never an empty set.
	BookedSlots(ctx context.Context, date string) ([]string, error)
	// Catalog is the fixed list of bookable windows for any date.
	Catalog() []timeslot.Slot
	// Dates lists the bookable calendar dates.
	Dates() []string
}

type availabilityService struct {
	bookings postgres.BookingRepository
	cache    cache.Cache
	cfg      *config.BookingConfig
	log      *logrus.Logger
}

func NewAvailabilityService(bookings postgres.BookingRepository, c cache.Cache, cfg *config.BookingConfig, log *logrus.Logger) AvailabilityService {
	return &availabilityService{bookings: bookings, cache: c, cfg: cfg, log: log}
}

func availabilityKey(date string) string { return "slots:" + date }

func (s *availabilityService) BookedSlots(ctx context.Context, date string) ([]string, error) {
	const op = "AvailabilityService.BookedSlots"

	from, to, err := timeslot.DayBounds(date, s.cfg.Location)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid date", err)
	}

	var cached []string
	if s.cache != nil {
		hit, cerr := s.cache.GetJSON(ctx, availabilityKey(date), &cached)
		if cerr != nil {
			s.log.WithError(cerr).Warn("availability cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	labels, err := s.bookings.BookedSlotLabels(ctx, from, to)
	if err != nil {
		return nil, utils.E(utils.CodeStoreUnavailable, op, "failed to load booked slots", err)
	}
	if labels == nil {
		labels = []string{}
	}

	if s.cache != nil {
		if cerr := s.cache.SetJSON(ctx, availabilityKey(date), labels, availabilityTTL); cerr != nil {
			s.log.WithError(cerr).Warn("availability cache write failed")
		}
	}
	return labels, nil
}

func (s *availabilityService) Catalog() []timeslot.Slot {
	return timeslot.Generate(s.cfg.StartHour, s.cfg.EndHour, s.cfg.SlotMinutes, s.cfg.GapMinutes)
}

func (s *availabilityService) Dates() []string {
	return s.cfg.Dates()
}
