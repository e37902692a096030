package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// BookingConfig is the slot-window and time-zone configuration threaded
// through the catalog and the allocator. The zone is always explicit so the
// server's local zone never leaks into date math.
type BookingConfig struct {
	Location *time.Location

	StartHour   int
	EndHour     int
	SlotMinutes int
	GapMinutes  int

	// DurationMinutes is the meeting length requested from the provider.
	DurationMinutes int

	// FirstDate ("2006-01-02") and Days bound the bookable calendar.
	FirstDate string
	Days      int
}

func LoadBookingConfig() (*BookingConfig, error) {
	tz := os.Getenv("BOOKING_TZ")
	if tz == "" {
		tz = "Asia/Bangkok"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load BOOKING_TZ %q: %w", tz, err)
	}

	cfg := &BookingConfig{
		Location:        loc,
		StartHour:       envInt("BOOKING_START_HOUR", 8),
		EndHour:         envInt("BOOKING_END_HOUR", 22),
		SlotMinutes:     envInt("BOOKING_SLOT_MINUTES", 10),
		GapMinutes:      envInt("BOOKING_GAP_MINUTES", 5),
		DurationMinutes: envInt("BOOKING_DURATION_MINUTES", 10),
		FirstDate:       os.Getenv("BOOKING_FIRST_DATE"),
		Days:            envInt("BOOKING_DAYS", 6),
	}
	if cfg.FirstDate == "" {
		cfg.FirstDate = time.Now().In(loc).Format("2006-01-02")
	}
	if _, err := time.ParseInLocation("2006-01-02", cfg.FirstDate, loc); err != nil {
		return nil, fmt.Errorf("parse BOOKING_FIRST_DATE: %w", err)
	}
	return cfg, nil
}

// Dates lists the bookable calendar dates in order.
func (c *BookingConfig) Dates() []string {
	first, _ := time.ParseInLocation("2006-01-02", c.FirstDate, c.Location)
	out := make([]string, 0, c.Days)
	for i := 0; i < c.Days; i++ {
		out = append(out, first.AddDate(0, 0, i).Format("2006-01-02"))
	}
	return out
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
