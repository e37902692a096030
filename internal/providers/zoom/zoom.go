// Package zoom abstracts the video-conferencing provider. Only the
// allocator's needs are surfaced: probe, create, update, delete.
package zoom

import (
	"context"
	"time"
)

// MeetingRef is the joinable meeting handle stored with a booking.
type MeetingRef struct {
	ID       string `json:"id"`
	JoinURL  string `json:"join_url"`
	Password string `json:"password"`
}

type CreateMeetingInput struct {
	Topic           string
	Start           time.Time
	DurationMinutes int
	Timezone        string
}

type Provider interface {
	// Probe is a cheap connectivity check, run before any create so a dead
	// provider fails fast instead of surfacing a confusing create error.
	Probe(ctx context.Context) error
	Create(ctx context.Context, in CreateMeetingInput) (*MeetingRef, error)
	// Update and Delete are best-effort at the call sites; Delete treats a
	// provider-side not-found as success.
	Update(ctx context.Context, meetingID string, start time.Time, durationMinutes int) error
	Delete(ctx context.Context, meetingID string) error
}
