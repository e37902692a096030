package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/config"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/cache"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/models"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/providers/zoom"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/repositories/postgres"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/timeslot"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/utils"
)

// TeardownQueue hands an external meeting id to the asynchronous teardown
// worker. Enqueue failures are the caller's to log and swallow.
type TeardownQueue interface {
	Enqueue(ctx context.Context, meetingID string) error
}

// Allocation is the committed outcome of one allocate call. PrevDate and
// PrevSlot carry the slot freed by a rebooking so the caller can notify
// peers watching the old date.
type Allocation struct {
	Booking  *models.Booking
	Rebooked bool
	PrevDate string
	PrevSlot string
}

type BookingService interface {
	// Allocate runs the full gate sequence for one (user, date, slot)
	// request and commits the booking. Rejections come back as coded
	// errors, never partial state.
	Allocate(ctx context.Context, userID, date, slotLabel string) (*Allocation, error)

	// MySlot returns the user's slot label on date, "" when none.
	MySlot(ctx context.Context, userID, date string) (string, error)
	BookingOf(ctx context.Context, userID string) (*models.Booking, error)

	// Interviewer operations. Reschedule reports the freed slot the same
	// way Allocate does, so callers can notify watchers of both dates.
	Upcoming(ctx context.Context) ([]models.Booking, error)
	Complete(ctx context.Context, bookingID string, notes *string) error
	Reschedule(ctx context.Context, bookingID, date, slotLabel string, durationMinutes int) (*Allocation, error)
	Cancel(ctx context.Context, bookingID string) error
}

type bookingService struct {
	users    postgres.UserRepository
	bookings postgres.BookingRepository
	provider zoom.Provider
	teardown TeardownQueue
	cache    cache.Cache
	cfg      *config.BookingConfig
	log      *logrus.Logger

	now func() time.Time

	// dateLocks serializes allocations per date: the queue-number read and
	// the conflict read must not interleave with another commit on the
	// same date.
	mu        sync.Mutex
	dateLocks map[string]*sync.Mutex
}

func NewBookingService(
	users postgres.UserRepository,
	bookings postgres.BookingRepository,
	provider zoom.Provider,
	teardown TeardownQueue,
	c cache.Cache,
	cfg *config.BookingConfig,
	log *logrus.Logger,
) BookingService {
	return &bookingService{
		users:     users,
		bookings:  bookings,
		provider:  provider,
		teardown:  teardown,
		cache:     c,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		dateLocks: make(map[string]*sync.Mutex),
	}
}

func (s *bookingService) dateLock(date string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.dateLocks[date]
	if !ok {
		l = &sync.Mutex{}
		s.dateLocks[date] = l
	}
	return l
}

func (s *bookingService) Allocate(ctx context.Context, userID, date, slotLabel string) (*Allocation, error) {
	const op = "BookingService.Allocate"

	if userID == "" || date == "" || slotLabel == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user, date and time slot are required", nil)
	}
	if !s.isCatalogSlot(slotLabel) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown time slot", nil)
	}

	start, err := timeslot.StartAt(date, slotLabel, s.cfg.Location)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid date or time slot", err)
	}
	if !start.After(s.now()) {
		return nil, utils.E(utils.CodePastDate, op, "time slot is already in the past", nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if err == utils.ErrNotFound {
			return nil, utils.E(utils.CodeUserNotFound, op, "applicant not found", nil)
		}
		return nil, utils.E(utils.CodeStoreUnavailable, op, "failed to look up applicant", err)
	}
	if user.Status != models.UserApproved {
		return nil, utils.E(utils.CodeUserNotApproved, op, "applicant is not approved", nil)
	}

	from, to, err := timeslot.DayBounds(date, s.cfg.Location)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid date", err)
	}

	// Allocations on the same date contend on the queue number and the
	// conflict check; serialize them here, and run the read/commit pair in
	// one transaction.
	lock := s.dateLock(date)
	lock.Lock()
	defer lock.Unlock()

	var alloc *Allocation
	var replacedMeetingID string
	txErr := s.bookings.Transaction(ctx, func(tx postgres.BookingRepository) error {
		existing, err := tx.GetByUserID(ctx, userID)
		if err != nil && err != utils.ErrNotFound {
			return utils.E(utils.CodeStoreUnavailable, op, "failed to look up booking", err)
		}
		if err == utils.ErrNotFound {
			existing = nil
		}

		// Queue number: stable across rebookings, else max on the date + 1.
		var queue int
		if existing != nil && existing.QueueNumber != nil {
			queue = *existing.QueueNumber
		} else {
			max, err := tx.MaxQueueNumber(ctx, from, to)
			if err != nil {
				return utils.E(utils.CodeStoreUnavailable, op, "failed to compute queue number", err)
			}
			queue = max + 1
		}

		if _, err := tx.FindConflict(ctx, userID, from, to, slotLabel); err != utils.ErrNotFound {
			if err == nil {
				return utils.E(utils.CodeSlotConflict, op, "this time slot is already taken", nil)
			}
			return utils.E(utils.CodeStoreUnavailable, op, "failed to check slot conflict", err)
		}

		// Provision before commit so a stored booking always carries a
		// joinable meeting reference.
		if err := s.provider.Probe(ctx); err != nil {
			return utils.E(utils.CodeProvisioningFailed, op, "video provider is unreachable", err)
		}
		ref, err := s.provider.Create(ctx, zoom.CreateMeetingInput{
			Topic:           fmt.Sprintf("คุณ %s Tel: %s", user.Name, user.Phone),
			Start:           start,
			DurationMinutes: s.cfg.DurationMinutes,
			Timezone:        s.cfg.Location.String(),
		})
		if err != nil {
			return utils.E(utils.CodeProvisioningFailed, op, "failed to create meeting", err)
		}

		b := &models.Booking{
			UserID:          userID,
			MeetingDate:     from,
			MeetingTimeSlot: slotLabel,
			DurationMinutes: s.cfg.DurationMinutes,
			Status:          models.BookingScheduled,
			QueueNumber:     &queue,
			ZoomMeetingID:   &ref.ID,
			ZoomJoinURL:     &ref.JoinURL,
			ZoomPassword:    &ref.Password,
			UpdatedAt:       s.now().UTC(),
		}
		if existing != nil {
			b.ID = existing.ID
			b.CreatedAt = existing.CreatedAt
		} else {
			b.ID = uuid.NewString()
			b.CreatedAt = b.UpdatedAt
		}

		if err := tx.Upsert(ctx, b); err != nil {
			return utils.E(utils.CodeStoreUnavailable, op, "failed to commit booking", err)
		}

		alloc = &Allocation{Booking: b}
		if existing != nil {
			alloc.Rebooked = true
			alloc.PrevDate = existing.MeetingDate.In(s.cfg.Location).Format("2006-01-02")
			alloc.PrevSlot = existing.MeetingTimeSlot
			if existing.ZoomMeetingID != nil {
				replacedMeetingID = *existing.ZoomMeetingID
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	// Teardown only after the new booking is committed.
	s.enqueueTeardown(replacedMeetingID)

	s.invalidateAvailability(ctx, date)
	if alloc.Rebooked && alloc.PrevDate != date {
		s.invalidateAvailability(ctx, alloc.PrevDate)
	}
	return alloc, nil
}

// enqueueTeardown hands the replaced meeting to the async worker. Failure
// is logged and swallowed: teardown must never roll back the new booking.
func (s *bookingService) enqueueTeardown(meetingID string) {
	if s.teardown == nil || meetingID == "" {
		return
	}
	if err := s.teardown.Enqueue(context.Background(), meetingID); err != nil {
		s.log.WithError(err).WithField("zoom_meeting_id", meetingID).
			Warn("failed to enqueue meeting teardown")
	}
}

func (s *bookingService) invalidateAvailability(ctx context.Context, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, availabilityKey(date)); err != nil {
		s.log.WithError(err).WithField("date", date).Warn("availability cache invalidation failed")
	}
}

func (s *bookingService) isCatalogSlot(label string) bool {
	for _, slot := range timeslot.Generate(s.cfg.StartHour, s.cfg.EndHour, s.cfg.SlotMinutes, s.cfg.GapMinutes) {
		if slot.Label == label {
			return true
		}
	}
	return false
}

func (s *bookingService) MySlot(ctx context.Context, userID, date string) (string, error) {
	const op = "BookingService.MySlot"

	from, to, err := timeslot.DayBounds(date, s.cfg.Location)
	if err != nil {
		return "", utils.E(utils.CodeInvalidArgument, op, "invalid date", err)
	}
	b, err := s.bookings.FindByUserInRange(ctx, userID, from, to)
	if err != nil {
		if err == utils.ErrNotFound {
			return "", nil
		}
		return "", utils.E(utils.CodeStoreUnavailable, op, "failed to look up booking", err)
	}
	return b.MeetingTimeSlot, nil
}

func (s *bookingService) BookingOf(ctx context.Context, userID string) (*models.Booking, error) {
	const op = "BookingService.BookingOf"

	b, err := s.bookings.GetByUserID(ctx, userID)
	if err != nil {
		if err == utils.ErrNotFound {
			return nil, utils.E(utils.CodeNotFound, op, "no booking found", nil)
		}
		return nil, utils.E(utils.CodeStoreUnavailable, op, "failed to look up booking", err)
	}
	return b, nil
}

func (s *bookingService) Upcoming(ctx context.Context) ([]models.Booking, error) {
	const op = "BookingService.Upcoming"

	today, _, err := timeslot.DayBounds(s.now().In(s.cfg.Location).Format("2006-01-02"), s.cfg.Location)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to resolve today", err)
	}
	out, err := s.bookings.ListUpcoming(ctx, today)
	if err != nil {
		return nil, utils.E(utils.CodeStoreUnavailable, op, "failed to list meetings", err)
	}
	return out, nil
}

func (s *bookingService) Complete(ctx context.Context, bookingID string, notes *string) error {
	const op = "BookingService.Complete"

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if err == utils.ErrNotFound {
			return utils.E(utils.CodeNotFound, op, "booking not found", nil)
		}
		return utils.E(utils.CodeStoreUnavailable, op, "failed to look up booking", err)
	}
	if b.Status == models.BookingCompleted {
		return utils.E(utils.CodeConflict, op, "booking is already completed", nil)
	}
	if err := s.bookings.Complete(ctx, bookingID, notes); err != nil {
		return utils.E(utils.CodeStoreUnavailable, op, "failed to complete booking", err)
	}
	s.invalidateAvailability(ctx, b.MeetingDate.In(s.cfg.Location).Format("2006-01-02"))
	return nil
}

func (s *bookingService) Reschedule(ctx context.Context, bookingID, date, slotLabel string, durationMinutes int) (*Allocation, error) {
	const op = "BookingService.Reschedule"

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if err == utils.ErrNotFound {
			return nil, utils.E(utils.CodeNotFound, op, "booking not found", nil)
		}
		return nil, utils.E(utils.CodeStoreUnavailable, op, "failed to look up booking", err)
	}
	if b.Status != models.BookingScheduled {
		return nil, utils.E(utils.CodeConflict, op, "only scheduled bookings can be rescheduled", nil)
	}
	prevDate := b.MeetingDate.In(s.cfg.Location).Format("2006-01-02")
	prevSlot := b.MeetingTimeSlot
	if date == "" {
		date = prevDate
	}
	if slotLabel == "" {
		slotLabel = prevSlot
	}
	if durationMinutes <= 0 {
		durationMinutes = b.DurationMinutes
	}
	if !s.isCatalogSlot(slotLabel) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "unknown time slot", nil)
	}

	start, err := timeslot.StartAt(date, slotLabel, s.cfg.Location)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid date or time slot", err)
	}
	if !start.After(s.now()) {
		return nil, utils.E(utils.CodePastDate, op, "time slot is already in the past", nil)
	}

	from, to, err := timeslot.DayBounds(date, s.cfg.Location)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid date", err)
	}

	// Same serialization as Allocate: an admin move contends with user
	// allocations on the target date and must not land on a taken slot.
	lock := s.dateLock(date)
	lock.Lock()
	defer lock.Unlock()

	txErr := s.bookings.Transaction(ctx, func(tx postgres.BookingRepository) error {
		if _, err := tx.FindConflict(ctx, b.UserID, from, to, slotLabel); err != utils.ErrNotFound {
			if err == nil {
				return utils.E(utils.CodeSlotConflict, op, "this time slot is already taken", nil)
			}
			return utils.E(utils.CodeStoreUnavailable, op, "failed to check slot conflict", err)
		}
		if err := tx.UpdateSchedule(ctx, bookingID, from, slotLabel, durationMinutes); err != nil {
			return utils.E(utils.CodeStoreUnavailable, op, "failed to update booking", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	// Provider reschedule is best-effort and never rolls back the move.
	if b.ZoomMeetingID != nil {
		if err := s.provider.Probe(ctx); err != nil {
			s.log.WithError(err).Warn("skipping provider reschedule, probe failed")
		} else if err := s.provider.Update(ctx, *b.ZoomMeetingID, start, durationMinutes); err != nil {
			s.log.WithError(err).WithField("zoom_meeting_id", *b.ZoomMeetingID).
				Warn("provider reschedule failed")
		}
	}

	s.invalidateAvailability(ctx, date)
	if prevDate != date {
		s.invalidateAvailability(ctx, prevDate)
	}

	updated, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, utils.E(utils.CodeStoreUnavailable, op, "failed to reload booking", err)
	}
	return &Allocation{
		Booking:  updated,
		Rebooked: prevDate != date || prevSlot != slotLabel,
		PrevDate: prevDate,
		PrevSlot: prevSlot,
	}, nil
}

// Cancel tears down the external meeting only; the booking row is retained
// (bookings are never hard-deleted in the normal flow).
func (s *bookingService) Cancel(ctx context.Context, bookingID string) error {
	const op = "BookingService.Cancel"

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if err == utils.ErrNotFound {
			return utils.E(utils.CodeNotFound, op, "booking not found", nil)
		}
		return utils.E(utils.CodeStoreUnavailable, op, "failed to look up booking", err)
	}
	if b.ZoomMeetingID != nil {
		s.enqueueTeardown(*b.ZoomMeetingID)
	}
	return nil
}
