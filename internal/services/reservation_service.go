package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/models"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/repositories/postgres"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/utils"
)

// ReservationService is the entry gate: it resolves an email/phone identity
// to an approved applicant and reports any existing booking.
type ReservationService interface {
	CheckUser(ctx context.Context, email, phone string) (*models.RegisterUser, *models.Booking, error)
}

type reservationService struct {
	users    postgres.UserRepository
	bookings postgres.BookingRepository
	presence PresenceService
	log      *logrus.Logger
}

func NewReservationService(users postgres.UserRepository, bookings postgres.BookingRepository, presence PresenceService, log *logrus.Logger) ReservationService {
	return &reservationService{users: users, bookings: bookings, presence: presence, log: log}
}

func (s *reservationService) CheckUser(ctx context.Context, email, phone string) (*models.RegisterUser, *models.Booking, error) {
	const op = "ReservationService.CheckUser"

	if email == "" && phone == "" {
		return nil, nil, utils.E(utils.CodeInvalidArgument, op, "email or phone is required", nil)
	}

	user, err := s.users.FindByIdentity(ctx, email, phone)
	if err != nil {
		if err == utils.ErrNotFound {
			return nil, nil, utils.E(utils.CodeUserNotFound, op, "email or phone number not found", nil)
		}
		return nil, nil, utils.E(utils.CodeStoreUnavailable, op, "failed to look up user", err)
	}
	if user.Status != models.UserApproved {
		return nil, nil, utils.E(utils.CodeUserNotApproved, op, "registration is not approved yet", nil)
	}

	// One active viewer per identity: reject while a presence session is
	// live. Presence-store failure only logs; it must not gate the login.
	active, err := s.presence.IsActive(ctx, user.ID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("presence lookup failed")
	} else if active {
		return nil, nil, utils.E(utils.CodeConflict, op, "this account is already in use", nil)
	}

	booking, err := s.bookings.GetByUserID(ctx, user.ID)
	if err != nil {
		if err != utils.ErrNotFound {
			return nil, nil, utils.E(utils.CodeStoreUnavailable, op, "failed to look up booking", err)
		}
		booking = nil
	}
	// A completed interview no longer reserves a slot, so the applicant
	// comes back with a clean sheet.
	if booking != nil && !booking.Status.HoldsSlot() {
		booking = nil
	}
	return user, booking, nil
}
