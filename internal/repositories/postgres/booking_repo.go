package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/models"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetByUserID(ctx context.Context, userID string) (*models.Booking, error)
	FindByUserInRange(ctx context.Context, userID string, from, to time.Time) (*models.Booking, error)

	// BookedSlotLabels lists slot labels of bookings holding a slot
	// (scheduled or confirmed) with meeting date in [from, to).
	BookedSlotLabels(ctx context.Context, from, to time.Time) ([]string, error)

	// MaxQueueNumber is the highest assigned queue number on the date,
	// any status. Zero when none exist.
	MaxQueueNumber(ctx context.Context, from, to time.Time) (int, error)

	// FindConflict returns another user's slot-holding booking on the same
	// date+slot, or utils.ErrNotFound.
	FindConflict(ctx context.Context, excludeUserID string, from, to time.Time, slotLabel string) (*models.Booking, error)

	// Upsert commits a booking keyed by user_id: true rebooking, never a
	// second row per user.
	Upsert(ctx context.Context, b *models.Booking) error

	Complete(ctx context.Context, id string, notes *string) error
	UpdateSchedule(ctx context.Context, id string, date time.Time, slotLabel string, durationMinutes int) error
	ListUpcoming(ctx context.Context, from time.Time) ([]models.Booking, error)

	// Transaction runs fn against a repository bound to one transaction.
	Transaction(ctx context.Context, fn func(BookingRepository) error) error
}

type bookingRepo struct {
	db *gorm.DB
}

func NewBookingRepo(db *gorm.DB) BookingRepository {
	return &bookingRepo{db: db}
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &b, err
}

func (r *bookingRepo) GetByUserID(ctx context.Context, userID string) (*models.Booking, error) {
	var b models.Booking
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &b, err
}

func (r *bookingRepo) FindByUserInRange(ctx context.Context, userID string, from, to time.Time) (*models.Booking, error) {
	var b models.Booking
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND meeting_date >= ? AND meeting_date < ?", userID, from, to).
		Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &b, err
}

func (r *bookingRepo) BookedSlotLabels(ctx context.Context, from, to time.Time) ([]string, error) {
	var labels []string
	err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("meeting_date >= ? AND meeting_date < ?", from, to).
		Where("status IN ?", models.BookedStatuses).
		Where("meeting_time_slot <> ''").
		Pluck("meeting_time_slot", &labels).Error
	return labels, err
}

func (r *bookingRepo) MaxQueueNumber(ctx context.Context, from, to time.Time) (int, error) {
	var b models.Booking
	err := r.db.WithContext(ctx).
		Where("meeting_date >= ? AND meeting_date < ?", from, to).
		Where("queue_number IS NOT NULL").
		Order("queue_number DESC").
		Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if b.QueueNumber == nil {
		return 0, nil
	}
	return *b.QueueNumber, nil
}

func (r *bookingRepo) FindConflict(ctx context.Context, excludeUserID string, from, to time.Time, slotLabel string) (*models.Booking, error) {
	var b models.Booking
	err := r.db.WithContext(ctx).
		Where("user_id <> ?", excludeUserID).
		Where("meeting_date >= ? AND meeting_date < ?", from, to).
		Where("meeting_time_slot = ?", slotLabel).
		Where("status IN ?", models.BookedStatuses).
		Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &b, err
}

func (r *bookingRepo) Upsert(ctx context.Context, b *models.Booking) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"meeting_date", "meeting_time_slot", "duration_minutes",
				"status", "queue_number",
				"zoom_meeting_id", "zoom_join_url", "zoom_password",
				"updated_at",
			}),
		}).
		Create(b).Error
}

func (r *bookingRepo) Complete(ctx context.Context, id string, notes *string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            models.BookingCompleted,
			"interviewer_notes": notes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *bookingRepo) UpdateSchedule(ctx context.Context, id string, date time.Time, slotLabel string, durationMinutes int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"meeting_date":      date,
			"meeting_time_slot": slotLabel,
			"duration_minutes":  durationMinutes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *bookingRepo) ListUpcoming(ctx context.Context, from time.Time) ([]models.Booking, error) {
	var out []models.Booking
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("status = ?", models.BookingScheduled).
		Where("meeting_date >= ?", from).
		Order("meeting_date ASC").
		Order("meeting_time_slot ASC").
		Find(&out).Error
	return out, err
}

func (r *bookingRepo) Transaction(ctx context.Context, fn func(BookingRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&bookingRepo{db: tx})
	})
}
