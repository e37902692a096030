package services

import (
	"context"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/models"
	mongorepo "github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/repositories/mongo"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/utils"
)

// PresenceService tracks who is currently viewing the scheduler. All calls
// are best-effort at their call sites: a presence failure never blocks a
// booking or disconnects a client.
type PresenceService interface {
	Activate(ctx context.Context, userID string) error
	Release(ctx context.Context, userID string) error
	IsActive(ctx context.Context, userID string) (bool, error)
}

type presenceService struct {
	sessions mongorepo.PresenceRepository
}

func NewPresenceService(sessions mongorepo.PresenceRepository) PresenceService {
	return &presenceService{sessions: sessions}
}

func (s *presenceService) Activate(ctx context.Context, userID string) error {
	const op = "PresenceService.Activate"
	if userID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if err := s.sessions.SetStatus(ctx, userID, models.PresenceActive); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to activate session", err)
	}
	return nil
}

func (s *presenceService) Release(ctx context.Context, userID string) error {
	const op = "PresenceService.Release"
	if userID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	if err := s.sessions.SetStatus(ctx, userID, models.PresenceInactive); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to release session", err)
	}
	return nil
}

func (s *presenceService) IsActive(ctx context.Context, userID string) (bool, error) {
	const op = "PresenceService.IsActive"
	sess, err := s.sessions.GetByUserID(ctx, userID)
	if err != nil {
		if err == utils.ErrNotFound {
			return false, nil
		}
		return false, utils.E(utils.CodeInternal, op, "failed to read session", err)
	}
	return sess.Status == models.PresenceActive, nil
}
