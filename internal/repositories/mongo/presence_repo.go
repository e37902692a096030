package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/models"
	"github.com/kreangsak-project-sharing/realtime-booking-zoom-meeting/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PresenceRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.PresenceSession, error)
	// SetStatus upserts the user's presence doc; one doc per user.
	SetStatus(ctx context.Context, userID, status string) error
}

type presenceRepo struct {
	col *mongo.Collection
}

func NewPresenceRepo(db *mongo.Database) PresenceRepository {
	return &presenceRepo{col: db.Collection("sessions")}
}

func (r *presenceRepo) GetByUserID(ctx context.Context, userID string) (*models.PresenceSession, error) {
	var s models.PresenceSession
	err := r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *presenceRepo) SetStatus(ctx context.Context, userID, status string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}
