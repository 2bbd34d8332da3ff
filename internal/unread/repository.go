package unread

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// FindPreference returns nil (no error) when the actor has never saved
	// a preference.
	FindPreference(ctx context.Context, userID uuid.UUID) (*UserPreference, error)
	SavePreference(ctx context.Context, pref *UserPreference) error
}

// GORMRepository implements the Repository interface using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM preference repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

func (r *GORMRepository) FindPreference(ctx context.Context, userID uuid.UUID) (*UserPreference, error) {
	var pref UserPreference
	err := r.db.WithContext(ctx).First(&pref, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load preference for user %s: %w", userID, err)
	}
	return &pref, nil
}

func (r *GORMRepository) SavePreference(ctx context.Context, pref *UserPreference) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"alert_volume", "updated_at"}),
		}).
		Create(pref).Error
	if err != nil {
		return fmt.Errorf("failed to save preference for user %s: %w", pref.UserID, err)
	}
	return nil
}
