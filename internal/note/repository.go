package note

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, note *ServiceNote) error
	// FindByRequestID returns the full thread for a request in created_at
	// ascending order. Rows sharing a timestamp keep insertion order.
	FindByRequestID(ctx context.Context, requestID uuid.UUID) ([]ServiceNote, error)
	// LatestPerRequest returns the most recent note for each of the given
	// requests. Requests without notes are absent from the map.
	LatestPerRequest(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID]ServiceNote, error)
}

// GORMRepository implements the Repository interface using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM note repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

// Create inserts a new note into the database.
func (r *GORMRepository) Create(ctx context.Context, note *ServiceNote) error {
	if err := r.db.WithContext(ctx).Create(note).Error; err != nil {
		return fmt.Errorf("failed to create note for request %s: %w", note.RequestID, err)
	}
	return nil
}

func (r *GORMRepository) FindByRequestID(ctx context.Context, requestID uuid.UUID) ([]ServiceNote, error) {
	var notes []ServiceNote
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load thread for request %s: %w", requestID, err)
	}
	return notes, nil
}

func (r *GORMRepository) LatestPerRequest(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID]ServiceNote, error) {
	latest := make(map[uuid.UUID]ServiceNote, len(requestIDs))
	if len(requestIDs) == 0 {
		return latest, nil
	}

	var notes []ServiceNote
	err := r.db.WithContext(ctx).
		Where("request_id IN ?", requestIDs).
		Order("created_at ASC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load latest notes: %w", err)
	}
	// Ascending scan: the last note seen per request wins.
	for _, n := range notes {
		latest[n.RequestID] = n
	}
	return latest, nil
}
