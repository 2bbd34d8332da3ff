package request

import (
	"context"
	"errors"
	"fmt"

	"repairdesk_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, req *ServiceRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*ServiceRequest, error)
	// FindAll returns every request, newest first. Admin listing.
	FindAll(ctx context.Context, page, pageSize int) ([]ServiceRequest, *common.Pagination, error)
	// FindByUserID returns one customer's requests, newest first.
	FindByUserID(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]ServiceRequest, *common.Pagination, error)
	// UpdateFields applies a partial update to one request row.
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}

// GORMRepository implements the Repository interface using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM request repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

// Create inserts a new service request into the database.
func (r *GORMRepository) Create(ctx context.Context, req *ServiceRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create service request: %w", err)
	}
	return nil
}

func (r *GORMRepository) FindByID(ctx context.Context, id uuid.UUID) (*ServiceRequest, error) {
	var req ServiceRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Service request not found.")
		}
		return nil, fmt.Errorf("failed to find service request %s: %w", id, err)
	}
	return &req, nil
}

func (r *GORMRepository) FindAll(ctx context.Context, page, pageSize int) ([]ServiceRequest, *common.Pagination, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&ServiceRequest{}), page, pageSize)
}

func (r *GORMRepository) FindByUserID(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]ServiceRequest, *common.Pagination, error) {
	query := r.db.WithContext(ctx).Model(&ServiceRequest{}).Where("user_id = ?", userID)
	return r.list(ctx, query, page, pageSize)
}

func (r *GORMRepository) list(ctx context.Context, query *gorm.DB, page, pageSize int) ([]ServiceRequest, *common.Pagination, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to count service requests: %w", err)
	}
	pagination := common.NewPagination(total, page, pageSize)

	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	var requests []ServiceRequest
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&requests).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list service requests: %w", err)
	}
	return requests, pagination, nil
}

func (r *GORMRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&ServiceRequest{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update service request %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Service request not found.")
	}
	return nil
}
