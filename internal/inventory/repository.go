// File: internal/inventory/repository.go
package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"repairdesk_backend/internal/common"
)

// Repository defines database operations for inventory items.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)
	FindAll(ctx context.Context, page, pageSize int) ([]Item, *common.Pagination, error)
	FindCritical(ctx context.Context) ([]Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// GORMRepository implements Repository using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new inventory repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

func (r *GORMRepository) Create(ctx context.Context, item *Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *GORMRepository) FindByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	var item Item
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Inventory item not found.")
		}
		return nil, err
	}
	return &item, nil
}

func (r *GORMRepository) FindAll(ctx context.Context, page, pageSize int) ([]Item, *common.Pagination, error) {
	var items []Item
	var total int64

	if err := r.db.WithContext(ctx).Model(&Item{}).Count(&total).Error; err != nil {
		return nil, nil, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return nil, nil, err
	}

	return items, common.NewPagination(total, page, pageSize), nil
}

func (r *GORMRepository) FindCritical(ctx context.Context) ([]Item, error) {
	var items []Item
	err := r.db.WithContext(ctx).
		Where("critical_level > 0 AND quantity <= critical_level").
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GORMRepository) Update(ctx context.Context, item *Item) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *GORMRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Item{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Inventory item not found.")
	}
	return nil
}
