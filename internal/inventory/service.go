// File: internal/inventory/service.go
package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/gateway"
	"repairdesk_backend/internal/notification"
	"repairdesk_backend/internal/sync"
)

// Service defines the business logic for the parts inventory. All
// operations are staff-only; access is enforced at the route level.
type Service interface {
	ListItems(ctx context.Context, page, pageSize int) ([]Item, *common.Pagination, error)
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	CreateItem(ctx context.Context, req CreateItemRequest) (*Item, error)
	UpdateItem(ctx context.Context, id uuid.UUID, req UpdateItemRequest) (*Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListCritical(ctx context.Context) ([]Item, error)
}

// ServiceImplementation implements the Service interface.
type ServiceImplementation struct {
	repo          Repository
	notifications notification.Service
	bus           *gateway.Bus
	store         *sync.Controller[Item]
	logger        *zap.Logger
}

// NewService creates a new inventory service.
func NewService(repo Repository, notifications notification.Service, bus *gateway.Bus, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:          repo,
		notifications: notifications,
		bus:           bus,
		logger:        logger.Named("inventory_service"),
	}
}

// SetStore attaches the shared snapshot store for the inventory table. Set
// once during wiring, before traffic arrives.
func (s *ServiceImplementation) SetStore(store *sync.Controller[Item]) {
	s.store = store
}

func (s *ServiceImplementation) ListItems(ctx context.Context, page, pageSize int) ([]Item, *common.Pagination, error) {
	if s.store != nil && s.store.State() == sync.StateSuccess {
		items, pagination := pageOfItems(s.store.Items(), page, pageSize)
		return items, pagination, nil
	}

	items, pagination, err := s.repo.FindAll(ctx, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list inventory items", zap.Error(err))
		return nil, nil, common.ErrFetch.WithDetails("Could not load the inventory.")
	}
	return items, pagination, nil
}

// rollbackStore re-fetches the shared snapshot after a failed write, so it
// never keeps rows the database rejected.
func (s *ServiceImplementation) rollbackStore() {
	if s.store == nil {
		return
	}
	go func() {
		_, _ = s.store.Rollback(context.Background())
	}()
}

// pageOfItems serves one page from an already ordered snapshot.
func pageOfItems(items []Item, page, pageSize int) ([]Item, *common.Pagination) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	pagination := common.NewPagination(int64(len(items)), page, pageSize)
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []Item{}, pagination
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	out := make([]Item, end-start)
	copy(out, items[start:end])
	return out, pagination
}

func (s *ServiceImplementation) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if common.IsCode(err, common.ErrNotFound.Code) {
			return nil, err
		}
		s.logger.Error("Failed to fetch inventory item", zap.String("itemID", id.String()), zap.Error(err))
		return nil, common.ErrFetch.WithDetails("Could not load the inventory item.")
	}
	return item, nil
}

func (s *ServiceImplementation) CreateItem(ctx context.Context, req CreateItemRequest) (*Item, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, common.ErrValidation.WithDetails("Item name is required.")
	}

	condition := req.Condition
	if condition == "" {
		condition = ConditionNew
	}

	item := &Item{
		Name:          name,
		Category:      strings.TrimSpace(req.Category),
		SKU:           req.SKU,
		Quantity:      req.Quantity,
		CriticalLevel: req.CriticalLevel,
		BuyPrice:      req.BuyPrice,
		SellPrice:     req.SellPrice,
		ShelfLocation: req.ShelfLocation,
		Condition:     condition,
		Notes:         req.Notes,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		s.logger.Error("Failed to create inventory item", zap.String("name", name), zap.Error(err))
		return nil, common.ErrPersist.WithDetails("The inventory item could not be saved.")
	}

	s.bus.Publish(gateway.Event{
		Table:    Item{}.TableName(),
		Type:     gateway.EventInsert,
		RecordID: item.ID,
		Payload:  item,
	})

	return item, nil
}

func (s *ServiceImplementation) UpdateItem(ctx context.Context, id uuid.UUID, req UpdateItemRequest) (*Item, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	wasCritical := item.IsCritical()

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, common.ErrValidation.WithDetails("Item name cannot be empty.")
		}
		item.Name = name
	}
	if req.Category != nil {
		item.Category = strings.TrimSpace(*req.Category)
	}
	if req.SKU != nil {
		item.SKU = req.SKU
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.CriticalLevel != nil {
		item.CriticalLevel = *req.CriticalLevel
	}
	if req.BuyPrice != nil {
		item.BuyPrice = *req.BuyPrice
	}
	if req.SellPrice != nil {
		item.SellPrice = *req.SellPrice
	}
	if req.ShelfLocation != nil {
		item.ShelfLocation = req.ShelfLocation
	}
	if req.Condition != nil {
		if !ValidCondition(*req.Condition) {
			return nil, common.ErrValidation.WithDetails(fmt.Sprintf("Unknown item condition: %s", *req.Condition))
		}
		item.Condition = *req.Condition
	}
	if req.Notes != nil {
		item.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, item); err != nil {
		s.rollbackStore()
		s.logger.Error("Failed to update inventory item", zap.String("itemID", id.String()), zap.Error(err))
		return nil, common.ErrPersist.WithDetails("The inventory item could not be saved.")
	}

	s.bus.Publish(gateway.Event{
		Table:    Item{}.TableName(),
		Type:     gateway.EventUpdate,
		RecordID: item.ID,
		Payload:  item,
	})

	if !wasCritical && item.IsCritical() {
		s.alertLowStock(ctx, item)
	}

	return item, nil
}

func (s *ServiceImplementation) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.rollbackStore()
		if common.IsCode(err, common.ErrNotFound.Code) {
			return err
		}
		s.logger.Error("Failed to delete inventory item", zap.String("itemID", id.String()), zap.Error(err))
		return common.ErrPersist.WithDetails("The inventory item could not be deleted.")
	}

	s.bus.Publish(gateway.Event{
		Table:    Item{}.TableName(),
		Type:     gateway.EventDelete,
		RecordID: id,
	})

	return nil
}

func (s *ServiceImplementation) ListCritical(ctx context.Context) ([]Item, error) {
	items, err := s.repo.FindCritical(ctx)
	if err != nil {
		s.logger.Error("Failed to list critical inventory items", zap.Error(err))
		return nil, common.ErrFetch.WithDetails("Could not load critical stock levels.")
	}
	return items, nil
}

// alertLowStock notifies staff when a stock line crosses its critical
// level. Notification failures never fail the triggering update.
func (s *ServiceImplementation) alertLowStock(ctx context.Context, item *Item) {
	message := fmt.Sprintf("%s is down to %d (critical level %d).", item.Name, item.Quantity, item.CriticalLevel)
	if _, err := s.notifications.NotifyAdmins(ctx, "Low stock", message, notification.SeverityWarning, nil); err != nil {
		s.logger.Warn("Failed to send low stock alert",
			zap.String("itemID", item.ID.String()),
			zap.Error(err),
		)
	}
}
