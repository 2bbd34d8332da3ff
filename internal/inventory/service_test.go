// File: internal/inventory/service_test.go
package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/gateway"
	"repairdesk_backend/internal/notification"
)

// --- Mocks ---

type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) Create(ctx context.Context, item *Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockInventoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Item), args.Error(1)
}

func (m *MockInventoryRepository) FindAll(ctx context.Context, page, pageSize int) ([]Item, *common.Pagination, error) {
	args := m.Called(ctx, page, pageSize)
	var items []Item
	if args.Get(0) != nil {
		items = args.Get(0).([]Item)
	}
	var pagination *common.Pagination
	if args.Get(1) != nil {
		pagination = args.Get(1).(*common.Pagination)
	}
	return items, pagination, args.Error(2)
}

func (m *MockInventoryRepository) FindCritical(ctx context.Context) ([]Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Item), args.Error(1)
}

func (m *MockInventoryRepository) Update(ctx context.Context, item *Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockInventoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) CreateNotification(ctx context.Context, userID uuid.UUID, title, message string, severity notification.Severity, requestID *uuid.UUID, link *string) (*notification.Notification, error) {
	args := m.Called(ctx, userID, title, message, severity, requestID, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

func (m *MockNotificationService) NotifyAdmins(ctx context.Context, title, message string, severity notification.Severity, requestID *uuid.UUID) (int, error) {
	args := m.Called(ctx, title, message, severity, requestID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationService) GetNotificationsForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]notification.Notification, *common.Pagination, error) {
	args := m.Called(ctx, userID, page, pageSize)
	var notifs []notification.Notification
	if args.Get(0) != nil {
		notifs = args.Get(0).([]notification.Notification)
	}
	var pagination *common.Pagination
	if args.Get(1) != nil {
		pagination = args.Get(1).(*common.Pagination)
	}
	return notifs, pagination, args.Error(2)
}

func (m *MockNotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) MarkNotificationAsRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

func (m *MockNotificationService) MarkAllUserNotificationsAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) DeleteNotification(ctx context.Context, notificationID, userID uuid.UUID) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

// --- Helpers ---

func newTestService(t *testing.T) (*ServiceImplementation, *MockInventoryRepository, *MockNotificationService, *gateway.Bus) {
	t.Helper()
	repo := new(MockInventoryRepository)
	notifs := new(MockNotificationService)
	bus := gateway.NewBus(zap.NewNop())
	svc := NewService(repo, notifs, bus, zap.NewNop())
	return svc, repo, notifs, bus
}

func stockItem(quantity, criticalLevel int) *Item {
	item := &Item{
		Name:          "USB-C charge port",
		Category:      "Spare parts",
		Quantity:      quantity,
		CriticalLevel: criticalLevel,
		BuyPrice:      4.5,
		SellPrice:     12,
		Condition:     ConditionNew,
	}
	item.ID = uuid.New()
	return item
}

func intPtr(v int) *int { return &v }

// --- Tests ---

func TestCreateItem_DefaultsConditionToNew(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*inventory.Item")).Return(nil)

	item, err := svc.CreateItem(context.Background(), CreateItemRequest{
		Name:     "  Battery 4000mAh  ",
		Category: "Spare parts",
		Quantity: 10,
	})

	assert.NoError(t, err)
	assert.Equal(t, "Battery 4000mAh", item.Name)
	assert.Equal(t, ConditionNew, item.Condition)
	repo.AssertExpectations(t)
}

func TestCreateItem_BlankNameRejected(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	_, err := svc.CreateItem(context.Background(), CreateItemRequest{Name: "   ", Category: "Spare parts"})

	assert.True(t, common.IsCode(err, common.ErrValidation.Code))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateItem_PersistFailure(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("duplicate key"))

	_, err := svc.CreateItem(context.Background(), CreateItemRequest{Name: "Screen", Category: "Spare parts"})

	assert.True(t, common.IsCode(err, common.ErrPersist.Code))
}

func TestCreateItem_PublishesInsertEvent(t *testing.T) {
	svc, repo, _, bus := newTestService(t)

	events := make(chan gateway.Event, 1)
	unsubscribe := bus.Subscribe(Item{}.TableName(), []gateway.EventType{gateway.EventInsert}, func(evt gateway.Event) {
		events <- evt
	})
	defer unsubscribe()

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	item, err := svc.CreateItem(context.Background(), CreateItemRequest{Name: "Screen", Category: "Spare parts"})
	assert.NoError(t, err)

	select {
	case evt := <-events:
		assert.Equal(t, gateway.EventInsert, evt.Type)
		assert.Equal(t, item, evt.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an insert event on the bus")
	}
}

func TestUpdateItem_CrossingCriticalLevelAlertsStaff(t *testing.T) {
	svc, repo, notifs, _ := newTestService(t)
	item := stockItem(10, 3)

	repo.On("FindByID", mock.Anything, item.ID).Return(item, nil)
	repo.On("Update", mock.Anything, item).Return(nil)
	notifs.On("NotifyAdmins", mock.Anything, "Low stock",
		"USB-C charge port is down to 2 (critical level 3).",
		notification.SeverityWarning, (*uuid.UUID)(nil)).Return(1, nil)

	updated, err := svc.UpdateItem(context.Background(), item.ID, UpdateItemRequest{Quantity: intPtr(2)})

	assert.NoError(t, err)
	assert.Equal(t, 2, updated.Quantity)
	notifs.AssertExpectations(t)
}

func TestUpdateItem_AlreadyCriticalDoesNotRealert(t *testing.T) {
	svc, repo, notifs, _ := newTestService(t)
	item := stockItem(2, 3)

	repo.On("FindByID", mock.Anything, item.ID).Return(item, nil)
	repo.On("Update", mock.Anything, item).Return(nil)

	_, err := svc.UpdateItem(context.Background(), item.ID, UpdateItemRequest{Quantity: intPtr(1)})

	assert.NoError(t, err)
	notifs.AssertNotCalled(t, "NotifyAdmins", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateItem_AlertFailureDoesNotFailUpdate(t *testing.T) {
	svc, repo, notifs, _ := newTestService(t)
	item := stockItem(10, 3)

	repo.On("FindByID", mock.Anything, item.ID).Return(item, nil)
	repo.On("Update", mock.Anything, item).Return(nil)
	notifs.On("NotifyAdmins", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(0, errors.New("smtp down"))

	updated, err := svc.UpdateItem(context.Background(), item.ID, UpdateItemRequest{Quantity: intPtr(1)})

	assert.NoError(t, err)
	assert.Equal(t, 1, updated.Quantity)
}

func TestUpdateItem_BlankNameRejected(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	item := stockItem(5, 0)

	repo.On("FindByID", mock.Anything, item.ID).Return(item, nil)

	name := " "
	_, err := svc.UpdateItem(context.Background(), item.ID, UpdateItemRequest{Name: &name})

	assert.True(t, common.IsCode(err, common.ErrValidation.Code))
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestGetItem_NotFoundPassesThrough(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	id := uuid.New()

	repo.On("FindByID", mock.Anything, id).Return(nil, common.ErrNotFound.WithDetails("Inventory item not found."))

	_, err := svc.GetItem(context.Background(), id)

	assert.True(t, common.IsCode(err, common.ErrNotFound.Code))
}

func TestListItems_RepositoryFailureIsRetryable(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	repo.On("FindAll", mock.Anything, 1, 20).Return(nil, nil, errors.New("connection reset"))

	_, _, err := svc.ListItems(context.Background(), 1, 20)

	assert.True(t, common.IsCode(err, common.ErrFetch.Code))
	assert.True(t, common.IsRetryable(err))
}

func TestDeleteItem_PublishesDeleteEvent(t *testing.T) {
	svc, repo, _, bus := newTestService(t)
	id := uuid.New()

	events := make(chan gateway.Event, 1)
	unsubscribe := bus.Subscribe(Item{}.TableName(), []gateway.EventType{gateway.EventDelete}, func(evt gateway.Event) {
		events <- evt
	})
	defer unsubscribe()

	repo.On("Delete", mock.Anything, id).Return(nil)

	err := svc.DeleteItem(context.Background(), id)
	assert.NoError(t, err)

	select {
	case evt := <-events:
		assert.Equal(t, id, evt.RecordID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a delete event on the bus")
	}
}

func TestListCritical(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	low := *stockItem(1, 3)

	repo.On("FindCritical", mock.Anything).Return([]Item{low}, nil)

	items, err := svc.ListCritical(context.Background())

	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.True(t, items[0].IsCritical())
}
