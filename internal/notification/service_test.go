package notification

import (
	"context"
	"errors"
	"testing"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/gateway"
	"repairdesk_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockNotificationRepository is a mock type for notification.Repository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *Notification) error {
	args := m.Called(ctx, notification)
	if args.Error(0) == nil && notification.ID == uuid.Nil {
		notification.ID = uuid.New() // Simulate DB generating ID
	}
	return args.Error(0)
}

func (m *MockNotificationRepository) CreateBatch(ctx context.Context, notifications []*Notification) error {
	args := m.Called(ctx, notifications)
	if args.Error(0) == nil {
		for _, n := range notifications {
			if n.ID == uuid.Nil {
				n.ID = uuid.New()
			}
		}
	}
	return args.Error(0)
}

func (m *MockNotificationRepository) GetByUserID(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Notification, *common.Pagination, error) {
	args := m.Called(ctx, userID, page, pageSize)
	var notifications []Notification
	if args.Get(0) != nil {
		notifications = args.Get(0).([]Notification)
	}
	var pagination *common.Pagination
	if args.Get(1) != nil {
		pagination = args.Get(1).(*common.Pagination)
	}
	return notifications, pagination, args.Error(2)
}

func (m *MockNotificationRepository) FindByID(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) (*Notification, error) {
	args := m.Called(ctx, notificationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Notification), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkAsRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) Delete(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

// MockProfileService is a mock type for shared.ProfileService
type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) GetProfileByID(ctx context.Context, id uuid.UUID) (*shared.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Profile), args.Error(1)
}

func (m *MockProfileService) GetProfileByEmail(ctx context.Context, email string) (*shared.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Profile), args.Error(1)
}

func (m *MockProfileService) FetchOrCreate(ctx context.Context, id uuid.UUID, email string) (*shared.Profile, error) {
	args := m.Called(ctx, id, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Profile), args.Error(1)
}

func (m *MockProfileService) FindAdmins(ctx context.Context) ([]*shared.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shared.Profile), args.Error(1)
}

// Test Suite Setup
type NotificationServiceTestSuite struct {
	service      Service
	mockRepo     *MockNotificationRepository
	mockProfiles *MockProfileService
	bus          *gateway.Bus
}

func setupNotificationServiceTestSuite(t *testing.T) *NotificationServiceTestSuite {
	ts := &NotificationServiceTestSuite{}
	ts.mockRepo = new(MockNotificationRepository)
	ts.mockProfiles = new(MockProfileService)
	ts.bus = gateway.NewBus(zap.NewNop())

	ts.service = NewService(
		ts.mockRepo,
		ts.mockProfiles,
		ts.bus,
		zap.NewNop(),
	)
	return ts
}

// --- Test Cases ---

func TestNotificationService_CreateNotification_Success(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()
	requestID := uuid.New()

	ts.mockRepo.On("Create", ctx, mock.AnythingOfType("*notification.Notification")).Run(func(args mock.Arguments) {
		notifArg := args.Get(1).(*Notification)
		assert.Equal(t, userID, notifArg.UserID)
		assert.Equal(t, "Status Updated", notifArg.Title)
		assert.Equal(t, SeveritySuccess, notifArg.Severity)
		assert.Equal(t, &requestID, notifArg.RequestID)
		assert.False(t, notifArg.IsRead)
	}).Return(nil)

	created, err := ts.service.CreateNotification(ctx, userID, "Status Updated", "Your repair moved to diagnosing.", SeveritySuccess, &requestID, nil)

	assert.NoError(t, err)
	assert.NotNil(t, created)
	assert.NotEqual(t, uuid.Nil, created.ID, "Expected notification ID to be set")
	ts.mockRepo.AssertExpectations(t)
}

func TestNotificationService_CreateNotification_DefaultsUnknownSeverity(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()

	ts.mockRepo.On("Create", ctx, mock.AnythingOfType("*notification.Notification")).Run(func(args mock.Arguments) {
		notifArg := args.Get(1).(*Notification)
		assert.Equal(t, SeverityInfo, notifArg.Severity)
	}).Return(nil)

	_, err := ts.service.CreateNotification(ctx, userID, "Hello", "World", Severity("bogus"), nil, nil)

	assert.NoError(t, err)
	ts.mockRepo.AssertExpectations(t)
}

func TestNotificationService_CreateNotification_Error(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()

	ts.mockRepo.On("Create", ctx, mock.AnythingOfType("*notification.Notification")).Return(errors.New("repo error"))

	created, err := ts.service.CreateNotification(ctx, userID, "t", "m", SeverityInfo, nil, nil)

	assert.Error(t, err)
	assert.Nil(t, created)
	assert.True(t, common.IsCode(err, common.ErrInternalServer.Code))
	ts.mockRepo.AssertExpectations(t)
}

func TestNotificationService_NotifyAdmins_FansOut(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	requestID := uuid.New()

	admins := []*shared.Profile{
		{ID: uuid.New(), Email: "a1@example.com", Role: common.RoleAdmin},
		{ID: uuid.New(), Email: "a2@example.com", Role: common.RoleAdmin},
		{ID: uuid.New(), Email: "a3@example.com", Role: common.RoleAdmin},
	}
	ts.mockProfiles.On("FindAdmins", ctx).Return(admins, nil)
	ts.mockRepo.On("CreateBatch", ctx, mock.MatchedBy(func(batch []*Notification) bool {
		return len(batch) == 3
	})).Return(nil)

	count, err := ts.service.NotifyAdmins(ctx, "New Request", "A customer submitted a repair request.", SeverityInfo, &requestID)

	assert.NoError(t, err)
	assert.Equal(t, 3, count)
	ts.mockRepo.AssertExpectations(t)
	ts.mockProfiles.AssertExpectations(t)
}

func TestNotificationService_NotifyAdmins_NoAdmins(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()

	ts.mockProfiles.On("FindAdmins", ctx).Return([]*shared.Profile{}, nil)

	count, err := ts.service.NotifyAdmins(ctx, "New Request", "msg", SeverityInfo, nil)

	assert.NoError(t, err)
	assert.Zero(t, count)
	ts.mockRepo.AssertNotCalled(t, "CreateBatch")
}

func TestNotificationService_GetNotificationsForUser_Success(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()
	page, pageSize := 1, 5

	mockNotifications := []Notification{
		{ID: uuid.New(), UserID: userID, Message: "Notif 1"},
		{ID: uuid.New(), UserID: userID, Message: "Notif 2"},
	}
	mockPagination := &common.Pagination{CurrentPage: page, PageSize: pageSize, TotalItems: 2, TotalPages: 1}

	ts.mockRepo.On("GetByUserID", ctx, userID, page, pageSize).Return(mockNotifications, mockPagination, nil)

	notifications, pagination, err := ts.service.GetNotificationsForUser(ctx, userID, page, pageSize)

	assert.NoError(t, err)
	assert.Len(t, notifications, 2)
	assert.Equal(t, mockPagination, pagination)
	ts.mockRepo.AssertExpectations(t)
}

func TestNotificationService_MarkAllUserNotificationsAsRead(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()

	ts.mockRepo.On("MarkAllAsRead", ctx, userID).Return(int64(4), nil)

	count, err := ts.service.MarkAllUserNotificationsAsRead(ctx, userID)

	assert.NoError(t, err)
	assert.Equal(t, int64(4), count)
	ts.mockRepo.AssertExpectations(t)
}

func TestNotificationService_DeleteNotification_NotFound(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()
	notificationID := uuid.New()

	ts.mockRepo.On("Delete", ctx, notificationID, userID).
		Return(common.ErrNotFound.WithDetails("Notification not found or not owned by user."))

	err := ts.service.DeleteNotification(ctx, notificationID, userID)

	assert.Error(t, err)
	assert.True(t, common.IsCode(err, common.ErrNotFound.Code))
	ts.mockRepo.AssertExpectations(t)
}
