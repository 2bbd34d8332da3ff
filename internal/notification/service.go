package notification

import (
	"context"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/gateway"
	"repairdesk_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines the interface for notification business logic.
type Service interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, title, message string, severity Severity, requestID *uuid.UUID, link *string) (*Notification, error)
	// NotifyAdmins fans one notification out to every admin profile.
	// Returns the number of admins notified.
	NotifyAdmins(ctx context.Context, title, message string, severity Severity, requestID *uuid.UUID) (int, error)
	GetNotificationsForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Notification, *common.Pagination, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkNotificationAsRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkAllUserNotificationsAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteNotification(ctx context.Context, notificationID, userID uuid.UUID) error
}

// ServiceImplementation implements the Service interface.
type ServiceImplementation struct {
	repo     Repository
	profiles shared.ProfileService
	bus      *gateway.Bus
	logger   *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new notification service.
func NewService(repo Repository, profiles shared.ProfileService, bus *gateway.Bus, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:     repo,
		profiles: profiles,
		bus:      bus,
		logger:   logger,
	}
}

func (s *ServiceImplementation) CreateNotification(ctx context.Context, userID uuid.UUID, title, message string, severity Severity, requestID *uuid.UUID, link *string) (*Notification, error) {
	if !ValidSeverity(severity) {
		severity = SeverityInfo
	}

	notif := &Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Severity:  severity,
		RequestID: requestID,
		Link:      link,
		IsRead:    false,
	}

	if err := s.repo.Create(ctx, notif); err != nil {
		s.logger.Error("Failed to create notification",
			zap.Error(err), zap.String("userID", userID.String()))
		return nil, common.ErrInternalServer.WithDetails("Could not create notification.")
	}

	s.publishInsert(notif)
	return notif, nil
}

func (s *ServiceImplementation) NotifyAdmins(ctx context.Context, title, message string, severity Severity, requestID *uuid.UUID) (int, error) {
	admins, err := s.profiles.FindAdmins(ctx)
	if err != nil {
		s.logger.Error("Failed to resolve admins for notification fan-out", zap.Error(err))
		return 0, common.ErrInternalServer.WithDetails("Could not notify admins.")
	}
	if len(admins) == 0 {
		s.logger.Warn("No admin profiles found for notification fan-out", zap.String("title", title))
		return 0, nil
	}
	if !ValidSeverity(severity) {
		severity = SeverityInfo
	}

	batch := make([]*Notification, 0, len(admins))
	for _, admin := range admins {
		batch = append(batch, &Notification{
			UserID:    admin.ID,
			Title:     title,
			Message:   message,
			Severity:  severity,
			RequestID: requestID,
			IsRead:    false,
		})
	}

	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		s.logger.Error("Failed to create admin notification batch", zap.Error(err), zap.Int("admins", len(batch)))
		return 0, common.ErrInternalServer.WithDetails("Could not notify admins.")
	}

	for _, notif := range batch {
		s.publishInsert(notif)
	}
	return len(batch), nil
}

func (s *ServiceImplementation) GetNotificationsForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Notification, *common.Pagination, error) {
	notifications, pagination, err := s.repo.GetByUserID(ctx, userID, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to get notifications for user",
			zap.Error(err), zap.String("userID", userID.String()))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve notifications.")
	}
	return notifications, pagination, nil
}

func (s *ServiceImplementation) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count unread notifications",
			zap.Error(err), zap.String("userID", userID.String()))
		return 0, common.ErrInternalServer.WithDetails("Could not count unread notifications.")
	}
	return count, nil
}

func (s *ServiceImplementation) MarkNotificationAsRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, notificationID, userID); err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return err
		}
		s.logger.Error("Failed to mark notification as read",
			zap.Error(err), zap.String("notificationID", notificationID.String()))
		return common.ErrInternalServer.WithDetails("Could not mark notification as read.")
	}
	s.bus.Publish(gateway.Event{Table: Notification{}.TableName(), Type: gateway.EventUpdate, RecordID: notificationID, OwnerID: userID})
	return nil
}

func (s *ServiceImplementation) MarkAllUserNotificationsAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to mark all notifications as read",
			zap.Error(err), zap.String("userID", userID.String()))
		return 0, common.ErrInternalServer.WithDetails("Could not mark notifications as read.")
	}
	s.logger.Info("Marked all notifications as read",
		zap.String("userID", userID.String()), zap.Int64("count", count))
	return count, nil
}

func (s *ServiceImplementation) DeleteNotification(ctx context.Context, notificationID, userID uuid.UUID) error {
	if err := s.repo.Delete(ctx, notificationID, userID); err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return err
		}
		s.logger.Error("Failed to delete notification",
			zap.Error(err), zap.String("notificationID", notificationID.String()))
		return common.ErrInternalServer.WithDetails("Could not delete notification.")
	}
	s.bus.Publish(gateway.Event{Table: Notification{}.TableName(), Type: gateway.EventDelete, RecordID: notificationID, OwnerID: userID})
	return nil
}

func (s *ServiceImplementation) publishInsert(notif *Notification) {
	s.bus.Publish(gateway.Event{
		Table:    Notification{}.TableName(),
		Type:     gateway.EventInsert,
		RecordID: notif.ID,
		OwnerID:  notif.UserID,
		Payload:  notif,
	})
}
