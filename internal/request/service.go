// File: internal/request/service.go
package request

import (
	"context"
	"fmt"
	"strings"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/email"
	"repairdesk_backend/internal/gateway"
	"repairdesk_backend/internal/note"
	"repairdesk_backend/internal/notification"
	"repairdesk_backend/internal/shared"
	"repairdesk_backend/internal/sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines the interface for service-request business logic.
type Service interface {
	// ListRequests returns all requests for admins and only the actor's own
	// for customers, newest first.
	ListRequests(ctx context.Context, actor *shared.Profile, page, pageSize int) ([]ServiceRequest, *common.Pagination, error)
	GetRequest(ctx context.Context, id uuid.UUID, actor *shared.Profile) (*ServiceRequest, error)
	// CreateRequest inserts a new pending request. Media must already be
	// uploaded and contain at least one image and one video.
	CreateRequest(ctx context.Context, actor *shared.Profile, req CreateRequestRequest) (*ServiceRequest, error)
	// UpdateStatus moves a request through the workflow, records a system
	// note and notifies the owning customer. Never auto-retried.
	UpdateStatus(ctx context.Context, id, actorID uuid.UUID, req UpdateStatusRequest) (*ServiceRequest, error)
	// RejectRequest terminates a request with a mandatory reason.
	RejectRequest(ctx context.Context, id, actorID uuid.UUID, reason string) (*ServiceRequest, error)
	// ApproveCost is the single customer-side workflow mutation: accepting
	// the estimate while the request awaits approval.
	ApproveCost(ctx context.Context, id uuid.UUID, actor *shared.Profile) (*ServiceRequest, error)
	// OwnerOf resolves the owning customer of a request.
	OwnerOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// ServiceImplementation implements the Service interface.
type ServiceImplementation struct {
	repo          Repository
	notes         note.Service
	notifications notification.Service
	emails        email.Sender
	bus           *gateway.Bus
	store         *sync.Controller[ServiceRequest]
	logger        *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)
var _ note.OwnerLookup = (*ServiceImplementation)(nil)

// NewService creates a new request service.
func NewService(
	repo Repository,
	notes note.Service,
	notifications notification.Service,
	emails email.Sender,
	bus *gateway.Bus,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:          repo,
		notes:         notes,
		notifications: notifications,
		emails:        emails,
		bus:           bus,
		logger:        logger,
	}
}

// SetStore attaches the shared snapshot store for the request table. Read
// paths serve from it while it is warm. Set once during wiring, before
// traffic arrives.
func (s *ServiceImplementation) SetStore(store *sync.Controller[ServiceRequest]) {
	s.store = store
}

func (s *ServiceImplementation) ListRequests(ctx context.Context, actor *shared.Profile, page, pageSize int) ([]ServiceRequest, *common.Pagination, error) {
	if snapshot, ok := s.warmSnapshot(); ok {
		if actor.Role != common.RoleAdmin {
			snapshot = filterByOwner(snapshot, actor.ID)
		}
		requests, pagination := pageOf(snapshot, page, pageSize)
		return requests, pagination, nil
	}

	var (
		requests   []ServiceRequest
		pagination *common.Pagination
		err        error
	)
	if actor.Role == common.RoleAdmin {
		requests, pagination, err = s.repo.FindAll(ctx, page, pageSize)
	} else {
		requests, pagination, err = s.repo.FindByUserID(ctx, actor.ID, page, pageSize)
	}
	if err != nil {
		s.logger.Error("Failed to list service requests",
			zap.Error(err), zap.String("actorID", actor.ID.String()))
		return nil, nil, common.ErrFetch.WithDetails("Could not load service requests.")
	}
	return requests, pagination, nil
}

func (s *ServiceImplementation) GetRequest(ctx context.Context, id uuid.UUID, actor *shared.Profile) (*ServiceRequest, error) {
	req, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != common.RoleAdmin && req.UserID != actor.ID {
		return nil, common.ErrForbidden.WithDetails("You do not have access to this request.")
	}
	return req, nil
}

func (s *ServiceImplementation) CreateRequest(ctx context.Context, actor *shared.Profile, req CreateRequestRequest) (*ServiceRequest, error) {
	if len(strings.TrimSpace(req.Description)) < 20 {
		return nil, common.ErrValidation.WithDetails("Please describe the problem in at least 20 characters.")
	}
	images, videos := MediaList(req.Media).CountByType()
	if images < 1 || videos < 1 {
		return nil, common.ErrValidation.WithDetails("At least one photo and one video of the device are required.")
	}

	phone := ""
	if actor.Phone != nil {
		phone = *actor.Phone
	}
	sr := &ServiceRequest{
		UserID:      actor.ID,
		FullName:    actor.DisplayName(),
		Email:       actor.Email,
		Phone:       phone,
		Brand:       strings.TrimSpace(req.Brand),
		Model:       strings.TrimSpace(req.Model),
		Category:    req.Category,
		ProductDate: req.ProductDate,
		Description: strings.TrimSpace(req.Description),
		MediaURLs:   MediaList(req.Media),
		Status:      StatusPending,
	}

	if err := s.repo.Create(ctx, sr); err != nil {
		// The media objects are already stored; they stay orphaned rather
		// than being rolled back, and the caller must be able to tell this
		// apart from an upload failure.
		s.logger.Error("Failed to persist service request after media upload",
			zap.Error(err), zap.String("userID", actor.ID.String()))
		return nil, common.ErrPersist.WithDetails("Your media was uploaded but the request could not be saved. Please try again.")
	}

	s.publish(gateway.EventInsert, sr)

	if _, err := s.notifications.NotifyAdmins(ctx,
		"New service request",
		fmt.Sprintf("%s sent in a %s %s.", sr.FullName, sr.Brand, sr.Model),
		notification.SeverityInfo, &sr.ID); err != nil {
		s.logger.Warn("Failed to notify staff about new request", zap.Error(err))
	}
	s.emails.SendAsync(requestCreatedEmail(sr))

	return sr, nil
}

func (s *ServiceImplementation) UpdateStatus(ctx context.Context, id, actorID uuid.UUID, req UpdateStatusRequest) (*ServiceRequest, error) {
	sr, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(sr.Status, req.Status); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"status": req.Status}
	if req.EstimatedCost != nil {
		fields["estimated_cost"] = *req.EstimatedCost
		sr.EstimatedCost = req.EstimatedCost
	}
	if req.Currency != nil {
		fields["currency"] = *req.Currency
		sr.Currency = req.Currency
	}
	if req.ShippingCompany != nil {
		fields["shipping_company"] = *req.ShippingCompany
		sr.ShippingCompany = req.ShippingCompany
	}
	if req.ShippingTrackingCode != nil {
		fields["shipping_tracking_code"] = *req.ShippingTrackingCode
		sr.ShippingTrackingCode = req.ShippingTrackingCode
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		s.rollbackStore()
		if common.IsCode(err, common.ErrNotFound.Code) {
			return nil, err
		}
		s.logger.Error("Failed to update request status",
			zap.Error(err), zap.String("requestID", id.String()), zap.String("status", string(req.Status)))
		return nil, common.ErrPersist.WithDetails("The status change could not be saved.")
	}
	sr.Status = req.Status

	noteText := "Status changed: " + string(req.Status)
	s.recordWorkflowNote(ctx, id, actorID, noteText)
	s.publish(gateway.EventUpdate, sr)

	if _, err := s.notifications.CreateNotification(ctx, sr.UserID,
		"Your request was updated",
		fmt.Sprintf("%s %s is now %s.", sr.Brand, sr.Model, req.Status),
		statusSeverity(req.Status), &sr.ID, nil); err != nil {
		s.logger.Warn("Failed to notify customer about status change", zap.Error(err))
	}
	s.emails.SendAsync(statusUpdateEmail(sr, req.Status, noteText))

	return sr, nil
}

func (s *ServiceImplementation) RejectRequest(ctx context.Context, id, actorID uuid.UUID, reason string) (*ServiceRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, common.ErrValidation.WithDetails("A rejection reason is required.")
	}

	sr, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sr.Status == StatusRejected {
		return nil, common.ErrInvalidTransition.WithDetails("The request is already rejected.")
	}
	if sr.Status.IsTerminal() {
		return nil, common.ErrInvalidTransition.WithDetails("A completed request cannot be rejected.")
	}

	fields := map[string]interface{}{
		"status":           StatusRejected,
		"rejection_reason": reason,
	}
	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		s.rollbackStore()
		if common.IsCode(err, common.ErrNotFound.Code) {
			return nil, err
		}
		s.logger.Error("Failed to reject request",
			zap.Error(err), zap.String("requestID", id.String()))
		return nil, common.ErrPersist.WithDetails("The rejection could not be saved.")
	}
	sr.Status = StatusRejected
	sr.RejectionReason = &reason

	noteText := "REJECTED: " + reason
	s.recordWorkflowNote(ctx, id, actorID, noteText)
	s.publish(gateway.EventUpdate, sr)

	if _, err := s.notifications.CreateNotification(ctx, sr.UserID,
		"Your request was rejected",
		fmt.Sprintf("%s %s: %s", sr.Brand, sr.Model, reason),
		notification.SeverityError, &sr.ID, nil); err != nil {
		s.logger.Warn("Failed to notify customer about rejection", zap.Error(err))
	}
	s.emails.SendAsync(statusUpdateEmail(sr, StatusRejected, noteText))

	return sr, nil
}

func (s *ServiceImplementation) ApproveCost(ctx context.Context, id uuid.UUID, actor *shared.Profile) (*ServiceRequest, error) {
	sr, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sr.UserID != actor.ID {
		return nil, common.ErrForbidden.WithDetails("Only the owner can approve the estimate.")
	}
	if sr.Status != StatusPendingApproval || sr.ApprovedByCustomer {
		return nil, common.ErrInvalidTransition.WithDetails("There is no pending estimate to approve.")
	}

	fields := map[string]interface{}{
		"status":               StatusApproved,
		"approved_by_customer": true,
	}
	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		s.rollbackStore()
		if common.IsCode(err, common.ErrNotFound.Code) {
			return nil, err
		}
		s.logger.Error("Failed to approve cost",
			zap.Error(err), zap.String("requestID", id.String()))
		return nil, common.ErrPersist.WithDetails("The approval could not be saved.")
	}
	sr.Status = StatusApproved
	sr.ApprovedByCustomer = true

	s.recordWorkflowNote(ctx, id, actor.ID, "Cost approved by customer.")
	s.publish(gateway.EventUpdate, sr)

	if _, err := s.notifications.NotifyAdmins(ctx,
		"Estimate approved",
		fmt.Sprintf("%s approved the estimate for %s %s.", sr.FullName, sr.Brand, sr.Model),
		notification.SeveritySuccess, &sr.ID); err != nil {
		s.logger.Warn("Failed to notify staff about approval", zap.Error(err))
	}

	return sr, nil
}

// warmSnapshot returns the shared store's cached rows. Only a store in the
// success state counts; anything colder falls back to the database.
func (s *ServiceImplementation) warmSnapshot() ([]ServiceRequest, bool) {
	if s.store == nil || s.store.State() != sync.StateSuccess {
		return nil, false
	}
	return s.store.Items(), true
}

// rollbackStore re-fetches the shared snapshot after a failed write, so it
// never keeps rows the database rejected.
func (s *ServiceImplementation) rollbackStore() {
	if s.store == nil {
		return
	}
	go func() {
		// Rollback logs its own failure and keeps the previous snapshot.
		_, _ = s.store.Rollback(context.Background())
	}()
}

func filterByOwner(requests []ServiceRequest, ownerID uuid.UUID) []ServiceRequest {
	owned := make([]ServiceRequest, 0, len(requests))
	for _, r := range requests {
		if r.UserID == ownerID {
			owned = append(owned, r)
		}
	}
	return owned
}

// pageOf serves one page from an already ordered snapshot.
func pageOf(requests []ServiceRequest, page, pageSize int) ([]ServiceRequest, *common.Pagination) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	pagination := common.NewPagination(int64(len(requests)), page, pageSize)
	start := (page - 1) * pageSize
	if start >= len(requests) {
		return []ServiceRequest{}, pagination
	}
	end := start + pageSize
	if end > len(requests) {
		end = len(requests)
	}
	out := make([]ServiceRequest, end-start)
	copy(out, requests[start:end])
	return out, pagination
}

func (s *ServiceImplementation) OwnerOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	sr, err := s.findByID(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	return sr.UserID, nil
}

func (s *ServiceImplementation) findByID(ctx context.Context, id uuid.UUID) (*ServiceRequest, error) {
	sr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if common.IsCode(err, common.ErrNotFound.Code) {
			return nil, err
		}
		s.logger.Error("Failed to load service request",
			zap.Error(err), zap.String("requestID", id.String()))
		return nil, common.ErrFetch.WithDetails("Could not load the service request.")
	}
	return sr, nil
}

// recordWorkflowNote writes the system note for a status mutation. The
// mutation is already persisted at this point; a failed note is logged and
// dropped rather than failing the whole operation.
func (s *ServiceImplementation) recordWorkflowNote(ctx context.Context, requestID, actorID uuid.UUID, text string) {
	if _, err := s.notes.AppendSystemNote(ctx, requestID, actorID, text); err != nil {
		s.logger.Warn("Failed to record workflow note",
			zap.Error(err), zap.String("requestID", requestID.String()))
	}
}

func (s *ServiceImplementation) publish(eventType gateway.EventType, sr *ServiceRequest) {
	s.bus.Publish(gateway.Event{
		Table:    ServiceRequest{}.TableName(),
		Type:     eventType,
		RecordID: sr.ID,
		OwnerID:  sr.UserID,
		Payload:  sr,
	})
}

func statusSeverity(status Status) notification.Severity {
	switch status {
	case StatusApproved, StatusResolved, StatusCompleted:
		return notification.SeveritySuccess
	case StatusRejected:
		return notification.SeverityError
	default:
		return notification.SeverityInfo
	}
}
