package unread

import (
	"context"
	"sync"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/config"
	"repairdesk_backend/internal/gateway"
	"repairdesk_backend/internal/note"
	"repairdesk_backend/internal/notification"
	"repairdesk_backend/internal/request"
	"repairdesk_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Requests covers the listing slice of the request service this package
// needs for rebuilding unread maps.
type Requests interface {
	ListRequests(ctx context.Context, actor *shared.Profile, page, pageSize int) ([]request.ServiceRequest, *common.Pagination, error)
}

// One page is plenty: requests are human-paced entities.
const refreshPageSize = 500

// Service defines the interface for unread-tracking business logic.
type Service interface {
	// TrackerFor returns the actor's live tracker, creating it with the
	// persisted volume preference on first use.
	TrackerFor(ctx context.Context, actor *shared.Profile) (*Tracker, error)
	// Refresh recomputes the actor's unread map from note history. A
	// silent refresh skips the wholesale recompute and only returns the
	// current snapshot, leaving incremental push updates in charge.
	Refresh(ctx context.Context, actor *shared.Profile, silent bool) (map[uuid.UUID]bool, error)
	// Acknowledge marks a thread as opened, clearing its unread flag.
	Acknowledge(ctx context.Context, actor *shared.Profile, requestID uuid.UUID) error
	// ThreadClosed clears the actor's open-thread marker, so later
	// foreign notes on that request flag as unread again.
	ThreadClosed(actorID uuid.UUID)
	GetVolume(ctx context.Context, userID uuid.UUID) (float64, error)
	SetVolume(ctx context.Context, userID uuid.UUID, volume float64) error
	// MarkAllRead bulk-acknowledges the actor's notification feed.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	// Release disposes the actor's tracker, e.g. on sign-out.
	Release(actorID uuid.UUID)
}

// ServiceImplementation implements the Service interface.
type ServiceImplementation struct {
	repo          Repository
	requests      Requests
	notes         note.Service
	notifications notification.Service
	bus           *gateway.Bus
	cfg           *config.Config
	logger        *zap.Logger

	mu       sync.Mutex
	trackers map[uuid.UUID]*Tracker
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new unread service.
func NewService(
	repo Repository,
	requests Requests,
	notes note.Service,
	notifications notification.Service,
	bus *gateway.Bus,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:          repo,
		requests:      requests,
		notes:         notes,
		notifications: notifications,
		bus:           bus,
		cfg:           cfg,
		logger:        logger,
		trackers:      make(map[uuid.UUID]*Tracker),
	}
}

func (s *ServiceImplementation) TrackerFor(ctx context.Context, actor *shared.Profile) (*Tracker, error) {
	s.mu.Lock()
	if t, ok := s.trackers[actor.ID]; ok {
		s.mu.Unlock()
		return t, nil
	}
	s.mu.Unlock()

	volume, err := s.GetVolume(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another request may have raced us here.
	if t, ok := s.trackers[actor.ID]; ok {
		return t, nil
	}
	t := NewTracker(actor.ID, volume, s.bus, s.logger)
	s.trackers[actor.ID] = t
	return t, nil
}

func (s *ServiceImplementation) Refresh(ctx context.Context, actor *shared.Profile, silent bool) (map[uuid.UUID]bool, error) {
	tracker, err := s.TrackerFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if silent {
		// Background polls never rebuild the map; that would flash
		// badges the actor already acknowledged.
		return tracker.Snapshot(), nil
	}

	requests, _, err := s.requests.ListRequests(ctx, actor, 1, refreshPageSize)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.ID)
	}
	latest, err := s.notes.LatestNotes(ctx, ids)
	if err != nil {
		return nil, err
	}

	tracker.Rebuild(ids, latest)
	return tracker.Snapshot(), nil
}

func (s *ServiceImplementation) Acknowledge(ctx context.Context, actor *shared.Profile, requestID uuid.UUID) error {
	tracker, err := s.TrackerFor(ctx, actor)
	if err != nil {
		return err
	}
	tracker.OpenThread(requestID)
	return nil
}

// ThreadOpened marks a thread as actively viewed without creating a
// tracker; without one there are no flags to suppress anyway. The live
// note stream reports presence through here.
func (s *ServiceImplementation) ThreadOpened(actorID, requestID uuid.UUID) {
	s.mu.Lock()
	tracker, ok := s.trackers[actorID]
	s.mu.Unlock()
	if ok {
		tracker.OpenThread(requestID)
	}
}

func (s *ServiceImplementation) ThreadClosed(actorID uuid.UUID) {
	s.mu.Lock()
	tracker, ok := s.trackers[actorID]
	s.mu.Unlock()
	if ok {
		tracker.CloseThread()
	}
}

func (s *ServiceImplementation) GetVolume(ctx context.Context, userID uuid.UUID) (float64, error) {
	pref, err := s.repo.FindPreference(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load volume preference",
			zap.Error(err), zap.String("userID", userID.String()))
		return 0, common.ErrFetch.WithDetails("Could not load preferences.")
	}
	if pref == nil {
		return s.cfg.DefaultAlertVolume, nil
	}
	return pref.AlertVolume, nil
}

func (s *ServiceImplementation) SetVolume(ctx context.Context, userID uuid.UUID, volume float64) error {
	if volume < 0 || volume > 1 {
		return common.ErrValidation.WithDetails("Volume must be between 0 and 1.")
	}
	if err := s.repo.SavePreference(ctx, &UserPreference{UserID: userID, AlertVolume: volume}); err != nil {
		s.logger.Error("Failed to save volume preference",
			zap.Error(err), zap.String("userID", userID.String()))
		return common.ErrPersist.WithDetails("Could not save the volume preference.")
	}

	s.mu.Lock()
	tracker, ok := s.trackers[userID]
	s.mu.Unlock()
	if ok {
		tracker.SetVolume(volume)
	}
	return nil
}

func (s *ServiceImplementation) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notifications.MarkAllUserNotificationsAsRead(ctx, userID)
}

func (s *ServiceImplementation) Release(actorID uuid.UUID) {
	s.mu.Lock()
	tracker, ok := s.trackers[actorID]
	delete(s.trackers, actorID)
	s.mu.Unlock()
	if ok {
		tracker.Dispose()
	}
}
