package note

import (
	"context"
	"strings"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/gateway"
	"repairdesk_backend/internal/notification"
	"repairdesk_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OwnerLookup resolves the owning customer of a service request. Implemented
// by the request service; kept as a local interface so this package does not
// depend on it.
type OwnerLookup interface {
	OwnerOf(ctx context.Context, requestID uuid.UUID) (uuid.UUID, error)
}

// AuthorResolver batch-resolves author IDs to display metadata.
type AuthorResolver interface {
	ResolveAuthors(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]shared.Author, error)
}

// Service defines the interface for note-thread business logic.
type Service interface {
	// LoadThread returns a request's notes in chronological order with
	// authors resolved in one batched profile lookup.
	LoadThread(ctx context.Context, requestID uuid.UUID) ([]ServiceNote, error)
	// AppendNote persists a note authored by the acting profile and
	// notifies the counterpart side (staff for a customer note and vice
	// versa). The returned note carries the actor's own author metadata.
	AppendNote(ctx context.Context, requestID uuid.UUID, actor *shared.Profile, req CreateNoteRequest) (*ServiceNote, error)
	// AppendSystemNote records a workflow event (status change, rejection)
	// in the thread. Callers handle their own counterpart notification.
	AppendSystemNote(ctx context.Context, requestID, authorID uuid.UUID, text string) (*ServiceNote, error)
	// LatestNotes returns the newest note per request, for unread
	// derivation.
	LatestNotes(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID]ServiceNote, error)
	// Watch opens a live view of a thread that merges pushed notes into
	// the loaded history. Callers must Dispose the view when the thread
	// closes.
	Watch(ctx context.Context, requestID uuid.UUID) (*ThreadView, error)
}

// ServiceImplementation implements the Service interface.
type ServiceImplementation struct {
	repo          Repository
	authors       AuthorResolver
	owners        OwnerLookup
	notifications notification.Service
	bus           *gateway.Bus
	logger        *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// SetOwnerLookup installs the request-ownership resolver. The note and
// request services reference each other at runtime, so the lookup is bound
// after both are constructed.
func (s *ServiceImplementation) SetOwnerLookup(owners OwnerLookup) {
	s.owners = owners
}

// NewService creates a new note service.
func NewService(
	repo Repository,
	authors AuthorResolver,
	owners OwnerLookup,
	notifications notification.Service,
	bus *gateway.Bus,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:          repo,
		authors:       authors,
		owners:        owners,
		notifications: notifications,
		bus:           bus,
		logger:        logger,
	}
}

func (s *ServiceImplementation) LoadThread(ctx context.Context, requestID uuid.UUID) ([]ServiceNote, error) {
	notes, err := s.repo.FindByRequestID(ctx, requestID)
	if err != nil {
		s.logger.Error("Failed to load note thread",
			zap.Error(err), zap.String("requestID", requestID.String()))
		return nil, common.ErrFetch.WithDetails("Could not load the note thread.")
	}

	ids := make([]uuid.UUID, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.AuthorID)
	}
	resolved, err := s.authors.ResolveAuthors(ctx, ids)
	if err != nil {
		// Author metadata is decoration; a failed lookup must not sink
		// the whole thread.
		s.logger.Warn("Author resolution failed, using placeholders",
			zap.Error(err), zap.String("requestID", requestID.String()))
		resolved = map[uuid.UUID]shared.Author{}
	}
	for i := range notes {
		author, ok := resolved[notes[i].AuthorID]
		if !ok {
			author = shared.Author{Role: common.RoleCustomer, FullName: "Unknown"}
		}
		notes[i].Author = &author
	}
	return notes, nil
}

func (s *ServiceImplementation) AppendNote(ctx context.Context, requestID uuid.UUID, actor *shared.Profile, req CreateNoteRequest) (*ServiceNote, error) {
	if !req.HasContent() {
		return nil, common.ErrValidation.WithDetails("A note needs text or an attachment.")
	}
	if req.MediaURL != nil && *req.MediaURL != "" && req.MediaType == nil {
		return nil, common.ErrValidation.WithDetails("An attachment needs a media type.")
	}

	n := &ServiceNote{
		RequestID: requestID,
		AuthorID:  actor.ID,
		Note:      strings.TrimSpace(req.Note),
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to append note",
			zap.Error(err), zap.String("requestID", requestID.String()))
		return nil, common.ErrPersist.WithDetails("Could not save the note.")
	}

	// The author is the actor; no round trip needed to resolve it.
	n.Author = &shared.Author{Role: actor.Role, FullName: actor.DisplayName()}

	s.bus.Publish(gateway.Event{
		Table:    ServiceNote{}.TableName(),
		Type:     gateway.EventInsert,
		RecordID: n.ID,
		OwnerID:  s.threadOwner(ctx, requestID, actor.ID),
		Payload:  n,
	})
	s.notifyCounterpart(ctx, n, actor)
	return n, nil
}

// threadOwner resolves the customer a note thread belongs to, so push
// events carry the right recipient. A failed lookup falls back to the
// author; the echo still reaches them and staff see everything anyway.
func (s *ServiceImplementation) threadOwner(ctx context.Context, requestID, fallback uuid.UUID) uuid.UUID {
	ownerID, err := s.owners.OwnerOf(ctx, requestID)
	if err != nil {
		s.logger.Warn("Could not resolve thread owner for push event",
			zap.Error(err), zap.String("requestID", requestID.String()))
		return fallback
	}
	return ownerID
}

func (s *ServiceImplementation) AppendSystemNote(ctx context.Context, requestID, authorID uuid.UUID, text string) (*ServiceNote, error) {
	n := &ServiceNote{
		RequestID: requestID,
		AuthorID:  authorID,
		Note:      text,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to append system note",
			zap.Error(err), zap.String("requestID", requestID.String()))
		return nil, common.ErrPersist.WithDetails("Could not record the workflow note.")
	}
	s.bus.Publish(gateway.Event{
		Table:    ServiceNote{}.TableName(),
		Type:     gateway.EventInsert,
		RecordID: n.ID,
		OwnerID:  s.threadOwner(ctx, requestID, authorID),
		Payload:  n,
	})
	return n, nil
}

func (s *ServiceImplementation) LatestNotes(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID]ServiceNote, error) {
	latest, err := s.repo.LatestPerRequest(ctx, requestIDs)
	if err != nil {
		s.logger.Error("Failed to load latest notes", zap.Error(err))
		return nil, common.ErrFetch.WithDetails("Could not load note activity.")
	}
	return latest, nil
}

func (s *ServiceImplementation) Watch(ctx context.Context, requestID uuid.UUID) (*ThreadView, error) {
	// Subscribe before loading so a note pushed mid-load is merged rather
	// than missed; MergeIncoming dedupes the overlap by id.
	view := newThreadView(requestID, s.bus, s.logger)
	notes, err := s.LoadThread(ctx, requestID)
	if err != nil {
		view.Dispose()
		return nil, err
	}
	view.seed(notes)
	return view, nil
}

// notifyCounterpart alerts the other side of the conversation. Failures are
// logged and swallowed: the note is already persisted and must not fail over
// a notification hiccup.
func (s *ServiceImplementation) notifyCounterpart(ctx context.Context, n *ServiceNote, actor *shared.Profile) {
	preview := n.Note
	if preview == "" {
		preview = "Sent an attachment."
	}

	if actor.Role == common.RoleAdmin {
		ownerID, err := s.owners.OwnerOf(ctx, n.RequestID)
		if err != nil {
			s.logger.Warn("Could not resolve request owner for note notification",
				zap.Error(err), zap.String("requestID", n.RequestID.String()))
			return
		}
		if _, err := s.notifications.CreateNotification(ctx, ownerID,
			"New note from the workshop", preview,
			notification.SeverityInfo, &n.RequestID, nil); err != nil {
			s.logger.Warn("Failed to notify customer about note", zap.Error(err))
		}
		return
	}

	title := actor.DisplayName() + " added a note"
	if _, err := s.notifications.NotifyAdmins(ctx, title, preview,
		notification.SeverityInfo, &n.RequestID); err != nil {
		s.logger.Warn("Failed to notify staff about note", zap.Error(err))
	}
}
