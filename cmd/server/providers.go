// File: cmd/server/providers.go
package main

import (
	"context"
	"log"
	"time"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/config"
	"repairdesk_backend/internal/email"
	"repairdesk_backend/internal/gateway"
	"repairdesk_backend/internal/inventory"
	"repairdesk_backend/internal/media"
	"repairdesk_backend/internal/note"
	"repairdesk_backend/internal/notification"
	"repairdesk_backend/internal/platform/database"
	"repairdesk_backend/internal/profile"
	"repairdesk_backend/internal/request"
	"repairdesk_backend/internal/session"
	"repairdesk_backend/internal/sync"
	"repairdesk_backend/internal/unread"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// syncPageSize bounds how many rows each shared-data controller keeps warm.
const syncPageSize = 500

func provideMediaService(cfg *config.Config, logger *zap.Logger) (*media.Service, error) {
	return media.NewService(cfg.MediaStoragePath, cfg.MediaBaseURL, cfg.MediaMaxSizeMB, logger.Named("media"))
}

func provideBlocklist(cfg *config.Config) *session.InMemoryBlocklistService {
	return session.NewInMemoryBlocklistService(session.InMemoryBlocklistConfig{
		DefaultExpiration: cfg.AccessTokenTTL,
		CleanupInterval:   10 * time.Minute,
	})
}

// provideDomainServices builds the request and note services together. A
// note appended by staff notifies the request's owner, and a request status
// change records a note in the thread, so each service needs the other.
func provideDomainServices(
	noteRepo note.Repository,
	requestRepo request.Repository,
	profiles *profile.ServiceImplementation,
	notifications notification.Service,
	emails email.Sender,
	bus *gateway.Bus,
	logger *zap.Logger,
) (note.Service, *request.ServiceImplementation) {
	noteSvc := note.NewService(noteRepo, profiles, nil, notifications, bus, logger)
	requestSvc := request.NewService(requestRepo, noteSvc, notifications, emails, bus, logger)
	noteSvc.SetOwnerLookup(requestSvc)
	return noteSvc, requestSvc
}

// provideSyncHub wires one shared-data controller per hot table, attaches
// the request and inventory controllers as the read-path snapshot stores of
// their services, and registers everything for periodic background
// revalidation. Committed row changes trigger an immediate revalidation of
// the affected domain, so warm snapshots never trail a mutation by more
// than one background fetch.
func provideSyncHub(
	requestSvc *request.ServiceImplementation,
	inventorySvc *inventory.ServiceImplementation,
	requestRepo request.Repository,
	inventoryRepo inventory.Repository,
	profileRepo profile.Repository,
	bus *gateway.Bus,
	cfg *config.Config,
	logger *zap.Logger,
) *sync.Hub {
	hub := sync.NewHub(logger)

	requestsController := sync.NewController("service_requests", func(ctx context.Context) ([]request.ServiceRequest, error) {
		requests, _, err := requestRepo.FindAll(ctx, 1, syncPageSize)
		if err != nil {
			return nil, common.ErrFetch.WithDetails("Could not load service requests.")
		}
		return requests, nil
	}, cfg, logger)
	requestSvc.SetStore(requestsController)
	revalidateOnChange(bus, request.ServiceRequest{}.TableName(), requestsController)

	inventoryController := sync.NewController("inventory", func(ctx context.Context) ([]inventory.Item, error) {
		items, _, err := inventoryRepo.FindAll(ctx, 1, syncPageSize)
		if err != nil {
			return nil, common.ErrFetch.WithDetails("Could not load the inventory.")
		}
		return items, nil
	}, cfg, logger)
	inventorySvc.SetStore(inventoryController)
	revalidateOnChange(bus, inventory.Item{}.TableName(), inventoryController)

	staffController := sync.NewController("profiles", func(ctx context.Context) ([]*profile.Profile, error) {
		staff, err := profileRepo.FindByRole(ctx, common.RoleAdmin)
		if err != nil {
			return nil, common.ErrFetch.WithDetails("Could not load the staff roster.")
		}
		return staff, nil
	}, cfg, logger)

	hub.Register(requestsController)
	hub.Register(inventoryController)
	hub.Register(staffController)
	return hub
}

// revalidateOnChange keeps a snapshot store fresh: any committed row change
// on its table schedules a background refresh. The subscription lives for
// the process lifetime.
func revalidateOnChange[T any](bus *gateway.Bus, table string, controller *sync.Controller[T]) {
	bus.Subscribe(table, nil, func(gateway.Event) {
		go func() {
			// Failures are swallowed; the stale snapshot stays visible.
			_, _ = controller.Revalidate(context.Background())
		}()
	})
}

// provideSessionRegistry builds the session lifecycle registry and hooks
// per-actor unread trackers to sign-out, so their bus subscriptions are
// released with the session.
func provideSessionRegistry(
	profiles *profile.ServiceImplementation,
	unreadSvc *unread.ServiceImplementation,
	logger *zap.Logger,
) *session.Registry {
	registry := session.NewRegistry(profiles, logger)
	registry.OnSignOut(unreadSvc.Release)
	return registry
}

func provideCleanup(logger *zap.Logger, db *gorm.DB) func() {
	return func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db)
		if err := logger.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
		log.Println("Cleanup finished.")
	}
}
