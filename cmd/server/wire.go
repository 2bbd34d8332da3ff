// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"repairdesk_backend/internal/app"
	"repairdesk_backend/internal/config"
	"repairdesk_backend/internal/email"
	"repairdesk_backend/internal/gateway"
	"repairdesk_backend/internal/inventory"
	"repairdesk_backend/internal/jobs"
	"repairdesk_backend/internal/media"
	"repairdesk_backend/internal/note"
	"repairdesk_backend/internal/notification"
	"repairdesk_backend/internal/platform/database"
	"repairdesk_backend/internal/platform/logger"
	"repairdesk_backend/internal/profile"
	"repairdesk_backend/internal/request"
	"repairdesk_backend/internal/session"
	"repairdesk_backend/internal/shared"
	"repairdesk_backend/internal/unread"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		database.NewGORM,
		gateway.NewBus,
		email.NewSender,
		provideMediaService,
		provideCleanup,

		// Session Layer
		session.NewJWTService,
		provideBlocklist,
		wire.Bind(new(session.TokenBlocklistService), new(*session.InMemoryBlocklistService)),
		wire.Bind(new(shared.TokenBlocklist), new(*session.InMemoryBlocklistService)),
		provideSessionRegistry,
		session.NewHandler,

		// Profiles
		profile.NewGORMRepository,
		profile.NewService,
		wire.Bind(new(shared.ProfileService), new(*profile.ServiceImplementation)),
		profile.NewHandler,

		// Notifications
		notification.NewGORMRepository,
		notification.NewService,
		wire.Bind(new(notification.Service), new(*notification.ServiceImplementation)),
		notification.NewHandler,

		// Requests and their note threads reference each other, so one
		// provider builds both.
		request.NewGORMRepository,
		note.NewGORMRepository,
		provideDomainServices,
		wire.Bind(new(request.Service), new(*request.ServiceImplementation)),
		wire.Bind(new(note.OwnerLookup), new(*request.ServiceImplementation)),
		wire.Bind(new(unread.Requests), new(*request.ServiceImplementation)),
		request.NewHandler,
		note.NewHandler,

		// Unread tracking
		unread.NewGORMRepository,
		unread.NewService,
		wire.Bind(new(unread.Service), new(*unread.ServiceImplementation)),
		wire.Bind(new(note.Presence), new(*unread.ServiceImplementation)),
		unread.NewHandler,

		// Inventory
		inventory.NewGORMRepository,
		inventory.NewService,
		wire.Bind(new(inventory.Service), new(*inventory.ServiceImplementation)),
		inventory.NewHandler,

		// Media uploads
		media.NewHandler,

		// Push event stream
		gateway.NewSSEHandler,

		// Shared-data controllers and their revalidation job
		provideSyncHub,
		jobs.NewBackgroundRefreshJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
