// File: internal/session/registry_test.go
package session

import (
	"context"
	"testing"

	"repairdesk_backend/internal/common"
	"repairdesk_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestRegistry_SignInResolvesProfileAndReusesManager(t *testing.T) {
	mockSvc := new(MockProfileService)
	reg := NewRegistry(mockSvc, zap.NewNop())

	id := uuid.New()
	resolved := &shared.Profile{ID: id, Email: "c@example.com", Role: common.RoleCustomer}
	mockSvc.On("FetchOrCreate", mock.Anything, id, "c@example.com").Return(resolved, nil)

	claims := &shared.Claims{UserID: id, Email: "c@example.com", Role: common.RoleCustomer}
	mgr, err := reg.SignIn(context.Background(), claims)
	assert.NoError(t, err)

	current, state := mgr.Current()
	assert.Equal(t, StateReady, state)
	assert.Equal(t, id, current.ID)

	again, err := reg.SignIn(context.Background(), claims)
	assert.NoError(t, err)
	assert.Same(t, mgr, again)
	assert.Same(t, mgr, reg.ManagerFor(id))
}

func TestRegistry_SignOutDisposesManagerAndRunsHooks(t *testing.T) {
	mockSvc := new(MockProfileService)
	reg := NewRegistry(mockSvc, zap.NewNop())

	id := uuid.New()
	resolved := &shared.Profile{ID: id, Email: "c@example.com", Role: common.RoleCustomer}
	mockSvc.On("FetchOrCreate", mock.Anything, id, "c@example.com").Return(resolved, nil)

	var released []uuid.UUID
	reg.OnSignOut(func(actorID uuid.UUID) {
		released = append(released, actorID)
	})

	mgr, err := reg.SignIn(context.Background(), &shared.Claims{UserID: id, Email: "c@example.com"})
	assert.NoError(t, err)

	reg.SignOut(id)

	assert.Equal(t, []uuid.UUID{id}, released)
	assert.Nil(t, reg.ManagerFor(id))

	// The disposed manager ignores late transitions.
	mgr.SignIn(resolved)
	current, state := mgr.Current()
	assert.Nil(t, current)
	assert.Equal(t, StateDisposed, state)
}

func TestRegistry_SignOutForUnknownActorStillRunsHooks(t *testing.T) {
	reg := NewRegistry(new(MockProfileService), zap.NewNop())

	released := 0
	reg.OnSignOut(func(uuid.UUID) { released++ })

	reg.SignOut(uuid.New())

	assert.Equal(t, 1, released)
}
