package request

import (
	"testing"

	"repairdesk_backend/internal/common"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition_ForwardJumpsAreUnrestricted(t *testing.T) {
	// Staff may skip steps; the workflow is not strictly linear.
	cases := []struct{ from, to Status }{
		{StatusPending, StatusDiagnosing},
		{StatusPending, StatusResolved}, // direct fast-path
		{StatusPending, StatusShipped},
		{StatusDiagnosing, StatusPendingApproval},
		{StatusApproved, StatusWaitingParts},
		{StatusWaitingParts, StatusResolved},
		{StatusResolved, StatusShipped},
		{StatusShipped, StatusCompleted},
		{StatusResolved, StatusDiagnosing}, // moving back is tolerated too
	}
	for _, tc := range cases {
		assert.NoError(t, ValidateTransition(tc.from, tc.to),
			"expected %s -> %s to be allowed", tc.from, tc.to)
	}
}

func TestValidateTransition_TerminalStatesNeverChange(t *testing.T) {
	for _, from := range []Status{StatusCompleted, StatusRejected} {
		for _, to := range []Status{StatusPending, StatusDiagnosing, StatusResolved, StatusCompleted} {
			err := ValidateTransition(from, to)
			assert.True(t, common.IsCode(err, common.ErrInvalidTransition.Code),
				"expected %s -> %s to be blocked", from, to)
		}
	}
}

func TestValidateTransition_UnknownStatusRejected(t *testing.T) {
	err := ValidateTransition(StatusPending, Status("exploded"))
	assert.True(t, common.IsCode(err, common.ErrValidation.Code))
}

func TestValidateTransition_RejectionRequiresDedicatedOperation(t *testing.T) {
	err := ValidateTransition(StatusPending, StatusRejected)
	assert.True(t, common.IsCode(err, common.ErrValidation.Code))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
}

func TestMediaListCountByType(t *testing.T) {
	m := MediaList{
		{Type: MediaImage, URL: "https://cdn.example.com/a.jpg", Path: "a.jpg"},
		{Type: MediaVideo, URL: "https://cdn.example.com/b.mp4", Path: "b.mp4"},
		{Type: MediaImage, URL: "https://cdn.example.com/c.jpg", Path: "c.jpg"},
	}
	images, videos := m.CountByType()
	assert.Equal(t, 2, images)
	assert.Equal(t, 1, videos)
}
