// File: internal/request/status.go
package request

import "repairdesk_backend/internal/common"

// Status is the workflow state of a service request.
type Status string

const (
	StatusPending         Status = "pending"
	StatusDiagnosing      Status = "diagnosing"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusWaitingParts    Status = "waiting_parts"
	StatusResolved        Status = "resolved"
	StatusShipped         Status = "shipped"
	StatusCompleted       Status = "completed"
	StatusRejected        Status = "rejected"
)

// ValidStatus reports whether s is one of the known workflow states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusDiagnosing, StatusPendingApproval, StatusApproved,
		StatusWaitingParts, StatusResolved, StatusShipped, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further status change is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// ValidateTransition checks a status change requested by staff. The workflow
// is deliberately not strictly linear: staff may jump the request to any
// state to mirror how repairs actually move through the shop. Only two
// rules are enforced here: the target must be a known status, and terminal
// requests never change again. Rejection goes through its own operation
// because it requires a reason.
func ValidateTransition(from, to Status) error {
	if !ValidStatus(to) {
		return common.ErrValidation.WithDetails("Unknown status: " + string(to))
	}
	if from.IsTerminal() {
		return common.ErrInvalidTransition.WithDetails(
			"A " + string(from) + " request cannot change status.")
	}
	if to == StatusRejected {
		return common.ErrValidation.WithDetails(
			"Rejection requires a reason; use the reject operation.")
	}
	return nil
}
