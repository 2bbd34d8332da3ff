package request

import (
	"fmt"
	"strings"

	"repairdesk_backend/internal/email"
)

// requestCreatedEmail confirms submission to the requester.
func requestCreatedEmail(req *ServiceRequest) email.Message {
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"We received your service request for the %s %s.\n"+
			"Purchase date: %s\n\n"+
			"Reported problem:\n%s\n\n"+
			"We will keep you posted as the repair progresses.",
		req.FullName, req.Brand, req.Model, req.ProductDate, req.Description)
	return email.Message{
		To:      []string{req.Email},
		Subject: fmt.Sprintf("Service request received: %s %s", req.Brand, req.Model),
		Body:    body,
	}
}

// statusUpdateEmail tells the requester about a workflow change. latestNote
// is the system note recorded alongside the change.
func statusUpdateEmail(req *ServiceRequest, newStatus Status, latestNote string) email.Message {
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Your service request for the %s %s has a new status: %s\n\n"+
			"%s",
		req.FullName, req.Brand, req.Model, strings.ToUpper(string(newStatus)), latestNote)
	return email.Message{
		To:      []string{req.Email},
		Subject: fmt.Sprintf("Service update: %s %s", req.Brand, req.Model),
		Body:    body,
	}
}
