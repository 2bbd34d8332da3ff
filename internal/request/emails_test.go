package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func emailFixtureRequest() *ServiceRequest {
	return &ServiceRequest{
		FullName:    "Deniz K.",
		Email:       "deniz@example.com",
		Brand:       "Apple",
		Model:       "iPhone 13",
		ProductDate: "2023-05",
		Description: "Battery drains from 100% to 20% within two hours of light use.",
	}
}

func TestRequestCreatedEmail_AddressesTheRequester(t *testing.T) {
	msg := requestCreatedEmail(emailFixtureRequest())

	assert.Equal(t, []string{"deniz@example.com"}, msg.To)
	assert.Contains(t, msg.Subject, "iPhone 13")
	assert.Contains(t, msg.Body, "Deniz K.")
	assert.Contains(t, msg.Body, "Battery drains")
}

func TestStatusUpdateEmail_AddressesTheRequester(t *testing.T) {
	msg := statusUpdateEmail(emailFixtureRequest(), StatusDiagnosing, "Status changed: diagnosing")

	assert.Equal(t, []string{"deniz@example.com"}, msg.To)
	assert.Contains(t, msg.Subject, "Service update")
	assert.Contains(t, msg.Body, "DIAGNOSING")
	assert.Contains(t, msg.Body, "Status changed: diagnosing")
}
