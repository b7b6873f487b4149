package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusbook/scheduling-engine/pkg/config"
	"github.com/campusbook/scheduling-engine/pkg/logger"
)

func TestNewNotificationService(t *testing.T) {
	log := logger.NewForTesting()

	cfg := &config.NotificationConfig{
		BaseURL: "http://localhost:8080",
		Email: config.EmailConfig{
			Enabled:      false,
			SMTPHost:     "smtp.gmail.com",
			SMTPPort:     587,
			SMTPUser:     "test@example.com",
			SMTPPassword: "password",
			FromAddress:  "noreply@example.com",
		},
		Slack: config.SlackConfig{
			Enabled:    false,
			WebhookURL: "https://hooks.slack.com/test",
		},
	}

	svc, err := NewNotificationService(cfg, nil, log)

	require.NoError(t, err)
	assert.NotNil(t, svc)
	assert.NotNil(t, svc.templates)
	assert.NotNil(t, svc.templates.BookingConfirmed)
	assert.NotNil(t, svc.templates.BookingPending)
	assert.NotNil(t, svc.templates.ApprovalDecision)
	assert.NotNil(t, svc.templates.ApprovalAction)
}

func TestLoadNotificationTemplates(t *testing.T) {
	templates, err := loadNotificationTemplates()

	require.NoError(t, err)
	assert.NotNil(t, templates)
	assert.NotNil(t, templates.BookingConfirmed)
	assert.NotNil(t, templates.BookingPending)
	assert.NotNil(t, templates.ApprovalDecision)
	assert.NotNil(t, templates.ApprovalAction)
}

func TestBookingConfirmedEmailTemplate(t *testing.T) {
	templates, err := loadNotificationTemplates()
	require.NoError(t, err)

	data := BookingNotificationData{
		ReservationID: uuid.New().String(),
		ResourceName:  "Chemistry Lab A",
		Start:         time.Now().Format(time.RFC3339),
		End:           time.Now().Add(2 * time.Hour).Format(time.RFC3339),
		Title:         "Organic chemistry practical",
		DetailURL:     "http://localhost:8080/reservations/123",
	}

	var result string
	err = templates.BookingConfirmed.Execute(&testWriter{output: &result}, data)

	require.NoError(t, err)
	assert.Contains(t, result, data.ReservationID)
	assert.Contains(t, result, data.ResourceName)
	assert.Contains(t, result, data.Title)
	assert.Contains(t, result, "Booking Confirmed")
}

func TestBookingPendingEmailTemplate(t *testing.T) {
	templates, err := loadNotificationTemplates()
	require.NoError(t, err)

	data := BookingNotificationData{
		ReservationID: uuid.New().String(),
		ResourceName:  "Electron Microscope",
		Start:         time.Now().Format(time.RFC3339),
		End:           time.Now().Add(time.Hour).Format(time.RFC3339),
	}

	var result string
	err = templates.BookingPending.Execute(&testWriter{output: &result}, data)

	require.NoError(t, err)
	assert.Contains(t, result, data.ReservationID)
	assert.Contains(t, result, data.ResourceName)
	assert.Contains(t, result, "Booking Awaiting Approval")
}

func TestApprovalDecisionEmailTemplate(t *testing.T) {
	templates, err := loadNotificationTemplates()
	require.NoError(t, err)

	data := ApprovalNotificationData{
		RequestID:    uuid.New().String(),
		ResourceName: "Chemistry Lab A",
		Status:       "approved",
		Level:        2,
		Comments:     "Looks fine",
		DetailURL:    "http://localhost:8080/approvals/123",
	}

	var result string
	err = templates.ApprovalDecision.Execute(&testWriter{output: &result}, data)

	require.NoError(t, err)
	assert.Contains(t, result, data.RequestID)
	assert.Contains(t, result, data.ResourceName)
	assert.Contains(t, result, data.Comments)
	assert.Contains(t, result, "Approval approved")
}

func TestApprovalActionEmailTemplate(t *testing.T) {
	templates, err := loadNotificationTemplates()
	require.NoError(t, err)

	data := ApprovalNotificationData{
		RequestID:    uuid.New().String(),
		ResourceName: "Electron Microscope",
		Status:       "in_review",
		Level:        1,
		Comments:     "Escalated to department head",
	}

	var result string
	err = templates.ApprovalAction.Execute(&testWriter{output: &result}, data)

	require.NoError(t, err)
	assert.Contains(t, result, data.RequestID)
	assert.Contains(t, result, data.ResourceName)
	assert.Contains(t, result, "Approval Update")
}

func TestSlackAppearance(t *testing.T) {
	tests := []struct {
		event string
		title string
	}{
		{"reservation.created", "Booking confirmed"},
		{"approval.submitted", "New approval request"},
		{"approval.reject", "Booking rejected"},
		{"something.else", "Scheduling event: something.else"},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			color, title := slackAppearance(tt.event)
			assert.NotEmpty(t, color)
			assert.Equal(t, tt.title, title)
		})
	}
}

// testWriter is a helper to capture template execution output
type testWriter struct {
	output *string
}

func (w *testWriter) Write(p []byte) (n int, err error) {
	*w.output += string(p)
	return len(p), nil
}
