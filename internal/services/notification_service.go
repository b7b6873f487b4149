package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/smtp"
	"time"

	"github.com/campusbook/scheduling-engine/pkg/config"
	"github.com/campusbook/scheduling-engine/pkg/logger"
	"github.com/campusbook/scheduling-engine/pkg/metrics"
)

// NotificationChannel represents different notification channels
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSlack NotificationChannel = "slack"
)

// NotificationService handles sending notifications via various channels.
// It implements the Notifier interface consumed by the booking coordinator
// and the approval engine; delivery failures are logged, never surfaced.
type NotificationService struct {
	config      *config.NotificationConfig
	logger      *logger.Logger
	metrics     *metrics.Metrics
	emailClient *EmailClient
	slackClient *SlackClient
	templates   *NotificationTemplates
}

// EmailClient handles email sending
type EmailClient struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
}

// SlackClient handles Slack notifications
type SlackClient struct {
	webhookURL string
	enabled    bool
}

// NotificationTemplates holds parsed email templates
type NotificationTemplates struct {
	BookingConfirmed *template.Template
	BookingPending   *template.Template
	ApprovalDecision *template.Template
	ApprovalAction   *template.Template
}

// NewNotificationService creates a new notification service
func NewNotificationService(cfg *config.NotificationConfig, m *metrics.Metrics, log *logger.Logger) (*NotificationService, error) {
	var emailClient *EmailClient
	if cfg.Email.Enabled {
		emailClient = &EmailClient{
			smtpHost: cfg.Email.SMTPHost,
			smtpPort: cfg.Email.SMTPPort,
			username: cfg.Email.SMTPUser,
			password: cfg.Email.SMTPPassword,
			from:     cfg.Email.FromAddress,
		}
	}

	var slackClient *SlackClient
	if cfg.Slack.Enabled {
		slackClient = &SlackClient{
			webhookURL: cfg.Slack.WebhookURL,
			enabled:    true,
		}
	}

	templates, err := loadNotificationTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load notification templates: %w", err)
	}

	return &NotificationService{
		config:      cfg,
		logger:      log,
		metrics:     m,
		emailClient: emailClient,
		slackClient: slackClient,
		templates:   templates,
	}, nil
}

// Notify dispatches a scheduling event to the enabled channels. It is
// fire-and-forget: errors are logged and counted, the caller never blocks
// on delivery.
func (s *NotificationService) Notify(ctx context.Context, event string, payload map[string]interface{}) {
	if s.slackClient == nil || !s.slackClient.enabled {
		return
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := s.sendSlackEvent(sendCtx, event, payload); err != nil {
			s.logger.Errorf("failed to deliver %s notification: %v", event, err)
			s.countSent(string(ChannelSlack), "error")
			return
		}
		s.countSent(string(ChannelSlack), "sent")
	}()
}

// SendBookingEmail sends a booking outcome email to the requester
func (s *NotificationService) SendBookingEmail(ctx context.Context, to string, confirmed bool, data BookingNotificationData) error {
	tmpl := s.templates.BookingConfirmed
	subject := fmt.Sprintf("Booking confirmed: %s", data.ResourceName)
	if !confirmed {
		tmpl = s.templates.BookingPending
		subject = fmt.Sprintf("Booking awaiting approval: %s", data.ResourceName)
	}

	if err := s.sendEmail(ctx, to, subject, tmpl, data); err != nil {
		s.countSent(string(ChannelEmail), "error")
		return err
	}
	s.countSent(string(ChannelEmail), "sent")
	return nil
}

// SendApprovalEmail sends an approval workflow email
func (s *NotificationService) SendApprovalEmail(ctx context.Context, to string, terminal bool, data ApprovalNotificationData) error {
	tmpl := s.templates.ApprovalAction
	subject := fmt.Sprintf("Approval update: %s", data.ResourceName)
	if terminal {
		tmpl = s.templates.ApprovalDecision
		subject = fmt.Sprintf("Approval %s: %s", data.Status, data.ResourceName)
	}

	if err := s.sendEmail(ctx, to, subject, tmpl, data); err != nil {
		s.countSent(string(ChannelEmail), "error")
		return err
	}
	s.countSent(string(ChannelEmail), "sent")
	return nil
}

// BookingNotificationData holds data for booking emails
type BookingNotificationData struct {
	ReservationID string
	ResourceName  string
	Start         string
	End           string
	Title         string
	DetailURL     string
}

// ApprovalNotificationData holds data for approval emails
type ApprovalNotificationData struct {
	RequestID    string
	ResourceName string
	Status       string
	Level        int
	Comments     string
	DetailURL    string
}

func (s *NotificationService) sendEmail(ctx context.Context, to, subject string, tmpl *template.Template, data interface{}) error {
	if s.emailClient == nil {
		return fmt.Errorf("email client not configured")
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	message := fmt.Sprintf("From: %s\r\n", s.emailClient.from)
	message += fmt.Sprintf("To: %s\r\n", to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "MIME-Version: 1.0\r\n"
	message += "Content-Type: text/html; charset=UTF-8\r\n"
	message += "\r\n"
	message += body.String()

	auth := smtp.PlainAuth("", s.emailClient.username, s.emailClient.password, s.emailClient.smtpHost)
	addr := fmt.Sprintf("%s:%d", s.emailClient.smtpHost, s.emailClient.smtpPort)

	if err := smtp.SendMail(addr, auth, s.emailClient.from, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("email sent to %s", to)
	return nil
}

func (s *NotificationService) sendSlackEvent(ctx context.Context, event string, payload map[string]interface{}) error {
	color, title := slackAppearance(event)

	text := ""
	for key, value := range payload {
		text += fmt.Sprintf("*%s:* %v\n", key, value)
	}

	body := map[string]interface{}{
		"attachments": []map[string]interface{}{
			{
				"color":  color,
				"title":  title,
				"text":   text,
				"footer": "CampusBook Scheduling",
				"ts":     time.Now().Unix(),
			},
		},
	}

	jsonPayload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.slackClient.webhookURL, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create Slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned non-200 status: %d", resp.StatusCode)
	}

	return nil
}

func slackAppearance(event string) (color, title string) {
	switch event {
	case "reservation.created", "approval.approve":
		return "#4CAF50", "Booking confirmed"
	case "reservation.batch_completed":
		return "#4CAF50", "Recurring series created"
	case "approval.submitted":
		return "#FFEB3B", "New approval request"
	case "approval.reject":
		return "#F44336", "Booking rejected"
	case "approval.request_changes":
		return "#FF9800", "Changes requested"
	case "approval.escalated":
		return "#9E9E9E", "Approval escalated"
	case "approval.cancel":
		return "#9E9E9E", "Booking cancelled"
	default:
		return "#2196F3", "Scheduling event: " + event
	}
}

func (s *NotificationService) countSent(channel, status string) {
	if s.metrics != nil {
		s.metrics.NotificationsSent.WithLabelValues(channel, status).Inc()
	}
}

// loadNotificationTemplates loads email templates
func loadNotificationTemplates() (*NotificationTemplates, error) {
	bookingConfirmed, err := template.New("booking_confirmed").Parse(bookingConfirmedEmailTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking confirmed template: %w", err)
	}

	bookingPending, err := template.New("booking_pending").Parse(bookingPendingEmailTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking pending template: %w", err)
	}

	approvalDecision, err := template.New("approval_decision").Parse(approvalDecisionEmailTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse approval decision template: %w", err)
	}

	approvalAction, err := template.New("approval_action").Parse(approvalActionEmailTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse approval action template: %w", err)
	}

	return &NotificationTemplates{
		BookingConfirmed: bookingConfirmed,
		BookingPending:   bookingPending,
		ApprovalDecision: approvalDecision,
		ApprovalAction:   approvalAction,
	}, nil
}
