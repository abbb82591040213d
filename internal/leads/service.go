// Package leads captures marketing leads: the raw form is recorded, the lead
// is pushed to the CRM webhook and backed up in the database.
package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"contentops/internal/core"
	"contentops/internal/logger"
	"contentops/internal/persistence"
	"contentops/internal/webhook"
)

// Deliverer pushes a payload to the lead webhook.
type Deliverer interface {
	Deliver(ctx context.Context, payload webhook.Payload) webhook.Report
	DeliverOnce(ctx context.Context, payload webhook.Payload) webhook.Report
}

// Outcome is returned to the form once validation has passed.
type Outcome struct {
	Success       bool   `json:"success"`
	WebhookSent   bool   `json:"webhookSent"`
	DatabaseSaved bool   `json:"databaseSaved"`
	Message       string `json:"message,omitempty"`
}

// Service implements the ebook and playbook lead flows.
type Service struct {
	leads   persistence.LeadRepository
	forms   persistence.LeadFormRepository
	webhook Deliverer
	now     func() time.Time
	log     *slog.Logger
}

// NewService creates a lead service. forms may be nil to skip raw captures.
func NewService(leads persistence.LeadRepository, forms persistence.LeadFormRepository, deliverer Deliverer) *Service {
	return &Service{
		leads:   leads,
		forms:   forms,
		webhook: deliverer,
		now:     time.Now,
		log:     logger.Get(),
	}
}

// CaptureEbook validates the submission, delivers it to the webhook with
// retries and upserts the backup row whatever the delivery outcome. Only
// validation errors (ErrInvalidLead) are returned; downstream failures are
// logged with the full payload and reflected in the Outcome flags.
func (s *Service) CaptureEbook(ctx context.Context, sub Submission) (out Outcome, err error) {
	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		return Outcome{}, err
	}

	lead := sub.Lead(core.LeadSourceEbook)
	payload := webhook.NewPayload(lead, core.LeadSourceEbook, s.now())

	defer func() {
		if r := recover(); r != nil {
			out, err = s.emergency(ctx, payload, fmt.Errorf("panic: %v", r)), nil
		}
	}()

	s.capture(ctx, core.LeadSourceEbook, sub)

	report := s.webhook.Deliver(ctx, payload)
	s.logReport(report, payload)

	lead.Notes = deliveryNotes(report)
	saved := true
	if err := s.leads.Upsert(ctx, &lead); err != nil {
		saved = false
		logger.Error("Failed to save lead backup", err, "payload", payloadAttr(payload))
	}

	if !report.Success && !saved {
		s.log.Error("Lead was neither delivered nor saved; manual recovery required",
			"payload", payloadAttr(payload), "webhook_error", report.Error)
	}

	return Outcome{
		Success:       true,
		WebhookSent:   report.Success,
		DatabaseSaved: saved,
		Message:       "Thanks! Your ebook is on its way.",
	}, nil
}

// CapturePlaybook inserts a new lead, returning persistence.ErrDuplicate when
// the email is already registered, then delivers it to the webhook once the
// row exists. Webhook failures do not fail the call.
func (s *Service) CapturePlaybook(ctx context.Context, sub Submission) (Outcome, error) {
	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		return Outcome{}, err
	}

	lead := sub.Lead(core.LeadSourcePlaybook)
	if err := s.leads.Insert(ctx, &lead); err != nil {
		return Outcome{}, err
	}
	s.capture(ctx, core.LeadSourcePlaybook, sub)

	payload := webhook.NewPayload(lead, core.LeadSourcePlaybook, s.now())
	report := s.webhook.Deliver(ctx, payload)
	s.logReport(report, payload)

	return Outcome{
		Success:       true,
		WebhookSent:   report.Success,
		DatabaseSaved: true,
		Message:       "Thanks! Check your inbox for the playbook.",
	}, nil
}

// Recent lists the newest leads.
func (s *Service) Recent(ctx context.Context, limit int) ([]core.Lead, error) {
	return s.leads.Recent(ctx, limit)
}

// emergency makes one delivery attempt with whatever was captured before an
// unexpected failure.
func (s *Service) emergency(ctx context.Context, payload webhook.Payload, cause error) Outcome {
	logger.Error("Unexpected failure while capturing lead, attempting emergency delivery", cause,
		"payload", payloadAttr(payload))

	report := s.webhook.DeliverOnce(ctx, payload)
	if !report.Success {
		s.log.Error("Emergency delivery failed; manual recovery required",
			"payload", payloadAttr(payload), "webhook_error", report.Error)
	}
	return Outcome{Success: true, WebhookSent: report.Success}
}

// capture appends the raw submission to lead_forms. Failures are logged only.
func (s *Service) capture(ctx context.Context, formType string, sub Submission) {
	if s.forms == nil {
		return
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		logger.Error("Failed to encode lead form", err, "email", sub.Email)
		return
	}
	capture := &core.LeadFormCapture{FormType: formType, Email: sub.Email, Payload: raw}
	if err := s.forms.Create(ctx, capture); err != nil {
		logger.Error("Failed to record lead form", err, "email", sub.Email, "form_type", formType)
	}
}

func (s *Service) logReport(report webhook.Report, payload webhook.Payload) {
	if report.Success {
		s.log.Info("Lead delivered to webhook", "email", payload.Email, "form_type", payload.FormType,
			"attempts", len(report.Attempts))
		return
	}
	s.log.Error("Lead webhook delivery failed", "payload", payloadAttr(payload),
		"attempts", report.Attempts, "error", report.Error)
}

func deliveryNotes(report webhook.Report) string {
	if report.Success {
		return fmt.Sprintf("webhook delivered (attempts: %d)", len(report.Attempts))
	}
	return fmt.Sprintf("webhook failed (attempts: %d): %s", len(report.Attempts), report.Error)
}

// payloadAttr logs the whole payload so a failed lead can be replayed by hand.
func payloadAttr(p webhook.Payload) slog.Value {
	return slog.GroupValue(
		slog.String("fullName", p.FullName),
		slog.String("email", p.Email),
		slog.String("company", p.Company),
		slog.String("role", p.Role),
		slog.String("companySize", p.CompanySize),
		slog.String("phone", p.Phone),
		slog.String("source", p.Source),
		slog.Time("timestamp", p.Timestamp),
		slog.String("formType", p.FormType),
	)
}
