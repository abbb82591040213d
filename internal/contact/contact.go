// Package contact handles quote requests from the site's contact form.
package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"contentops/internal/core"
	"contentops/internal/email"
	"contentops/internal/logger"
	"contentops/internal/persistence"
)

// ErrInvalidSubmission wraps every validation failure.
var ErrInvalidSubmission = errors.New("invalid contact submission")

const maxMessageLength = 5000

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Form is the JSON body posted by the contact form.
type Form struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Service string `json:"service,omitempty"`
	Message string `json:"message"`
}

// Validate checks required fields and the email shape.
func (f Form) Validate() error {
	switch {
	case f.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidSubmission)
	case f.Email == "":
		return fmt.Errorf("%w: email is required", ErrInvalidSubmission)
	case !emailPattern.MatchString(f.Email):
		return fmt.Errorf("%w: invalid email address", ErrInvalidSubmission)
	case f.Message == "":
		return fmt.Errorf("%w: message is required", ErrInvalidSubmission)
	case len(f.Message) > maxMessageLength:
		return fmt.Errorf("%w: message is too long", ErrInvalidSubmission)
	}
	return nil
}

// Normalize trims every field.
func (f Form) Normalize() Form {
	return Form{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Company: strings.TrimSpace(f.Company),
		Phone:   strings.TrimSpace(f.Phone),
		Service: strings.TrimSpace(f.Service),
		Message: strings.TrimSpace(f.Message),
	}
}

// Result reports what happened to a valid submission.
type Result struct {
	ID        string `json:"id"`
	EmailSent bool   `json:"emailSent"`
}

// Service stores submissions and notifies the team by email.
type Service struct {
	repo     persistence.ContactRepository
	sender   email.Sender // nil disables notifications
	notifyTo []string
	template *email.EmailTemplate
	log      *slog.Logger
}

// NewService creates a contact service.
func NewService(repo persistence.ContactRepository, sender email.Sender, notifyTo []string) *Service {
	return &Service{
		repo:     repo,
		sender:   sender,
		notifyTo: notifyTo,
		template: email.GetNotificationTemplate(),
		log:      logger.Get(),
	}
}

// Submit validates and stores the form, then emails a notification.
// A storage failure is returned; a notification failure is only logged.
func (s *Service) Submit(ctx context.Context, form Form) (Result, error) {
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return Result{}, err
	}

	sub := core.ContactSubmission{
		Name:    form.Name,
		Email:   form.Email,
		Company: form.Company,
		Phone:   form.Phone,
		Service: form.Service,
		Message: form.Message,
	}

	if err := s.repo.Create(ctx, &sub); err != nil {
		return Result{}, fmt.Errorf("failed to save contact submission: %w", err)
	}
	s.log.Info("Contact submission saved", "id", sub.ID, "email", sub.Email, "service", sub.Service)

	sent, err := s.notify(ctx, sub)
	if err != nil {
		logger.Error("Failed to send contact notification", err, "id", sub.ID)
	}
	return Result{ID: sub.ID, EmailSent: sent}, nil
}

func (s *Service) notify(ctx context.Context, sub core.ContactSubmission) (bool, error) {
	if s.sender == nil || len(s.notifyTo) == 0 {
		s.log.Debug("Contact notifications disabled", "id", sub.ID)
		return false, nil
	}

	data := email.NewContactData(sub)
	html, err := email.RenderContactEmail(data, s.template)
	if err != nil {
		return false, err
	}
	subject, err := email.GenerateSubject(s.template, data)
	if err != nil {
		return false, err
	}

	err = s.sender.Send(ctx, email.Message{
		To:      s.notifyTo,
		Subject: subject,
		HTML:    html,
		ReplyTo: sub.Email,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
