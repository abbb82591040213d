package contact

import (
	"context"
	"errors"
	"strings"
	"testing"

	"contentops/internal/core"
	"contentops/test/mocks"
)

type fakeRepo struct {
	saved []core.ContactSubmission
	err   error
}

func (f *fakeRepo) Create(ctx context.Context, s *core.ContactSubmission) error {
	if f.err != nil {
		return f.err
	}
	s.ID = "c-1"
	f.saved = append(f.saved, *s)
	return nil
}

func validForm() Form {
	return Form{
		Name:    " Jane Doe ",
		Email:   "jane@acme.com",
		Company: "Acme & Sons",
		Service: "Customs automation",
		Message: "We clear 400 entries a week.",
	}
}

func TestSubmit(t *testing.T) {
	repo := &fakeRepo{}
	sender := &mocks.MockEmailSender{}
	svc := NewService(repo, sender, []string{"sales@structure.ai"})

	result, err := svc.Submit(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.ID != "c-1" || !result.EmailSent {
		t.Errorf("result = %+v", result)
	}
	if len(repo.saved) != 1 || repo.saved[0].Name != "Jane Doe" {
		t.Fatalf("saved = %+v", repo.saved)
	}

	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sent))
	}
	msg := sent[0]
	if msg.ReplyTo != "jane@acme.com" || msg.To[0] != "sales@structure.ai" {
		t.Errorf("message headers = %+v", msg)
	}
	if !strings.Contains(msg.Subject, "Jane Doe") {
		t.Errorf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "Acme &amp; Sons") {
		t.Error("company not escaped in HTML body")
	}
}

func TestSubmit_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Form)
	}{
		{"no name", func(f *Form) { f.Name = "  " }},
		{"no email", func(f *Form) { f.Email = "" }},
		{"bad email", func(f *Form) { f.Email = "jane@" }},
		{"no message", func(f *Form) { f.Message = "" }},
		{"long message", func(f *Form) { f.Message = strings.Repeat("x", maxMessageLength+1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			form := validForm()
			tt.mutate(&form)

			_, err := NewService(repo, &mocks.MockEmailSender{}, []string{"x@y.z"}).Submit(context.Background(), form)
			if !errors.Is(err, ErrInvalidSubmission) {
				t.Errorf("error = %v, want ErrInvalidSubmission", err)
			}
			if len(repo.saved) != 0 {
				t.Error("invalid submission was saved")
			}
		})
	}
}

func TestSubmit_EmailFailureIsNotFatal(t *testing.T) {
	sender := &mocks.MockEmailSender{Err: mocks.ErrMock}
	svc := NewService(&fakeRepo{}, sender, []string{"sales@structure.ai"})

	result, err := svc.Submit(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.EmailSent {
		t.Error("EmailSent should be false")
	}
}

func TestSubmit_StorageFailure(t *testing.T) {
	sender := &mocks.MockEmailSender{}
	svc := NewService(&fakeRepo{err: errors.New("db down")}, sender, []string{"sales@structure.ai"})

	if _, err := svc.Submit(context.Background(), validForm()); err == nil {
		t.Fatal("expected error")
	}
	if len(sender.Sent()) != 0 {
		t.Error("email sent for unsaved submission")
	}
}

func TestSubmit_NotificationsDisabled(t *testing.T) {
	result, err := NewService(&fakeRepo{}, nil, nil).Submit(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.EmailSent {
		t.Error("EmailSent should be false without a sender")
	}
}
