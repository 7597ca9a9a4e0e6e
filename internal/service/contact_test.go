package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akaash11/portfolio-api/internal/mailer"
	"github.com/akaash11/portfolio-api/internal/service"
	"go.uber.org/zap"
)

type recordingSender struct {
	sent []mailer.Message
	err  error
}

func (s *recordingSender) Send(ctx context.Context, msg mailer.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newContactService(t *testing.T, sender mailer.Sender) *service.ContactService {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	t.Cleanup(func() { _ = logger.Sync() })

	return service.NewContactService(sender, service.ContactConfig{
		From: "Portfolio <noreply@example.com>",
		To:   "owner@example.com",
	}, logger)
}

func validRequest() service.ContactRequest {
	return service.ContactRequest{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Message: "Hello, I would like to talk about a project.",
	}
}

func TestContactService_Submit(t *testing.T) {
	sender := &recordingSender{}
	svc := newContactService(t, sender)

	req := validRequest()
	req.Name = "  Ada Lovelace  "
	req.Message = "Line one\r\nLine <two> & more"

	if err := svc.Submit(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}

	msg := sender.sent[0]
	if msg.Subject != "Portfolio Contact: Ada Lovelace" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if msg.From != "Portfolio <noreply@example.com>" || msg.To != "owner@example.com" {
		t.Errorf("unexpected from/to %q -> %q", msg.From, msg.To)
	}
	if msg.ReplyTo != "ada@example.com" {
		t.Errorf("expected reply-to to be the visitor, got %q", msg.ReplyTo)
	}

	wantText := "Name: Ada Lovelace\nEmail: ada@example.com\n\nMessage:\nLine one\nLine <two> & more"
	if msg.Text != wantText {
		t.Errorf("unexpected text body:\n%s", msg.Text)
	}

	if !strings.Contains(msg.HTML, "Line one<br>Line &lt;two&gt; &amp; more") {
		t.Errorf("expected escaped HTML with line breaks, got:\n%s", msg.HTML)
	}
	if strings.Contains(msg.HTML, "<two>") {
		t.Error("visitor markup must be escaped")
	}
}

func TestContactService_Honeypot(t *testing.T) {
	sender := &recordingSender{}
	svc := newContactService(t, sender)

	req := validRequest()
	req.Honeypot = "http://spam.example"

	if err := svc.Submit(context.Background(), req); err != nil {
		t.Fatalf("honeypot submissions should look successful, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Error("honeypot submissions must not be sent")
	}
}

func TestContactService_HoneypotSkipsValidation(t *testing.T) {
	sender := &recordingSender{}
	svc := newContactService(t, sender)

	req := service.ContactRequest{Honeypot: "filled"}
	if err := svc.Submit(context.Background(), req); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestContactService_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*service.ContactRequest)
		field   string
		message string
	}{
		{"missing name", func(r *service.ContactRequest) { r.Name = "" }, "name", service.MsgNameRequired},
		{"blank name", func(r *service.ContactRequest) { r.Name = "   " }, "name", service.MsgNameRequired},
		{"short name", func(r *service.ContactRequest) { r.Name = " A " }, "name", service.MsgNameTooShort},
		{"long name", func(r *service.ContactRequest) { r.Name = strings.Repeat("a", 81) }, "name", service.MsgNameTooLong},
		{"missing email", func(r *service.ContactRequest) { r.Email = "" }, "email", service.MsgEmailRequired},
		{"bad email", func(r *service.ContactRequest) { r.Email = "not-an-email" }, "email", service.MsgEmailInvalid},
		{"long email", func(r *service.ContactRequest) { r.Email = "ada@" + strings.Repeat("abcdefghij.", 11) + "com" }, "email", service.MsgEmailTooLong},
		{"missing message", func(r *service.ContactRequest) { r.Message = "" }, "message", service.MsgMessageRequired},
		{"short message", func(r *service.ContactRequest) { r.Message = "too short" }, "message", service.MsgMessageTooShort},
		{"long message", func(r *service.ContactRequest) { r.Message = strings.Repeat("x", 3001) }, "message", service.MsgMessageTooLong},
		{"first failure wins", func(r *service.ContactRequest) {
			r.Name = ""
			r.Email = "bad"
		}, "name", service.MsgNameRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			svc := newContactService(t, sender)

			req := validRequest()
			tt.mutate(&req)

			err := svc.Submit(context.Background(), req)
			if !errors.Is(err, service.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}

			var verr *service.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
			if verr.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, verr.Message)
			}
			if len(sender.sent) != 0 {
				t.Error("invalid submissions must not be sent")
			}
		})
	}
}

func TestContactService_BoundaryLengthsAccepted(t *testing.T) {
	sender := &recordingSender{}
	svc := newContactService(t, sender)

	req := service.ContactRequest{
		Name:    "Al",
		Email:   "a@b.io",
		Message: strings.Repeat("m", 10),
	}
	if err := svc.Submit(context.Background(), req); err != nil {
		t.Fatalf("minimum lengths should pass, got %v", err)
	}

	req = service.ContactRequest{
		Name:    strings.Repeat("n", 80),
		Email:   "ada@example.com",
		Message: strings.Repeat("m", 3000),
	}
	if err := svc.Submit(context.Background(), req); err != nil {
		t.Fatalf("maximum lengths should pass, got %v", err)
	}
}

func TestContactService_LengthsCountTrimmedRunes(t *testing.T) {
	sender := &recordingSender{}
	svc := newContactService(t, sender)

	req := service.ContactRequest{
		Name:    "  " + strings.Repeat("é", 80) + "  ",
		Email:   " ada@example.com ",
		Message: "\n" + strings.Repeat("ü", 3000) + "\n",
	}
	if err := svc.Submit(context.Background(), req); err != nil {
		t.Fatalf("padded multibyte input at the limit should pass, got %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 message sent, got %d", len(sender.sent))
	}

	req.Name = strings.Repeat("é", 81)
	err := svc.Submit(context.Background(), req)
	var verr *service.ValidationError
	if !errors.As(err, &verr) || verr.Message != service.MsgNameTooLong {
		t.Errorf("expected %q, got %v", service.MsgNameTooLong, err)
	}
}

func TestContactService_NotConfigured(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name   string
		sender mailer.Sender
		cfg    service.ContactConfig
	}{
		{"no sender", nil, service.ContactConfig{From: "a@example.com", To: "b@example.com"}},
		{"no from", &recordingSender{}, service.ContactConfig{To: "b@example.com"}},
		{"no to", &recordingSender{}, service.ContactConfig{From: "a@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := service.NewContactService(tt.sender, tt.cfg, logger)
			if err := svc.Submit(context.Background(), validRequest()); !errors.Is(err, service.ErrMailerNotConfigured) {
				t.Errorf("expected ErrMailerNotConfigured, got %v", err)
			}
		})
	}
}

func TestContactService_ValidationBeforeConfiguration(t *testing.T) {
	svc := service.NewContactService(nil, service.ContactConfig{}, zap.NewNop())

	req := validRequest()
	req.Email = "nope"
	if err := svc.Submit(context.Background(), req); !errors.Is(err, service.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestContactService_SendFailure(t *testing.T) {
	providerErr := &mailer.APIError{StatusCode: 500, Body: "boom"}
	svc := newContactService(t, &recordingSender{err: providerErr})

	err := svc.Submit(context.Background(), validRequest())
	if !errors.Is(err, service.ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}

	var apiErr *mailer.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("expected provider error to be preserved, got %v", err)
	}
}
