package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/akaash11/portfolio-api/internal/mailer"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ContactRequest is a contact form submission.
type ContactRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=80"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Message  string `json:"message" validate:"required,min=10,max=3000"`
	Honeypot string `json:"honeypot" validate:"-"`
}

// ContactConfig holds the addresses contact mail is sent from and to.
type ContactConfig struct {
	From string
	To   string
}

// validationMessages maps field and failing tag to the message shown to the
// visitor.
var validationMessages = map[string]map[string]string{
	"Name": {
		"required": MsgNameRequired,
		"min":      MsgNameTooShort,
		"max":      MsgNameTooLong,
	},
	"Email": {
		"required": MsgEmailRequired,
		"email":    MsgEmailInvalid,
		"max":      MsgEmailTooLong,
	},
	"Message": {
		"required": MsgMessageRequired,
		"min":      MsgMessageTooShort,
		"max":      MsgMessageTooLong,
	},
}

var contactHTML = template.Must(template.New("contact").Parse(
	`<h2>New Contact Form Submission</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Message:</strong></p>
<p>{{range $i, $line := .Lines}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
`))

// ContactService validates contact submissions and relays them by email.
type ContactService struct {
	sender   mailer.Sender
	cfg      ContactConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewContactService creates a contact service. A nil sender or an empty
// address leaves the service unconfigured: valid submissions then fail with
// ErrMailerNotConfigured.
func NewContactService(sender mailer.Sender, cfg ContactConfig, logger *zap.Logger) *ContactService {
	return &ContactService{
		sender:   sender,
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Submit validates req and sends it to the site owner.
//
// A filled honeypot field marks the submission as automated; it is dropped
// and Submit reports success so the bot gets no signal.
func (s *ContactService) Submit(ctx context.Context, req ContactRequest) error {
	if req.Honeypot != "" {
		s.logger.Info("bot detected via honeypot")
		return nil
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.ReplaceAll(strings.TrimSpace(req.Message), "\r\n", "\n")

	if err := s.Validate(req); err != nil {
		return err
	}

	if s.sender == nil || s.cfg.From == "" || s.cfg.To == "" {
		s.logger.Error("contact mail is not configured")
		return ErrMailerNotConfigured
	}

	msg, err := s.buildMessage(req)
	if err != nil {
		return fmt.Errorf("build contact message: %w", err)
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send contact email", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	s.logger.Info("contact email sent", zap.String("reply_to", req.Email))
	return nil
}

// Validate returns a *ValidationError for the first invalid field of req.
func (s *ContactService) Validate(req ContactRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	fe := verrs[0]
	msg, ok := validationMessages[fe.Field()][fe.Tag()]
	if !ok {
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}

	return &ValidationError{Field: strings.ToLower(fe.Field()), Message: msg}
}

func (s *ContactService) buildMessage(req ContactRequest) (mailer.Message, error) {
	var html bytes.Buffer
	err := contactHTML.Execute(&html, struct {
		Name  string
		Email string
		Lines []string
	}{
		Name:  req.Name,
		Email: req.Email,
		Lines: strings.Split(req.Message, "\n"),
	})
	if err != nil {
		return mailer.Message{}, err
	}

	return mailer.Message{
		From:    s.cfg.From,
		To:      s.cfg.To,
		ReplyTo: req.Email,
		Subject: ContactSubjectPrefix + req.Name,
		Text:    fmt.Sprintf("Name: %s\nEmail: %s\n\nMessage:\n%s", req.Name, req.Email, req.Message),
		HTML:    html.String(),
	}, nil
}
