package service

import "errors"

// Health status constants
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

// Contact subject prefix, followed by the submitter's name
const ContactSubjectPrefix = "Portfolio Contact: "

// Validation error messages
const (
	MsgNameRequired    = "Name is required"
	MsgNameTooShort    = "Name must be at least 2 characters"
	MsgNameTooLong     = "Name is too long"
	MsgEmailRequired   = "Email is required"
	MsgEmailInvalid    = "Invalid email format"
	MsgEmailTooLong    = "Email is too long"
	MsgMessageRequired = "Message is required"
	MsgMessageTooShort = "Message must be at least 10 characters"
	MsgMessageTooLong  = "Message is too long"
	MsgKeyRequired     = "key is required"
)

// Custom error types
var (
	ErrValidation          = errors.New("validation failed")
	ErrMailerNotConfigured = errors.New("mailer is not configured")
	ErrSendFailed          = errors.New("failed to send email")
	ErrKeyRequired         = errors.New(MsgKeyRequired)
)

// ValidationError reports the first invalid field of a submission.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
