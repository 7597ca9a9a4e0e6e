// Package mailer delivers contact form messages through an email provider.
package mailer

import (
	"context"
	"errors"
)

// ErrIncompleteMessage is returned when a message lacks a sender, recipient
// or subject.
var ErrIncompleteMessage = errors.New("mailer: message is missing from, to or subject")

// Message is a single outgoing email with a plain-text and an HTML body.
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

func (m Message) validate() error {
	if m.From == "" || m.To == "" || m.Subject == "" {
		return ErrIncompleteMessage
	}
	return nil
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
