// Package mailer delivers transactional email.
package mailer

import (
	"context"
	"errors"
)

var ErrDisabled = errors.New("email is not configured")

// Message is a rendered email. HTML is optional; Text is the fallback body.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Disabled rejects every message. It stands in when no transport is configured
// so callers still observe a delivery failure.
type Disabled struct{}

func (Disabled) Send(context.Context, Message) error { return ErrDisabled }
