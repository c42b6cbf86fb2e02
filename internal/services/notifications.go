package services

import (
	"context"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medtalks/medtalks-api/internal/mailer"
	"github.com/medtalks/medtalks-api/internal/mailer/templates"
	"github.com/medtalks/medtalks-api/internal/models"
)

// Delivery reports the outcome of a best-effort email.
type Delivery struct {
	Sent  bool
	Error string
}

// NotificationService sends the welcome / set-your-password email.
type NotificationService struct {
	mailer           mailer.Mailer
	logger           *logrus.Logger
	resetPasswordURL string
	companyName      string
	timeout          time.Duration
}

func NewNotificationService(m mailer.Mailer, logger *logrus.Logger, resetPasswordURL, companyName string) *NotificationService {
	return &NotificationService{
		mailer:           m,
		logger:           logger,
		resetPasswordURL: resetPasswordURL,
		companyName:      companyName,
		timeout:          15 * time.Second,
	}
}

// ResetLink builds the front-end link that redeems token.
func (s *NotificationService) ResetLink(token string) string {
	return s.resetPasswordURL + "?token=" + url.QueryEscape(token)
}

// SendWelcomeEmail makes a single delivery attempt. Failures are logged and
// reported in the returned Delivery; they are never returned as errors.
func (s *NotificationService) SendWelcomeEmail(ctx context.Context, acc *models.Account, token string, ttl time.Duration) Delivery {
	fields := logrus.Fields{"account_id": acc.ID.Hex(), "email": acc.Email}

	subject, text, html, err := templates.Render(templates.Welcome, templates.WelcomeData{
		Name:        acc.Name,
		CompanyName: s.companyName,
		ResetURL:    s.ResetLink(token),
		ExpiresIn:   ttl,
		Year:        time.Now().Year(),
	})
	if err != nil {
		s.logger.WithFields(fields).WithError(err).Error("render welcome email failed")
		return Delivery{Error: "failed to render email"}
	}

	c, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.mailer.Send(c, mailer.Message{To: acc.Email, Subject: subject, Text: text, HTML: html}); err != nil {
		s.logger.WithFields(fields).WithError(err).Error("welcome email failed")
		return Delivery{Error: err.Error()}
	}
	s.logger.WithFields(fields).Info("welcome email sent")
	return Delivery{Sent: true}
}
