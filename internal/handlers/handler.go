package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/medtalks/medtalks-api/internal/services"
)

// CookieConfig controls the httpOnly session cookie set on login.
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

// Handler holds what the gin handlers need. Each endpoint is a method.
type Handler struct {
	Auth   *services.AuthService
	Logger *logrus.Logger
	Cookie CookieConfig
}

func NewHandler(auth *services.AuthService, logger *logrus.Logger, cookie CookieConfig) *Handler {
	if cookie.Name == "" {
		cookie.Name = "medtalk_token"
	}
	return &Handler{Auth: auth, Logger: logger, Cookie: cookie}
}
