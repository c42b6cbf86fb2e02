package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/medtalks/medtalks-api/internal/response"
	"github.com/medtalks/medtalks-api/internal/services"
	"github.com/medtalks/medtalks-api/internal/validation"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope for err. Unclassified errors are logged and
// reported with a generic message.
func (h *Handler) fail(c *gin.Context, err error) {
	h.failWith(c, statusFor(err), err)
}

func (h *Handler) failWith(c *gin.Context, status int, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) && status < http.StatusInternalServerError {
		var details interface{}
		if len(svcErr.Details) > 0 {
			details = svcErr.Details
		}
		response.Error[any](c, status, svcErr.Message, details)
		return
	}
	h.Logger.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"path":       c.FullPath(),
	}).WithError(err).Error("request failed")
	response.Error[any](c, http.StatusInternalServerError, "Server error", nil)
}

// badBody reports a body that could not be decoded.
func badBody(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, "Invalid request body", validation.ToDetails(err))
}
