package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medtalks/medtalks-api/internal/middleware"
	"github.com/medtalks/medtalks-api/internal/models"
	"github.com/medtalks/medtalks-api/internal/response"
	"github.com/medtalks/medtalks-api/internal/services"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionView struct {
	Authenticated bool            `json:"authenticated,omitempty"`
	Valid         bool            `json:"valid,omitempty"`
	User          models.Identity `json:"user"`
}

// RequestRegister accepts a doctor/trainer registration as JSON or a form post.
func (h *Handler) RequestRegister(c *gin.Context) {
	var req services.RegistrationRequest
	if err := c.ShouldBind(&req); err != nil {
		badBody(c, err)
		return
	}
	acc, err := h.Auth.SubmitRegistration(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, acc, "Registration request submitted, pending admin approval", nil)
}

// Register is the public sign-up for plain users.
func (h *Handler) Register(c *gin.Context) {
	var req services.SelfRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	acc, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, acc, "User registered successfully", nil)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	res, err := h.Auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// bad credentials on login are a 400, not a 401
		if errors.Is(err, services.ErrAuth) {
			h.failWith(c, http.StatusBadRequest, err)
			return
		}
		h.fail(c, err)
		return
	}
	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	response.Success(c, http.StatusOK, res, "Login successful", nil)
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.Cookie.Name, "", -1, "/", h.Cookie.Domain, h.Cookie.Secure, true)
	response.Success[any](c, http.StatusOK, nil, "Logged out successfully", nil)
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req services.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	if err := h.Auth.ResetPassword(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Password has been reset successfully", nil)
}

// VerifySession and VerifyToken run behind middleware.Auth; they only echo
// the resolved identity.
func (h *Handler) VerifySession(c *gin.Context) {
	acc, ok := middleware.CurrentAccount(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}
	response.Success(c, http.StatusOK, sessionView{Authenticated: true, User: acc.Identity()}, "Session is valid", nil)
}

func (h *Handler) VerifyToken(c *gin.Context) {
	acc, ok := middleware.CurrentAccount(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}
	response.Success(c, http.StatusOK, sessionView{Valid: true, User: acc.Identity()}, "Token is valid", nil)
}

func (h *Handler) Me(c *gin.Context) {
	acc, ok := middleware.CurrentAccount(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "Not authenticated", nil)
		return
	}
	response.Success(c, http.StatusOK, acc, "", nil)
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, exp time.Time) {
	maxAge := int(time.Until(exp).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.Cookie.Name, token, maxAge, "/", h.Cookie.Domain, h.Cookie.Secure, true)
}
