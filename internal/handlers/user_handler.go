package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medtalks/medtalks-api/internal/models"
	"github.com/medtalks/medtalks-api/internal/response"
	"github.com/medtalks/medtalks-api/internal/services"
)

type approvalView struct {
	User           *models.Account `json:"user"`
	ResetToken     string          `json:"resetToken"`
	Profile        *models.Profile `json:"profile,omitempty"`
	ProfileCreated bool            `json:"profileCreated"`
}

type emailMeta struct {
	EmailSent  bool   `json:"emailSent"`
	EmailError string `json:"emailError,omitempty"`
}

func metaFor(d *services.Delivery) interface{} {
	if d == nil {
		return nil
	}
	return emailMeta{EmailSent: d.Sent, EmailError: d.Error}
}

func (h *Handler) ListRequests(c *gin.Context) {
	accounts, err := h.Auth.ListPending(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, accounts, "", map[string]int{"count": len(accounts)})
}

// ApproveRequest returns the issued reset token alongside the email outcome so
// an admin can complete onboarding when delivery fails.
func (h *Handler) ApproveRequest(c *gin.Context) {
	res, err := h.Auth.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	msg := "User approved and welcome email sent"
	if res.Delivery != nil && !res.Delivery.Sent {
		msg = "User approved but the welcome email could not be sent"
	}
	response.Success(c, http.StatusOK, approvalView{
		User:           res.Account,
		ResetToken:     res.ResetToken,
		Profile:        res.Profile,
		ProfileCreated: res.ProfileCreated,
	}, msg, metaFor(res.Delivery))
}

func (h *Handler) RejectRequest(c *gin.Context) {
	if err := h.Auth.Reject(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "User request rejected and removed", nil)
}

func (h *Handler) ListUsers(c *gin.Context) {
	accounts, err := h.Auth.ListAccounts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, accounts, "", map[string]int{"count": len(accounts)})
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req services.AdminAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	res, err := h.Auth.CreateAccount(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, approvalView{
		User:           res.Account,
		ResetToken:     res.ResetToken,
		Profile:        res.Profile,
		ProfileCreated: res.ProfileCreated,
	}, "User created successfully", metaFor(res.Delivery))
}

func (h *Handler) GetUser(c *gin.Context) {
	acc, err := h.Auth.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, acc, "", nil)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var req services.AccountUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	acc, err := h.Auth.UpdateAccount(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, acc, "User updated successfully", nil)
}
