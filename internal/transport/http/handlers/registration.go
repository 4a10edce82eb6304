package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/accounts-service/internal/core/domain"
	"github.com/arklim/accounts-service/internal/usecase"
)

// RegistrationHandler exposes endpoints for account creation and email confirmation.
type RegistrationHandler struct {
	identity *usecase.IdentityService
}

func NewRegistrationHandler(identity *usecase.IdentityService) *RegistrationHandler {
	return &RegistrationHandler{identity: identity}
}

// RegisterRoutes binds registration endpoints.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register", h.Register)
	r.POST("/confirm", h.Confirm)
	r.GET("/confirm", h.ConfirmByQuery)
	r.POST("/confirm/resend", h.Resend)
}

// Register creates a pending account and sends the confirmation mail.
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	user, err := h.identity.Register(c.Request.Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrValidation, Status: http.StatusBadRequest, Message: "registration data is invalid"},
			{Err: domain.ErrConflict, Status: http.StatusConflict, Message: "email already registered"},
		}, http.StatusInternalServerError, "failed to register account")
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		Message: "confirmation mail sent",
		User:    newUserSummary(user),
	})
}

// Confirm consumes the confirmation token from the request body.
func (h *RegistrationHandler) Confirm(c *gin.Context) {
	var req ConfirmEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid confirmation payload"))
		return
	}

	h.confirm(c, req.Token)
}

// ConfirmByQuery consumes the confirmation token from the mailed link.
func (h *RegistrationHandler) ConfirmByQuery(c *gin.Context) {
	h.confirm(c, c.Query("token"))
}

func (h *RegistrationHandler) confirm(c *gin.Context, token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "confirmation token is required"))
		return
	}

	user, err := h.identity.ConfirmEmail(c.Request.Context(), token)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrNotFound, Status: http.StatusNotFound, Message: "confirmation token not found"},
			{Err: domain.ErrValidation, Status: http.StatusBadRequest, Message: "confirmation token is required"},
			{Err: domain.ErrInvalidToken, Status: http.StatusBadRequest, Message: "confirmation token is invalid or expired"},
			{Err: domain.ErrInvalidState, Status: http.StatusBadRequest, Message: "confirmation token is invalid or expired"},
		}, http.StatusInternalServerError, "failed to confirm email")
		return
	}

	c.JSON(http.StatusOK, RegisterResponse{
		Message: "email confirmed",
		User:    newUserSummary(user),
	})
}

// Resend issues a fresh confirmation token and mails it. Unknown emails get
// the same response as known ones so the endpoint cannot be used to probe
// which addresses are registered.
func (h *RegistrationHandler) Resend(c *gin.Context) {
	var req ResendConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid resend payload"))
		return
	}

	err := h.identity.ResendConfirmation(c.Request.Context(), req.Email)
	switch {
	case err == nil, isNotFound(err):
		c.JSON(http.StatusOK, MessageResponse{Message: "if the account exists, a confirmation mail has been sent"})
	default:
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrValidation, Status: http.StatusBadRequest, Message: "email is invalid"},
			{Err: domain.ErrInvalidState, Status: http.StatusConflict, Message: "account is already confirmed"},
		}, http.StatusInternalServerError, "failed to resend confirmation")
	}
}
