package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/accounts-service/internal/core/domain"
	"github.com/arklim/accounts-service/internal/transport/http/middleware"
	"github.com/arklim/accounts-service/internal/usecase"
)

// PasswordHandler exposes the authenticated password change endpoint.
type PasswordHandler struct {
	identity *usecase.IdentityService
}

func NewPasswordHandler(identity *usecase.IdentityService) *PasswordHandler {
	return &PasswordHandler{identity: identity}
}

// ChangePassword rotates the caller's password after verifying the current one.
func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password change payload"))
		return
	}

	err := h.identity.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
			{Err: domain.ErrValidation, Status: http.StatusBadRequest, Message: "new password does not meet requirements"},
			{Err: domain.ErrNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to change password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}
