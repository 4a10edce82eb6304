package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/accounts-service/internal/core/domain"
	"github.com/arklim/accounts-service/internal/transport/http/middleware"
	"github.com/arklim/accounts-service/internal/usecase"
)

// UserHandler exposes account read endpoints.
type UserHandler struct {
	identity *usecase.IdentityService
}

func NewUserHandler(identity *usecase.IdentityService) *UserHandler {
	return &UserHandler{identity: identity}
}

// Me returns the authenticated caller's account information.
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	info, err := h.identity.GetUserInfo(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to load account")
		return
	}

	c.JSON(http.StatusOK, newUserInfoSummary(info))
}

// Exists reports whether an email is registered. Requires authentication so
// the endpoint is not an open enumeration oracle.
func (h *UserHandler) Exists(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email query parameter is required"))
		return
	}

	exists, err := h.identity.UserExists(c.Request.Context(), email)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrValidation, Status: http.StatusBadRequest, Message: "email is invalid"},
		}, http.StatusInternalServerError, "failed to check account")
		return
	}

	c.JSON(http.StatusOK, UserExistsResponse{Exists: exists})
}
