package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/accounts-service/internal/core/domain"
	"github.com/arklim/accounts-service/internal/usecase"
)

// AuthHandler exposes the login endpoint.
type AuthHandler struct {
	identity *usecase.IdentityService
}

func NewAuthHandler(identity *usecase.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

// RegisterRoutes binds authentication endpoints.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/login", h.Login)
}

// Login verifies credentials and returns a signed access token. The error
// message is the same for every failure mode so responses do not reveal
// whether the email is registered or the account confirmed.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	session, err := h.identity.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "invalid email or password"},
		}, http.StatusInternalServerError, "failed to sign in")
		return
	}

	expiresIn := int(time.Until(session.ExpiresAt).Seconds())

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: session.Token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		UserID:      session.UserID,
		Name:        session.Name,
		Email:       session.Email,
	})
}
