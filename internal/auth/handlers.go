package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lcsmdq/MyPlan/internal/models"
	"github.com/lcsmdq/MyPlan/internal/web"
	"go.uber.org/zap"
)

// AccountStore is the identity store behind the auth endpoints.
type AccountStore interface {
	Register(ctx context.Context, email, username, password string) (*models.User, error)
	Authenticate(ctx context.Context, identifier, password string) (*models.User, error)
	ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) error
}

// Handler serves the /auth endpoints.
type Handler struct {
	accounts AccountStore
	tokens   *TokenService
	logger   *zap.Logger
}

// NewHandler creates a new auth Handler.
func NewHandler(accounts AccountStore, tokens *TokenService, logger *zap.Logger) *Handler {
	return &Handler{accounts: accounts, tokens: tokens, logger: logger}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

// TokenResponse is returned by register and login.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   int64        `json:"expires_at"`
	User        *models.User `json:"user"`
}

func (h *Handler) Register(c *gin.Context) {
	var body RegisterRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		web.BindError(c, err)
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), body.Email, body.Username, body.Password)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	h.logger.Info("user registered", zap.String("user_id", user.ID.String()))

	h.respondWithToken(c, http.StatusCreated, user)
}

func (h *Handler) Login(c *gin.Context) {
	var body LoginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		web.BindError(c, err)
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), body.Identifier, body.Password)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body ChangePasswordRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		web.BindError(c, err)
		return
	}

	if err := h.accounts.ChangePassword(c.Request.Context(), user.ID, body.OldPassword, body.NewPassword); err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func (h *Handler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, expiresAt, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		web.JSONError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(status, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt.Unix(),
		User:        user,
	})
}
