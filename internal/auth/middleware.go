package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lcsmdq/MyPlan/internal/models"
	"github.com/lcsmdq/MyPlan/internal/web"
	"go.uber.org/zap"
)

// UserFinder resolves the subject of a verified token.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RequireAuth verifies the bearer token and loads the caller into the context.
func RequireAuth(tokens *TokenService, users UserFinder, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			web.JSONError(c, http.StatusUnauthorized, "Missing Authorization header")
			c.Abort()
			return
		}

		// Expect: "Bearer token"
		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			web.JSONError(c, http.StatusUnauthorized, "Invalid token format")
			c.Abort()
			return
		}

		userID, err := tokens.Verify(strings.TrimSpace(tokenString))
		if err != nil {
			web.JSONError(c, http.StatusUnauthorized, "Invalid token")
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				web.JSONError(c, http.StatusUnauthorized, "Invalid token")
			} else {
				web.Error(c, logger, err)
			}
			c.Abort()
			return
		}

		web.SetCurrentUser(c, user)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles. It must run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := web.CurrentUser(c)
		if !ok {
			web.JSONError(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		if !slices.Contains(roles, user.Role) {
			web.JSONError(c, http.StatusForbidden, "insufficient role")
			c.Abort()
			return
		}
		c.Next()
	}
}
