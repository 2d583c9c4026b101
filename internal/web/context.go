package web

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lcsmdq/MyPlan/internal/models"
)

const currentUserKey = "current_user"

// SetCurrentUser attaches the authenticated user to the request context.
func SetCurrentUser(c *gin.Context, u *models.User) {
	c.Set(currentUserKey, u)
}

// CurrentUser returns the user set by the auth middleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(currentUserKey)
	if !exists {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok && u != nil
}

// UUIDParam parses the named path parameter as a UUID.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, models.NewValidationError("invalid %s", name)
	}
	return id, nil
}

// IntParam parses the named path parameter as an integer that fits a
// postgres integer column.
func IntParam(c *gin.Context, name string) (int, error) {
	n, err := strconv.ParseInt(c.Param(name), 10, 32)
	if err != nil {
		return 0, models.NewValidationError("invalid %s", name)
	}
	return int(n), nil
}
