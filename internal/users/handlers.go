package users

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lcsmdq/MyPlan/internal/web"
	"go.uber.org/zap"
)

// Handler serves the /users endpoints.
type Handler struct {
	store  *Store
	logger *zap.Logger
}

// NewHandler creates a new users Handler.
func NewHandler(store *Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Me returns the authenticated user.
func (h *Handler) Me(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe applies a whitelisted patch to the authenticated user.
func (h *Handler) UpdateMe(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		web.BindError(c, err)
		return
	}

	patch, err := ParseProfilePatch(body)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}

	updated, err := h.store.UpdateProfile(c.Request.Context(), user, patch)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteMe removes the authenticated user's account.
func (h *Handler) DeleteMe(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.store.Delete(c.Request.Context(), user.ID); err != nil {
		web.Error(c, h.logger, err)
		return
	}
	h.logger.Info("account deleted", zap.String("user_id", user.ID.String()))
	c.Status(http.StatusNoContent)
}

// Profile returns another user's public profile.
func (h *Handler) Profile(c *gin.Context) {
	id, err := web.UUIDParam(c, "id")
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}

	user, err := h.store.FindByID(c.Request.Context(), id)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}
