package favorites

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lcsmdq/MyPlan/internal/web"
	"go.uber.org/zap"
)

// Handler serves the /favorites endpoints.
type Handler struct {
	ledger *Ledger
	logger *zap.Logger
}

// NewHandler creates a new favorites Handler.
func NewHandler(ledger *Ledger, logger *zap.Logger) *Handler {
	return &Handler{ledger: ledger, logger: logger}
}

type CreateRequest struct {
	CategoryID int `json:"category_id" binding:"required,gt=0,lte=2147483647"`
}

type listQuery struct {
	IncludeDeleted bool `form:"include_deleted"`
}

func (h *Handler) Create(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		web.BindError(c, err)
		return
	}

	res, err := h.ledger.Create(c.Request.Context(), user.ID, body.CategoryID)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	if res.Outcome == Reactivated {
		status = http.StatusOK
	}
	c.JSON(status, res.Favorite)
}

func (h *Handler) List(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		web.BindError(c, err)
		return
	}

	h.respondList(c, user.ID, q.IncludeDeleted)
}

func (h *Handler) History(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.respondList(c, user.ID, true)
}

// ListForUser is the admin view of another user's favorites.
func (h *Handler) ListForUser(c *gin.Context) {
	userID, err := web.UUIDParam(c, "user_id")
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		web.BindError(c, err)
		return
	}

	h.respondList(c, userID, q.IncludeDeleted)
}

func (h *Handler) respondList(c *gin.Context, userID uuid.UUID, includeDeleted bool) {
	favs, err := h.ledger.List(c.Request.Context(), userID, includeDeleted)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": favs})
}

func (h *Handler) IDs(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	ids, err := h.ledger.IDs(c.Request.Context(), user.ID)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category_ids": ids})
}

func (h *Handler) Check(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	categoryID, err := web.IntParam(c, "category_id")
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}

	is, err := h.ledger.IsFavorite(c.Request.Context(), user.ID, categoryID)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_favorite": is})
}

func (h *Handler) Delete(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	categoryID, err := web.IntParam(c, "category_id")
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}

	deleted, err := h.ledger.Delete(c.Request.Context(), user.ID, categoryID)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	if !deleted {
		web.JSONError(c, http.StatusNotFound, "favorite not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Restore(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	categoryID, err := web.IntParam(c, "category_id")
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}

	fav, err := h.ledger.Restore(c.Request.Context(), user.ID, categoryID)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	if fav == nil {
		web.JSONError(c, http.StatusNotFound, "no deleted favorite to restore")
		return
	}
	c.JSON(http.StatusOK, fav)
}

func (h *Handler) Count(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		web.BindError(c, err)
		return
	}

	n, err := h.ledger.Count(c.Request.Context(), user.ID, q.IncludeDeleted)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}
