package marks

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lcsmdq/MyPlan/internal/models"
	"github.com/lcsmdq/MyPlan/internal/web"
	"go.uber.org/zap"
)

// Handler serves the mark endpoints.
type Handler struct {
	ledger *Ledger
	logger *zap.Logger
}

// NewHandler creates a new marks Handler.
func NewHandler(ledger *Ledger, logger *zap.Logger) *Handler {
	return &Handler{ledger: ledger, logger: logger}
}

// Toggle returns a handler toggling marks of the given kind on /events/:id.
func (h *Handler) Toggle(kind models.MarkKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := web.CurrentUser(c)
		if !ok {
			web.JSONError(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		eventID, err := web.UUIDParam(c, "id")
		if err != nil {
			web.Error(c, h.logger, err)
			return
		}

		res, err := h.ledger.Toggle(c.Request.Context(), user.ID, eventID, kind)
		if err != nil {
			web.Error(c, h.logger, err)
			return
		}

		if res.Outcome == Removed {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, res.Mark)
	}
}

func (h *Handler) Stats(c *gin.Context) {
	eventID, err := web.UUIDParam(c, "id")
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}

	stats, err := h.ledger.Stats(c.Request.Context(), eventID)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type myMarksQuery struct {
	EventID string `form:"event_id"`
	Kind    string `form:"kind" binding:"omitempty,oneof=assist like"`
}

func (h *Handler) MyMarks(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var q myMarksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		web.BindError(c, err)
		return
	}

	var eventID *uuid.UUID
	if q.EventID != "" {
		id, err := uuid.Parse(q.EventID)
		if err != nil {
			web.JSONError(c, http.StatusBadRequest, "invalid event_id")
			return
		}
		eventID = &id
	}
	var kind *models.MarkKind
	if q.Kind != "" {
		k := models.MarkKind(q.Kind)
		kind = &k
	}

	marks, err := h.ledger.ListMine(c.Request.Context(), user.ID, eventID, kind)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, marks)
}
