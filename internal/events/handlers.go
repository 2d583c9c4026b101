package events

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lcsmdq/MyPlan/internal/models"
	"github.com/lcsmdq/MyPlan/internal/web"
	"go.uber.org/zap"
)

// Handler serves the /events endpoints.
type Handler struct {
	store  *Store
	logger *zap.Logger
}

// NewHandler creates a new events Handler.
func NewHandler(store *Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// parseTime accepts RFC3339, a zone-less timestamp (UTC) or YYYY-MM-DD.
func parseTime(field, value string) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), layout == "2006-01-02", nil
		}
	}
	return time.Time{}, false, models.NewValidationError("invalid %s format (use RFC3339 or YYYY-MM-DD)", field)
}

type CreateEventRequest struct {
	Title          string  `json:"title" binding:"required,max=200"`
	Description    *string `json:"description"`
	LocationID     *int    `json:"location_id" binding:"omitempty,gt=0,lte=2147483647"`
	StartTime      string  `json:"start_time" binding:"required"`
	EndTime        string  `json:"end_time" binding:"required"`
	IsRecurring    bool    `json:"is_recurring"`
	RecurrenceRule *string `json:"recurrence_rule"`
	Status         string  `json:"status"`
}

// UpdateEventRequest is a PATCH body. description, location_id and
// recurrence_rule accept null to clear them.
type UpdateEventRequest struct {
	Title          *string          `json:"title" binding:"omitempty,max=200"`
	Description    Optional[string] `json:"description"`
	LocationID     Optional[int]    `json:"location_id"`
	StartTime      *string          `json:"start_time"`
	EndTime        *string          `json:"end_time"`
	IsRecurring    *bool            `json:"is_recurring"`
	RecurrenceRule Optional[string] `json:"recurrence_rule"`
	Status         *string          `json:"status"`
}

type listEventsQuery struct {
	Status     string `form:"status"`
	LocationID *int   `form:"location_id" binding:"omitempty,gt=0,lte=2147483647"`
	CreatedBy  string `form:"created_by"`
	Q          string `form:"q"`
	From       string `form:"from"`
	To         string `form:"to"`
	Skip       int    `form:"skip" binding:"gte=0"`
	Limit      *int   `form:"limit" binding:"omitempty,gte=1,lte=100"`
}

func (h *Handler) Create(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body CreateEventRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		web.BindError(c, err)
		return
	}

	start, _, err := parseTime("start_time", body.StartTime)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	end, _, err := parseTime("end_time", body.EndTime)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}

	ev, err := h.store.Create(c.Request.Context(), user, CreateArgs{
		Title:          body.Title,
		Description:    body.Description,
		LocationID:     body.LocationID,
		StartTime:      start,
		EndTime:        end,
		IsRecurring:    body.IsRecurring,
		RecurrenceRule: body.RecurrenceRule,
		Status:         body.Status,
	})
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	h.logger.Info("event created",
		zap.String("event_id", ev.ID.String()),
		zap.String("created_by", user.ID.String()))

	c.JSON(http.StatusCreated, ev)
}

func (h *Handler) Update(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := web.UUIDParam(c, "id")
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}

	var body UpdateEventRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		web.BindError(c, err)
		return
	}
	if id := body.LocationID.Value; id != nil && (*id <= 0 || *id > math.MaxInt32) {
		web.JSONError(c, http.StatusBadRequest, "location_id must be between 1 and 2147483647")
		return
	}

	args := UpdateArgs{
		Title:          body.Title,
		Description:    body.Description,
		LocationID:     body.LocationID,
		IsRecurring:    body.IsRecurring,
		RecurrenceRule: body.RecurrenceRule,
		Status:         body.Status,
	}
	if body.StartTime != nil {
		start, _, err := parseTime("start_time", *body.StartTime)
		if err != nil {
			web.Error(c, h.logger, err)
			return
		}
		args.StartTime = &start
	}
	if body.EndTime != nil {
		end, _, err := parseTime("end_time", *body.EndTime)
		if err != nil {
			web.Error(c, h.logger, err)
			return
		}
		args.EndTime = &end
	}

	ev, err := h.store.Update(c.Request.Context(), user, id, args)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *Handler) Delete(c *gin.Context) {
	user, ok := web.CurrentUser(c)
	if !ok {
		web.JSONError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := web.UUIDParam(c, "id")
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}

	if err := h.store.Delete(c.Request.Context(), user, id); err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := web.UUIDParam(c, "id")
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}

	ev, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *Handler) List(c *gin.Context) {
	var req listEventsQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		web.BindError(c, err)
		return
	}

	q := ListQuery{
		Status:     strings.TrimSpace(req.Status),
		LocationID: req.LocationID,
		Q:          req.Q,
		Skip:       req.Skip,
		Limit:      DefaultLimit,
	}
	if req.Limit != nil {
		q.Limit = *req.Limit
	}
	if req.CreatedBy != "" {
		id, err := uuid.Parse(req.CreatedBy)
		if err != nil {
			web.JSONError(c, http.StatusBadRequest, "invalid created_by")
			return
		}
		q.CreatedBy = &id
	}
	if req.From != "" {
		from, _, err := parseTime("from", req.From)
		if err != nil {
			web.Error(c, h.logger, err)
			return
		}
		q.From = &from
	}
	if req.To != "" {
		to, dateOnly, err := parseTime("to", req.To)
		if err != nil {
			web.Error(c, h.logger, err)
			return
		}
		if dateOnly {
			// whole day: start_time < next midnight
			next := to.AddDate(0, 0, 1)
			q.Before = &next
		} else {
			q.To = &to
		}
	}

	events, err := h.store.List(c.Request.Context(), q)
	if err != nil {
		web.Error(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
