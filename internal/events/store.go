// Package events stores events and serves them through the
// events_with_location read view.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lcsmdq/MyPlan/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// CreateArgs describes a new event. CreatedBy is always the caller.
type CreateArgs struct {
	Title          string
	Description    *string
	LocationID     *int
	StartTime      time.Time
	EndTime        time.Time
	IsRecurring    bool
	RecurrenceRule *string
	Status         string
}

// Optional is a field of a partial update that may also be cleared.
// Set reports presence; a nil Value means null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some sets the field to v.
func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: &v} }

// Null clears the field.
func Null[T any]() Optional[T] { return Optional[T]{Set: true} }

// UnmarshalJSON marks the field present; JSON null leaves Value nil.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// UpdateArgs is a partial update; nil pointers and unset Optionals are left
// untouched. The nullable columns can be cleared with Null.
type UpdateArgs struct {
	Title          *string
	Description    Optional[string]
	LocationID     Optional[int]
	StartTime      *time.Time
	EndTime        *time.Time
	IsRecurring    *bool
	RecurrenceRule Optional[string]
	Status         *string
}

// ListQuery filters and pages List.
type ListQuery struct {
	Status     string
	LocationID *int
	CreatedBy  *uuid.UUID
	Q          string
	From       *time.Time
	To         *time.Time // inclusive
	Before     *time.Time // exclusive
	Skip       int
	Limit      int
}

// Store is the event store.
type Store struct {
	db      *gorm.DB
	nowFunc func() time.Time
}

// StoreArgs are the required arguments for creating a Store.
type StoreArgs struct {
	DB *gorm.DB
}

// StoreOptArgs are the optional arguments for creating a Store.
type StoreOptArgs = func(*Store)

// WithNowFunc sets the clock used for created_at and edited_at. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) StoreOptArgs {
	return func(s *Store) {
		s.nowFunc = nowFunc
	}
}

// NewStore creates a new Store.
func NewStore(args StoreArgs, optArgs ...StoreOptArgs) *Store {
	s := &Store{
		db:      args.DB,
		nowFunc: time.Now,
	}
	for _, opt := range optArgs {
		opt(s)
	}
	return s
}

func (s *Store) now() time.Time {
	return s.nowFunc().UTC()
}

func validateWindow(start, end time.Time) error {
	if !end.After(start) {
		return models.NewValidationError("end_time must be after start_time")
	}
	return nil
}

func ensureLocation(tx *gorm.DB, locationID *int) error {
	if locationID == nil {
		return nil
	}
	var n int64
	if err := tx.Model(&models.Location{}).Where("id = ?", *locationID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return models.NewValidationError("location %d does not exist", *locationID)
	}
	return nil
}

func canManage(caller *models.User, ev *models.Event) bool {
	return caller.IsAdmin() || ev.CreatedBy == caller.ID
}

func getView(tx *gorm.DB, id uuid.UUID) (*models.EventView, error) {
	var view models.EventView
	if err := tx.Where("id = ?", id).Take(&view).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("event %s: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	return &view, nil
}

// Create stores a new event owned by caller, who must be an organizer.
func (s *Store) Create(ctx context.Context, caller *models.User, args CreateArgs) (*models.EventView, error) {
	if caller.Role != models.RoleOrganizer {
		return nil, fmt.Errorf("only organizers can create events: %w", models.ErrForbidden)
	}

	title := strings.TrimSpace(args.Title)
	if title == "" {
		return nil, models.NewValidationError("title is required")
	}
	start, end := args.StartTime.UTC(), args.EndTime.UTC()
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}

	var view *models.EventView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureLocation(tx, args.LocationID); err != nil {
			return err
		}

		ev := &models.Event{
			Title:          title,
			Description:    args.Description,
			LocationID:     args.LocationID,
			StartTime:      start,
			EndTime:        end,
			IsRecurring:    args.IsRecurring,
			RecurrenceRule: args.RecurrenceRule,
			Status:         strings.TrimSpace(args.Status),
			CreatedBy:      caller.ID,
			CreatedAt:      s.now(),
		}
		if err := tx.Create(ev).Error; err != nil {
			return err
		}

		var err error
		view, err = getView(tx, ev.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Update applies args to the event. Only the creator or an admin may update.
// The time window is re-validated against the stored values and nothing is
// written when it is invalid.
func (s *Store) Update(ctx context.Context, caller *models.User, id uuid.UUID, args UpdateArgs) (*models.EventView, error) {
	var view *models.EventView
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev models.Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&ev).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("event %s: %w", id, models.ErrNotFound)
			}
			return err
		}
		if !canManage(caller, &ev) {
			return fmt.Errorf("only the creator can update this event: %w", models.ErrForbidden)
		}

		updates := map[string]any{}
		if args.Title != nil {
			title := strings.TrimSpace(*args.Title)
			if title == "" {
				return models.NewValidationError("title cannot be empty")
			}
			updates["title"] = title
		}
		if args.Description.Set {
			updates["description"] = args.Description.Value
		}
		if args.LocationID.Set {
			if err := ensureLocation(tx, args.LocationID.Value); err != nil {
				return err
			}
			updates["location_id"] = args.LocationID.Value
		}
		if args.StartTime != nil || args.EndTime != nil {
			start, end := ev.StartTime, ev.EndTime
			if args.StartTime != nil {
				start = args.StartTime.UTC()
				updates["start_time"] = start
			}
			if args.EndTime != nil {
				end = args.EndTime.UTC()
				updates["end_time"] = end
			}
			if err := validateWindow(start, end); err != nil {
				return err
			}
		}
		if args.IsRecurring != nil {
			updates["is_recurring"] = *args.IsRecurring
		}
		if args.RecurrenceRule.Set {
			updates["recurrence_rule"] = args.RecurrenceRule.Value
		}
		if args.Status != nil {
			status := strings.TrimSpace(*args.Status)
			if status == "" {
				return models.NewValidationError("status cannot be empty")
			}
			updates["status"] = status
		}

		if len(updates) > 0 {
			updates["edited_at"] = s.now()
			if err := tx.Model(&models.Event{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}

		var err error
		view, err = getView(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Delete removes the event and its marks. Only the creator or an admin may delete.
func (s *Store) Delete(ctx context.Context, caller *models.User, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ev models.Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&ev).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("event %s: %w", id, models.ErrNotFound)
			}
			return err
		}
		if !canManage(caller, &ev) {
			return fmt.Errorf("only the creator can delete this event: %w", models.ErrForbidden)
		}

		if err := tx.Where("event_id = ?", id).Delete(&models.Mark{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Event{}).Error
	})
}

// Get returns the event from the read view.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.EventView, error) {
	return getView(s.db.WithContext(ctx), id)
}

// List returns events matching q ordered by start time.
func (s *Store) List(ctx context.Context, q ListQuery) ([]models.EventView, error) {
	query := s.db.WithContext(ctx).Model(&models.EventView{})

	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.LocationID != nil {
		query = query.Where("location_id = ?", *q.LocationID)
	}
	if q.CreatedBy != nil {
		query = query.Where("created_by = ?", *q.CreatedBy)
	}
	if keyword := strings.TrimSpace(q.Q); keyword != "" {
		kw := "%" + strings.ToLower(keyword) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?", kw, kw)
	}
	if q.From != nil {
		query = query.Where("start_time >= ?", q.From.UTC())
	}
	if q.To != nil {
		query = query.Where("start_time <= ?", q.To.UTC())
	}
	if q.Before != nil {
		query = query.Where("start_time < ?", q.Before.UTC())
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	skip := max(q.Skip, 0)

	events := []models.EventView{}
	err := query.Order("start_time ASC").Order("id").Offset(skip).Limit(limit).Find(&events).Error
	return events, err
}
