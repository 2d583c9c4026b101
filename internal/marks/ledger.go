// Package marks implements the assist/like toggle on events.
package marks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lcsmdq/MyPlan/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Outcome is the result of a toggle. Removal is a success, not an error.
type Outcome int

const (
	Created Outcome = iota + 1
	Removed
)

// ToggleResult carries the new mark when Outcome is Created.
type ToggleResult struct {
	Outcome Outcome
	Mark    *models.Mark
}

// EventStats aggregates the marks of an event.
type EventStats struct {
	EventID      uuid.UUID `json:"event_id"`
	TotalAssists int64     `json:"total_assists"`
	TotalLikes   int64     `json:"total_likes"`
	Total        int64     `json:"total"`
}

// Ledger owns the marks table.
type Ledger struct {
	db      *gorm.DB
	nowFunc func() time.Time
}

// LedgerArgs are the required arguments for creating a Ledger.
type LedgerArgs struct {
	DB *gorm.DB
}

// LedgerOptArgs are the optional arguments for creating a Ledger.
type LedgerOptArgs = func(*Ledger)

// WithNowFunc sets the clock used for created_at. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) LedgerOptArgs {
	return func(l *Ledger) {
		l.nowFunc = nowFunc
	}
}

// NewLedger creates a new Ledger.
func NewLedger(args LedgerArgs, optArgs ...LedgerOptArgs) *Ledger {
	l := &Ledger{
		db:      args.DB,
		nowFunc: time.Now,
	}
	for _, opt := range optArgs {
		opt(l)
	}
	return l
}

func ensureEvent(tx *gorm.DB, eventID uuid.UUID) error {
	var n int64
	if err := tx.Model(&models.EventView{}).Where("id = ?", eventID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", eventID, models.ErrNotFound)
	}
	return nil
}

// Toggle flips the (user, event, kind) mark: an existing mark is removed,
// a missing one is created.
func (l *Ledger) Toggle(ctx context.Context, userID, eventID uuid.UUID, kind models.MarkKind) (ToggleResult, error) {
	if !kind.Valid() {
		return ToggleResult{}, models.NewValidationError("invalid mark kind %q", kind)
	}

	var res ToggleResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureEvent(tx, eventID); err != nil {
			return err
		}

		var existing models.Mark
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND event_id = ? AND kind = ?", userID, eventID, kind).
			Take(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			res = ToggleResult{Outcome: Removed}
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			mark := &models.Mark{
				UserID:    userID,
				EventID:   eventID,
				Kind:      kind,
				CreatedAt: l.nowFunc().UTC(),
			}
			if err := tx.Create(mark).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("%s mark on event %s: %w", kind, eventID, models.ErrConflict)
				}
				return err
			}
			res = ToggleResult{Outcome: Created, Mark: mark}
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return ToggleResult{}, err
	}
	return res, nil
}

// Stats counts the marks of an event by kind.
func (l *Ledger) Stats(ctx context.Context, eventID uuid.UUID) (EventStats, error) {
	db := l.db.WithContext(ctx)
	if err := ensureEvent(db, eventID); err != nil {
		return EventStats{}, err
	}

	var rows []struct {
		Kind  models.MarkKind
		Total int64
	}
	err := db.Model(&models.Mark{}).
		Select("kind, COUNT(*) AS total").
		Where("event_id = ?", eventID).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return EventStats{}, err
	}

	stats := EventStats{EventID: eventID}
	for _, r := range rows {
		switch r.Kind {
		case models.MarkAssist:
			stats.TotalAssists = r.Total
		case models.MarkLike:
			stats.TotalLikes = r.Total
		}
	}
	stats.Total = stats.TotalAssists + stats.TotalLikes
	return stats, nil
}

// ListMine returns the user's marks, newest first, optionally narrowed to
// one event and/or one kind.
func (l *Ledger) ListMine(ctx context.Context, userID uuid.UUID, eventID *uuid.UUID, kind *models.MarkKind) ([]models.Mark, error) {
	q := l.db.WithContext(ctx).Where("user_id = ?", userID)
	if eventID != nil {
		q = q.Where("event_id = ?", *eventID)
	}
	if kind != nil {
		if !kind.Valid() {
			return nil, models.NewValidationError("invalid mark kind %q", *kind)
		}
		q = q.Where("kind = ?", *kind)
	}

	marks := []models.Mark{}
	if err := q.Order("created_at DESC").Order("id").Find(&marks).Error; err != nil {
		return nil, err
	}
	return marks, nil
}
