// Package favorites keeps one row per (user, category) for all time and
// moves it between the Active and Deleted states.
package favorites

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

// State is the logical state of a (user, category) pair.
type State int

const (
	StateAbsent State = iota
	StateActive
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDeleted:
		return "deleted"
	default:
		return "absent"
	}
}

// Entry is the result of resolving a (user, category) pair.
// Favorite is nil when State is StateAbsent.
type Entry struct {
	State    State
	Favorite *models.Favorite
}

// Outcome tells callers whether Create inserted or revived a row.
type Outcome int

const (
	Created Outcome = iota + 1
	Reactivated
)

// CreateResult is returned by Create.
type CreateResult struct {
	Outcome  Outcome
	Favorite *models.Favorite
}

// Ledger owns the favorite lifecycle.
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

// WithNowFunc sets the clock used for deleted_at. Useful for testing.
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

func (l *Ledger) now() time.Time {
	return l.nowFunc().UTC()
}

// lookup resolves the pair with a row lock held for the rest of tx.
func lookup(tx *gorm.DB, userID uuid.UUID, categoryID int) (Entry, error) {
	var fav models.Favorite
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND category_id = ?", userID, categoryID).
		Take(&fav).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{State: StateAbsent}, nil
	}
	if err != nil {
		return Entry{}, err
	}
	if fav.Active() {
		return Entry{State: StateActive, Favorite: &fav}, nil
	}
	return Entry{State: StateDeleted, Favorite: &fav}, nil
}

// Lookup returns the current state of the pair.
func (l *Ledger) Lookup(ctx context.Context, userID uuid.UUID, categoryID int) (Entry, error) {
	return lookup(l.db.WithContext(ctx), userID, categoryID)
}

// Create marks the category as favorite. A deleted row is revived in place,
// keeping its id and created_at. An active row yields models.ErrConflict.
func (l *Ledger) Create(ctx context.Context, userID uuid.UUID, categoryID int) (CreateResult, error) {
	var res CreateResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := lookup(tx, userID, categoryID)
		if err != nil {
			return err
		}

		switch entry.State {
		case StateActive:
			return fmt.Errorf("favorite category %d: %w", categoryID, models.ErrConflict)

		case StateDeleted:
			fav := entry.Favorite
			if err := tx.Model(fav).Update("deleted_at", nil).Error; err != nil {
				return err
			}
			fav.DeletedAt = nil
			res = CreateResult{Outcome: Reactivated, Favorite: fav}
			return nil

		default:
			fav := &models.Favorite{
				UserID:     userID,
				CategoryID: categoryID,
				CreatedAt:  l.now(),
			}
			if err := tx.Create(fav).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("favorite category %d: %w", categoryID, models.ErrConflict)
				}
				return err
			}
			res = CreateResult{Outcome: Created, Favorite: fav}
			return nil
		}
	})
	if err != nil {
		return CreateResult{}, err
	}
	return res, nil
}

// Delete soft-deletes an active favorite. It reports false when there was
// nothing active to delete.
func (l *Ledger) Delete(ctx context.Context, userID uuid.UUID, categoryID int) (bool, error) {
	deleted := false
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := lookup(tx, userID, categoryID)
		if err != nil {
			return err
		}
		if entry.State != StateActive {
			return nil
		}
		if err := tx.Model(entry.Favorite).Update("deleted_at", l.now()).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// Restore revives a deleted favorite. It returns nil when the pair is not in
// the deleted state.
func (l *Ledger) Restore(ctx context.Context, userID uuid.UUID, categoryID int) (*models.Favorite, error) {
	var restored *models.Favorite
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := lookup(tx, userID, categoryID)
		if err != nil {
			return err
		}
		if entry.State != StateDeleted {
			return nil
		}
		if err := tx.Model(entry.Favorite).Update("deleted_at", nil).Error; err != nil {
			return err
		}
		entry.Favorite.DeletedAt = nil
		restored = entry.Favorite
		return nil
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// IsFavorite reports whether the pair is active.
func (l *Ledger) IsFavorite(ctx context.Context, userID uuid.UUID, categoryID int) (bool, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND category_id = ? AND deleted_at IS NULL", userID, categoryID).
		Count(&n).Error
	return n > 0, err
}

func (l *Ledger) scope(ctx context.Context, userID uuid.UUID, includeDeleted bool) *gorm.DB {
	q := l.db.WithContext(ctx).Model(&models.Favorite{}).Where("user_id = ?", userID)
	if !includeDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	return q
}

// List returns the user's favorites, newest first. Deleted rows are only
// included when includeDeleted is set.
func (l *Ledger) List(ctx context.Context, userID uuid.UUID, includeDeleted bool) ([]models.Favorite, error) {
	favs := []models.Favorite{}
	err := l.scope(ctx, userID, includeDeleted).
		Order("created_at DESC").Order("id").
		Find(&favs).Error
	return favs, err
}

// Count returns the size of the set List would return.
func (l *Ledger) Count(ctx context.Context, userID uuid.UUID, includeDeleted bool) (int64, error) {
	var n int64
	err := l.scope(ctx, userID, includeDeleted).Count(&n).Error
	return n, err
}

// IDs returns the category ids of the user's active favorites.
func (l *Ledger) IDs(ctx context.Context, userID uuid.UUID) ([]int, error) {
	ids := []int{}
	err := l.scope(ctx, userID, false).Order("category_id").Pluck("category_id", &ids).Error
	return ids, err
}

// History returns every favorite the user ever had, deleted or not.
func (l *Ledger) History(ctx context.Context, userID uuid.UUID) ([]models.Favorite, error) {
	return l.List(ctx, userID, true)
}
