package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Favorite is a user's favorite category. There is exactly one row per
// (user, category) for all time; DeletedAt marks it as logically removed.
type Favorite struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:unique_user_category,priority:1"`
	CategoryID int        `json:"category_id" gorm:"not null;uniqueIndex:unique_user_category,priority:2"`
	CreatedAt  time.Time  `json:"created_at" gorm:"not null"`
	DeletedAt  *time.Time `json:"deleted_at"`
}

// BeforeCreate assigns the primary key.
func (f *Favorite) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Active reports whether the favorite is not soft-deleted.
func (f *Favorite) Active() bool { return f.DeletedAt == nil }
