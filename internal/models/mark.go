package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MarkKind distinguishes the two kinds of event marks.
type MarkKind string

const (
	MarkAssist MarkKind = "assist"
	MarkLike   MarkKind = "like"
)

// Valid reports whether k is a known mark kind.
func (k MarkKind) Valid() bool {
	return k == MarkAssist || k == MarkLike
}

// Mark records that a user assists or likes an event. Presence means marked.
type Mark struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:unique_user_event_kind,priority:1"`
	EventID   uuid.UUID `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:unique_user_event_kind,priority:2;index"`
	Kind      MarkKind  `json:"kind" gorm:"type:varchar(10);not null;uniqueIndex:unique_user_event_kind,priority:3;check:chk_marks_kind,kind IN ('assist','like')"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

// BeforeCreate assigns the primary key.
func (m *Mark) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
