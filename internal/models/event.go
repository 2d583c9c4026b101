package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventStatusActive is the status assigned to new events.
const EventStatusActive = "active"

// Location is reference data joined into the event read view.
type Location struct {
	ID      int     `json:"id" gorm:"primaryKey"`
	Name    string  `json:"name" gorm:"not null"`
	Address *string `json:"address"`
}

// Event is the core event model. Writes go here; reads go through EventView.
type Event struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Title          string     `json:"title" gorm:"not null"`
	Description    *string    `json:"description"`
	LocationID     *int       `json:"location_id" gorm:"index"`
	StartTime      time.Time  `json:"start_time" gorm:"not null"`
	EndTime        time.Time  `json:"end_time" gorm:"not null;check:chk_events_time_range,end_time > start_time"`
	IsRecurring    bool       `json:"is_recurring" gorm:"not null;default:false"`
	RecurrenceRule *string    `json:"recurrence_rule"`
	Status         string     `json:"status" gorm:"not null;default:'active'"`
	CreatedBy      uuid.UUID  `json:"created_by" gorm:"type:uuid;not null;index"`
	CreatedAt      time.Time  `json:"created_at" gorm:"not null"`
	EditedAt       *time.Time `json:"edited_at"`
}

// BeforeCreate assigns the primary key and default status.
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = EventStatusActive
	}
	return nil
}

// EventView is the read-only events_with_location projection.
type EventView struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	LocationID     *int       `json:"location_id"`
	LocationName   *string    `json:"location_name"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        time.Time  `json:"end_time"`
	IsRecurring    bool       `json:"is_recurring"`
	RecurrenceRule *string    `json:"recurrence_rule"`
	Status         string     `json:"status"`
	CreatedBy      uuid.UUID  `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	EditedAt       *time.Time `json:"edited_at"`
}

// TableName points gorm at the view.
func (EventView) TableName() string { return "events_with_location" }
