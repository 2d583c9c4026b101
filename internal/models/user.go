package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles.
const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// Creator types, only meaningful for organizers.
const (
	CreatorComercio   = "comercio"
	CreatorPlanner    = "planner"
	CreatorFundraiser = "fundraiser"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// ValidCreatorType reports whether t is one of the known creator types.
func ValidCreatorType(t string) bool {
	switch t {
	case CreatorComercio, CreatorPlanner, CreatorFundraiser:
		return true
	}
	return false
}

// User represents a registered user
type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username       string    `json:"username" gorm:"uniqueIndex;not null"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	HashedPassword string    `json:"-" gorm:"not null"`
	Role           string    `json:"role" gorm:"type:varchar(16);not null;default:'user';check:chk_users_role,role IN ('user','organizer','admin')"`
	CreatorType    *string   `json:"creator_type" gorm:"type:varchar(16);check:chk_users_creator_type,creator_type IN ('comercio','planner','fundraiser') OR creator_type IS NULL"`
	ProfilePicture *string   `json:"profile_picture"`
	Bio            *string   `json:"bio"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null"`
}

// BeforeCreate assigns the primary key and default role.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// PublicProfile is what other users get to see.
type PublicProfile struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Role           string    `json:"role"`
	CreatorType    *string   `json:"creator_type"`
	ProfilePicture *string   `json:"profile_picture"`
	Bio            *string   `json:"bio"`
	CreatedAt      time.Time `json:"created_at"`
}

// Public strips private fields from the user.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:             u.ID,
		Username:       u.Username,
		Role:           u.Role,
		CreatorType:    u.CreatorType,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
		CreatedAt:      u.CreatedAt,
	}
}
