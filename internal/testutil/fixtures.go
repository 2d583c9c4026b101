package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/lcsmdq/MyPlan/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// FixturePassword is the plain password of every user created by Fixtures.
const FixturePassword = "password123"

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *gorm.DB
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// CreateUser inserts a user with the given username and role. The email is
// derived from the username and the password is FixturePassword.
func (f *Fixtures) CreateUser(ctx context.Context, username, role string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(FixturePassword), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash fixture password: %v", err)
	}

	u := models.User{
		Username:       username,
		Email:          username + "@example.com",
		HashedPassword: string(hash),
		Role:           role,
	}
	if role == models.RoleOrganizer {
		ct := models.CreatorPlanner
		u.CreatorType = &ct
	}
	if err := f.db.WithContext(ctx).Create(&u).Error; err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateLocation inserts a location.
func (f *Fixtures) CreateLocation(ctx context.Context, name string) models.Location {
	f.t.Helper()

	loc := models.Location{Name: name}
	if err := f.db.WithContext(ctx).Create(&loc).Error; err != nil {
		f.t.Fatalf("failed to create test location: %v", err)
	}
	return loc
}

// CreateEvent inserts an event owned by creator starting at start and lasting two hours.
func (f *Fixtures) CreateEvent(ctx context.Context, title string, creator models.User, start time.Time, locationID *int) models.Event {
	f.t.Helper()

	ev := models.Event{
		Title:      title,
		LocationID: locationID,
		StartTime:  start.UTC(),
		EndTime:    start.Add(2 * time.Hour).UTC(),
		CreatedBy:  creator.ID,
	}
	if err := f.db.WithContext(ctx).Create(&ev).Error; err != nil {
		f.t.Fatalf("failed to create test event: %v", err)
	}
	return ev
}
