package users

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/lcsmdq/MyPlan/internal/models"
	"github.com/lcsmdq/MyPlan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type StoreSuite struct {
	suite.Suite
	store    *Store
	fixtures *testutil.Fixtures
}

func (s *StoreSuite) SetupTest() {
	db := testutil.SetupTestDB(s.T())
	s.store = New(db, WithHashCost(bcrypt.MinCost))
	s.fixtures = testutil.NewFixtures(s.T(), db)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) TestRegister() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := s.store.Register(ctx, "  Alice@Example.com ", "alice", "secret123")
	s.Require().NoError(err)
	s.Equal("alice@example.com", u.Email)
	s.Equal(models.RoleUser, u.Role)
	s.NotEqual("secret123", u.HashedPassword)
	s.True(VerifyCredential("secret123", u.HashedPassword))

	_, err = s.store.Register(ctx, "alice@example.com", "other", "secret123")
	s.True(models.IsValidation(err), "duplicate email: %v", err)

	_, err = s.store.Register(ctx, "bob@example.com", "alice", "secret123")
	s.True(models.IsValidation(err), "duplicate username: %v", err)
}

func (s *StoreSuite) TestAuthenticate() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := s.store.Register(ctx, "alice@example.com", "alice", "secret123")
	s.Require().NoError(err)

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    error
	}{
		{name: "by email", identifier: "alice@example.com", password: "secret123"},
		{name: "by email mixed case", identifier: "ALICE@example.com", password: "secret123"},
		{name: "by username", identifier: "alice", password: "secret123"},
		{name: "wrong password", identifier: "alice", password: "nope", wantErr: models.ErrUnauthorized},
		{name: "unknown user", identifier: "ghost", password: "secret123", wantErr: models.ErrUnauthorized},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			u, err := s.store.Authenticate(ctx, tt.identifier, tt.password)
			if tt.wantErr != nil {
				s.ErrorIs(err, tt.wantErr)
				s.Nil(u)
				return
			}
			s.Require().NoError(err)
			s.Equal("alice", u.Username)
		})
	}
}

func (s *StoreSuite) TestChangePassword() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := s.fixtures.CreateUser(ctx, "alice", models.RoleUser)

	err := s.store.ChangePassword(ctx, u.ID, "wrong", "newsecret")
	s.True(models.IsValidation(err))

	s.Require().NoError(s.store.ChangePassword(ctx, u.ID, testutil.FixturePassword, "newsecret"))

	_, err = s.store.Authenticate(ctx, "alice", testutil.FixturePassword)
	s.ErrorIs(err, models.ErrUnauthorized)
	_, err = s.store.Authenticate(ctx, "alice", "newsecret")
	s.NoError(err)
}

func (s *StoreSuite) TestUpdateProfile() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := s.fixtures.CreateUser(ctx, "alice", models.RoleUser)

	patch, err := ParseProfilePatch(map[string]json.RawMessage{
		"bio":             json.RawMessage(`"hello"`),
		"role":            json.RawMessage(`"organizer"`),
		"creator_type":    json.RawMessage(`"comercio"`),
		"email":           json.RawMessage(`"evil@example.com"`),
		"hashed_password": json.RawMessage(`"x"`),
	})
	s.Require().NoError(err)

	updated, err := s.store.UpdateProfile(ctx, &u, patch)
	s.Require().NoError(err)
	s.Equal(models.RoleOrganizer, updated.Role)
	s.Require().NotNil(updated.CreatorType)
	s.Equal(models.CreatorComercio, *updated.CreatorType)
	s.Require().NotNil(updated.Bio)
	s.Equal("hello", *updated.Bio)
	s.Equal("alice@example.com", updated.Email)
	s.Equal(u.HashedPassword, updated.HashedPassword)

	// Leaving the organizer role clears the creator type.
	patch, err = ParseProfilePatch(map[string]json.RawMessage{"role": json.RawMessage(`"user"`)})
	s.Require().NoError(err)
	updated, err = s.store.UpdateProfile(ctx, updated, patch)
	s.Require().NoError(err)
	s.Equal(models.RoleUser, updated.Role)
	s.Nil(updated.CreatorType)
}

func (s *StoreSuite) TestUpdateProfileRejects() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := s.fixtures.CreateUser(ctx, "alice", models.RoleUser)

	tests := []struct {
		name    string
		body    map[string]json.RawMessage
		wantErr func(error) bool
	}{
		{
			name:    "unknown role",
			body:    map[string]json.RawMessage{"role": json.RawMessage(`"superuser"`)},
			wantErr: models.IsValidation,
		},
		{
			name:    "creator type without organizer",
			body:    map[string]json.RawMessage{"creator_type": json.RawMessage(`"planner"`)},
			wantErr: models.IsValidation,
		},
		{
			name:    "unknown creator type",
			body:    map[string]json.RawMessage{"role": json.RawMessage(`"organizer"`), "creator_type": json.RawMessage(`"artist"`)},
			wantErr: models.IsValidation,
		},
		{
			name:    "self promotion to admin",
			body:    map[string]json.RawMessage{"role": json.RawMessage(`"admin"`)},
			wantErr: func(err error) bool { return errors.Is(err, models.ErrForbidden) },
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			patch, err := ParseProfilePatch(tt.body)
			s.Require().NoError(err)
			_, err = s.store.UpdateProfile(ctx, &u, patch)
			s.True(tt.wantErr(err), "unexpected error: %v", err)
		})
	}

	stored, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(models.RoleUser, stored.Role)
}

func (s *StoreSuite) TestDelete() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := s.fixtures.CreateUser(ctx, "alice", models.RoleUser)

	s.Require().NoError(s.store.Delete(ctx, u.ID))
	_, err := s.store.FindByID(ctx, u.ID)
	s.ErrorIs(err, models.ErrNotFound)

	s.ErrorIs(s.store.Delete(ctx, u.ID), models.ErrNotFound)
}

func TestParseProfilePatch(t *testing.T) {
	p, err := ParseProfilePatch(map[string]json.RawMessage{
		"bio":             json.RawMessage(`null`),
		"profile_picture": json.RawMessage(`"https://example.com/a.png"`),
		"username":        json.RawMessage(`"ignored"`),
	})
	require.NoError(t, err)

	assert.True(t, p.Bio.Set)
	assert.Nil(t, p.Bio.Value)
	assert.True(t, p.ProfilePicture.Set)
	require.NotNil(t, p.ProfilePicture.Value)
	assert.Equal(t, "https://example.com/a.png", *p.ProfilePicture.Value)
	assert.False(t, p.Role.Set)

	_, err = ParseProfilePatch(map[string]json.RawMessage{"bio": json.RawMessage(`42`)})
	assert.True(t, models.IsValidation(err))
}

func TestVerifyCredential(t *testing.T) {
	hash, err := HashPassword("secret", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, VerifyCredential("secret", hash))
	assert.False(t, VerifyCredential("Secret", hash))
	assert.False(t, VerifyCredential("secret", "not-a-hash"))
}
