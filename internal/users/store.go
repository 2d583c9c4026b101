package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lcsmdq/MyPlan/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the identity store: persisted users and credential checks.
type Store struct {
	db   *gorm.DB
	cost int
}

// StoreOptArgs are the optional arguments for building a Store.
type StoreOptArgs = func(*Store)

// WithHashCost overrides the bcrypt cost. Useful for testing.
func WithHashCost(cost int) StoreOptArgs {
	return func(s *Store) {
		s.cost = cost
	}
}

// New creates a new Store.
func New(db *gorm.DB, optArgs ...StoreOptArgs) *Store {
	s := &Store{db: db, cost: bcrypt.DefaultCost}
	for _, opt := range optArgs {
		opt(s)
	}
	return s
}

// FindByID returns the user with the given id or models.ErrNotFound.
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

// FindByEmailOrUsername looks a user up by either unique handle.
func (s *Store) FindByEmailOrUsername(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	var u models.User
	err := s.db.WithContext(ctx).
		Where("email = ? OR username = ?", strings.ToLower(identifier), identifier).
		Take(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %q: %w", identifier, models.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

// Register creates a user with role "user". Emails are stored lower-cased.
func (s *Store) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:          email,
		Username:       username,
		HashedPassword: hash,
		Role:           models.RoleUser,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return models.NewValidationError("email already registered")
		}
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return models.NewValidationError("username already taken")
		}

		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return models.NewValidationError("email or username already registered")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate returns the user matching identifier (email or username) when
// password verifies; otherwise models.ErrUnauthorized.
func (s *Store) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	user, err := s.FindByEmailOrUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized)
		}
		return nil, err
	}
	if !VerifyCredential(password, user.HashedPassword) {
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized)
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *Store) ChangePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
			}
			return err
		}
		if !VerifyCredential(oldPassword, u.HashedPassword) {
			return models.NewValidationError("current password is incorrect")
		}

		hash, err := HashPassword(newPassword, s.cost)
		if err != nil {
			return err
		}
		return tx.Model(&u).Update("hashed_password", hash).Error
	})
}

// UpdateProfile applies a whitelisted patch to the caller's own record.
// Only an admin may grant the admin role.
func (s *Store) UpdateProfile(ctx context.Context, caller *models.User, patch ProfilePatch) (*models.User, error) {
	var updated models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", caller.ID).Take(&updated).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %s: %w", caller.ID, models.ErrNotFound)
			}
			return err
		}

		updates, err := patch.updates(&updated)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&models.User{}).Where("id = ?", updated.ID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", updated.ID).Take(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the user together with their marks, favorites and the
// events they created (and the marks on those events).
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ownEvents := tx.Model(&models.Event{}).Select("id").Where("created_by = ?", id)

		if err := tx.Where("user_id = ? OR event_id IN (?)", id, ownEvents).Delete(&models.Mark{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("created_by = ?", id).Delete(&models.Event{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}
		return nil
	})
}
