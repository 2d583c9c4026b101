package favorites

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lcsmdq/MyPlan/internal/models"
	"github.com/lcsmdq/MyPlan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type LedgerSuite struct {
	suite.Suite
	db     *gorm.DB
	ledger *Ledger
	user   models.User
	clock  time.Time
}

func (s *LedgerSuite) SetupTest() {
	db := testutil.SetupTestDB(s.T())
	s.db = db
	s.clock = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	s.ledger = NewLedger(LedgerArgs{DB: db}, WithNowFunc(func() time.Time {
		s.clock = s.clock.Add(time.Second)
		return s.clock
	}))

	ctx, cancel := testutil.TestContext()
	defer cancel()
	s.user = testutil.NewFixtures(s.T(), db).CreateUser(ctx, "alice", models.RoleUser)
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) TestCreateDeleteCreateKeepsID() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := s.ledger.Create(ctx, s.user.ID, 7)
	s.Require().NoError(err)
	s.Equal(Created, first.Outcome)

	deleted, err := s.ledger.Delete(ctx, s.user.ID, 7)
	s.Require().NoError(err)
	s.True(deleted)

	entry, err := s.ledger.Lookup(ctx, s.user.ID, 7)
	s.Require().NoError(err)
	s.Equal(StateDeleted, entry.State)
	s.Require().NotNil(entry.Favorite.DeletedAt)

	again, err := s.ledger.Create(ctx, s.user.ID, 7)
	s.Require().NoError(err)
	s.Equal(Reactivated, again.Outcome)
	s.Equal(first.Favorite.ID, again.Favorite.ID)
	s.True(first.Favorite.CreatedAt.Equal(again.Favorite.CreatedAt))
	s.Nil(again.Favorite.DeletedAt)

	history, err := s.ledger.History(ctx, s.user.ID)
	s.Require().NoError(err)
	s.Len(history, 1)
}

func (s *LedgerSuite) TestCreateOnActiveConflicts() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := s.ledger.Create(ctx, s.user.ID, 3)
	s.Require().NoError(err)

	_, err = s.ledger.Create(ctx, s.user.ID, 3)
	s.ErrorIs(err, models.ErrConflict)

	entry, err := s.ledger.Lookup(ctx, s.user.ID, 3)
	s.Require().NoError(err)
	s.Equal(StateActive, entry.State)
	s.Equal(first.Favorite.ID, entry.Favorite.ID)
	s.True(first.Favorite.CreatedAt.Equal(entry.Favorite.CreatedAt))
}

func (s *LedgerSuite) TestAbsentTransitions() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	deleted, err := s.ledger.Delete(ctx, s.user.ID, 99)
	s.Require().NoError(err)
	s.False(deleted)

	restored, err := s.ledger.Restore(ctx, s.user.ID, 99)
	s.Require().NoError(err)
	s.Nil(restored)

	is, err := s.ledger.IsFavorite(ctx, s.user.ID, 99)
	s.Require().NoError(err)
	s.False(is)

	entry, err := s.ledger.Lookup(ctx, s.user.ID, 99)
	s.Require().NoError(err)
	s.Equal(StateAbsent, entry.State)
	s.Nil(entry.Favorite)
}

func (s *LedgerSuite) TestDeleteTwice() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := s.ledger.Create(ctx, s.user.ID, 4)
	s.Require().NoError(err)

	deleted, err := s.ledger.Delete(ctx, s.user.ID, 4)
	s.Require().NoError(err)
	s.True(deleted)

	deleted, err = s.ledger.Delete(ctx, s.user.ID, 4)
	s.Require().NoError(err)
	s.False(deleted)
}

func (s *LedgerSuite) TestRestore() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := s.ledger.Create(ctx, s.user.ID, 5)
	s.Require().NoError(err)

	// Restoring an active favorite is a no-op.
	restored, err := s.ledger.Restore(ctx, s.user.ID, 5)
	s.Require().NoError(err)
	s.Nil(restored)

	_, err = s.ledger.Delete(ctx, s.user.ID, 5)
	s.Require().NoError(err)

	restored, err = s.ledger.Restore(ctx, s.user.ID, 5)
	s.Require().NoError(err)
	s.Require().NotNil(restored)
	s.Equal(created.Favorite.ID, restored.ID)
	s.Nil(restored.DeletedAt)

	is, err := s.ledger.IsFavorite(ctx, s.user.ID, 5)
	s.Require().NoError(err)
	s.True(is)
}

func (s *LedgerSuite) TestListAndCount() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, id := range []int{1, 2, 3} {
		_, err := s.ledger.Create(ctx, s.user.ID, id)
		s.Require().NoError(err)
	}
	_, err := s.ledger.Delete(ctx, s.user.ID, 2)
	s.Require().NoError(err)

	// Another user's favorites never leak in.
	_, err = s.ledger.Create(ctx, uuid.New(), 1)
	s.Require().NoError(err)

	active, err := s.ledger.List(ctx, s.user.ID, false)
	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal(3, active[0].CategoryID, "newest first")
	s.Equal(1, active[1].CategoryID)
	for _, f := range active {
		s.Nil(f.DeletedAt)
	}

	all, err := s.ledger.List(ctx, s.user.ID, true)
	s.Require().NoError(err)
	s.Len(all, 3)

	nActive, err := s.ledger.Count(ctx, s.user.ID, false)
	s.Require().NoError(err)
	nAll, err := s.ledger.Count(ctx, s.user.ID, true)
	s.Require().NoError(err)
	s.EqualValues(2, nActive)
	s.EqualValues(3, nAll)
	s.GreaterOrEqual(nAll, nActive)

	ids, err := s.ledger.IDs(ctx, s.user.ID)
	s.Require().NoError(err)
	s.Equal([]int{1, 3}, ids)
}

func (s *LedgerSuite) TestEmptyListIsNotNil() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	favs, err := s.ledger.List(ctx, s.user.ID, false)
	s.Require().NoError(err)
	s.NotNil(favs)
	s.Empty(favs)

	ids, err := s.ledger.IDs(ctx, s.user.ID)
	s.Require().NoError(err)
	s.NotNil(ids)
	s.Empty(ids)
}

// insertAfterLookup makes a competing writer insert the same favorite right
// after the ledger's locked lookup has seen no row.
func (s *LedgerSuite) insertAfterLookup(userID uuid.UUID, categoryID int) *bool {
	fired := false
	err := s.db.Callback().Query().After("gorm:query").Register("test:competing_favorite", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "favorites" || tx.RowsAffected != 0 {
			return
		}
		fired = true
		_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"INSERT INTO favorites (id, user_id, category_id, created_at) VALUES (?, ?, ?, ?)",
			uuid.NewString(), userID.String(), categoryID, time.Now().UTC())
		s.Require().NoError(err)
	})
	s.Require().NoError(err)
	return &fired
}

func (s *LedgerSuite) TestCreateLosingInsertRaceConflicts() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fired := s.insertAfterLookup(s.user.ID, 9)

	_, err := s.ledger.Create(ctx, s.user.ID, 9)
	s.Require().True(*fired)
	s.True(errors.Is(err, models.ErrConflict), "unexpected error: %v", err)

	var n int64
	s.Require().NoError(s.db.Model(&models.Favorite{}).
		Where("user_id = ? AND category_id = ?", s.user.ID, 9).Count(&n).Error)
	s.LessOrEqual(n, int64(1))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "absent", StateAbsent.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "deleted", StateDeleted.String())
}
