package marks

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lcsmdq/MyPlan/internal/models"
	"github.com/lcsmdq/MyPlan/internal/testutil"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type LedgerSuite struct {
	suite.Suite
	db       *gorm.DB
	ledger   *Ledger
	fixtures *testutil.Fixtures
	user     models.User
	event    models.Event
	clock    time.Time
}

func (s *LedgerSuite) SetupTest() {
	db := testutil.SetupTestDB(s.T())
	s.db = db
	s.clock = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	s.ledger = NewLedger(LedgerArgs{DB: db}, WithNowFunc(func() time.Time {
		s.clock = s.clock.Add(time.Second)
		return s.clock
	}))
	s.fixtures = testutil.NewFixtures(s.T(), db)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	s.user = s.fixtures.CreateUser(ctx, "alice", models.RoleUser)
	organizer := s.fixtures.CreateUser(ctx, "olga", models.RoleOrganizer)
	s.event = s.fixtures.CreateEvent(ctx, "Concert", organizer, time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC), nil)
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) TestToggleTwiceReturnsToAbsent() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := s.ledger.Toggle(ctx, s.user.ID, s.event.ID, models.MarkLike)
	s.Require().NoError(err)
	s.Equal(Created, first.Outcome)
	s.Require().NotNil(first.Mark)
	s.Equal(models.MarkLike, first.Mark.Kind)

	stats, err := s.ledger.Stats(ctx, s.event.ID)
	s.Require().NoError(err)
	s.EqualValues(1, stats.TotalLikes)

	second, err := s.ledger.Toggle(ctx, s.user.ID, s.event.ID, models.MarkLike)
	s.Require().NoError(err)
	s.Equal(Removed, second.Outcome)
	s.Nil(second.Mark)

	stats, err = s.ledger.Stats(ctx, s.event.ID)
	s.Require().NoError(err)
	s.EqualValues(0, stats.TotalLikes)
	s.EqualValues(0, stats.Total)

	mine, err := s.ledger.ListMine(ctx, s.user.ID, nil, nil)
	s.Require().NoError(err)
	s.Empty(mine)
}

func (s *LedgerSuite) TestKindsAreIndependent() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := s.ledger.Toggle(ctx, s.user.ID, s.event.ID, models.MarkAssist)
	s.Require().NoError(err)
	_, err = s.ledger.Toggle(ctx, s.user.ID, s.event.ID, models.MarkLike)
	s.Require().NoError(err)

	bob := s.fixtures.CreateUser(ctx, "bob", models.RoleUser)
	_, err = s.ledger.Toggle(ctx, bob.ID, s.event.ID, models.MarkAssist)
	s.Require().NoError(err)

	stats, err := s.ledger.Stats(ctx, s.event.ID)
	s.Require().NoError(err)
	s.Equal(EventStats{EventID: s.event.ID, TotalAssists: 2, TotalLikes: 1, Total: 3}, stats)
}

func (s *LedgerSuite) TestToggleUnknownEvent() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := s.ledger.Toggle(ctx, s.user.ID, uuid.New(), models.MarkAssist)
	s.ErrorIs(err, models.ErrNotFound)

	_, err = s.ledger.Stats(ctx, uuid.New())
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *LedgerSuite) TestToggleInvalidKind() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := s.ledger.Toggle(ctx, s.user.ID, s.event.ID, models.MarkKind("love"))
	s.True(models.IsValidation(err))
}

func (s *LedgerSuite) TestListMineFilters() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	organizer := s.fixtures.CreateUser(ctx, "oscar", models.RoleOrganizer)
	other := s.fixtures.CreateEvent(ctx, "Fair", organizer, time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC), nil)

	_, err := s.ledger.Toggle(ctx, s.user.ID, s.event.ID, models.MarkAssist)
	s.Require().NoError(err)
	_, err = s.ledger.Toggle(ctx, s.user.ID, s.event.ID, models.MarkLike)
	s.Require().NoError(err)
	_, err = s.ledger.Toggle(ctx, s.user.ID, other.ID, models.MarkLike)
	s.Require().NoError(err)

	all, err := s.ledger.ListMine(ctx, s.user.ID, nil, nil)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(other.ID, all[0].EventID, "newest first")

	forEvent, err := s.ledger.ListMine(ctx, s.user.ID, &s.event.ID, nil)
	s.Require().NoError(err)
	s.Len(forEvent, 2)

	like := models.MarkLike
	likes, err := s.ledger.ListMine(ctx, s.user.ID, nil, &like)
	s.Require().NoError(err)
	s.Len(likes, 2)

	one, err := s.ledger.ListMine(ctx, s.user.ID, &s.event.ID, &like)
	s.Require().NoError(err)
	s.Require().Len(one, 1)
	s.Equal(models.MarkLike, one[0].Kind)
}

func (s *LedgerSuite) TestToggleLosingInsertRaceConflicts() {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// A competing toggle inserts the same mark right after the locked lookup.
	fired := false
	err := s.db.Callback().Query().After("gorm:query").Register("test:competing_mark", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "marks" || tx.RowsAffected != 0 {
			return
		}
		fired = true
		_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"INSERT INTO marks (id, user_id, event_id, kind, created_at) VALUES (?, ?, ?, ?, ?)",
			uuid.NewString(), s.user.ID.String(), s.event.ID.String(), string(models.MarkAssist), time.Now().UTC())
		s.Require().NoError(err)
	})
	s.Require().NoError(err)

	_, err = s.ledger.Toggle(ctx, s.user.ID, s.event.ID, models.MarkAssist)
	s.Require().True(fired)
	s.True(errors.Is(err, models.ErrConflict), "unexpected error: %v", err)

	var n int64
	s.Require().NoError(s.db.Model(&models.Mark{}).
		Where("user_id = ? AND event_id = ? AND kind = ?", s.user.ID, s.event.ID, models.MarkAssist).
		Count(&n).Error)
	s.LessOrEqual(n, int64(1))
}
