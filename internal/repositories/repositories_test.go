package repositories

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"journal-backend/internal/models"
	"journal-backend/test/helpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type RepositoriesTestSuite struct {
	suite.Suite
	db    *gorm.DB
	repos *Repositories
	owner *models.User
	ctx   context.Context
	now   time.Time
}

func (s *RepositoriesTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = helpers.NewTestDB(s.T())
	s.repos = NewRepositories(s.db)
	s.owner = helpers.CreateUser(s.T(), s.db, models.RoleUser)
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *RepositoriesTestSuite) newToken(value string, expiresAt time.Time) *models.LinkToken {
	token := &models.LinkToken{
		Token:     value,
		OwnerID:   s.owner.ID,
		TargetApp: "iCopyTrade",
		IssuedAt:  s.now,
		ExpiresAt: expiresAt,
	}
	s.Require().NoError(s.repos.LinkToken.Create(s.ctx, token))
	return token
}

func (s *RepositoriesTestSuite) TestLinkToken_CreateRejectsIncomplete() {
	err := s.repos.LinkToken.Create(s.ctx, &models.LinkToken{OwnerID: s.owner.ID})
	s.ErrorIs(err, ErrInvalidLinkToken)

	err = s.repos.LinkToken.Create(s.ctx, &models.LinkToken{Token: "abc"})
	s.ErrorIs(err, ErrInvalidLinkToken)
}

func (s *RepositoriesTestSuite) TestLinkToken_GetByTokenMissing() {
	token, err := s.repos.LinkToken.GetByToken(s.ctx, "nope")
	s.NoError(err)
	s.Nil(token)
}

func (s *RepositoriesTestSuite) TestLinkToken_MarkUsedOnce() {
	s.newToken("tok-once", s.now.Add(15*time.Minute))

	won, err := s.repos.LinkToken.MarkUsed(s.ctx, "tok-once", s.now)
	s.Require().NoError(err)
	s.True(won)

	won, err = s.repos.LinkToken.MarkUsed(s.ctx, "tok-once", s.now.Add(time.Second))
	s.Require().NoError(err)
	s.False(won)

	stored, err := s.repos.LinkToken.GetByToken(s.ctx, "tok-once")
	s.Require().NoError(err)
	s.Require().NotNil(stored.UsedAt)
	s.True(stored.UsedAt.Equal(s.now))
}

func (s *RepositoriesTestSuite) TestLinkToken_MarkUsedExpiryBoundary() {
	expiresAt := s.now.Add(time.Minute)
	s.newToken("tok-edge", expiresAt)
	s.newToken("tok-late", expiresAt)

	won, err := s.repos.LinkToken.MarkUsed(s.ctx, "tok-late", expiresAt.Add(time.Second))
	s.Require().NoError(err)
	s.False(won)

	won, err = s.repos.LinkToken.MarkUsed(s.ctx, "tok-edge", expiresAt)
	s.Require().NoError(err)
	s.True(won)
}

func (s *RepositoriesTestSuite) TestLinkToken_MarkUsedConcurrent() {
	s.newToken("tok-race", s.now.Add(15*time.Minute))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := s.repos.LinkToken.MarkUsed(s.ctx, "tok-race", s.now)
			if err == nil && won {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins)
}

func (s *RepositoriesTestSuite) TestLinkToken_DeleteDead() {
	cutoff := s.now.Add(-24 * time.Hour)

	s.newToken("expired-old", cutoff.Add(-time.Hour))
	s.newToken("live", s.now.Add(time.Hour))
	used := s.newToken("used-old", s.now.Add(time.Hour))
	s.Require().NoError(s.db.Model(&models.LinkToken{}).
		Where("id = ?", used.ID).Update("used_at", cutoff.Add(-time.Minute)).Error)
	recent := s.newToken("used-recent", s.now.Add(time.Hour))
	s.Require().NoError(s.db.Model(&models.LinkToken{}).
		Where("id = ?", recent.ID).Update("used_at", s.now).Error)

	deleted, err := s.repos.LinkToken.DeleteDead(s.ctx, cutoff)
	s.Require().NoError(err)
	s.Equal(int64(2), deleted)
	helpers.AssertRecordCount(s.T(), s.db, "link_tokens", 2)
}

func (s *RepositoriesTestSuite) TestUser_GetByEmail() {
	found, err := s.repos.User.GetByEmail(s.ctx, s.owner.Email)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(s.owner.ID, found.ID)

	missing, err := s.repos.User.GetByEmail(s.ctx, "nobody@example.com")
	s.NoError(err)
	s.Nil(missing)
}

func (s *RepositoriesTestSuite) TestConnection_ListByOwner() {
	other := helpers.CreateUser(s.T(), s.db, models.RoleUser)
	helpers.CreateConnection(s.T(), s.db, s.owner.ID, nil)
	helpers.CreateConnection(s.T(), s.db, s.owner.ID, nil)
	helpers.CreateConnection(s.T(), s.db, other.ID, nil)

	conns, err := s.repos.Connection.ListByOwner(s.ctx, s.owner.ID)
	s.Require().NoError(err)
	s.Len(conns, 2)
	for _, c := range conns {
		s.Equal(s.owner.ID, c.OwnerID)
	}
}

func (s *RepositoriesTestSuite) TestSyncEvent_ListByConnectionNewestFirst() {
	conn := helpers.CreateConnection(s.T(), s.db, s.owner.ID, nil)
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.repos.SyncEvent.Create(s.ctx, &models.SyncEvent{
			EventID:      uuid.NewString(),
			ConnectionID: conn.ID,
			OwnerID:      s.owner.ID,
			Outcome:      "success",
			OccurredAt:   s.now.Add(time.Duration(i) * time.Minute),
		}))
	}

	events, err := s.repos.SyncEvent.ListByConnection(s.ctx, conn.ID, 2)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.True(events[0].OccurredAt.Equal(s.now.Add(2 * time.Minute)))
	s.True(events[1].OccurredAt.Equal(s.now.Add(time.Minute)))
}

func (s *RepositoriesTestSuite) TestEventProcessing_DeleteOldEvents() {
	appID := uuid.New()
	for i, at := range []time.Time{s.now.Add(-48 * time.Hour), s.now.Add(-time.Hour)} {
		s.Require().NoError(s.repos.EventProcessing.Create(s.ctx, &models.EventProcessing{
			EventID:     uuid.NewString(),
			EventType:   "copy.result",
			AppID:       &appID,
			ProcessedAt: at,
			Status:      models.EventStatusProcessed,
		}), "event %d", i)
	}

	deleted, err := s.repos.EventProcessing.DeleteOldEvents(s.ctx, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), deleted)
	helpers.AssertRecordCount(s.T(), s.db, "event_processing", 1)
}

func (s *RepositoriesTestSuite) TestTransaction_RollsBack() {
	boom := errors.New("boom")
	err := s.repos.Transaction(s.ctx, func(tx *Repositories) error {
		if err := tx.LinkToken.Create(s.ctx, &models.LinkToken{
			Token:     "tx-token",
			OwnerID:   s.owner.ID,
			TargetApp: "iCopyTrade",
			IssuedAt:  s.now,
			ExpiresAt: s.now.Add(time.Minute),
		}); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)
	helpers.AssertRecordCount(s.T(), s.db, "link_tokens", 0)
}

func TestRepositoriesTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoriesTestSuite))
}

func TestTransaction_WithoutDatabaseRunsInline(t *testing.T) {
	repos := &Repositories{}
	called := false
	err := repos.Transaction(context.Background(), func(tx *Repositories) error {
		called = true
		assert.Same(t, repos, tx)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
