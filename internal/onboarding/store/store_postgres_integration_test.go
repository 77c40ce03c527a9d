//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"konto/internal/onboarding/models"
	"konto/internal/onboarding/store"
	"konto/pkg/platform/sentinel"
	"konto/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "onboarding_applications"))
}

func (s *PostgresStoreSuite) newApplication() *models.Application {
	app, err := models.NewApplication(models.PersonalData{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "+4915112345678",
		Address:   models.Address{Street: "Unter den Linden", City: "Berlin", Country: "DE"},
	}, s.now)
	s.Require().NoError(err)
	return app
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	app := s.newApplication()
	s.Require().NoError(app.MarkChannelVerified(models.ChannelEmail, s.now))
	s.Require().NoError(app.AddDocument(models.Document{Type: models.DocumentTypePassport, StorageRef: "mem://p"}, s.now))
	_, err := app.GrantConsent(models.ConsentTypeTerms, "203.0.113.7", "I agree", "v1", s.now)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Create(ctx, app))
	s.Equal(int64(1), app.Version)

	found, err := s.store.FindByID(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDocumentsUploaded, found.Status)
	s.True(found.EmailVerified)
	s.Require().Len(found.Documents, 1)
	s.Equal("mem://p", found.Documents[0].StorageRef)
	s.Require().Len(found.Consents, 1)
	s.Equal("203.0.113.7", found.Consents[0].IPAddress)
	s.True(found.CreatedAt.Equal(s.now))
}

func (s *PostgresStoreSuite) TestNotFound() {
	ctx := context.Background()
	_, err := s.store.FindByID(ctx, "11111111-1111-1111-1111-111111111111")
	s.ErrorIs(err, sentinel.ErrNotFound)

	ghost := s.newApplication()
	s.ErrorIs(s.store.Save(ctx, ghost), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestVersionConflict() {
	ctx := context.Background()
	app := s.newApplication()
	s.Require().NoError(s.store.Create(ctx, app))

	first, err := s.store.FindByID(ctx, app.ID)
	s.Require().NoError(err)
	second, err := s.store.FindByID(ctx, app.ID)
	s.Require().NoError(err)

	s.Require().NoError(first.MarkChannelVerified(models.ChannelEmail, s.now))
	s.Require().NoError(s.store.Save(ctx, first))
	s.Equal(int64(2), first.Version)

	s.Require().NoError(second.MarkChannelVerified(models.ChannelSMS, s.now))
	s.ErrorIs(s.store.Save(ctx, second), sentinel.ErrConflict)

	// The losing write changed nothing.
	current, err := s.store.FindByID(ctx, app.ID)
	s.Require().NoError(err)
	s.True(current.EmailVerified)
	s.False(current.PhoneVerified)
}

// TestConcurrentSaves verifies that racing writers on the same version produce
// exactly one winner.
func (s *PostgresStoreSuite) TestConcurrentSaves() {
	ctx := context.Background()
	app := s.newApplication()
	s.Require().NoError(s.store.Create(ctx, app))

	const goroutines = 20
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loaded := *app
			loaded.Version = 1
			loaded.ReviewReason = "racer"
			switch err := s.store.Save(ctx, &loaded); {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestListDueForAnonymization() {
	ctx := context.Background()

	markRejected := func(app *models.Application, rejectedAt time.Time) {
		s.Require().NoError(app.MarkChannelVerified(models.ChannelEmail, rejectedAt))
		s.Require().NoError(app.AddDocument(models.Document{Type: models.DocumentTypePassport, StorageRef: "mem://p"}, rejectedAt))
		s.Require().NoError(app.AddDocument(models.Document{Type: models.DocumentTypePhoto, StorageRef: "mem://f"}, rejectedAt))
		for _, ct := range []models.ConsentType{models.ConsentTypeDataProcessing, models.ConsentTypeTerms} {
			_, err := app.GrantConsent(ct, "", "I agree", "v1", rejectedAt)
			s.Require().NoError(err)
		}
		s.Require().NoError(app.Submit(rejectedAt))
		s.Require().NoError(app.AssignTo("officer-1", rejectedAt))
		s.Require().NoError(app.Reject("failed identity check", rejectedAt))
		s.Require().NoError(app.MarkForDeletion(rejectedAt))
	}

	due := s.newApplication()
	markRejected(due, s.now.Add(-models.RetentionPeriod-time.Hour))
	s.Require().NoError(s.store.Create(ctx, due))

	notYet := s.newApplication()
	markRejected(notYet, s.now)
	s.Require().NoError(s.store.Create(ctx, notYet))

	ids, err := s.store.ListDueForAnonymization(ctx, s.now)
	s.Require().NoError(err)
	s.Equal([]string{due.ID}, ids)
}
