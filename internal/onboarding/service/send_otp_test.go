package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"konto/internal/documents"
	"konto/internal/duplicate"
	"konto/internal/events"
	"konto/internal/onboarding/models"
	"konto/internal/onboarding/service/mocks"
	"konto/internal/onboarding/store"
	dErrors "konto/pkg/domain-errors"
	"konto/pkg/requestcontext"
)

// TestSendOtpDestinationResolution verifies that the delivery destination is
// taken from the aggregate's own contact data, never from the caller.
func TestSendOtpDestinationResolution(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockOtp := mocks.NewMockOtpService(ctrl)
	mockAuditor := mocks.NewMockAuditor(ctrl)
	mockAuditor.EXPECT().Record(gomock.Any(), gomock.Any()).AnyTimes()

	st := store.NewInMemoryStore()
	svc := New(st, mockOtp, documents.NewInMemoryBlobStore(), duplicate.NewInMemoryChecker(),
		events.NewInMemoryPublisher(), mockAuditor, slog.New(slog.DiscardHandler), nil)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	app, err := models.NewApplication(models.PersonalData{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "+4915112345678",
		Address:   models.Address{Country: "DE"},
	}, now)
	require.NoError(t, err)
	require.NoError(t, st.Create(ctx, app))

	mockOtp.EXPECT().
		Issue(gomock.Any(), app.ID, models.ChannelEmail, "ada@example.com").
		Return(nil, nil)
	require.NoError(t, svc.SendOtp(ctx, app.ID, models.ChannelEmail))

	mockOtp.EXPECT().
		Issue(gomock.Any(), app.ID, models.ChannelSMS, "+4915112345678").
		Return(nil, nil)
	require.NoError(t, svc.SendOtp(ctx, app.ID, models.ChannelSMS))
}

// TestSendOtpTerminalStatus verifies no code is issued once the workflow is
// finished.
func TestSendOtpTerminalStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockOtp := mocks.NewMockOtpService(ctrl) // no Issue expected
	mockAuditor := mocks.NewMockAuditor(ctrl)
	mockAuditor.EXPECT().Record(gomock.Any(), gomock.Any()).AnyTimes()

	st := store.NewInMemoryStore()
	svc := New(st, mockOtp, documents.NewInMemoryBlobStore(), duplicate.NewInMemoryChecker(),
		events.NewInMemoryPublisher(), mockAuditor, slog.New(slog.DiscardHandler), nil)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	app, err := models.NewApplication(models.PersonalData{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "+4915112345678",
		Address:   models.Address{Country: "DE"},
	}, now)
	require.NoError(t, err)
	require.NoError(t, st.Create(ctx, app))

	// Drive straight to REJECTED through the store to get a terminal status.
	loaded, err := st.FindByID(ctx, app.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.MarkChannelVerified(models.ChannelEmail, now))
	require.NoError(t, loaded.AddDocument(models.Document{Type: models.DocumentTypePassport, StorageRef: "mem://p"}, now))
	require.NoError(t, loaded.AddDocument(models.Document{Type: models.DocumentTypePhoto, StorageRef: "mem://f"}, now))
	for _, ct := range []models.ConsentType{models.ConsentTypeDataProcessing, models.ConsentTypeTerms} {
		_, err := loaded.GrantConsent(ct, "", "I agree", "v1", now)
		require.NoError(t, err)
	}
	require.NoError(t, loaded.Submit(now))
	require.NoError(t, loaded.AssignTo("officer-1", now))
	require.NoError(t, loaded.Reject("failed identity check", now))
	require.NoError(t, st.Save(ctx, loaded))

	err = svc.SendOtp(ctx, app.ID, models.ChannelEmail)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
