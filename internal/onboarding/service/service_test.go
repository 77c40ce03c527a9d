package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"konto/internal/documents"
	"konto/internal/duplicate"
	"konto/internal/events"
	"konto/internal/notification"
	"konto/internal/onboarding/models"
	"konto/internal/onboarding/store"
	"konto/internal/otp"
	dErrors "konto/pkg/domain-errors"
	"konto/pkg/platform/audit"
	"konto/pkg/platform/sentinel"
	"konto/pkg/requestcontext"
)

// codeSender hands delivered codes back to the test.
type codeSender struct {
	mu    sync.Mutex
	codes map[string]string // applicationID/channel -> code
	ready chan struct{}
}

func newCodeSender() *codeSender {
	return &codeSender{codes: make(map[string]string), ready: make(chan struct{}, 16)}
}

func (s *codeSender) SendCode(_ context.Context, channel models.Channel, destination string, code string) error {
	s.mu.Lock()
	s.codes[destination+"/"+channel.String()] = code
	s.mu.Unlock()
	s.ready <- struct{}{}
	return nil
}

func (s *codeSender) wait(t *testing.T, destination string, channel models.Channel) string {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		s.mu.Lock()
		code, ok := s.codes[destination+"/"+channel.String()]
		s.mu.Unlock()
		if ok {
			return code
		}
		select {
		case <-s.ready:
		case <-deadline:
			t.Fatalf("no code delivered to %s via %s", destination, channel)
		}
	}
}

// recordingAuditor captures audit events synchronously.
type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *recordingAuditor) Record(_ context.Context, event audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *recordingAuditor) find(action audit.AuditEvent, outcome string) []audit.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []audit.Event
	for _, e := range a.events {
		if e.Action == action && e.Outcome == outcome {
			out = append(out, e)
		}
	}
	return out
}

type OnboardingServiceSuite struct {
	suite.Suite
	store     *store.InMemoryStore
	sender    *codeSender
	blobs     *documents.InMemoryBlobStore
	dups      *duplicate.InMemoryChecker
	publisher *events.InMemoryPublisher
	auditor   *recordingAuditor
	service   *Service
	ctx       context.Context
	now       time.Time
}

func (s *OnboardingServiceSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	s.store = store.NewInMemoryStore()
	s.sender = newCodeSender()
	s.blobs = documents.NewInMemoryBlobStore()
	s.dups = duplicate.NewInMemoryChecker()
	s.publisher = events.NewInMemoryPublisher()
	s.auditor = &recordingAuditor{}
	otpService := otp.NewService(otp.NewInMemoryStore(), s.sender, nil, logger, nil)
	s.service = New(s.store, otpService, s.blobs, s.dups, s.publisher, s.auditor, logger, nil)
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func TestOnboardingServiceSuite(t *testing.T) {
	suite.Run(t, new(OnboardingServiceSuite))
}

func (s *OnboardingServiceSuite) personalData(email, phone, ssn string) models.PersonalData {
	return models.PersonalData{
		FirstName:            "Ada",
		LastName:             "Lovelace",
		Email:                email,
		Phone:                phone,
		Nationality:          "DE",
		Address:              models.Address{Street: "Unter den Linden", HouseNumber: "1", PostalCode: "10117", City: "Berlin", Country: "DE"},
		SocialSecurityNumber: ssn,
	}
}

func (s *OnboardingServiceSuite) create() *models.Application {
	app, err := s.service.CreateApplication(s.ctx, s.personalData("ada@example.com", "+4915112345678", "12 345678 L 901"))
	s.Require().NoError(err)
	return app
}

// driveToSubmitted walks an application through OTP, documents, and consents.
func (s *OnboardingServiceSuite) driveToSubmitted(id string) {
	s.Require().NoError(s.service.SendOtp(s.ctx, id, models.ChannelEmail))
	code := s.sender.wait(s.T(), "ada@example.com", models.ChannelEmail)
	_, err := s.service.VerifyOtp(s.ctx, id, models.ChannelEmail, code)
	s.Require().NoError(err)

	_, err = s.service.UploadDocument(s.ctx, id, models.DocumentTypePassport, "passport.jpg", "image/jpeg", []byte("passport-bytes"))
	s.Require().NoError(err)
	_, err = s.service.UploadDocument(s.ctx, id, models.DocumentTypePhoto, "photo.jpg", "image/jpeg", []byte("photo-bytes"))
	s.Require().NoError(err)

	for _, ct := range []models.ConsentType{models.ConsentTypeDataProcessing, models.ConsentTypeTerms} {
		_, err = s.service.GrantConsent(s.ctx, id, ct, "I agree", "v1")
		s.Require().NoError(err)
	}
	_, err = s.service.Submit(s.ctx, id)
	s.Require().NoError(err)
}

func (s *OnboardingServiceSuite) TestCreateApplication() {
	s.Run("creates and audits", func() {
		app := s.create()
		s.Equal(models.StatusInitiated, app.Status)
		s.Len(s.auditor.find(audit.EventApplicationCreated, "success"), 1)

		published := s.publisher.Events()
		s.Require().Len(published, 1)
		s.Equal("onboarding.application_created", published[0].EventName())
	})

	s.Run("duplicate applicant conflicts", func() {
		s.dups.Register("98 765432 X 109", "grace@example.com", "+4915198765432")
		_, err := s.service.CreateApplication(s.ctx, s.personalData("grace@example.com", "+4915100000000", "11 111111 A 111"))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *OnboardingServiceSuite) TestOtpFlow() {
	s.Run("verify marks the channel on the aggregate", func() {
		app := s.create()
		s.Require().NoError(s.service.SendOtp(s.ctx, app.ID, models.ChannelEmail))
		code := s.sender.wait(s.T(), "ada@example.com", models.ChannelEmail)

		updated, err := s.service.VerifyOtp(s.ctx, app.ID, models.ChannelEmail, code)
		s.Require().NoError(err)
		s.True(updated.EmailVerified)
		s.Equal(models.StatusOtpVerified, updated.Status)
	})

	s.Run("wrong code is audited as failure", func() {
		app := s.create()
		s.Require().NoError(s.service.SendOtp(s.ctx, app.ID, models.ChannelSMS))
		code := s.sender.wait(s.T(), "+4915112345678", models.ChannelSMS)
		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		_, err := s.service.VerifyOtp(s.ctx, app.ID, models.ChannelSMS, wrong)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.NotEmpty(s.auditor.find(audit.EventOtpVerifyFailed, "failure"))

		loaded, err := s.service.GetApplication(s.ctx, app.ID)
		s.Require().NoError(err)
		s.False(loaded.PhoneVerified)
	})

	s.Run("unknown application", func() {
		err := s.service.SendOtp(s.ctx, "missing", models.ChannelEmail)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *OnboardingServiceSuite) TestUploadDocument() {
	s.Run("failed transition cleans up the blob", func() {
		app := s.create() // still INITIATED, upload not allowed yet

		_, err := s.service.UploadDocument(s.ctx, app.ID, models.DocumentTypePassport, "passport.jpg", "image/jpeg", []byte("bytes"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		loaded, loadErr := s.service.GetApplication(s.ctx, app.ID)
		s.Require().NoError(loadErr)
		s.Empty(loaded.Documents)
	})

	s.Run("empty content is rejected", func() {
		app := s.create()
		_, err := s.service.UploadDocument(s.ctx, app.ID, models.DocumentTypePassport, "passport.jpg", "image/jpeg", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *OnboardingServiceSuite) TestReviewWorkflow() {
	app := s.create()
	s.driveToSubmitted(app.ID)

	updated, err := s.service.Assign(s.ctx, app.ID, "officer-1")
	s.Require().NoError(err)
	s.Equal(models.StatusUnderReview, updated.Status)

	updated, err = s.service.RequestAdditionalInfo(s.ctx, app.ID, "officer-1", "passport is blurry")
	s.Require().NoError(err)
	s.Equal(models.StatusRequiresMoreInfo, updated.Status)

	updated, err = s.service.ProvideAdditionalInfo(s.ctx, app.ID, "re-uploaded in higher resolution")
	s.Require().NoError(err)
	s.Equal(models.StatusUnderReview, updated.Status)

	updated, err = s.service.VerifyDocuments(s.ctx, app.ID, "officer-1")
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, updated.Status)

	updated, err = s.service.Approve(s.ctx, app.ID, "officer-1", "cust-1", "DE02120300000000202051")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, updated.Status)

	names := make([]string, 0)
	for _, e := range s.publisher.Events() {
		names = append(names, e.EventName())
	}
	s.Equal([]string{
		"onboarding.application_created",
		"onboarding.otp_verified",
		"onboarding.document_uploaded",
		"onboarding.document_uploaded",
		"onboarding.application_submitted",
		"onboarding.application_assigned",
		"onboarding.additional_info_requested",
		"onboarding.additional_info_provided",
		"onboarding.application_verified",
		"onboarding.application_approved",
	}, names)
}

func (s *OnboardingServiceSuite) TestConcurrentModification() {
	app := s.create()
	conflicting := New(&conflictStore{Store: s.store}, nil, s.blobs, s.dups, s.publisher, s.auditor, slog.New(slog.DiscardHandler), nil)

	_, err := conflicting.GrantConsent(s.ctx, app.ID, models.ConsentTypeTerms, "I agree", "v1")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

// conflictStore fails every save with a version conflict.
type conflictStore struct {
	store.Store
}

func (s *conflictStore) Save(context.Context, *models.Application) error {
	return sentinel.ErrConflict
}

func (s *OnboardingServiceSuite) TestPublishFailureDoesNotFailOperation() {
	logger := slog.New(slog.DiscardHandler)
	otpService := otp.NewService(otp.NewInMemoryStore(), s.sender, nil, logger, nil)
	svc := New(s.store, otpService, s.blobs, s.dups, failingPublisher{}, s.auditor, logger, nil)

	app, err := svc.CreateApplication(s.ctx, s.personalData("grace@example.com", "+4915198765432", "98 765432 X 109"))
	s.Require().NoError(err)

	_, err = svc.GrantConsent(s.ctx, app.ID, models.ConsentTypeTerms, "I agree", "v1")
	s.NoError(err)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, []models.DomainEvent) error {
	return dErrors.New(dErrors.CodeInternal, "broker unavailable")
}

func (s *OnboardingServiceSuite) rejectApplication(id string) {
	s.driveToSubmitted(id)
	_, err := s.service.Assign(s.ctx, id, "officer-1")
	s.Require().NoError(err)
	_, err = s.service.Reject(s.ctx, id, "officer-1", "failed identity check")
	s.Require().NoError(err)
}

func (s *OnboardingServiceSuite) TestDeletionSweep() {
	app := s.create()
	s.rejectApplication(app.ID)
	_, err := s.service.RequestDeletion(s.ctx, app.ID, "applicant")
	s.Require().NoError(err)

	s.Run("nothing due before retention elapses", func() {
		processed, err := s.service.ProcessDueDeletions(s.ctx)
		s.Require().NoError(err)
		s.Zero(processed)
	})

	s.Run("due application is anonymized and blobs removed", func() {
		later := requestcontext.WithTime(context.Background(), s.now.Add(models.RetentionPeriod+time.Hour))
		processed, err := s.service.ProcessDueDeletions(later)
		s.Require().NoError(err)
		s.Equal(1, processed)

		loaded, err := s.service.GetApplication(s.ctx, app.ID)
		s.Require().NoError(err)
		s.True(loaded.Anonymized)
		s.Equal("ANONYMIZED", loaded.Personal.FirstName)
		for _, doc := range loaded.Documents {
			s.ErrorIs(s.blobs.Delete(context.Background(), doc.StorageRef), sentinel.ErrNotFound)
		}
		s.Len(s.auditor.find(audit.EventApplicationAnonymized, "success"), 1)
	})

	s.Run("sweep is idempotent", func() {
		later := requestcontext.WithTime(context.Background(), s.now.Add(models.RetentionPeriod+2*time.Hour))
		processed, err := s.service.ProcessDueDeletions(later)
		s.Require().NoError(err)
		s.Zero(processed)
	})
}

var _ notification.Sender = (*codeSender)(nil)
