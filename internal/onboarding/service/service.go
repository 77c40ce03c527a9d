// Package service is the lifecycle orchestrator. Every use case follows the
// same shape: load the aggregate, invoke exactly one mutation, save with the
// version check, then drain and publish the buffered events and write an
// audit record. Event publishing and audit are best-effort relative to the
// persisted transition; their failures are logged, never propagated.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks OtpService,Auditor

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"konto/internal/documents"
	"konto/internal/duplicate"
	"konto/internal/events"
	"konto/internal/onboarding/models"
	"konto/internal/onboarding/store"
	"konto/internal/otp"
	"konto/internal/platform/metrics"
	dErrors "konto/pkg/domain-errors"
	"konto/pkg/platform/audit"
	"konto/pkg/platform/sentinel"
	"konto/pkg/requestcontext"
)

// SystemActor marks operations performed by scheduled jobs rather than a
// person.
const SystemActor = "system"

// OtpService is the slice of the OTP subsystem the orchestrator consumes.
type OtpService interface {
	Issue(ctx context.Context, applicationID string, channel models.Channel, destination string) (*otp.Challenge, error)
	Verify(ctx context.Context, applicationID string, channel models.Channel, submittedCode string) error
}

// Auditor records audit events without ever failing the caller.
type Auditor interface {
	Record(ctx context.Context, event audit.Event)
}

type Service struct {
	store      store.Store
	otp        OtpService
	blobs      documents.BlobStore
	duplicates duplicate.Checker
	publisher  events.Publisher
	auditor    Auditor
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

func New(
	st store.Store,
	otpSvc OtpService,
	blobs documents.BlobStore,
	duplicates duplicate.Checker,
	publisher events.Publisher,
	auditor Auditor,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		store:      st,
		otp:        otpSvc,
		blobs:      blobs,
		duplicates: duplicates,
		publisher:  publisher,
		auditor:    auditor,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("konto/onboarding"),
	}
}

// CreateApplication runs the duplicate check and persists a fresh aggregate.
func (s *Service) CreateApplication(ctx context.Context, personal models.PersonalData) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.create_application")
	defer span.End()

	if err := s.duplicates.CheckDuplicates(ctx, personal.SocialSecurityNumber, personal.Email, personal.Phone); err != nil {
		return nil, err
	}
	app, err := models.NewApplication(personal, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist application")
	}
	s.publishDrained(ctx, app)
	s.audit(ctx, app.ID, audit.EventApplicationCreated, personal.Email, "success", "")
	if s.metrics != nil {
		s.metrics.IncrementApplicationsCreated()
	}
	return app, nil
}

// GetApplication loads the aggregate read-only.
func (s *Service) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLoadErr(err)
	}
	return app, nil
}

// SendOtp issues a fresh code for the channel, resolving the delivery
// destination from the aggregate's own contact data.
func (s *Service) SendOtp(ctx context.Context, id string, channel models.Channel) error {
	ctx, span := s.tracer.Start(ctx, "onboarding.send_otp",
		trace.WithAttributes(attribute.String("channel", channel.String())))
	defer span.End()

	app, err := s.store.FindByID(ctx, id)
	if err != nil {
		return s.translateLoadErr(err)
	}
	if app.Status.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot send code in status %s", app.Status)
	}
	destination := app.Personal.Email
	if channel == models.ChannelSMS {
		destination = app.Personal.Phone
	}
	if _, err := s.otp.Issue(ctx, id, channel, destination); err != nil {
		return err
	}
	s.audit(ctx, id, audit.EventOtpIssued, app.Personal.Email, "success", "channel="+channel.String())
	return nil
}

// VerifyOtp validates the submitted code and, on success, marks the channel
// verified on the aggregate. A correct code with an illegal aggregate state
// still burns the challenge: verification and lifecycle are separate ledgers.
func (s *Service) VerifyOtp(ctx context.Context, id string, channel models.Channel, code string) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.verify_otp",
		trace.WithAttributes(attribute.String("channel", channel.String())))
	defer span.End()

	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, s.translateLoadErr(err)
	}
	if err := s.otp.Verify(ctx, id, channel, code); err != nil {
		s.audit(ctx, id, audit.EventOtpVerifyFailed, "applicant", "failure", dErrors.Message(err))
		return nil, err
	}
	return s.execute(ctx, id, "verify_otp", "applicant", audit.EventOtpVerified,
		func(app *models.Application, now time.Time) error {
			return app.MarkChannelVerified(channel, now)
		})
}

// UploadDocument stores the bytes and attaches the metadata to the aggregate.
// The blob is deleted again when the aggregate rejects the attachment, so a
// failed transition leaves no orphaned content.
func (s *Service) UploadDocument(ctx context.Context, id string, docType models.DocumentType, filename, contentType string, content []byte) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.upload_document")
	defer span.End()

	if len(content) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "document content is empty")
	}
	ref, err := s.blobs.Store(ctx, content, filename, contentType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store document content")
	}
	doc := models.Document{
		Type:       docType,
		StorageRef: ref,
		MimeType:   contentType,
		FileSize:   int64(len(content)),
	}
	app, err := s.execute(ctx, id, "upload_document", "applicant", audit.EventDocumentUploaded,
		func(app *models.Application, now time.Time) error {
			return app.AddDocument(doc, now)
		})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, ref); delErr != nil {
			s.logger.Warn("failed to clean up rejected document blob", "ref", ref, "error", delErr)
		}
		return nil, err
	}
	return app, nil
}

// GrantConsent appends a consent record. IP is taken from request context
// when the transport captured one.
func (s *Service) GrantConsent(ctx context.Context, id string, consentType models.ConsentType, consentText, version string) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.grant_consent")
	defer span.End()

	ip := requestcontext.ClientIP(ctx)
	return s.execute(ctx, id, "grant_consent", "applicant", audit.EventConsentGranted,
		func(app *models.Application, now time.Time) error {
			_, err := app.GrantConsent(consentType, ip, consentText, version, now)
			return err
		})
}

// RevokeConsent revokes the active consent of the given type.
func (s *Service) RevokeConsent(ctx context.Context, id string, consentType models.ConsentType) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.revoke_consent")
	defer span.End()

	return s.execute(ctx, id, "revoke_consent", "applicant", audit.EventConsentRevoked,
		func(app *models.Application, now time.Time) error {
			return app.RevokeConsent(consentType, now)
		})
}

// Submit moves the application into the review queue.
func (s *Service) Submit(ctx context.Context, id string) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.submit")
	defer span.End()

	return s.execute(ctx, id, "submit", "applicant", audit.EventApplicationSubmitted,
		func(app *models.Application, now time.Time) error {
			return app.Submit(now)
		})
}

// Assign hands the application to a compliance officer.
func (s *Service) Assign(ctx context.Context, id, officer string) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.assign")
	defer span.End()

	return s.execute(ctx, id, "assign", officer, audit.EventApplicationAssigned,
		func(app *models.Application, now time.Time) error {
			return app.AssignTo(officer, now)
		})
}

// VerifyDocuments records a successful compliance check.
func (s *Service) VerifyDocuments(ctx context.Context, id, officer string) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.verify_documents")
	defer span.End()

	return s.execute(ctx, id, "verify_documents", officer, audit.EventApplicationVerified,
		func(app *models.Application, now time.Time) error {
			return app.VerifyDocuments(officer, now)
		})
}

// RequestAdditionalInfo sends the application back to the applicant.
func (s *Service) RequestAdditionalInfo(ctx context.Context, id, officer, reason string) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.request_additional_info")
	defer span.End()

	return s.execute(ctx, id, "request_additional_info", officer, audit.EventInfoRequested,
		func(app *models.Application, now time.Time) error {
			return app.RequestAdditionalInfo(reason, now)
		})
}

// ProvideAdditionalInfo returns the application to the review queue.
func (s *Service) ProvideAdditionalInfo(ctx context.Context, id, info string) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.provide_additional_info")
	defer span.End()

	return s.execute(ctx, id, "provide_additional_info", "applicant", audit.EventInfoProvided,
		func(app *models.Application, now time.Time) error {
			return app.ProvideAdditionalInfo(info, now)
		})
}

// Flag escalates the application to manual review.
func (s *Service) Flag(ctx context.Context, id, officer, reason string) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.flag")
	defer span.End()

	return s.execute(ctx, id, "flag", officer, audit.EventApplicationFlagged,
		func(app *models.Application, now time.Time) error {
			return app.FlagAsSuspicious(reason, now)
		})
}

// Approve finishes the workflow with account creation. Customer ID and
// account number come from the account-opening collaborator upstream.
func (s *Service) Approve(ctx context.Context, id, officer, customerID, accountNumber string) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.approve")
	defer span.End()

	return s.execute(ctx, id, "approve", officer, audit.EventApplicationApproved,
		func(app *models.Application, now time.Time) error {
			return app.Approve(customerID, accountNumber, officer, now)
		})
}

// Reject finishes the workflow negatively and starts the retention clock.
func (s *Service) Reject(ctx context.Context, id, officer, reason string) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.reject")
	defer span.End()

	return s.execute(ctx, id, "reject", officer, audit.EventApplicationRejected,
		func(app *models.Application, now time.Time) error {
			return app.Reject(reason, now)
		})
}

// RequestDeletion registers a GDPR erasure request.
func (s *Service) RequestDeletion(ctx context.Context, id, actor string) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.request_deletion")
	defer span.End()

	return s.execute(ctx, id, "request_deletion", actor, audit.EventDeletionRequested,
		func(app *models.Application, now time.Time) error {
			return app.MarkForDeletion(now)
		})
}

// ProcessDueDeletions anonymizes every application whose retention window has
// elapsed and deletes the stored document content. Returns how many were
// processed. Individual failures are logged and skipped so one stuck
// aggregate cannot block the sweep.
func (s *Service) ProcessDueDeletions(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.process_due_deletions")
	defer span.End()

	now := requestcontext.Now(ctx)
	due, err := s.store.ListDueForAnonymization(ctx, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications due for anonymization")
	}
	processed := 0
	for _, id := range due {
		app, err := s.store.FindByID(ctx, id)
		if err != nil {
			s.logger.Error("anonymization sweep: load failed", "application_id", id, "error", err)
			continue
		}
		refs := make([]string, 0, len(app.Documents))
		for _, doc := range app.Documents {
			refs = append(refs, doc.StorageRef)
		}
		if err := app.Anonymize(now); err != nil {
			s.logger.Error("anonymization sweep: anonymize failed", "application_id", id, "error", err)
			continue
		}
		if err := s.store.Save(ctx, app); err != nil {
			s.logger.Error("anonymization sweep: save failed", "application_id", id, "error", err)
			continue
		}
		for _, ref := range refs {
			if err := s.blobs.Delete(ctx, ref); err != nil && !dErrors.Is(err, sentinel.ErrNotFound) {
				s.logger.Warn("anonymization sweep: blob delete failed", "application_id", id, "ref", ref, "error", err)
			}
		}
		s.audit(ctx, id, audit.EventApplicationAnonymized, SystemActor, "success", "")
		processed++
	}
	return processed, nil
}

// execute is the shared load → mutate → save → publish → audit pipeline.
func (s *Service) execute(
	ctx context.Context,
	id, operation, actor string,
	action audit.AuditEvent,
	mutate func(app *models.Application, now time.Time) error,
) (*models.Application, error) {
	start := time.Now()
	app, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLoadErr(err)
	}

	if err := mutate(app, requestcontext.Now(ctx)); err != nil {
		s.countFailure(operation, err)
		s.audit(ctx, id, action, actor, "failure", dErrors.Message(err))
		return nil, err
	}

	if err := s.store.Save(ctx, app); err != nil {
		if dErrors.Is(err, sentinel.ErrConflict) {
			if s.metrics != nil {
				s.metrics.IncrementSaveConflicts()
			}
			return nil, dErrors.Newf(dErrors.CodeConflict,
				"application %s was modified concurrently, reload and retry", id)
		}
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found: "+id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist application")
	}

	s.publishDrained(ctx, app)
	s.audit(ctx, id, action, actor, "success", "status="+app.Status.String())
	if s.metrics != nil {
		s.metrics.IncrementTransition(operation)
		s.metrics.ObserveUseCaseDuration(operation, time.Since(start).Seconds())
	}
	return app, nil
}

// publishDrained empties the aggregate's event buffer into the publisher.
// Persistence already succeeded; a publish failure is logged and swallowed.
func (s *Service) publishDrained(ctx context.Context, app *models.Application) {
	drained := app.DrainEvents()
	if len(drained) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, drained); err != nil {
		s.logger.Error("domain event publish failed",
			"application_id", app.ID,
			"events", len(drained),
			"error", err,
		)
	}
}

func (s *Service) audit(ctx context.Context, applicationID string, action audit.AuditEvent, actor, outcome, details string) {
	s.auditor.Record(ctx, audit.Event{
		Timestamp:     requestcontext.Now(ctx),
		ApplicationID: applicationID,
		Action:        action,
		Actor:         actor,
		Outcome:       outcome,
		Details:       details,
		RequestID:     requestcontext.RequestID(ctx),
	})
}

func (s *Service) countFailure(operation string, err error) {
	if s.metrics != nil {
		s.metrics.IncrementTransitionFailure(operation, string(dErrors.CodeOf(err)))
	}
}

func (s *Service) translateLoadErr(err error) error {
	if dErrors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
}
