package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "konto/pkg/domain-errors"
)

// RetentionPeriod is how long rejected-application data is kept before it may
// be anonymized.
const RetentionPeriod = 90 * 24 * time.Hour

// Placeholder values written over personal fields during anonymization.
const (
	anonymizedName  = "ANONYMIZED"
	anonymizedEmail = "anonymized@redacted.invalid"
	anonymizedPhone = "+000000000000"
	anonymizedSSN   = "000000000"
)

// Address is the applicant's residential address. Country is ISO-3166-1
// alpha-2.
type Address struct {
	Street      string
	HouseNumber string
	PostalCode  string
	City        string
	Country     string
}

// PersonalData groups the applicant-supplied identity fields that fall under
// GDPR erasure.
type PersonalData struct {
	FirstName            string
	LastName             string
	Gender               string
	DateOfBirth          time.Time
	Phone                string
	Email                string
	Nationality          string
	Address              Address
	SocialSecurityNumber string
}

// Application is the aggregate root for one customer-onboarding application.
//
// Invariants:
//   - Status only moves along the edges in validTransitions
//   - Every mutating method either completes fully (state change + buffered
//     event) or returns an error and leaves the aggregate untouched
//   - EmailVerified/PhoneVerified only transition false → true
//   - AssignedTo is single-assignment; it cannot be reassigned once set
//   - Consents are append-only; revocation sets RevokedAt, never deletes
//   - Version is incremented by the store on save, never by the aggregate
//
// Concurrency: two writers racing on the same application are resolved by the
// store's compare-and-increment on Version, not by locking. The aggregate
// itself is not safe for concurrent use.
type Application struct {
	ID      string
	Status  ApplicationStatus
	Version int64

	Personal PersonalData

	EmailVerified bool
	PhoneVerified bool

	Documents []Document
	Consents  []Consent

	AssignedTo           string
	RequiresManualReview bool
	ReviewReason         string
	RejectionReason      string

	CustomerID    string
	AccountNumber string

	MarkedForDeletion  bool
	Anonymized         bool
	DataRetentionUntil *time.Time

	CreatedAt   time.Time
	SubmittedAt *time.Time
	ApprovedAt  *time.Time
	RejectedAt  *time.Time

	events []DomainEvent
}

// NewApplication constructs an application in INITIATED state and buffers the
// creation event.
func NewApplication(personal PersonalData, now time.Time) (*Application, error) {
	if personal.FirstName == "" || personal.LastName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "applicant name is required")
	}
	if personal.Email == "" || personal.Phone == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email and phone are required")
	}
	if len(personal.Address.Country) != 2 {
		return nil, dErrors.New(dErrors.CodeValidation, "address country must be ISO-3166-1 alpha-2")
	}
	app := &Application{
		ID:        uuid.NewString(),
		Status:    StatusInitiated,
		Personal:  personal,
		CreatedAt: now,
	}
	app.record(ApplicationCreated{
		ApplicationID: app.ID,
		Email:         personal.Email,
		Timestamp:     now,
	})
	return app, nil
}

// MarkChannelVerified records a successful OTP verification for the channel
// and advances INITIATED applications to OTP_VERIFIED. Both channels may be
// verified; only the first verification moves the status.
func (a *Application) MarkChannelVerified(channel Channel, now time.Time) error {
	flags, ok := channelFlags[channel]
	if !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid channel: "+channel.String())
	}
	if a.Status != StatusInitiated && a.Status != StatusOtpVerified {
		return a.illegalTransition("mark channel verified")
	}
	if flags.get(a) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "channel %s already verified", channel)
	}
	flags.set(a)
	if a.Status == StatusInitiated {
		a.Status = StatusOtpVerified
	}
	a.record(OtpVerified{ApplicationID: a.ID, Channel: channel, Timestamp: now})
	return nil
}

// AddDocument attaches an uploaded document and advances OTP_VERIFIED
// applications to DOCUMENTS_UPLOADED. Repeated uploads of the same type are
// allowed; completeness is checked at submission by type set.
func (a *Application) AddDocument(doc Document, now time.Time) error {
	if a.Status != StatusOtpVerified && a.Status != StatusDocumentsUploaded {
		return a.illegalTransition("add document")
	}
	if doc.StorageRef == "" {
		return dErrors.New(dErrors.CodeValidation, "document storage reference is required")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.Status = DocumentStatusPending
	doc.UploadedAt = now
	a.Documents = append(a.Documents, doc)
	if a.Status == StatusOtpVerified {
		a.Status = StatusDocumentsUploaded
	}
	a.record(DocumentUploaded{
		ApplicationID: a.ID,
		DocumentID:    doc.ID,
		DocumentType:  doc.Type,
		Timestamp:     now,
	})
	return nil
}

// GrantConsent appends a consent record. Consent capture is legal outside any
// particular status; submission checks the active set.
func (a *Application) GrantConsent(consentType ConsentType, ipAddress, consentText, version string, now time.Time) (Consent, error) {
	if !validConsentTypes[consentType] {
		return Consent{}, dErrors.New(dErrors.CodeInvalidInput, "invalid consent type: "+string(consentType))
	}
	if a.Status.IsTerminal() {
		return Consent{}, a.illegalTransition("grant consent")
	}
	consent := Consent{
		ID:          uuid.NewString(),
		Type:        consentType,
		Granted:     true,
		GrantedAt:   now,
		IPAddress:   ipAddress,
		ConsentText: consentText,
		Version:     version,
	}
	a.Consents = append(a.Consents, consent)
	return consent, nil
}

// RevokeConsent revokes the most recent active consent of the given type.
func (a *Application) RevokeConsent(consentType ConsentType, now time.Time) error {
	for i := len(a.Consents) - 1; i >= 0; i-- {
		if a.Consents[i].Type == consentType && a.Consents[i].IsActive() {
			revokedAt := now
			a.Consents[i].RevokedAt = &revokedAt
			return nil
		}
	}
	return dErrors.New(dErrors.CodeNotFound, "no active consent of type "+string(consentType))
}

// Submit moves the application into the review queue. It requires the full
// document set (passport, photo) and both required consents active.
func (a *Application) Submit(now time.Time) error {
	if a.Status != StatusDocumentsUploaded {
		return a.illegalTransition("submit")
	}
	if missing := a.missingDocumentTypes(); len(missing) > 0 {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "missing required documents: %s", joinDocumentTypes(missing))
	}
	if missing := a.missingConsentTypes(); len(missing) > 0 {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "missing required consents: %s", joinConsentTypes(missing))
	}
	a.Status = StatusSubmitted
	submittedAt := now
	a.SubmittedAt = &submittedAt
	a.record(ApplicationSubmitted{ApplicationID: a.ID, Timestamp: now})
	return nil
}

// AssignTo hands the application to a compliance officer and moves it under
// review. Assignment is single-shot.
func (a *Application) AssignTo(officer string, now time.Time) error {
	if officer == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "officer identifier is required")
	}
	if a.Status != StatusSubmitted && a.Status != StatusUnderReview {
		return a.illegalTransition("assign")
	}
	if a.AssignedTo != "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "application already assigned to "+a.AssignedTo)
	}
	a.AssignedTo = officer
	a.Status = StatusUnderReview
	a.record(ApplicationAssigned{ApplicationID: a.ID, Officer: officer, Timestamp: now})
	return nil
}

// VerifyDocuments records a successful compliance check and marks all pending
// documents verified by the officer.
func (a *Application) VerifyDocuments(officer string, now time.Time) error {
	if a.Status != StatusUnderReview {
		return a.illegalTransition("verify documents")
	}
	verifiedAt := now
	for i := range a.Documents {
		if a.Documents[i].Status == DocumentStatusPending {
			a.Documents[i].Status = DocumentStatusVerified
			a.Documents[i].VerifiedAt = &verifiedAt
			a.Documents[i].VerifiedBy = officer
		}
	}
	a.Status = StatusVerified
	a.record(ApplicationVerified{ApplicationID: a.ID, Officer: officer, Timestamp: now})
	return nil
}

// RequestAdditionalInfo sends the application back to the applicant with a
// reason. The review resumes when the applicant responds.
func (a *Application) RequestAdditionalInfo(reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reason is required")
	}
	if a.Status != StatusUnderReview {
		return a.illegalTransition("request additional info")
	}
	a.Status = StatusRequiresMoreInfo
	a.ReviewReason = reason
	a.record(AdditionalInfoRequested{ApplicationID: a.ID, Reason: reason, Timestamp: now})
	return nil
}

// ProvideAdditionalInfo returns the application to the review queue after the
// applicant responded to an information request.
func (a *Application) ProvideAdditionalInfo(info string, now time.Time) error {
	if strings.TrimSpace(info) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "information text is required")
	}
	if a.Status != StatusRequiresMoreInfo {
		return a.illegalTransition("provide additional info")
	}
	a.Status = StatusUnderReview
	a.record(AdditionalInfoProvided{ApplicationID: a.ID, Info: info, Timestamp: now})
	return nil
}

// FlagAsSuspicious escalates the application to manual review.
func (a *Application) FlagAsSuspicious(reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reason is required")
	}
	if a.Status != StatusUnderReview {
		return a.illegalTransition("flag as suspicious")
	}
	a.Status = StatusFlaggedSuspicious
	a.RequiresManualReview = true
	a.ReviewReason = reason
	a.record(ApplicationFlagged{ApplicationID: a.ID, Reason: reason, Timestamp: now})
	return nil
}

// Approve finishes the workflow with account creation. Flagged applications
// may still be approved after manual review.
func (a *Application) Approve(customerID, accountNumber, approvedBy string, now time.Time) error {
	if customerID == "" || accountNumber == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "customer id and account number are required")
	}
	if a.Status != StatusVerified && a.Status != StatusFlaggedSuspicious {
		return a.illegalTransition("approve")
	}
	a.Status = StatusApproved
	a.CustomerID = customerID
	a.AccountNumber = accountNumber
	approvedAt := now
	a.ApprovedAt = &approvedAt
	a.record(ApplicationApproved{
		ApplicationID: a.ID,
		CustomerID:    customerID,
		AccountNumber: accountNumber,
		ApprovedBy:    approvedBy,
		Timestamp:     now,
	})
	return nil
}

// Reject finishes the workflow negatively and starts the retention clock:
// rejected-application data is kept for RetentionPeriod, then becomes
// eligible for anonymization.
func (a *Application) Reject(reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "rejection reason is required")
	}
	if a.Status != StatusUnderReview && a.Status != StatusVerified && a.Status != StatusFlaggedSuspicious {
		return a.illegalTransition("reject")
	}
	a.Status = StatusRejected
	a.RejectionReason = reason
	rejectedAt := now
	a.RejectedAt = &rejectedAt
	retentionUntil := now.Add(RetentionPeriod)
	a.DataRetentionUntil = &retentionUntil
	a.record(ApplicationRejected{
		ApplicationID:      a.ID,
		Reason:             reason,
		DataRetentionUntil: retentionUntil,
		Timestamp:          now,
	})
	return nil
}

// MarkForDeletion registers a GDPR erasure request on a rejected application.
func (a *Application) MarkForDeletion(now time.Time) error {
	if a.Status != StatusRejected {
		return a.illegalTransition("mark for deletion")
	}
	if a.MarkedForDeletion {
		return dErrors.New(dErrors.CodeInvariantViolation, "application already marked for deletion")
	}
	a.MarkedForDeletion = true
	a.record(DataDeletionRequested{ApplicationID: a.ID, Timestamp: now})
	return nil
}

// Anonymize scrubs personal fields with fixed placeholders once the retention
// window has passed. Document and consent metadata stay; the blob store is
// responsible for deleting document content. Repeat calls are a no-op so
// sweep jobs can re-run safely. No event is buffered; anonymization is an
// audited system action.
func (a *Application) Anonymize(now time.Time) error {
	if a.Anonymized {
		return nil
	}
	if !a.MarkedForDeletion {
		return dErrors.New(dErrors.CodeInvariantViolation, "application not marked for deletion")
	}
	if a.DataRetentionUntil == nil || now.Before(*a.DataRetentionUntil) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"retention period has not elapsed (until %s)", a.DataRetentionUntil.Format(time.RFC3339))
	}
	a.Personal = PersonalData{
		FirstName:            anonymizedName,
		LastName:             anonymizedName,
		Email:                anonymizedEmail,
		Phone:                anonymizedPhone,
		SocialSecurityNumber: anonymizedSSN,
		Address:              Address{},
	}
	a.Anonymized = true
	return nil
}

// Events returns the buffered domain events without draining them.
func (a *Application) Events() []DomainEvent {
	return a.events
}

// DrainEvents returns and clears the buffered events. The orchestrator calls
// this exactly once after a successful save.
func (a *Application) DrainEvents() []DomainEvent {
	drained := a.events
	a.events = nil
	return drained
}

// RestoreEvents reinstates a buffer, used by stores that rehydrate aggregates.
func (a *Application) RestoreEvents(events []DomainEvent) {
	a.events = events
}

func (a *Application) record(event DomainEvent) {
	a.events = append(a.events, event)
}

func (a *Application) illegalTransition(operation string) error {
	return dErrors.Newf(dErrors.CodeInvariantViolation,
		"cannot %s in status %s", operation, a.Status)
}

func (a *Application) missingDocumentTypes() []DocumentType {
	present := make(map[DocumentType]bool, len(a.Documents))
	for _, doc := range a.Documents {
		present[doc.Type] = true
	}
	var missing []DocumentType
	for _, required := range requiredDocumentTypes {
		if !present[required] {
			missing = append(missing, required)
		}
	}
	return missing
}

func (a *Application) missingConsentTypes() []ConsentType {
	active := make(map[ConsentType]bool, len(a.Consents))
	for _, consent := range a.Consents {
		if consent.IsActive() {
			active[consent.Type] = true
		}
	}
	var missing []ConsentType
	for _, required := range requiredConsentTypes {
		if !active[required] {
			missing = append(missing, required)
		}
	}
	return missing
}

func joinDocumentTypes(types []DocumentType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func joinConsentTypes(types []ConsentType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
