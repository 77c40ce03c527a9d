package audit

import (
	"context"
	"time"
)

// AuditEvent names an auditable action in the onboarding lifecycle.
type AuditEvent string

const (
	EventApplicationCreated    AuditEvent = "application_created"
	EventOtpIssued             AuditEvent = "otp_issued"
	EventOtpVerified           AuditEvent = "otp_verified"
	EventOtpVerifyFailed       AuditEvent = "otp_verify_failed"
	EventDocumentUploaded      AuditEvent = "document_uploaded"
	EventConsentGranted        AuditEvent = "consent_granted"
	EventConsentRevoked        AuditEvent = "consent_revoked"
	EventApplicationSubmitted  AuditEvent = "application_submitted"
	EventApplicationAssigned   AuditEvent = "application_assigned"
	EventApplicationVerified   AuditEvent = "application_verified"
	EventInfoRequested         AuditEvent = "additional_info_requested"
	EventInfoProvided          AuditEvent = "additional_info_provided"
	EventApplicationFlagged    AuditEvent = "application_flagged"
	EventApplicationApproved   AuditEvent = "application_approved"
	EventApplicationRejected   AuditEvent = "application_rejected"
	EventDeletionRequested     AuditEvent = "data_deletion_requested"
	EventApplicationAnonymized AuditEvent = "application_anonymized"
)

// Event is emitted from the orchestrator to capture who did what to which
// application, and how it came out. Keep it transport-agnostic so stores and
// sinks can fan out.
type Event struct {
	Timestamp     time.Time
	ApplicationID string
	Action        AuditEvent
	// Actor is the acting identity: applicant, officer ID, or "system" for
	// scheduled jobs. Always passed explicitly, never read from ambient state.
	Actor     string
	Outcome   string
	Details   string
	RequestID string
}

// Store persists audit events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByApplication(ctx context.Context, applicationID string) ([]Event, error)
}
