package models

import "time"

// DomainEvent is raised by aggregate mutations and buffered until the
// orchestrator persists the aggregate. Events are published after a
// successful save, keyed by application ID for per-aggregate ordering.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

type ApplicationCreated struct {
	ApplicationID string    `json:"application_id"`
	Email         string    `json:"email"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e ApplicationCreated) EventName() string     { return "onboarding.application_created" }
func (e ApplicationCreated) AggregateID() string   { return e.ApplicationID }
func (e ApplicationCreated) OccurredAt() time.Time { return e.Timestamp }

type OtpVerified struct {
	ApplicationID string    `json:"application_id"`
	Channel       Channel   `json:"channel"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e OtpVerified) EventName() string     { return "onboarding.otp_verified" }
func (e OtpVerified) AggregateID() string   { return e.ApplicationID }
func (e OtpVerified) OccurredAt() time.Time { return e.Timestamp }

type DocumentUploaded struct {
	ApplicationID string       `json:"application_id"`
	DocumentID    string       `json:"document_id"`
	DocumentType  DocumentType `json:"document_type"`
	Timestamp     time.Time    `json:"timestamp"`
}

func (e DocumentUploaded) EventName() string     { return "onboarding.document_uploaded" }
func (e DocumentUploaded) AggregateID() string   { return e.ApplicationID }
func (e DocumentUploaded) OccurredAt() time.Time { return e.Timestamp }

type ApplicationSubmitted struct {
	ApplicationID string    `json:"application_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e ApplicationSubmitted) EventName() string     { return "onboarding.application_submitted" }
func (e ApplicationSubmitted) AggregateID() string   { return e.ApplicationID }
func (e ApplicationSubmitted) OccurredAt() time.Time { return e.Timestamp }

type ApplicationAssigned struct {
	ApplicationID string    `json:"application_id"`
	Officer       string    `json:"officer"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e ApplicationAssigned) EventName() string     { return "onboarding.application_assigned" }
func (e ApplicationAssigned) AggregateID() string   { return e.ApplicationID }
func (e ApplicationAssigned) OccurredAt() time.Time { return e.Timestamp }

type ApplicationVerified struct {
	ApplicationID string    `json:"application_id"`
	Officer       string    `json:"officer"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e ApplicationVerified) EventName() string     { return "onboarding.application_verified" }
func (e ApplicationVerified) AggregateID() string   { return e.ApplicationID }
func (e ApplicationVerified) OccurredAt() time.Time { return e.Timestamp }

type AdditionalInfoRequested struct {
	ApplicationID string    `json:"application_id"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e AdditionalInfoRequested) EventName() string     { return "onboarding.additional_info_requested" }
func (e AdditionalInfoRequested) AggregateID() string   { return e.ApplicationID }
func (e AdditionalInfoRequested) OccurredAt() time.Time { return e.Timestamp }

type AdditionalInfoProvided struct {
	ApplicationID string    `json:"application_id"`
	Info          string    `json:"info"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e AdditionalInfoProvided) EventName() string     { return "onboarding.additional_info_provided" }
func (e AdditionalInfoProvided) AggregateID() string   { return e.ApplicationID }
func (e AdditionalInfoProvided) OccurredAt() time.Time { return e.Timestamp }

type ApplicationFlagged struct {
	ApplicationID string    `json:"application_id"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e ApplicationFlagged) EventName() string     { return "onboarding.application_flagged" }
func (e ApplicationFlagged) AggregateID() string   { return e.ApplicationID }
func (e ApplicationFlagged) OccurredAt() time.Time { return e.Timestamp }

type ApplicationApproved struct {
	ApplicationID string    `json:"application_id"`
	CustomerID    string    `json:"customer_id"`
	AccountNumber string    `json:"account_number"`
	ApprovedBy    string    `json:"approved_by"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e ApplicationApproved) EventName() string     { return "onboarding.application_approved" }
func (e ApplicationApproved) AggregateID() string   { return e.ApplicationID }
func (e ApplicationApproved) OccurredAt() time.Time { return e.Timestamp }

type ApplicationRejected struct {
	ApplicationID      string    `json:"application_id"`
	Reason             string    `json:"reason"`
	DataRetentionUntil time.Time `json:"data_retention_until"`
	Timestamp          time.Time `json:"timestamp"`
}

func (e ApplicationRejected) EventName() string     { return "onboarding.application_rejected" }
func (e ApplicationRejected) AggregateID() string   { return e.ApplicationID }
func (e ApplicationRejected) OccurredAt() time.Time { return e.Timestamp }

type DataDeletionRequested struct {
	ApplicationID string    `json:"application_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e DataDeletionRequested) EventName() string     { return "onboarding.data_deletion_requested" }
func (e DataDeletionRequested) AggregateID() string   { return e.ApplicationID }
func (e DataDeletionRequested) OccurredAt() time.Time { return e.Timestamp }
