package models

import "time"

// DocumentType classifies an uploaded identity document. Passport and photo
// form the required set checked at submission.
type DocumentType string

const (
	DocumentTypePassport DocumentType = "PASSPORT"
	DocumentTypePhoto    DocumentType = "PHOTO"
)

// requiredDocumentTypes must all be present before an application can be
// submitted. Uniqueness per type is not enforced; completeness is checked by
// type set.
var requiredDocumentTypes = []DocumentType{DocumentTypePassport, DocumentTypePhoto}

// DocumentStatus tracks compliance review of a single document.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "PENDING"
	DocumentStatusVerified DocumentStatus = "VERIFIED"
	DocumentStatusRejected DocumentStatus = "REJECTED"
)

// Document is an identity document attached to one application. The byte
// content lives behind StorageRef in the blob store; the aggregate keeps only
// metadata. Created on upload, status mutated only by compliance verification.
type Document struct {
	ID              string
	Type            DocumentType
	StorageRef      string
	MimeType        string
	FileSize        int64
	Status          DocumentStatus
	UploadedAt      time.Time
	VerifiedAt      *time.Time
	VerifiedBy      string
	RejectionReason string
}
