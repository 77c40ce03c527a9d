package models

import (
	"time"

	dErrors "konto/pkg/domain-errors"
)

// ConsentType labels what the applicant agreed to. Data processing and terms
// acceptance form the required set checked at submission.
type ConsentType string

const (
	ConsentTypeDataProcessing ConsentType = "DATA_PROCESSING"
	ConsentTypeTerms          ConsentType = "TERMS_AND_CONDITIONS"
)

var requiredConsentTypes = []ConsentType{ConsentTypeDataProcessing, ConsentTypeTerms}

// validConsentTypes is the single source of truth for supported consent types.
var validConsentTypes = map[ConsentType]bool{
	ConsentTypeDataProcessing: true,
	ConsentTypeTerms:          true,
}

// ParseConsentType constructs a ConsentType from external input.
func ParseConsentType(s string) (ConsentType, error) {
	c := ConsentType(s)
	if !validConsentTypes[c] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid consent type: "+s)
	}
	return c, nil
}

// Consent captures an applicant's decision for a specific type. Immutable once
// created except for revocation. The consent list on the aggregate is
// append-only.
type Consent struct {
	ID          string
	Type        ConsentType
	Granted     bool
	GrantedAt   time.Time
	RevokedAt   *time.Time
	IPAddress   string
	ConsentText string
	Version     string
}

// IsActive returns true while the consent is granted and not revoked.
func (c Consent) IsActive() bool {
	return c.Granted && c.RevokedAt == nil
}
