package handler

import (
	"time"

	"konto/internal/onboarding/models"
)

type applicationResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Version int64  `json:"version"`

	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Nationality string `json:"nationality,omitempty"`

	EmailVerified bool `json:"email_verified"`
	PhoneVerified bool `json:"phone_verified"`

	Documents []documentResponse `json:"documents"`
	Consents  []consentResponse  `json:"consents"`

	AssignedTo           string `json:"assigned_to,omitempty"`
	RequiresManualReview bool   `json:"requires_manual_review,omitempty"`
	ReviewReason         string `json:"review_reason,omitempty"`
	RejectionReason      string `json:"rejection_reason,omitempty"`

	CustomerID    string `json:"customer_id,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`

	MarkedForDeletion  bool       `json:"marked_for_deletion,omitempty"`
	Anonymized         bool       `json:"anonymized,omitempty"`
	DataRetentionUntil *time.Time `json:"data_retention_until,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
}

type documentResponse struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	UploadedAt time.Time  `json:"uploaded_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	VerifiedBy string     `json:"verified_by,omitempty"`
}

type consentResponse struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Granted   bool       `json:"granted"`
	GrantedAt time.Time  `json:"granted_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	Version   string     `json:"version,omitempty"`
}

// toApplicationResponse flattens the aggregate for the wire. Social security
// number, date of birth, and address are deliberately never returned.
func toApplicationResponse(app *models.Application) applicationResponse {
	resp := applicationResponse{
		ID:                   app.ID,
		Status:               string(app.Status),
		Version:              app.Version,
		FirstName:            app.Personal.FirstName,
		LastName:             app.Personal.LastName,
		Email:                app.Personal.Email,
		Phone:                app.Personal.Phone,
		Nationality:          app.Personal.Nationality,
		EmailVerified:        app.EmailVerified,
		PhoneVerified:        app.PhoneVerified,
		Documents:            make([]documentResponse, 0, len(app.Documents)),
		Consents:             make([]consentResponse, 0, len(app.Consents)),
		AssignedTo:           app.AssignedTo,
		RequiresManualReview: app.RequiresManualReview,
		ReviewReason:         app.ReviewReason,
		RejectionReason:      app.RejectionReason,
		CustomerID:           app.CustomerID,
		AccountNumber:        app.AccountNumber,
		MarkedForDeletion:    app.MarkedForDeletion,
		Anonymized:           app.Anonymized,
		DataRetentionUntil:   app.DataRetentionUntil,
		CreatedAt:            app.CreatedAt,
		SubmittedAt:          app.SubmittedAt,
		ApprovedAt:           app.ApprovedAt,
		RejectedAt:           app.RejectedAt,
	}
	for _, doc := range app.Documents {
		resp.Documents = append(resp.Documents, documentResponse{
			ID:         doc.ID,
			Type:       string(doc.Type),
			Status:     string(doc.Status),
			UploadedAt: doc.UploadedAt,
			VerifiedAt: doc.VerifiedAt,
			VerifiedBy: doc.VerifiedBy,
		})
	}
	for _, consent := range app.Consents {
		resp.Consents = append(resp.Consents, consentResponse{
			ID:        consent.ID,
			Type:      string(consent.Type),
			Granted:   consent.Granted,
			GrantedAt: consent.GrantedAt,
			RevokedAt: consent.RevokedAt,
			Version:   consent.Version,
		})
	}
	return resp
}
