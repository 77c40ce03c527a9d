// Package handler is the thin HTTP layer over the lifecycle orchestrator.
// Handlers parse input, resolve the acting identity, and delegate; business
// rules live in the service and the aggregate.
package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"konto/internal/onboarding/models"
	"konto/internal/platform/middleware"
	dErrors "konto/pkg/domain-errors"
	"konto/pkg/platform/httputil"
)

// Service is the slice of the orchestrator the HTTP layer consumes.
type Service interface {
	CreateApplication(ctx context.Context, personal models.PersonalData) (*models.Application, error)
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	SendOtp(ctx context.Context, id string, channel models.Channel) error
	VerifyOtp(ctx context.Context, id string, channel models.Channel, code string) (*models.Application, error)
	UploadDocument(ctx context.Context, id string, docType models.DocumentType, filename, contentType string, content []byte) (*models.Application, error)
	GrantConsent(ctx context.Context, id string, consentType models.ConsentType, consentText, version string) (*models.Application, error)
	RevokeConsent(ctx context.Context, id string, consentType models.ConsentType) (*models.Application, error)
	Submit(ctx context.Context, id string) (*models.Application, error)
	Assign(ctx context.Context, id, officer string) (*models.Application, error)
	VerifyDocuments(ctx context.Context, id, officer string) (*models.Application, error)
	RequestAdditionalInfo(ctx context.Context, id, officer, reason string) (*models.Application, error)
	ProvideAdditionalInfo(ctx context.Context, id, info string) (*models.Application, error)
	Flag(ctx context.Context, id, officer, reason string) (*models.Application, error)
	Approve(ctx context.Context, id, officer, customerID, accountNumber string) (*models.Application, error)
	Reject(ctx context.Context, id, officer, reason string) (*models.Application, error)
	RequestDeletion(ctx context.Context, id, actor string) (*models.Application, error)
	ProcessDueDeletions(ctx context.Context) (int, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the applicant-facing routes on r and the review routes
// behind the officer auth middleware.
func (h *Handler) Register(r chi.Router, requireOfficer func(http.Handler) http.Handler) {
	r.Route("/applications", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Post("/otp/send", h.handleSendOtp)
			r.Post("/otp/verify", h.handleVerifyOtp)
			r.Post("/documents", h.handleUploadDocument)
			r.Post("/consents", h.handleGrantConsent)
			r.Post("/consents/revoke", h.handleRevokeConsent)
			r.Post("/submit", h.handleSubmit)
			r.Post("/additional-info", h.handleProvideInfo)
			r.Delete("/", h.handleRequestDeletion)
		})
	})

	r.Route("/review/applications/{id}", func(r chi.Router) {
		r.Use(requireOfficer)
		r.Post("/assign", h.handleAssign)
		r.Post("/verify", h.handleVerify)
		r.Post("/request-info", h.handleRequestInfo)
		r.Post("/flag", h.handleFlag)
		r.Post("/approve", h.handleApprove)
		r.Post("/reject", h.handleReject)
	})

	r.With(requireOfficer).Post("/admin/deletions/process", h.handleProcessDeletions)
}

type createRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Nationality string `json:"nationality"`
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
	PostalCode  string `json:"postal_code"`
	City        string `json:"city"`
	Country     string `json:"country"`
	SSN         string `json:"social_security_number"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decode(w, r, &req) {
		return
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "date_of_birth must be YYYY-MM-DD"))
		return
	}
	app, err := h.service.CreateApplication(r.Context(), models.PersonalData{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Gender:      req.Gender,
		DateOfBirth: dob,
		Phone:       req.Phone,
		Email:       req.Email,
		Nationality: req.Nationality,
		Address: models.Address{
			Street:      req.Street,
			HouseNumber: req.HouseNumber,
			PostalCode:  req.PostalCode,
			City:        req.City,
			Country:     req.Country,
		},
		SocialSecurityNumber: req.SSN,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toApplicationResponse(app))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.GetApplication(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleSendOtp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel string `json:"channel"`
	}
	if !decode(w, r, &req) {
		return
	}
	channel, err := models.ParseChannel(req.Channel)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.SendOtp(r.Context(), chi.URLParam(r, "id"), channel); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (h *Handler) handleVerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel string `json:"channel"`
		Code    string `json:"code"`
	}
	if !decode(w, r, &req) {
		return
	}
	channel, err := models.ParseChannel(req.Channel)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	app, err := h.service.VerifyOtp(r.Context(), chi.URLParam(r, "id"), channel, req.Code)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentType string `json:"document_type"`
		Filename     string `json:"filename"`
		ContentType  string `json:"content_type"`
		Content      string `json:"content"`
	}
	if !decode(w, r, &req) {
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "content must be base64-encoded"))
		return
	}
	app, err := h.service.UploadDocument(r.Context(), chi.URLParam(r, "id"),
		models.DocumentType(req.DocumentType), req.Filename, req.ContentType, content)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toApplicationResponse(app))
}

func (h *Handler) handleGrantConsent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConsentType string `json:"consent_type"`
		ConsentText string `json:"consent_text"`
		Version     string `json:"version"`
	}
	if !decode(w, r, &req) {
		return
	}
	consentType, err := models.ParseConsentType(req.ConsentType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	app, err := h.service.GrantConsent(r.Context(), chi.URLParam(r, "id"), consentType, req.ConsentText, req.Version)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toApplicationResponse(app))
}

func (h *Handler) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConsentType string `json:"consent_type"`
	}
	if !decode(w, r, &req) {
		return
	}
	consentType, err := models.ParseConsentType(req.ConsentType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	app, err := h.service.RevokeConsent(r.Context(), chi.URLParam(r, "id"), consentType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleProvideInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Info string `json:"info"`
	}
	if !decode(w, r, &req) {
		return
	}
	app, err := h.service.ProvideAdditionalInfo(r.Context(), chi.URLParam(r, "id"), req.Info)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleRequestDeletion(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.RequestDeletion(r.Context(), chi.URLParam(r, "id"), "applicant")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	officer := middleware.Officer(r.Context())
	app, err := h.service.Assign(r.Context(), chi.URLParam(r, "id"), officer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	officer := middleware.Officer(r.Context())
	app, err := h.service.VerifyDocuments(r.Context(), chi.URLParam(r, "id"), officer)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleRequestInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}
	officer := middleware.Officer(r.Context())
	app, err := h.service.RequestAdditionalInfo(r.Context(), chi.URLParam(r, "id"), officer, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleFlag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}
	officer := middleware.Officer(r.Context())
	app, err := h.service.Flag(r.Context(), chi.URLParam(r, "id"), officer, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID    string `json:"customer_id"`
		AccountNumber string `json:"account_number"`
	}
	if !decode(w, r, &req) {
		return
	}
	officer := middleware.Officer(r.Context())
	app, err := h.service.Approve(r.Context(), chi.URLParam(r, "id"), officer, req.CustomerID, req.AccountNumber)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}
	officer := middleware.Officer(r.Context())
	app, err := h.service.Reject(r.Context(), chi.URLParam(r, "id"), officer, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleProcessDeletions(w http.ResponseWriter, r *http.Request) {
	processed, err := h.service.ProcessDueDeletions(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"processed": processed})
}

func decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return false
	}
	return true
}
