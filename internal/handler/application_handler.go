package handler

import (
	"context"
	"net/http"
	"time"

	"bloodlink-backend/internal/apperror"
	"bloodlink-backend/internal/models"
	"bloodlink-backend/internal/otp"
	"bloodlink-backend/internal/service"
	"bloodlink-backend/internal/storage"
	"bloodlink-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// PhoneVerifier reports whether a phone number passed OTP verification recently.
type PhoneVerifier interface {
	IsVerified(ctx context.Context, phone string) (bool, error)
}

// ApplicationHandler serves the public registration form and document links.
type ApplicationHandler struct {
	applications *service.ApplicationService
	documents    storage.DocumentStore
	verifier     PhoneVerifier
	urlTTL       time.Duration
}

// NewApplicationHandler builds the handler. A nil verifier disables the OTP gate.
func NewApplicationHandler(applications *service.ApplicationService, documents storage.DocumentStore, verifier PhoneVerifier, urlTTL time.Duration) *ApplicationHandler {
	return &ApplicationHandler{
		applications: applications,
		documents:    documents,
		verifier:     verifier,
		urlTTL:       urlTTL,
	}
}

type DocumentRequest struct {
	Kind        models.DocumentKind `json:"kind" binding:"required,oneof=license proof"`
	FileName    string              `json:"file_name"`
	URL         string              `json:"url" binding:"required"`
	StoragePath string              `json:"storage_path"`
}

// SubmitApplicationRequest is the registration form. Mandatory fields are
// checked by the service so the error names the first missing one.
type SubmitApplicationRequest struct {
	RepFirstName    string              `json:"rep_first_name"`
	RepLastName     string              `json:"rep_last_name"`
	RepRole         string              `json:"rep_role"`
	RepPhone        string              `json:"rep_phone"`
	RepEmail        string              `json:"rep_email"`
	HospitalName    string              `json:"hospital_name"`
	HospitalType    models.HospitalType `json:"hospital_type"`
	OfficialPhone   string              `json:"official_phone"`
	EmergencyNumber string              `json:"emergency_number"`
	Address         string              `json:"address"`
	City            string              `json:"city"`
	State           string              `json:"state"`
	Zip             string              `json:"zip"`
	Password        string              `json:"password"`
	Documents       []DocumentRequest   `json:"documents" binding:"dive"`
}

func (r SubmitApplicationRequest) registration() service.Registration {
	docs := make([]models.Document, 0, len(r.Documents))
	for _, d := range r.Documents {
		docs = append(docs, models.Document{Kind: d.Kind, FileName: d.FileName, URL: d.URL, StoragePath: d.StoragePath})
	}
	return service.Registration{
		RepFirstName:    r.RepFirstName,
		RepLastName:     r.RepLastName,
		RepRole:         r.RepRole,
		RepPhone:        r.RepPhone,
		RepEmail:        r.RepEmail,
		HospitalName:    r.HospitalName,
		HospitalType:    r.HospitalType,
		OfficialPhone:   r.OfficialPhone,
		EmergencyNumber: r.EmergencyNumber,
		Address:         r.Address,
		City:            r.City,
		State:           r.State,
		Zip:             r.Zip,
		Password:        r.Password,
		Documents:       docs,
	}
}

// Submit files a new hospital application
func (h *ApplicationHandler) Submit(c *gin.Context) {
	var req SubmitApplicationRequest
	if !bindJSON(c, &req) {
		return
	}

	if h.verifier != nil {
		if err := h.checkPhone(c.Request.Context(), req.RepPhone); err != nil {
			utils.AppErrorResponse(c, err)
			return
		}
	}

	id, err := h.applications.Submit(c.Request.Context(), req.registration())
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"application_id": id,
		"status":         models.ApplicationPending,
	})
}

func (h *ApplicationHandler) checkPhone(ctx context.Context, phone string) error {
	if phone == "" {
		return apperror.MissingField("rep_phone")
	}
	normalized, err := otp.NormalizePhone(phone)
	if err != nil {
		return err
	}
	ok, err := h.verifier.IsVerified(ctx, normalized)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.PreconditionFailed("verify rep_phone with a one-time code before submitting")
	}
	return nil
}

type signedDocument struct {
	Kind      models.DocumentKind `json:"kind"`
	FileName  string              `json:"file_name"`
	URL       string              `json:"url"`
	ExpiresAt *time.Time          `json:"expires_at,omitempty"`
}

// ListDocuments returns fresh signed links for an application's documents
func (h *ApplicationHandler) ListDocuments(c *gin.Context) {
	app, err := h.applications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	out := make([]signedDocument, 0, len(app.Documents))
	for _, d := range app.Documents {
		doc := signedDocument{Kind: d.Kind, FileName: d.FileName, URL: d.URL}
		if d.StoragePath != "" && h.documents != nil {
			url, err := h.documents.SignedURL(c.Request.Context(), d.StoragePath, h.urlTTL)
			if err != nil {
				utils.AppErrorResponse(c, err)
				return
			}
			expires := time.Now().Add(h.urlTTL).UTC()
			doc.URL, doc.ExpiresAt = url, &expires
		}
		out = append(out, doc)
	}

	utils.SuccessResponse(c, gin.H{
		"documents": out,
		"count":     len(out),
	})
}

// Upload stores a registration document and returns its path and URL
func (h *ApplicationHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		utils.AppErrorResponse(c, apperror.MissingField("file"))
		return
	}
	if file.Size > storage.MaxDocumentSize {
		utils.AppErrorResponse(c, apperror.Validation("file", "file exceeds the 10 MB limit"))
		return
	}

	f, err := file.Open()
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "could not read uploaded file")
		return
	}
	defer f.Close()

	obj, err := h.documents.Upload(c.Request.Context(), file.Filename, file.Header.Get("Content-Type"), f)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, obj)
}
