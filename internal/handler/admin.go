package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/kasir/internal/auth"
	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/DukeRupert/kasir/internal/service"
)

// multipartOverhead is allowed on top of the file size for form framing.
const multipartOverhead = 1 << 20

// QuotaResponse is the admin dashboard view of AI quota.
type QuotaResponse struct {
	Company       CompanyResponse     `json:"company"`
	WasDowngraded bool                `json:"was_downgraded"`
	Quota         service.QuotaStatus `json:"quota"`
}

// StorageResponse is the admin dashboard view of storage quota.
type StorageResponse struct {
	Company CompanyResponse      `json:"company"`
	Storage service.StorageUsage `json:"storage"`
}

// StorageDeniedResponse is returned with 413 when an upload would exceed the cap.
type StorageDeniedResponse struct {
	Error    JSONErrorBody           `json:"error"`
	Decision service.StorageDecision `json:"decision"`
}

// AdminHandler serves the company admin portal.
type AdminHandler struct {
	subscriptions  service.SubscriptionService
	quota          service.QuotaService
	storageQuota   service.StorageQuotaService
	uploads        service.UploadService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	subscriptions service.SubscriptionService,
	quota service.QuotaService,
	storageQuota service.StorageQuotaService,
	uploads service.UploadService,
	maxUploadBytes int64,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		subscriptions:  subscriptions,
		quota:          quota,
		storageQuota:   storageQuota,
		uploads:        uploads,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// RegisterRoutes registers admin portal routes. requireAdmin must
// authenticate the caller as an admin of a company.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/admin/quota", requireAdmin(http.HandlerFunc(h.Quota)))
	mux.Handle("GET /api/admin/storage", requireAdmin(http.HandlerFunc(h.Storage)))
	mux.Handle("POST /api/admin/files", requireAdmin(http.HandlerFunc(h.UploadFile)))
}

// Quota returns the caller's AI quota status.
//
// GET /api/admin/quota
func (h *AdminHandler) Quota(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin_quota"
	ctx := r.Context()

	access, err := resolveTenant(ctx, h.subscriptions, auth.GetPrincipalFromRequest(r), op, false)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	status, err := h.quota.GetQuotaStatus(ctx, access.Company.ID, access.NewTier)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, QuotaResponse{
		Company:       newCompanyResponse(access.Company),
		WasDowngraded: access.WasDowngraded,
		Quota:         status,
	})
}

// Storage returns the caller's storage usage.
//
// GET /api/admin/storage
func (h *AdminHandler) Storage(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin_storage"
	ctx := r.Context()

	access, err := resolveTenant(ctx, h.subscriptions, auth.GetPrincipalFromRequest(r), op, false)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	u, err := h.storageQuota.GetUsage(ctx, access.Company.ID, access.NewTier)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, StorageResponse{
		Company: newCompanyResponse(access.Company),
		Storage: u,
	})
}

// UploadFile stores one multipart "file" within the company's storage cap.
//
// POST /api/admin/files
func (h *AdminHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	const op = "handler.upload_file"
	ctx := r.Context()

	access, err := resolveTenant(ctx, h.subscriptions, auth.GetPrincipalFromRequest(r), op, true)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.ETOOLARGE, op, "file exceeds the %d byte upload limit", h.maxUploadBytes))
			return
		}
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "multipart field \"file\" is required"))
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	result, err := h.uploads.Upload(ctx, service.UploadParams{
		CompanyID:   access.Company.ID,
		Tier:        access.NewTier,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if !result.Decision.Allowed {
		respondJSON(w, http.StatusRequestEntityTooLarge, StorageDeniedResponse{
			Error: JSONErrorBody{
				Code:    domain.ETOOLARGE,
				Message: denialMessage(domain.LimitStorage),
				Reason:  string(domain.LimitStorage),
			},
			Decision: result.Decision,
		})
		return
	}

	respondJSON(w, http.StatusCreated, result)
}
