package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/DukeRupert/kasir/internal/service"
	"github.com/google/uuid"
)

// CompanyQuotaResponse is the superadmin view of one company.
type CompanyQuotaResponse struct {
	Company       CompanyResponse      `json:"company"`
	WasDowngraded bool                 `json:"was_downgraded"`
	Quota         service.QuotaStatus  `json:"quota"`
	Storage       service.StorageUsage `json:"storage"`
}

// ApplySubscriptionRequest is the body of PUT /superadmin/companies/{id}/subscription.
type ApplySubscriptionRequest struct {
	Tier   domain.SubscriptionTier `json:"tier"`
	Expiry *time.Time              `json:"expiry"`
}

// SuperadminHandler serves the platform operator console.
type SuperadminHandler struct {
	subscriptions service.SubscriptionService
	quota         service.QuotaService
	storageQuota  service.StorageQuotaService
	logger        *slog.Logger
}

// NewSuperadminHandler creates a new SuperadminHandler.
func NewSuperadminHandler(
	subscriptions service.SubscriptionService,
	quota service.QuotaService,
	storageQuota service.StorageQuotaService,
	logger *slog.Logger,
) *SuperadminHandler {
	return &SuperadminHandler{
		subscriptions: subscriptions,
		quota:         quota,
		storageQuota:  storageQuota,
		logger:        logger,
	}
}

// RegisterRoutes registers superadmin routes. requireSuperadmin must
// authenticate the caller as a superadmin.
func (h *SuperadminHandler) RegisterRoutes(mux *http.ServeMux, requireSuperadmin func(http.Handler) http.Handler) {
	mux.Handle("POST /superadmin/subscriptions/sweep", requireSuperadmin(http.HandlerFunc(h.Sweep)))
	mux.Handle("GET /superadmin/companies/{id}/quota", requireSuperadmin(http.HandlerFunc(h.CompanyQuota)))
	mux.Handle("PUT /superadmin/companies/{id}/subscription", requireSuperadmin(http.HandlerFunc(h.ApplySubscription)))
}

// Sweep runs the subscription expiry sweep now.
//
// POST /superadmin/subscriptions/sweep
func (h *SuperadminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.subscriptions.Sweep(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// CompanyQuota returns quota and storage usage for any company.
//
// GET /superadmin/companies/{id}/quota
func (h *SuperadminHandler) CompanyQuota(w http.ResponseWriter, r *http.Request) {
	const op = "handler.company_quota"
	ctx := r.Context()

	id, err := companyIDFromPath(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	access, err := h.subscriptions.CheckOnAccess(ctx, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	status, err := h.quota.GetQuotaStatus(ctx, id, access.NewTier)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	u, err := h.storageQuota.GetUsage(ctx, id, access.NewTier)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, CompanyQuotaResponse{
		Company:       newCompanyResponse(access.Company),
		WasDowngraded: access.WasDowngraded,
		Quota:         status,
		Storage:       u,
	})
}

// ApplySubscription sets a company's tier and expiry.
//
// PUT /superadmin/companies/{id}/subscription
func (h *SuperadminHandler) ApplySubscription(w http.ResponseWriter, r *http.Request) {
	const op = "handler.apply_subscription"
	ctx := r.Context()

	id, err := companyIDFromPath(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req ApplySubscriptionRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	c, err := h.subscriptions.ApplySubscription(ctx, id, req.Tier, req.Expiry)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, newCompanyResponse(c))
}

func companyIDFromPath(r *http.Request, op string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, domain.Invalid(op, "invalid company ID")
	}
	return id, nil
}
