package handler

import (
	"context"
	"time"

	"github.com/DukeRupert/kasir/internal/auth"
	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/DukeRupert/kasir/internal/service"
	"github.com/google/uuid"
)

// CompanyResponse is the JSON view of a company's subscription state.
type CompanyResponse struct {
	ID                 uuid.UUID               `json:"id"`
	Name               string                  `json:"name"`
	SubscriptionTier   domain.SubscriptionTier `json:"subscription_tier"`
	SubscriptionExpiry *time.Time              `json:"subscription_expiry"`
	IsActive           bool                    `json:"is_active"`
}

func newCompanyResponse(c *domain.Company) CompanyResponse {
	return CompanyResponse{
		ID:                 c.ID,
		Name:               c.Name,
		SubscriptionTier:   c.SubscriptionTier,
		SubscriptionExpiry: c.SubscriptionExpiry,
		IsActive:           c.IsActive,
	}
}

// resolveTenant loads the caller's company through the on-access expiry
// check, so every tenant request sees the tier it is actually entitled to.
// With requireActive, a deactivated company is refused with EPAYMENT.
func resolveTenant(ctx context.Context, subscriptions service.SubscriptionService, p *auth.Principal, op string, requireActive bool) (service.AccessResult, error) {
	if p == nil || !p.Role.IsTenantScoped() || p.CompanyID == uuid.Nil {
		return service.AccessResult{}, domain.Unauthorized(op, "company identity required")
	}

	access, err := subscriptions.CheckOnAccess(ctx, p.CompanyID)
	if err != nil {
		return service.AccessResult{}, err
	}
	if requireActive && !access.Company.IsActive {
		return service.AccessResult{}, domain.PaymentRequired(op, "company account is inactive, renew the subscription to continue")
	}
	return access, nil
}
