// Package handler contains the HTTP glue for the kasir, admin and
// superadmin surfaces. Handlers translate requests into service calls and
// service results into JSON; they hold no business rules of their own.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DukeRupert/kasir/internal/ai"
	"github.com/DukeRupert/kasir/internal/auth"
	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/DukeRupert/kasir/internal/service"
	"github.com/DukeRupert/kasir/internal/usage"
)

// AIRequest is the body of POST /api/kasir/ai/requests. EstimatedTokens is
// optional; when absent the prompt is measured.
type AIRequest struct {
	Prompt          string `json:"prompt"`
	EstimatedTokens *int64 `json:"estimated_tokens"`
}

// AIResponse reports an admitted AI request.
type AIResponse struct {
	Allowed         bool                    `json:"allowed"`
	Tier            domain.SubscriptionTier `json:"tier"`
	WasDowngraded   bool                    `json:"was_downgraded"`
	EstimatedTokens int64                   `json:"estimated_tokens"`
	Usage           usage.Counter           `json:"usage"`
	Limits          domain.Policy           `json:"limits"`
}

// AIDeniedResponse is returned with 429 when a quota limit is hit.
type AIDeniedResponse struct {
	Error    JSONErrorBody    `json:"error"`
	Decision service.Decision `json:"decision"`
	RetryAt  time.Time        `json:"retry_at"`
}

// KasirHandler serves the cashier-facing AI request gate.
type KasirHandler struct {
	subscriptions service.SubscriptionService
	quota         service.QuotaService
	estimator     ai.Estimator
	logger        *slog.Logger
}

// NewKasirHandler creates a new KasirHandler.
func NewKasirHandler(
	subscriptions service.SubscriptionService,
	quota service.QuotaService,
	estimator ai.Estimator,
	logger *slog.Logger,
) *KasirHandler {
	return &KasirHandler{
		subscriptions: subscriptions,
		quota:         quota,
		estimator:     estimator,
		logger:        logger,
	}
}

// RegisterRoutes registers the kasir routes. tenant must authenticate the
// caller as a kasir or admin of a company.
func (h *KasirHandler) RegisterRoutes(mux *http.ServeMux, tenant func(http.Handler) http.Handler) {
	mux.Handle("POST /api/kasir/ai/requests", tenant(http.HandlerFunc(h.CreateAIRequest)))
}

// CreateAIRequest admits one AI request against the company's quota.
//
// POST /api/kasir/ai/requests
func (h *KasirHandler) CreateAIRequest(w http.ResponseWriter, r *http.Request) {
	const op = "handler.create_ai_request"
	ctx := r.Context()

	var req AIRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var tokens int64
	switch {
	case req.EstimatedTokens != nil:
		tokens = *req.EstimatedTokens
	case strings.TrimSpace(req.Prompt) != "":
		tokens = h.estimator.Estimate(req.Prompt)
	default:
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "prompt or estimated_tokens is required"))
		return
	}

	access, err := resolveTenant(ctx, h.subscriptions, auth.GetPrincipalFromRequest(r), op, true)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	decision, err := h.quota.CheckAndConsume(ctx, access.Company.ID, access.NewTier, tokens)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if !decision.Allowed {
		retryAt := decision.Usage.DayResetAt()
		if decision.Reason == domain.LimitHourly {
			retryAt = decision.Usage.HourResetAt()
		}
		if secs := int(time.Until(retryAt).Seconds()); secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		respondJSON(w, http.StatusTooManyRequests, AIDeniedResponse{
			Error: JSONErrorBody{
				Code:    domain.ERATELIMIT,
				Message: denialMessage(decision.Reason),
				Reason:  string(decision.Reason),
			},
			Decision: decision,
			RetryAt:  retryAt,
		})
		return
	}

	respondJSON(w, http.StatusOK, AIResponse{
		Allowed:         true,
		Tier:            access.NewTier,
		WasDowngraded:   access.WasDowngraded,
		EstimatedTokens: tokens,
		Usage:           decision.Usage,
		Limits:          decision.Limits,
	})
}

func denialMessage(reason domain.LimitKind) string {
	switch reason {
	case domain.LimitHourly:
		return "Hourly AI request limit reached for your plan"
	case domain.LimitDaily:
		return "Daily AI request limit reached for your plan"
	case domain.LimitTokenDaily:
		return "Daily AI token limit reached for your plan"
	case domain.LimitStorage:
		return "Storage limit reached for your plan"
	}
	return "Quota exceeded"
}
