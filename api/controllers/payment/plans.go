package payment

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tanvirahmed-dev/coursemint-backend/api/responses"
	"github.com/tanvirahmed-dev/coursemint-backend/api/validators"
	planssvc "github.com/tanvirahmed-dev/coursemint-backend/internal/plans"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/db/models"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/enums"
	pkgerrors "github.com/tanvirahmed-dev/coursemint-backend/pkg/errors"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/logger"
)

// PlanService describes the plan catalog methods used by the HTTP controllers.
type PlanService interface {
	Create(ctx context.Context, input planssvc.CreatePlanInput) (*models.Plan, error)
	Edit(ctx context.Context, planID uuid.UUID, input planssvc.EditPlanInput) (*models.Plan, error)
	List(ctx context.Context) ([]models.Plan, error)
	ListActive(ctx context.Context) ([]models.Plan, error)
	Get(ctx context.Context, planID uuid.UUID) (*models.Plan, error)
}

type planResponse struct {
	ID              string   `json:"id"`
	PlanType        string   `json:"plan_type"`
	Description     string   `json:"description"`
	StripeProductID string   `json:"stripe_product_id"`
	StripePriceID   string   `json:"stripe_price_id"`
	Amount          int64    `json:"amount"`
	Currency        string   `json:"currency"`
	Interval        string   `json:"interval"`
	Active          bool     `json:"active"`
	Features        []string `json:"features"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

type planListResponse struct {
	Plans []planResponse `json:"plans"`
}

type createPlanRequest struct {
	PlanType    string   `json:"plan_type" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Amount      int64    `json:"amount" validate:"required,gt=0"`
	Currency    string   `json:"currency" validate:"required,len=3"`
	Interval    string   `json:"interval" validate:"required,oneof=month year"`
	Features    []string `json:"features"`
}

type editPlanRequest struct {
	PlanType    *string  `json:"plan_type"`
	Description *string  `json:"description"`
	Active      *bool    `json:"active"`
	Features    []string `json:"features"`
}

func CreatePlan(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		var payload createPlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		interval, err := enums.ParseBillingInterval(payload.Interval)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid interval"))
			return
		}

		plan, err := svc.Create(ctx, planssvc.CreatePlanInput{
			PlanType:    payload.PlanType,
			Description: payload.Description,
			Amount:      payload.Amount,
			Currency:    payload.Currency,
			Interval:    interval,
			Features:    payload.Features,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, planToResponse(plan))
	}
}

func EditPlan(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		planID, err := parsePlanID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload editPlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		plan, err := svc.Edit(ctx, planID, planssvc.EditPlanInput{
			PlanType:    payload.PlanType,
			Description: payload.Description,
			Active:      payload.Active,
			Features:    payload.Features,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, planToResponse(plan))
	}
}

func ListPlans(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		plans, err := svc.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, planListResponse{Plans: plansToResponse(plans)})
	}
}

func ListActivePlans(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		plans, err := svc.ListActive(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, planListResponse{Plans: plansToResponse(plans)})
	}
}

func GetPlan(svc PlanService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		planID, err := parsePlanID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		plan, err := svc.Get(ctx, planID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, planToResponse(plan))
	}
}

func parsePlanID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "planId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	planID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan id")
	}
	return planID, nil
}

func plansToResponse(plans []models.Plan) []planResponse {
	result := make([]planResponse, 0, len(plans))
	for i := range plans {
		result = append(result, planToResponse(&plans[i]))
	}
	return result
}

func planToResponse(plan *models.Plan) planResponse {
	features := make([]string, len(plan.Features))
	copy(features, plan.Features)

	return planResponse{
		ID:              plan.ID.String(),
		PlanType:        plan.PlanType,
		Description:     plan.Description,
		StripeProductID: plan.StripeProductID,
		StripePriceID:   plan.StripePriceID,
		Amount:          plan.Amount,
		Currency:        plan.Currency,
		Interval:        string(plan.Interval),
		Active:          plan.Active,
		Features:        features,
		CreatedAt:       plan.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       plan.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
