package plans

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/tanvirahmed-dev/coursemint-backend/pkg/db/models"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/enums"
	pkgerrors "github.com/tanvirahmed-dev/coursemint-backend/pkg/errors"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/logger"
)

// Service defines the plan catalog surface.
type Service interface {
	Create(ctx context.Context, input CreatePlanInput) (*models.Plan, error)
	Edit(ctx context.Context, planID uuid.UUID, input EditPlanInput) (*models.Plan, error)
	List(ctx context.Context) ([]models.Plan, error)
	ListActive(ctx context.Context) ([]models.Plan, error)
	Get(ctx context.Context, planID uuid.UUID) (*models.Plan, error)
}

// ServiceParams groups dependencies for the plan service.
type ServiceParams struct {
	Repo         *Repository
	StripeClient StripeCatalogClient
	Logger       *logger.Logger
}

// CreatePlanInput captures the data required to publish a plan.
type CreatePlanInput struct {
	PlanType    string
	Description string
	Amount      int64 // minor units
	Currency    string
	Interval    enums.BillingInterval
	Features    []string
}

// EditPlanInput captures the mutable plan fields. Nil pointers leave the field untouched.
type EditPlanInput struct {
	PlanType    *string
	Description *string
	Active      *bool
	Features    []string
}

type service struct {
	repo   *Repository
	stripe StripeCatalogClient
	logg   *logger.Logger
}

// NewService builds a plan service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repo required")
	}
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, stripe: params.StripeClient, logg: params.Logger}, nil
}

// Create publishes a plan: Stripe product first, then price, then the local row.
// A vendor failure leaves the catalog untouched.
func (s *service) Create(ctx context.Context, input CreatePlanInput) (*models.Plan, error) {
	planType := strings.TrimSpace(input.PlanType)
	if planType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan_type is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Interval.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "interval must be month or year")
	}
	currency := strings.ToLower(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "usd"
	}

	prod, err := s.stripe.CreateProduct(ctx, &stripe.ProductParams{
		Name:        stripe.String(planType),
		Description: stripe.String(input.Description),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating stripe product")
	}

	pr, err := s.stripe.CreatePrice(ctx, &stripe.PriceParams{
		Product:    stripe.String(prod.ID),
		UnitAmount: stripe.Int64(input.Amount),
		Currency:   stripe.String(currency),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(input.Interval.String()),
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating stripe price")
	}

	plan := &models.Plan{
		PlanType:        planType,
		Description:     input.Description,
		StripeProductID: prod.ID,
		StripePriceID:   pr.ID,
		Amount:          input.Amount,
		Currency:        currency,
		Interval:        input.Interval,
		Active:          true,
		Features:        input.Features,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting plan")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"plan_id":    plan.ID,
		"product_id": prod.ID,
		"price_id":   pr.ID,
	}), "plan published")

	return plan, nil
}

// Edit updates the Stripe product first, then the local row, so the remote
// catalog never lags a committed local change.
func (s *service) Edit(ctx context.Context, planID uuid.UUID, input EditPlanInput) (*models.Plan, error) {
	if planID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}

	plan, err := s.repo.FindByID(ctx, planID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}

	productParams := &stripe.ProductParams{}
	changedRemote := false
	if input.PlanType != nil {
		name := strings.TrimSpace(*input.PlanType)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan_type cannot be empty")
		}
		productParams.Name = stripe.String(name)
		changedRemote = true
	}
	if input.Description != nil {
		productParams.Description = stripe.String(*input.Description)
		changedRemote = true
	}
	if input.Active != nil {
		productParams.Active = stripe.Bool(*input.Active)
		changedRemote = true
	}

	if changedRemote {
		if _, err := s.stripe.UpdateProduct(ctx, plan.StripeProductID, productParams); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating stripe product")
		}
	}

	if input.PlanType != nil {
		plan.PlanType = strings.TrimSpace(*input.PlanType)
	}
	if input.Description != nil {
		plan.Description = *input.Description
	}
	if input.Active != nil {
		plan.Active = *input.Active
	}
	if input.Features != nil {
		plan.Features = input.Features
	}

	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting plan update")
	}
	return plan, nil
}

func (s *service) List(ctx context.Context) ([]models.Plan, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing plans")
	}
	return out, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.Plan, error) {
	out, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing active plans")
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, planID uuid.UUID) (*models.Plan, error) {
	if planID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	plan, err := s.repo.FindByID(ctx, planID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return plan, nil
}
