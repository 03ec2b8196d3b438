package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	planssvc "github.com/tanvirahmed-dev/coursemint-backend/internal/plans"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/db/models"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/enums"
	pkgerrors "github.com/tanvirahmed-dev/coursemint-backend/pkg/errors"
)

type stubPlanService struct {
	createInput planssvc.CreatePlanInput
	editInput   planssvc.EditPlanInput
	editPlanID  uuid.UUID
	plan        *models.Plan
	plans       []models.Plan
	err         error
}

func (s *stubPlanService) Create(ctx context.Context, input planssvc.CreatePlanInput) (*models.Plan, error) {
	s.createInput = input
	return s.plan, s.err
}

func (s *stubPlanService) Edit(ctx context.Context, planID uuid.UUID, input planssvc.EditPlanInput) (*models.Plan, error) {
	s.editPlanID = planID
	s.editInput = input
	return s.plan, s.err
}

func (s *stubPlanService) List(ctx context.Context) ([]models.Plan, error) {
	return s.plans, s.err
}

func (s *stubPlanService) ListActive(ctx context.Context) ([]models.Plan, error) {
	return s.plans, s.err
}

func (s *stubPlanService) Get(ctx context.Context, planID uuid.UUID) (*models.Plan, error) {
	return s.plan, s.err
}

func samplePlan() *models.Plan {
	return &models.Plan{
		ID:              uuid.New(),
		PlanType:        "pro",
		Description:     "Full catalog access",
		StripeProductID: "prod_123",
		StripePriceID:   "price_123",
		Amount:          1999,
		Currency:        "usd",
		Interval:        enums.BillingIntervalMonth,
		Active:          true,
		Features:        []string{"all courses"},
	}
}

func TestCreatePlanPublishes(t *testing.T) {
	service := &stubPlanService{plan: samplePlan()}
	handler := CreatePlan(service, nil)

	body := `{"plan_type":"pro","description":"Full catalog access","amount":1999,"currency":"usd","interval":"month","features":["all courses"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/create/stripe-plan", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", resp.Code, resp.Body.String())
	}
	if service.createInput.Interval != enums.BillingIntervalMonth {
		t.Fatalf("expected month interval, got %q", service.createInput.Interval)
	}
	if service.createInput.Amount != 1999 {
		t.Fatalf("expected amount forwarded, got %d", service.createInput.Amount)
	}

	var envelope struct {
		Data planResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.StripePriceID != "price_123" {
		t.Fatalf("expected stripe price in response, got %q", envelope.Data.StripePriceID)
	}
}

func TestCreatePlanRejectsBadInterval(t *testing.T) {
	service := &stubPlanService{plan: samplePlan()}
	handler := CreatePlan(service, nil)

	body := `{"plan_type":"pro","description":"d","amount":1999,"currency":"usd","interval":"weekly"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/create/stripe-plan", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad interval, got %d", resp.Code)
	}
	if service.createInput.PlanType != "" {
		t.Fatalf("service should not be called on validation failure")
	}
}

func TestEditPlanParsesPlanID(t *testing.T) {
	service := &stubPlanService{plan: samplePlan()}
	handler := EditPlan(service, nil)

	planID := uuid.New()
	body := `{"active":false}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/payment/update-plan/"+planID.String(), strings.NewReader(body))
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("planId", planID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if service.editPlanID != planID {
		t.Fatalf("expected plan id %s forwarded, got %s", planID, service.editPlanID)
	}
	if service.editInput.Active == nil || *service.editInput.Active {
		t.Fatalf("expected active=false forwarded")
	}
}

func TestGetPlanRejectsMalformedID(t *testing.T) {
	service := &stubPlanService{plan: samplePlan()}
	handler := GetPlan(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payment/stripe-plan/not-a-uuid", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("planId", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", resp.Code)
	}
}

func TestGetPlanPropagatesNotFound(t *testing.T) {
	service := &stubPlanService{err: pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")}
	handler := GetPlan(service, nil)

	planID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payment/stripe-plan/"+planID.String(), nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("planId", planID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestListActivePlansReturnsCatalog(t *testing.T) {
	service := &stubPlanService{plans: []models.Plan{*samplePlan()}}
	handler := ListActivePlans(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payment/active-plans", nil)
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var envelope struct {
		Data planListResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Plans) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(envelope.Data.Plans))
	}
}
