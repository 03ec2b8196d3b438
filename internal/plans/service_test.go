package plans

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tanvirahmed-dev/coursemint-backend/pkg/db/models"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/enums"
	pkgerrors "github.com/tanvirahmed-dev/coursemint-backend/pkg/errors"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/logger"
)

type stubCatalogClient struct {
	createProductErr error
	createPriceErr   error
	updateProductErr error

	createdProducts []*stripe.ProductParams
	createdPrices   []*stripe.PriceParams
	updatedProducts map[string]*stripe.ProductParams
	seq             int
}

func (s *stubCatalogClient) CreateProduct(ctx context.Context, params *stripe.ProductParams) (*stripe.Product, error) {
	if s.createProductErr != nil {
		return nil, s.createProductErr
	}
	s.seq++
	s.createdProducts = append(s.createdProducts, params)
	return &stripe.Product{ID: "prod_test"}, nil
}

func (s *stubCatalogClient) UpdateProduct(ctx context.Context, id string, params *stripe.ProductParams) (*stripe.Product, error) {
	if s.updateProductErr != nil {
		return nil, s.updateProductErr
	}
	if s.updatedProducts == nil {
		s.updatedProducts = map[string]*stripe.ProductParams{}
	}
	s.updatedProducts[id] = params
	return &stripe.Product{ID: id}, nil
}

func (s *stubCatalogClient) CreatePrice(ctx context.Context, params *stripe.PriceParams) (*stripe.Price, error) {
	if s.createPriceErr != nil {
		return nil, s.createPriceErr
	}
	s.createdPrices = append(s.createdPrices, params)
	return &stripe.Price{ID: "price_test"}, nil
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	// sqlite has no text[] type, so the schema is created by hand with
	// features stored as text (pq.StringArray serializes to a string).
	ddl := `CREATE TABLE plans (
		id text PRIMARY KEY,
		plan_type text NOT NULL,
		description text NOT NULL DEFAULT '',
		stripe_product_id text NOT NULL UNIQUE,
		stripe_price_id text NOT NULL UNIQUE,
		amount integer NOT NULL,
		currency text NOT NULL,
		interval text NOT NULL,
		active boolean NOT NULL DEFAULT true,
		features text,
		created_at datetime,
		updated_at datetime
	)`
	if err := conn.Exec(ddl).Error; err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return NewRepository(conn)
}

func newTestService(t *testing.T, repo *Repository, client StripeCatalogClient) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:         repo,
		StripeClient: client,
		Logger:       logger.New(logger.Options{ServiceName: "test"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func seedPlan(t *testing.T, repo *Repository, planType string, active bool) *models.Plan {
	t.Helper()
	plan := &models.Plan{
		ID:              uuid.New(),
		PlanType:        planType,
		StripeProductID: "prod_" + planType,
		StripePriceID:   "price_" + planType,
		Amount:          1999,
		Currency:        "usd",
		Interval:        enums.BillingIntervalMonth,
		Active:          active,
	}
	if err := repo.Create(context.Background(), plan); err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan
}

func TestServiceCreatePublishesProductAndPrice(t *testing.T) {
	repo := newTestRepo(t)
	client := &stubCatalogClient{}
	svc := newTestService(t, repo, client)

	plan, err := svc.Create(context.Background(), CreatePlanInput{
		PlanType:    "premium",
		Description: "full access",
		Amount:      2999,
		Interval:    enums.BillingIntervalMonth,
		Features:    []string{"all courses"},
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if plan.StripeProductID != "prod_test" || plan.StripePriceID != "price_test" {
		t.Fatalf("expected stripe ids recorded, got %+v", plan)
	}
	if !plan.Active {
		t.Fatalf("new plan must start active")
	}
	if plan.Currency != "usd" {
		t.Fatalf("expected usd default, got %s", plan.Currency)
	}
	if len(client.createdPrices) != 1 {
		t.Fatalf("expected one price created")
	}
	pr := client.createdPrices[0]
	if pr.Recurring == nil || *pr.Recurring.Interval != "month" {
		t.Fatalf("expected monthly recurring price params")
	}

	stored, err := repo.FindByID(context.Background(), plan.ID)
	if err != nil || stored == nil {
		t.Fatalf("expected plan persisted, got %v %v", stored, err)
	}
}

func TestServiceCreateVendorFailureLeavesCatalogUntouched(t *testing.T) {
	repo := newTestRepo(t)
	client := &stubCatalogClient{createPriceErr: errors.New("stripe down")}
	svc := newTestService(t, repo, client)

	_, err := svc.Create(context.Background(), CreatePlanInput{
		PlanType: "premium",
		Amount:   2999,
		Interval: enums.BillingIntervalYear,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}

	all, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("no plan row should exist after vendor failure")
	}
}

func TestServiceCreateRejectsBadInterval(t *testing.T) {
	svc := newTestService(t, newTestRepo(t), &stubCatalogClient{})

	_, err := svc.Create(context.Background(), CreatePlanInput{
		PlanType: "premium",
		Amount:   100,
		Interval: enums.BillingInterval("weekly"),
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceEditUpdatesRemoteThenLocal(t *testing.T) {
	repo := newTestRepo(t)
	client := &stubCatalogClient{}
	svc := newTestService(t, repo, client)
	plan := seedPlan(t, repo, "basic", true)

	newName := "basic plus"
	inactive := false
	updated, err := svc.Edit(context.Background(), plan.ID, EditPlanInput{
		PlanType: &newName,
		Active:   &inactive,
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if updated.PlanType != "basic plus" || updated.Active {
		t.Fatalf("local row not updated: %+v", updated)
	}
	if _, ok := client.updatedProducts[plan.StripeProductID]; !ok {
		t.Fatalf("expected remote product update for %s", plan.StripeProductID)
	}
}

func TestServiceEditRemoteFailurePreservesLocal(t *testing.T) {
	repo := newTestRepo(t)
	client := &stubCatalogClient{updateProductErr: errors.New("stripe down")}
	svc := newTestService(t, repo, client)
	plan := seedPlan(t, repo, "basic", true)

	newName := "renamed"
	_, err := svc.Edit(context.Background(), plan.ID, EditPlanInput{PlanType: &newName})
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}

	stored, err := repo.FindByID(context.Background(), plan.ID)
	if err != nil || stored == nil {
		t.Fatalf("load plan: %v", err)
	}
	if stored.PlanType != "basic" {
		t.Fatalf("local row must stay unchanged after remote failure, got %s", stored.PlanType)
	}
}

func TestServiceEditUnknownPlan(t *testing.T) {
	svc := newTestService(t, newTestRepo(t), &stubCatalogClient{})

	_, err := svc.Edit(context.Background(), uuid.New(), EditPlanInput{})
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceListActiveFiltersRetiredPlans(t *testing.T) {
	repo := newTestRepo(t)
	svc := newTestService(t, repo, &stubCatalogClient{})
	seedPlan(t, repo, "live", true)
	seedPlan(t, repo, "retired", false)

	active, err := svc.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].PlanType != "live" {
		t.Fatalf("expected only the live plan, got %+v", active)
	}

	all, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both plans from full listing")
	}
}
