package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tanvirahmed-dev/coursemint-backend/internal/subscriptions"
	"github.com/tanvirahmed-dev/coursemint-backend/internal/users"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/db/models"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/enums"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/logger"
)

type stubReconcileStripeClient struct {
	statuses map[string]stripe.SubscriptionStatus
	missing  map[string]bool
}

func (s *stubReconcileStripeClient) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	return nil, nil
}

func (s *stubReconcileStripeClient) UpdateCustomer(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error) {
	return nil, nil
}

func (s *stubReconcileStripeClient) AttachPaymentMethod(ctx context.Context, id string, params *stripe.PaymentMethodAttachParams) (*stripe.PaymentMethod, error) {
	return nil, nil
}

func (s *stubReconcileStripeClient) CreateSubscription(ctx context.Context, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	return nil, nil
}

func (s *stubReconcileStripeClient) CancelSubscription(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	return nil, nil
}

func (s *stubReconcileStripeClient) GetSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if s.missing[id] {
		return nil, &stripe.Error{Code: stripe.ErrorCodeResourceMissing}
	}
	status, ok := s.statuses[id]
	if !ok {
		status = stripe.SubscriptionStatusActive
	}
	return &stripe.Subscription{ID: id, Status: status}, nil
}

type passthroughTxRunner struct {
	db *gorm.DB
}

func (r *passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(r.db)
}

func newReconcileConn(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	ddl := []string{
		`CREATE TABLE users (
			id text PRIMARY KEY,
			email text NOT NULL UNIQUE,
			user_name text NOT NULL DEFAULT '',
			role text NOT NULL DEFAULT 'user',
			stripe_customer_id text,
			subscriptions boolean NOT NULL DEFAULT false,
			created_at datetime,
			updated_at datetime
		)`,
		`CREATE TABLE subscriptions (
			id text PRIMARY KEY,
			user_id text NOT NULL,
			stripe_subscription_id text NOT NULL,
			stripe_price_id text NOT NULL,
			payment_method_id text NOT NULL DEFAULT '',
			interval text NOT NULL,
			status text NOT NULL DEFAULT 'active',
			created_at datetime,
			updated_at datetime
		)`,
		`CREATE UNIQUE INDEX idx_subscriptions_user ON subscriptions (user_id)`,
	}
	for _, stmt := range ddl {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}
	return conn
}

func seedReconcileRow(t *testing.T, conn *gorm.DB, stripeSubID string, status enums.SubscriptionStatus) (*models.User, *models.Subscription) {
	t.Helper()
	user := &models.User{
		ID:            uuid.New(),
		Email:         uuid.NewString() + "@example.com",
		Role:          enums.UserRoleUser,
		Subscriptions: true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	sub := &models.Subscription{
		ID:                   uuid.New(),
		UserID:               user.ID,
		StripeSubscriptionID: stripeSubID,
		StripePriceID:        "price_month",
		Interval:             enums.BillingIntervalMonth,
		Status:               status,
		UpdatedAt:            time.Now().UTC(),
	}
	if err := conn.Create(sub).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return user, sub
}

func newReconcileJob(t *testing.T, conn *gorm.DB, client subscriptions.StripeSubscriptionClient) Job {
	t.Helper()
	job, err := NewSubscriptionReconcileJob(SubscriptionReconcileJobParams{
		Logger:           logger.New(logger.Options{ServiceName: "test"}),
		DB:               &passthroughTxRunner{db: conn},
		SubscriptionRepo: subscriptions.NewRepository(conn),
		UserRepo:         users.NewRepository(conn),
		StripeClient:     client,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return job
}

func TestReconcileRemovesRemotelyCanceledRow(t *testing.T) {
	conn := newReconcileConn(t)
	user, _ := seedReconcileRow(t, conn, "sub_gone", enums.SubscriptionStatusActive)
	client := &stubReconcileStripeClient{
		statuses: map[string]stripe.SubscriptionStatus{"sub_gone": stripe.SubscriptionStatusCanceled},
	}

	if err := newReconcileJob(t, conn, client).Run(context.Background()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	stored, err := subscriptions.NewRepository(conn).FindByStripeSubscriptionID(context.Background(), "sub_gone")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored != nil {
		t.Fatalf("canceled remote subscription must be removed locally")
	}

	fresh, err := users.NewRepository(conn).FindByID(context.Background(), user.ID)
	if err != nil || fresh == nil {
		t.Fatalf("load user: %v", err)
	}
	if fresh.Subscriptions {
		t.Fatalf("expected subscription flag cleared")
	}
}

func TestReconcileRemovesRowForMissingRemote(t *testing.T) {
	conn := newReconcileConn(t)
	seedReconcileRow(t, conn, "sub_missing", enums.SubscriptionStatusActive)
	client := &stubReconcileStripeClient{missing: map[string]bool{"sub_missing": true}}

	if err := newReconcileJob(t, conn, client).Run(context.Background()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	stored, err := subscriptions.NewRepository(conn).FindByStripeSubscriptionID(context.Background(), "sub_missing")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored != nil {
		t.Fatalf("orphaned local row must be removed")
	}
}

func TestReconcileSyncsDriftedStatus(t *testing.T) {
	conn := newReconcileConn(t)
	_, sub := seedReconcileRow(t, conn, "sub_late", enums.SubscriptionStatusActive)
	client := &stubReconcileStripeClient{
		statuses: map[string]stripe.SubscriptionStatus{"sub_late": stripe.SubscriptionStatusPastDue},
	}

	if err := newReconcileJob(t, conn, client).Run(context.Background()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	var stored models.Subscription
	if err := conn.First(&stored, "id = ?", sub.ID).Error; err != nil {
		t.Fatalf("load subscription: %v", err)
	}
	if stored.Status != enums.SubscriptionStatusPastDue {
		t.Fatalf("expected past_due, got %s", stored.Status)
	}
}

func TestReconcileLeavesCancelPendingUntilProviderConfirms(t *testing.T) {
	conn := newReconcileConn(t)
	_, sub := seedReconcileRow(t, conn, "sub_pending", enums.SubscriptionStatusCancelPending)
	client := &stubReconcileStripeClient{
		statuses: map[string]stripe.SubscriptionStatus{"sub_pending": stripe.SubscriptionStatusActive},
	}

	if err := newReconcileJob(t, conn, client).Run(context.Background()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	var stored models.Subscription
	if err := conn.First(&stored, "id = ?", sub.ID).Error; err != nil {
		t.Fatalf("load subscription: %v", err)
	}
	if stored.Status != enums.SubscriptionStatusCancelPending {
		t.Fatalf("pending cancel must not be downgraded, got %s", stored.Status)
	}
}
