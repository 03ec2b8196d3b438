package payments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tanvirahmed-dev/coursemint-backend/internal/subscriptions"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/db/models"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/enums"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/pagination"
)

func newTestConn(t *testing.T) *gorm.DB {
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

func seedSubscriptions(t *testing.T, conn *gorm.DB, count int) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		user := &models.User{
			ID:       uuid.New(),
			Email:    fmt.Sprintf("learner%d@example.com", i),
			UserName: fmt.Sprintf("Learner %d", i),
			Role:     enums.UserRoleUser,
		}
		if err := conn.Create(user).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
		sub := &models.Subscription{
			ID:                   uuid.New(),
			UserID:               user.ID,
			StripeSubscriptionID: fmt.Sprintf("sub_%d", i),
			StripePriceID:        "price_month",
			Interval:             enums.BillingIntervalMonth,
			Status:               enums.SubscriptionStatusActive,
			CreatedAt:            base.Add(time.Duration(i) * time.Hour),
		}
		if err := conn.Create(sub).Error; err != nil {
			t.Fatalf("seed subscription: %v", err)
		}
	}
}

func TestListSubscriptionsPaginatesNewestFirst(t *testing.T) {
	conn := newTestConn(t)
	seedSubscriptions(t, conn, 7)

	svc, err := NewService(ServiceParams{SubscriptionRepo: subscriptions.NewRepository(conn)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page, err := svc.ListSubscriptions(context.Background(), pagination.Params{Page: 1, Limit: 3})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if page.TotalCount != 7 || page.TotalPages != 3 {
		t.Fatalf("expected 7 rows over 3 pages, got %d/%d", page.TotalCount, page.TotalPages)
	}
	if len(page.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(page.Items))
	}
	if page.Items[0].StripeSubscriptionID != "sub_6" {
		t.Fatalf("expected newest row first, got %s", page.Items[0].StripeSubscriptionID)
	}
	if page.Items[0].User == nil || page.Items[0].User.Email != "learner6@example.com" {
		t.Fatalf("expected user preloaded on listing")
	}

	last, err := svc.ListSubscriptions(context.Background(), pagination.Params{Page: 3, Limit: 3})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(last.Items) != 1 || last.Items[0].StripeSubscriptionID != "sub_0" {
		t.Fatalf("expected oldest row on the final page, got %+v", last.Items)
	}
}

func TestListSubscriptionsNormalizesParams(t *testing.T) {
	conn := newTestConn(t)
	seedSubscriptions(t, conn, 2)

	svc, err := NewService(ServiceParams{SubscriptionRepo: subscriptions.NewRepository(conn)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page, err := svc.ListSubscriptions(context.Background(), pagination.Params{Page: -1, Limit: 0})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if page.Page != 1 || page.Limit != pagination.DefaultLimit {
		t.Fatalf("expected normalized params, got page=%d limit=%d", page.Page, page.Limit)
	}
}
