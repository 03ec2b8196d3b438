package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/tanvirahmed-dev/coursemint-backend/internal/subscriptions"
	"github.com/tanvirahmed-dev/coursemint-backend/internal/users"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/db/models"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/enums"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/logger"
)

const (
	defaultReconcileLimit    = 250
	defaultReconcileLookback = 7 * 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SubscriptionReconcileJobParams configures the subscription sync cron job.
type SubscriptionReconcileJobParams struct {
	Logger           *logger.Logger
	DB               txRunner
	SubscriptionRepo *subscriptions.Repository
	UserRepo         *users.Repository
	StripeClient     subscriptions.StripeSubscriptionClient
	Limit            int
	Lookback         time.Duration
	Now              func() time.Time
}

// NewSubscriptionReconcileJob builds a reconciliation cron job. It diffs
// recently touched local rows against Stripe and repairs drift left behind by
// partial failures or missed webhooks.
func NewSubscriptionReconcileJob(params SubscriptionReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.SubscriptionRepo == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultReconcileLookback
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultReconcileLimit
	}
	return &subscriptionReconcileJob{
		logg:     params.Logger,
		db:       params.DB,
		subRepo:  params.SubscriptionRepo,
		userRepo: params.UserRepo,
		stripe:   params.StripeClient,
		now:      now,
		limit:    limit,
		lookback: lookback,
	}, nil
}

type subscriptionReconcileJob struct {
	logg     *logger.Logger
	db       txRunner
	subRepo  *subscriptions.Repository
	userRepo *users.Repository
	stripe   subscriptions.StripeSubscriptionClient
	now      func() time.Time
	limit    int
	lookback time.Duration
}

func (j *subscriptionReconcileJob) Name() string { return "subscription-reconcile" }

func (j *subscriptionReconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.lookback)
	snapshot, err := j.subRepo.ListUpdatedSince(ctx, cutoff, j.limit)
	if err != nil {
		return fmt.Errorf("list subscriptions for reconciliation: %w", err)
	}

	var errs error
	scanned := len(snapshot)
	synced := 0
	for i := range snapshot {
		if err := j.reconcileSubscription(ctx, &snapshot[i]); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		synced++
	}

	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": scanned,
		"synced":     synced,
	})
	j.logg.Info(reportCtx, "subscription reconcile loop complete")
	return errs
}

func (j *subscriptionReconcileJob) reconcileSubscription(ctx context.Context, sub *models.Subscription) error {
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"subscription_id":        sub.ID,
		"user_id":                sub.UserID,
		"stripe_subscription_id": sub.StripeSubscriptionID,
	})

	if strings.TrimSpace(sub.StripeSubscriptionID) == "" {
		j.logg.Info(logCtx, "subscription missing stripe id; skipping")
		return nil
	}

	remote, err := j.stripe.GetSubscription(ctx, sub.StripeSubscriptionID, nil)
	if err != nil {
		if isResourceMissing(err) {
			return j.removeRow(logCtx, sub, "remote subscription gone")
		}
		return fmt.Errorf("fetch stripe subscription %s: %w", sub.StripeSubscriptionID, err)
	}

	switch remote.Status {
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return j.removeRow(logCtx, sub, "remote subscription canceled")
	default:
	}

	// a user-initiated cancel stays pending until the provider confirms
	if sub.Status == enums.SubscriptionStatusCancelPending {
		return nil
	}

	mapped := mapStripeStatus(remote.Status)
	if mapped == sub.Status {
		return nil
	}
	if err := j.subRepo.UpdateStatus(ctx, sub.ID, mapped); err != nil {
		return fmt.Errorf("persist reconciled status: %w", err)
	}
	j.logg.Info(j.logg.WithFields(logCtx, map[string]any{
		"old_status": sub.Status,
		"new_status": mapped,
	}), "subscription status reconciled")
	return nil
}

func (j *subscriptionReconcileJob) removeRow(ctx context.Context, sub *models.Subscription, reason string) error {
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := j.subRepo.WithTx(tx).DeleteByStripeSubscriptionID(ctx, sub.StripeSubscriptionID); err != nil {
			return err
		}
		return j.userRepo.WithTx(tx).SetSubscriptionsFlag(ctx, sub.UserID, false)
	})
	if err != nil {
		return fmt.Errorf("remove stale subscription: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "reason", reason), "stale subscription removed")
	return nil
}

func mapStripeStatus(status stripe.SubscriptionStatus) enums.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return enums.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return enums.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusIncomplete:
		return enums.SubscriptionStatusIncomplete
	default:
		return enums.SubscriptionStatusActive
	}
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}
