package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/tanvirahmed-dev/coursemint-backend/internal/subscriptions"
	"github.com/tanvirahmed-dev/coursemint-backend/internal/users"
	pkgerrors "github.com/tanvirahmed-dev/coursemint-backend/pkg/errors"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the webhook service.
type ServiceParams struct {
	SubscriptionRepo  *subscriptions.Repository
	UserRepo          *users.Repository
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service applies Stripe lifecycle events to local state. Only subscription
// deletion mutates anything; every other event type is acknowledged untouched.
type Service struct {
	subRepo  *subscriptions.Repository
	userRepo *users.Repository
	txRunner txRunner
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.SubscriptionRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo required")
	}
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		subRepo:  params.SubscriptionRepo,
		userRepo: params.UserRepo,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
	}, nil
}

// HandleEvent dispatches on event type.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionDeleted:
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.handleSubscriptionDeleted(ctx, &stripeSub)
	default:
		// every other event type is acknowledged untouched
		return nil
	}
}

// handleSubscriptionDeleted removes every local row mirroring the remote
// subscription and clears the flag on every user attached to its customer.
// Bulk writes match zero rows without error, so redelivery is a no-op.
func (s *Service) handleSubscriptionDeleted(ctx context.Context, stripeSub *stripe.Subscription) error {
	if stripeSub == nil || stripeSub.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}

	var removed, cleared int64
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		removed, err = s.subRepo.WithTx(tx).DeleteByStripeSubscriptionID(ctx, stripeSub.ID)
		if err != nil {
			return err
		}
		if stripeSub.Customer != nil && stripeSub.Customer.ID != "" {
			cleared, err = s.userRepo.WithTx(tx).ClearSubscriptionsByCustomerID(ctx, stripeSub.Customer.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "applying subscription deletion")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"subscription_id": stripeSub.ID,
		"rows_removed":    removed,
		"users_cleared":   cleared,
	}), "subscription deletion applied")

	return nil
}
