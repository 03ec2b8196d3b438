package subscriptions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/tanvirahmed-dev/coursemint-backend/internal/plans"
	"github.com/tanvirahmed-dev/coursemint-backend/internal/users"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/db"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/db/models"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/enums"
	pkgerrors "github.com/tanvirahmed-dev/coursemint-backend/pkg/errors"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the subscription lifecycle surface.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateSubscriptionInput) (*CreateSubscriptionResult, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateSubscriptionInput) (*models.Subscription, error)
	Cancel(ctx context.Context, userID uuid.UUID, stripeSubID string) (*models.Subscription, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo              *Repository
	UserRepo          *users.Repository
	PlanRepo          *plans.Repository
	StripeClient      StripeSubscriptionClient
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// CreateSubscriptionInput captures the data required to start a subscription.
type CreateSubscriptionInput struct {
	PriceID         string
	PaymentMethodID string
}

// UpdateSubscriptionInput captures the data required to replace a subscription.
type UpdateSubscriptionInput struct {
	SubscriptionID  string // existing Stripe subscription id
	PriceID         string
	PaymentMethodID string
}

// CreateSubscriptionResult carries the persisted row plus the payment intent
// client secret when the invoice needs a confirmation step (3-D Secure).
type CreateSubscriptionResult struct {
	Subscription *models.Subscription
	ClientSecret string
}

type service struct {
	repo     *Repository
	userRepo *users.Repository
	planRepo *plans.Repository
	stripe   StripeSubscriptionClient
	txRunner txRunner
	logg     *logger.Logger
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repo required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repo required")
	}
	if params.PlanRepo == nil {
		return nil, fmt.Errorf("plan repo required")
	}
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		userRepo: params.UserRepo,
		planRepo: params.PlanRepo,
		stripe:   params.StripeClient,
		txRunner: params.TransactionRunner,
		logg:     params.Logger,
	}, nil
}

// Create starts a new subscription for the user. Local validation runs before
// any remote call so a rejected request never leaves a stray Stripe resource.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateSubscriptionInput) (*CreateSubscriptionResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	priceID := strings.TrimSpace(input.PriceID)
	if priceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_id is required")
	}
	paymentMethodID := strings.TrimSpace(input.PaymentMethodID)
	if paymentMethodID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_method_id is required")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	existing, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking existing subscription")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already has a subscription")
	}

	plan, err := s.planRepo.FindByPriceID(ctx, priceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no plan matches price_id")
	}
	if !plan.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is not active")
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.attachDefaultPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
		return nil, err
	}

	subParams := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	subParams.AddExpand("latest_invoice.confirmation_secret")

	remote, err := s.stripe.CreateSubscription(ctx, subParams)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating stripe subscription")
	}

	sub := &models.Subscription{
		UserID:               userID,
		StripeSubscriptionID: remote.ID,
		StripePriceID:        priceID,
		PaymentMethodID:      paymentMethodID,
		Interval:             plan.Interval,
		Status:               enums.SubscriptionStatusActive,
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, sub); err != nil {
			return err
		}
		return s.userRepo.WithTx(tx).SetSubscriptionsFlag(ctx, userID, true)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			// a concurrent create won the race; the remote sub we made is now
			// orphaned and will be repaired by the reconciliation job
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already has a subscription")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting subscription")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":         userID,
		"subscription_id": remote.ID,
		"price_id":        priceID,
	}), "subscription created")

	return &CreateSubscriptionResult{
		Subscription: sub,
		ClientSecret: clientSecretOf(remote),
	}, nil
}

// Update replaces the user's subscription with one on a new price. The new
// remote subscription is created before the old one is touched; if creation
// fails the old subscription stays fully intact.
func (s *service) Update(ctx context.Context, userID uuid.UUID, input UpdateSubscriptionInput) (*models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	oldSubID := strings.TrimSpace(input.SubscriptionID)
	if oldSubID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription_id is required")
	}
	priceID := strings.TrimSpace(input.PriceID)
	if priceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_id is required")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	current, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}
	if current == nil || current.StripeSubscriptionID != oldSubID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no matching subscription for user")
	}

	plan, err := s.planRepo.FindByPriceID(ctx, priceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no plan matches price_id")
	}
	if !plan.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is not active")
	}

	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "user has a subscription but no stripe customer")
	}
	customerID := *user.StripeCustomerID

	paymentMethodID := strings.TrimSpace(input.PaymentMethodID)
	if paymentMethodID == "" {
		paymentMethodID = current.PaymentMethodID
	} else {
		if err := s.attachDefaultPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
			return nil, err
		}
	}

	// phase one: create the replacement before touching the old subscription
	newRemote, err := s.stripe.CreateSubscription(ctx, &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating replacement subscription")
	}

	// phase two: retire the old one, best effort
	if _, err := s.stripe.CancelSubscription(ctx, oldSubID, nil); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"user_id":             userID,
			"old_subscription_id": oldSubID,
			"error":               err.Error(),
		}), "canceling replaced subscription failed, reconciler will retry")
	}

	newSub := &models.Subscription{
		UserID:               userID,
		StripeSubscriptionID: newRemote.ID,
		StripePriceID:        priceID,
		PaymentMethodID:      paymentMethodID,
		Interval:             plan.Interval,
		Status:               enums.SubscriptionStatusActive,
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).DeleteByStripeSubscriptionID(ctx, oldSubID); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, newSub); err != nil {
			return err
		}
		return s.userRepo.WithTx(tx).SetSubscriptionsFlag(ctx, userID, true)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting replaced subscription")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":             userID,
		"old_subscription_id": oldSubID,
		"new_subscription_id": newRemote.ID,
	}), "subscription replaced")

	return newSub, nil
}

// Cancel requests cancellation at Stripe and marks the local row cancel
// pending. The row is removed only when the deletion webhook arrives, so a
// locally pending row never masquerades as active.
func (s *service) Cancel(ctx context.Context, userID uuid.UUID, stripeSubID string) (*models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	stripeSubID = strings.TrimSpace(stripeSubID)
	if stripeSubID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription_id is required")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	sub, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}
	if sub == nil || sub.StripeSubscriptionID != stripeSubID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no matching subscription for user")
	}

	if _, err := s.stripe.CancelSubscription(ctx, stripeSubID, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "canceling stripe subscription")
	}

	if err := s.repo.UpdateStatus(ctx, sub.ID, enums.SubscriptionStatusCancelPending); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking subscription cancel pending")
	}
	sub.Status = enums.SubscriptionStatusCancelPending

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id":         userID,
		"subscription_id": stripeSubID,
	}), "subscription cancel requested, awaiting webhook confirmation")

	return sub, nil
}

func (s *service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	cust, err := s.stripe.CreateCustomer(ctx, &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.UserName),
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating stripe customer")
	}

	// persisted immediately so a later failure does not orphan the customer
	if err := s.userRepo.UpdateStripeCustomerID(ctx, user.ID, cust.ID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting stripe customer id")
	}
	user.StripeCustomerID = &cust.ID
	return cust.ID, nil
}

func (s *service) attachDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	_, err := s.stripe.AttachPaymentMethod(ctx, paymentMethodID, &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attaching payment method")
	}

	_, err = s.stripe.UpdateCustomer(ctx, customerID, &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "setting default payment method")
	}
	return nil
}

func clientSecretOf(sub *stripe.Subscription) string {
	if sub == nil || sub.LatestInvoice == nil || sub.LatestInvoice.ConfirmationSecret == nil {
		return ""
	}
	return sub.LatestInvoice.ConfirmationSecret.ClientSecret
}
