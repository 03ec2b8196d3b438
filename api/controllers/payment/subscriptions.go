package payment

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tanvirahmed-dev/coursemint-backend/api/middleware"
	"github.com/tanvirahmed-dev/coursemint-backend/api/responses"
	"github.com/tanvirahmed-dev/coursemint-backend/api/validators"
	subssvc "github.com/tanvirahmed-dev/coursemint-backend/internal/subscriptions"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/db/models"
	pkgerrors "github.com/tanvirahmed-dev/coursemint-backend/pkg/errors"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/logger"
)

// SubscriptionService describes the subscription lifecycle methods used by the
// HTTP controllers.
type SubscriptionService interface {
	Create(ctx context.Context, userID uuid.UUID, input subssvc.CreateSubscriptionInput) (*subssvc.CreateSubscriptionResult, error)
	Update(ctx context.Context, userID uuid.UUID, input subssvc.UpdateSubscriptionInput) (*models.Subscription, error)
	Cancel(ctx context.Context, userID uuid.UUID, stripeSubID string) (*models.Subscription, error)
}

type createSubscriptionRequest struct {
	PriceID         string `json:"price_id" validate:"required"`
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

type updateSubscriptionRequest struct {
	SubscriptionID  string `json:"subscription_id" validate:"required"`
	PriceID         string `json:"price_id" validate:"required"`
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

type cancelSubscriptionRequest struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
}

type subscriptionResponse struct {
	ID                   string `json:"id"`
	UserID               string `json:"user_id"`
	StripeSubscriptionID string `json:"stripe_subscription_id"`
	StripePriceID        string `json:"stripe_price_id"`
	Interval             string `json:"interval"`
	Status               string `json:"status"`
	CreatedAt            string `json:"created_at"`
	UpdatedAt            string `json:"updated_at"`
}

type createSubscriptionResponse struct {
	Subscription subscriptionResponse `json:"subscription"`
	ClientSecret string               `json:"client_secret,omitempty"`
}

func CreateSubscription(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := requestUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload createSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Create(ctx, userID, subssvc.CreateSubscriptionInput{
			PriceID:         payload.PriceID,
			PaymentMethodID: payload.PaymentMethodID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, createSubscriptionResponse{
			Subscription: subscriptionToResponse(result.Subscription),
			ClientSecret: result.ClientSecret,
		})
	}
}

func UpdateSubscription(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := requestUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.Update(ctx, userID, subssvc.UpdateSubscriptionInput{
			SubscriptionID:  payload.SubscriptionID,
			PriceID:         payload.PriceID,
			PaymentMethodID: payload.PaymentMethodID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, subscriptionToResponse(sub))
	}
}

func CancelSubscription(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := requestUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload cancelSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.Cancel(ctx, userID, payload.SubscriptionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, subscriptionToResponse(sub))
	}
}

func requestUserID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	return userID, nil
}

func subscriptionToResponse(sub *models.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                   sub.ID.String(),
		UserID:               sub.UserID.String(),
		StripeSubscriptionID: sub.StripeSubscriptionID,
		StripePriceID:        sub.StripePriceID,
		Interval:             string(sub.Interval),
		Status:               string(sub.Status),
		CreatedAt:            sub.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:            sub.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
