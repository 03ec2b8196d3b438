package payments

import (
	"context"
	"fmt"

	"github.com/tanvirahmed-dev/coursemint-backend/internal/subscriptions"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/db/models"
	pkgerrors "github.com/tanvirahmed-dev/coursemint-backend/pkg/errors"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/pagination"
)

// Service exposes the admin-facing payment listing.
type Service interface {
	ListSubscriptions(ctx context.Context, params pagination.Params) (*SubscriptionPage, error)
}

// ServiceParams groups dependencies for the payments service.
type ServiceParams struct {
	SubscriptionRepo *subscriptions.Repository
}

// SubscriptionPage is one page of subscription payment records with totals.
type SubscriptionPage struct {
	Items      []models.Subscription `json:"items"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
	TotalCount int64                 `json:"total_count"`
	TotalPages int                   `json:"total_pages"`
}

type service struct {
	subRepo *subscriptions.Repository
}

// NewService builds a payments service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.SubscriptionRepo == nil {
		return nil, fmt.Errorf("subscription repo required")
	}
	return &service{subRepo: params.SubscriptionRepo}, nil
}

// ListSubscriptions returns a page of subscriptions with user details,
// newest first.
func (s *service) ListSubscriptions(ctx context.Context, params pagination.Params) (*SubscriptionPage, error) {
	params = pagination.Normalize(params)

	items, total, err := s.subRepo.ListPage(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing subscriptions")
	}

	return &SubscriptionPage{
		Items:      items,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalCount: total,
		TotalPages: pagination.TotalPages(total, params.Limit),
	}, nil
}
