package earnings

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/tanvirahmed-dev/coursemint-backend/pkg/errors"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/logger"
)

const pageSize = 100

// Service computes revenue totals from Stripe invoice history. No local
// writes; every call re-scans the full history.
type Service interface {
	TotalEarnings(ctx context.Context) (*Totals, error)
}

// ServiceParams groups dependencies for the earnings service.
type ServiceParams struct {
	StripeClient StripeInvoiceClient
	Logger       *logger.Logger
}

// Totals is the aggregation result. Total is in major currency units.
type Totals struct {
	Total        decimal.Decimal `json:"total"`
	InvoiceCount int             `json:"invoice_count"`
}

type service struct {
	stripe StripeInvoiceClient
	logg   *logger.Logger
}

// NewService builds an earnings service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{stripe: params.StripeClient, logg: params.Logger}, nil
}

// TotalEarnings walks every invoice page, summing amount_paid across page
// boundaries, and converts the running total from minor units.
func (s *service) TotalEarnings(ctx context.Context) (*Totals, error) {
	var (
		totalMinor    int64
		invoiceCount  int
		startingAfter string
	)

	for {
		params := &stripe.InvoiceListParams{}
		params.Limit = stripe.Int64(pageSize)
		if startingAfter != "" {
			params.StartingAfter = stripe.String(startingAfter)
		}

		page, err := s.stripe.ListInvoices(ctx, params)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing stripe invoices")
		}

		for _, inv := range page.Data {
			totalMinor += inv.AmountPaid
			invoiceCount++
		}

		if len(page.Data) == 0 || !page.HasMore {
			break
		}
		startingAfter = page.Data[len(page.Data)-1].ID
	}

	return &Totals{
		Total:        decimal.NewFromInt(totalMinor).Div(decimal.NewFromInt(100)),
		InvoiceCount: invoiceCount,
	}, nil
}
