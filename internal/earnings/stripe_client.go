package earnings

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/invoice"

	pkgstripe "github.com/tanvirahmed-dev/coursemint-backend/pkg/stripe"
)

// StripeInvoiceClient exposes the single Stripe operation the aggregator
// needs: fetching one page of invoices.
type StripeInvoiceClient interface {
	ListInvoices(ctx context.Context, params *stripe.InvoiceListParams) (*stripe.InvoiceList, error)
}

type stripeInvoiceWrapper struct{}

// NewStripeClient wraps the provided Stripe client so the aggregator can be tested.
func NewStripeClient(api *pkgstripe.Client) StripeInvoiceClient {
	if api == nil {
		return nil
	}
	return &stripeInvoiceWrapper{}
}

// ListInvoices fetches exactly one page; the service owns the cursor loop.
func (w *stripeInvoiceWrapper) ListInvoices(ctx context.Context, params *stripe.InvoiceListParams) (*stripe.InvoiceList, error) {
	if params == nil {
		params = &stripe.InvoiceListParams{}
	}
	params.Context = ctx
	params.Single = true

	it := invoice.List(params)
	page := &stripe.InvoiceList{}
	for it.Next() {
		page.Data = append(page.Data, it.Invoice())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	if meta := it.Meta(); meta != nil {
		page.ListMeta = *meta
	}
	return page, nil
}
