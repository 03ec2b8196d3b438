package plans

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/price"
	"github.com/stripe/stripe-go/v84/product"

	pkgstripe "github.com/tanvirahmed-dev/coursemint-backend/pkg/stripe"
)

// StripeCatalogClient exposes the subset of Stripe operations required by the plan service.
type StripeCatalogClient interface {
	CreateProduct(ctx context.Context, params *stripe.ProductParams) (*stripe.Product, error)
	UpdateProduct(ctx context.Context, id string, params *stripe.ProductParams) (*stripe.Product, error)
	CreatePrice(ctx context.Context, params *stripe.PriceParams) (*stripe.Price, error)
}

type stripeCatalogWrapper struct{}

// NewStripeClient wraps the provided Stripe client so the plan service can be tested.
func NewStripeClient(api *pkgstripe.Client) StripeCatalogClient {
	if api == nil {
		return nil
	}
	return &stripeCatalogWrapper{}
}

func (w *stripeCatalogWrapper) CreateProduct(ctx context.Context, params *stripe.ProductParams) (*stripe.Product, error) {
	if params != nil {
		params.Context = ctx
	}
	return product.New(params)
}

func (w *stripeCatalogWrapper) UpdateProduct(ctx context.Context, id string, params *stripe.ProductParams) (*stripe.Product, error) {
	if params != nil {
		params.Context = ctx
	}
	return product.Update(id, params)
}

func (w *stripeCatalogWrapper) CreatePrice(ctx context.Context, params *stripe.PriceParams) (*stripe.Price, error) {
	if params != nil {
		params.Context = ctx
	}
	return price.New(params)
}
