package payment

import (
	"context"
	"net/http"

	"github.com/tanvirahmed-dev/coursemint-backend/api/responses"
	earningssvc "github.com/tanvirahmed-dev/coursemint-backend/internal/earnings"
	paymentssvc "github.com/tanvirahmed-dev/coursemint-backend/internal/payments"
	pkgerrors "github.com/tanvirahmed-dev/coursemint-backend/pkg/errors"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/logger"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/pagination"
)

// EarningsService describes the revenue aggregation used by the admin controllers.
type EarningsService interface {
	TotalEarnings(ctx context.Context) (*earningssvc.Totals, error)
}

// PaymentListService describes the admin payment record listing.
type PaymentListService interface {
	ListSubscriptions(ctx context.Context, params pagination.Params) (*paymentssvc.SubscriptionPage, error)
}

type totalEarningsResponse struct {
	Total        string `json:"total"`
	InvoiceCount int    `json:"invoice_count"`
}

func TotalEarnings(svc EarningsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}

		totals, err := svc.TotalEarnings(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, totalEarningsResponse{
			Total:        totals.Total.StringFixed(2),
			InvoiceCount: totals.InvoiceCount,
		})
	}
}

func ListPayments(svc PaymentListService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		page, err := svc.ListSubscriptions(ctx, pagination.FromQuery(r.URL.Query()))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}
