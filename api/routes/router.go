package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tanvirahmed-dev/coursemint-backend/api/controllers"
	paymentcontrollers "github.com/tanvirahmed-dev/coursemint-backend/api/controllers/payment"
	webhookcontrollers "github.com/tanvirahmed-dev/coursemint-backend/api/controllers/webhooks"
	"github.com/tanvirahmed-dev/coursemint-backend/api/middleware"
	earningssvc "github.com/tanvirahmed-dev/coursemint-backend/internal/earnings"
	paymentssvc "github.com/tanvirahmed-dev/coursemint-backend/internal/payments"
	planssvc "github.com/tanvirahmed-dev/coursemint-backend/internal/plans"
	subscriptionsvc "github.com/tanvirahmed-dev/coursemint-backend/internal/subscriptions"
	stripewebhook "github.com/tanvirahmed-dev/coursemint-backend/internal/webhooks/stripe"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/config"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/logger"
	"github.com/tanvirahmed-dev/coursemint-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	planService planssvc.Service,
	subscriptionService subscriptionsvc.Service,
	earningsService earningssvc.Service,
	paymentsService paymentssvc.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	// signature-verified, no session auth
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api/v1/payment", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/stripe-plans", paymentcontrollers.ListPlans(planService, logg))
		r.Get("/active-plans", paymentcontrollers.ListActivePlans(planService, logg))
		r.Get("/stripe-plan/{planId}", paymentcontrollers.GetPlan(planService, logg))

		r.Post("/create/stripe-subscription", paymentcontrollers.CreateSubscription(subscriptionService, logg))
		r.Patch("/update/stripe-subscription", paymentcontrollers.UpdateSubscription(subscriptionService, logg))
		r.Delete("/cancel/stripe-subscription", paymentcontrollers.CancelSubscription(subscriptionService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Post("/create/stripe-plan", paymentcontrollers.CreatePlan(planService, logg))
			r.Patch("/update-plan/{planId}", paymentcontrollers.EditPlan(planService, logg))
			r.Get("/total-earnings", paymentcontrollers.TotalEarnings(earningsService, logg))
			r.Get("/payments", paymentcontrollers.ListPayments(paymentsService, logg))
		})
	})

	return r
}
