// Package api exposes the Cashier engine over HTTP.
//
// Routes under /v1 require an HS256 bearer token whose subject is the user
// id. Routes under /v1/admin additionally require role=admin. Gateway
// callbacks arrive at /webhooks/payments and are authenticated by their
// HMAC signature instead of a token.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/webhook"
)

// API serves the HTTP interface.
type API struct {
	engine   *cashier.Cashier
	auth     *Authenticator
	verifier *webhook.Verifier
	notifier *notify.Notifier
	logger   *slog.Logger

	allowedOrigins []string
	requestTimeout time.Duration
	accessLog      bool
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) { a.logger = logger }
}

// WithWebhookVerifier enables /webhooks/payments. Without it the route
// answers 503.
func WithWebhookVerifier(v *webhook.Verifier) Option {
	return func(a *API) { a.verifier = v }
}

// WithNotifier enables the admin notify route.
func WithNotifier(n *notify.Notifier) Option {
	return func(a *API) { a.notifier = n }
}

// WithAllowedOrigins sets the CORS origins. Defaults to any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(a *API) { a.allowedOrigins = origins }
}

// WithRequestTimeout bounds each request. Defaults to 30s.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *API) { a.requestTimeout = d }
}

// WithAccessLog toggles chi's request logger.
func WithAccessLog(enabled bool) Option {
	return func(a *API) { a.accessLog = enabled }
}

// New creates an API over engine, authenticating with auth.
func New(engine *cashier.Cashier, auth *Authenticator, opts ...Option) *API {
	a := &API{
		engine:         engine,
		auth:           auth,
		logger:         slog.Default(),
		allowedOrigins: []string{"https://*", "http://*"},
		requestTimeout: 30 * time.Second,
		accessLog:      true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler builds the router.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if a.accessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", a.health)
	r.Post("/webhooks/payments", a.paymentWebhook)

	r.Route("/v1", func(r chi.Router) {
		r.Use(a.auth.Middleware)

		r.Get("/plans", a.listPlans)
		r.Get("/plans/{slug}", a.getPlan)
		r.Get("/payment-methods", a.listPaymentMethods)
		r.Post("/coupons/validate", a.validateCoupon)
		r.Post("/quote", a.quote)
		r.Post("/checkout", a.checkout)

		r.Route("/me", func(r chi.Router) {
			r.Get("/status", a.myStatus)
			r.Get("/access", a.myAccess)
			r.Get("/features/{key}", a.myFeature)
			r.Get("/limits/{key}", a.myLimit)
			r.Post("/limits/{key}/consume", a.consumeLimit)
			r.Get("/trial", a.myTrial)
			r.Post("/trial", a.startTrial)
			r.Get("/subscription", a.mySubscription)
			r.Post("/subscription/cancel", a.cancelMySubscription)
			r.Get("/payments", a.myPayments)
			r.Get("/notifications", a.myNotifications)
			r.Post("/notifications/{notificationID}/read", a.markNotificationRead)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			a.adminRoutes(r)
		})
	})

	return r
}

func (a *API) adminRoutes(r chi.Router) {
	r.Route("/plans", func(r chi.Router) {
		r.Get("/", a.adminListPlans)
		r.Post("/", a.adminCreatePlan)
		r.Post("/seed", a.adminSeedCatalog)
		r.Get("/{planID}", a.adminGetPlan)
		r.Put("/{planID}", a.adminUpdatePlan)
		r.Post("/{planID}/archive", a.adminArchivePlan)
		r.Delete("/{planID}", a.adminDeletePlan)
	})

	r.Route("/coupons", func(r chi.Router) {
		r.Get("/", a.adminListCoupons)
		r.Post("/", a.adminCreateCoupon)
		r.Get("/{code}", a.adminGetCoupon)
		r.Put("/{couponID}", a.adminUpdateCoupon)
		r.Delete("/{couponID}", a.adminDeleteCoupon)
	})

	r.Route("/payment-methods", func(r chi.Router) {
		r.Get("/", a.adminListPaymentMethods)
		r.Post("/seed", a.adminSeedPaymentMethods)
		r.Put("/{code}", a.adminUpsertPaymentMethod)
		r.Delete("/{code}", a.adminDeletePaymentMethod)
	})

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", a.adminListTemplates)
		r.Get("/{type}", a.adminGetTemplate)
		r.Put("/{type}", a.adminPutTemplate)
		r.Delete("/{type}", a.adminDeleteTemplate)
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", a.adminListSettings)
		r.Get("/{key}", a.adminGetSetting)
		r.Put("/{key}", a.adminPutSetting)
	})

	r.Route("/subscriptions", func(r chi.Router) {
		r.Get("/", a.adminListSubscriptions)
		r.Get("/{subscriptionID}", a.adminGetSubscription)
		r.Post("/{subscriptionID}/cancel", a.adminCancelSubscription)
		r.Post("/{subscriptionID}/extend", a.adminExtendSubscription)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Get("/", a.adminListPayments)
		r.Get("/{paymentID}", a.adminGetPayment)
		r.Post("/{paymentID}/refund", a.adminRefundPayment)
	})

	r.Get("/email-logs", a.adminListEmailLogs)

	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/access", a.adminUserAccess)
		r.Post("/notify", a.adminNotifyUser)
	})
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Store().Ping(r.Context()); err != nil {
		a.logger.Warn("api: health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
