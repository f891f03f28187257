package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/entitlement"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/paymethod"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/subscription"
)

// ──────────────────────────────────────────────────
// Catalog
// ──────────────────────────────────────────────────

func (a *API) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := a.engine.ListPlans(r.Context(), plan.ListOpts{Status: plan.StatusActive})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list[*plan.Plan]{Data: plans})
}

func (a *API) getPlan(w http.ResponseWriter, r *http.Request) {
	p, err := a.engine.GetPlanBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if p.Status != plan.StatusActive {
		a.fail(w, r, cashier.ErrPlanNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// listPaymentMethods returns enabled methods. With ?country=XX only methods
// serving that country are listed.
func (a *API) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := a.engine.ListPaymentMethods(r.Context(), true)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if country := r.URL.Query().Get("country"); country != "" {
		kept := methods[:0]
		for _, m := range methods {
			if len(m.Countries) == 0 || containsFold(m.Countries, country) {
				kept = append(kept, m)
			}
		}
		methods = kept
	}
	writeJSON(w, http.StatusOK, list[*paymethod.Config]{Data: methods})
}

type validateCouponRequest struct {
	Code     string    `json:"code"`
	PlanID   id.PlanID `json:"plan_id"`
	PlanSlug string    `json:"plan_slug,omitempty"`
}

type validateCouponResponse struct {
	Valid   bool           `json:"valid"`
	Coupon  *coupon.Coupon `json:"coupon,omitempty"`
	Message string         `json:"message,omitempty"`
}

// validateCoupon answers 200 for both outcomes; an unusable code is
// reported in the body.
func (a *API) validateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	planID := req.PlanID
	if planID.IsNil() && req.PlanSlug != "" {
		p, err := a.engine.GetPlanBySlug(r.Context(), req.PlanSlug)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		planID = p.ID
	}

	c, err := a.engine.ValidateCoupon(r.Context(), req.Code, userID(r), planID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, validateCouponResponse{Valid: true, Coupon: c})
	case errors.Is(err, cashier.ErrCouponNotFound), cashier.IsValidation(err), errors.Is(err, cashier.ErrCouponExhausted):
		writeJSON(w, http.StatusOK, validateCouponResponse{Valid: false, Message: err.Error()})
	default:
		a.fail(w, r, err)
	}
}

func (a *API) quote(w http.ResponseWriter, r *http.Request) {
	var req cashier.QuoteRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	req.UserID = userID(r)

	q, err := a.engine.Quote(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// checkout creates a pending payment. Free totals complete immediately
// and the response status is then completed.
func (a *API) checkout(w http.ResponseWriter, r *http.Request) {
	var req cashier.CheckoutRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	req.UserID = userID(r)

	p, err := a.engine.Checkout(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ──────────────────────────────────────────────────
// Status and access
// ──────────────────────────────────────────────────

func (a *API) myStatus(w http.ResponseWriter, r *http.Request) {
	status, err := a.engine.Status(r.Context(), userID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]subscription.UserStatus{"status": status})
}

func (a *API) myAccess(w http.ResponseWriter, r *http.Request) {
	snap, err := a.engine.Access(r.Context(), userID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) myFeature(w http.ResponseWriter, r *http.Request) {
	res, err := a.engine.HasFeature(r.Context(), userID(r), chi.URLParam(r, "key"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) myLimit(w http.ResponseWriter, r *http.Request) {
	res, err := a.engine.CheckLimit(r.Context(), userID(r), chi.URLParam(r, "key"))
	if err != nil {
		a.failWithResult(w, r, err, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type consumeRequest struct {
	N int64 `json:"n"`
}

// consumeLimit uses n units (default 1) of a limit. A refused request
// answers 429 with the current usage.
func (a *API) consumeLimit(w http.ResponseWriter, r *http.Request) {
	req := consumeRequest{N: 1}
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			a.fail(w, r, err)
			return
		}
	}

	res, err := a.engine.ConsumeLimit(r.Context(), userID(r), chi.URLParam(r, "key"), req.N)
	if err != nil {
		a.failWithResult(w, r, err, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type resultError struct {
	ErrorResponse
	Result *entitlement.Result `json:"result"`
}

// failWithResult reports err together with the entitlement result the
// engine returned alongside it.
func (a *API) failWithResult(w http.ResponseWriter, r *http.Request, err error, res *entitlement.Result) {
	if res == nil {
		a.fail(w, r, err)
		return
	}
	status, code := statusFor(err)
	writeJSON(w, status, resultError{ErrorResponse: ErrorResponse{Error: err.Error(), Code: code}, Result: res})
}

// ──────────────────────────────────────────────────
// Trial and subscription
// ──────────────────────────────────────────────────

func (a *API) myTrial(w http.ResponseWriter, r *http.Request) {
	el, err := a.engine.TrialEligibility(r.Context(), userID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

type startTrialRequest struct {
	PlanSlug string `json:"plan_slug"`
}

func (a *API) startTrial(w http.ResponseWriter, r *http.Request) {
	var req startTrialRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	t, err := a.engine.StartTrial(r.Context(), userID(r), req.PlanSlug)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) mySubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := a.engine.GetActiveSubscription(r.Context(), userID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (a *API) cancelMySubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := a.engine.GetActiveSubscription(r.Context(), userID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	canceled, err := a.engine.CancelSubscription(r.Context(), sub.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, canceled)
}

// ──────────────────────────────────────────────────
// History and notifications
// ──────────────────────────────────────────────────

func (a *API) myPayments(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	payments, err := a.engine.ListPayments(r.Context(), payment.ListOpts{
		UserID: userID(r),
		Status: payment.Status(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list[*payment.Payment]{Data: payments, Limit: limit, Offset: offset})
}

func (a *API) myNotifications(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items, err := a.engine.ListNotifications(r.Context(), userID(r), notify.NotificationOpts{
		UnreadOnly: boolParam(r, "unread"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list[*notify.Notification]{Data: items, Limit: limit, Offset: offset})
}

func (a *API) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	nid, err := pathID(r, "notificationID", id.PrefixNotification)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.engine.MarkNotificationRead(r.Context(), userID(r), nid); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func containsFold(values []string, v string) bool {
	for _, s := range values {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
