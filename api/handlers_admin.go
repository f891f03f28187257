package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/cashier"
	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/export"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/paymethod"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/settings"
	"github.com/xraph/cashier/subscription"
)

// ──────────────────────────────────────────────────
// Plans
// ──────────────────────────────────────────────────

func (a *API) adminListPlans(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	plans, err := a.engine.ListPlans(r.Context(), plan.ListOpts{
		Status: plan.Status(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list[*plan.Plan]{Data: plans, Limit: limit, Offset: offset})
}

func (a *API) adminCreatePlan(w http.ResponseWriter, r *http.Request) {
	var p plan.Plan
	if err := decode(w, r, &p); err != nil {
		a.fail(w, r, err)
		return
	}
	p.ID = id.Nil
	if err := a.engine.CreatePlan(r.Context(), &p); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, &p)
}

func (a *API) adminGetPlan(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "planID", id.PrefixPlan)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.engine.GetPlan(r.Context(), planID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) adminUpdatePlan(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "planID", id.PrefixPlan)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var p plan.Plan
	if err := decode(w, r, &p); err != nil {
		a.fail(w, r, err)
		return
	}
	p.ID = planID
	if err := a.engine.UpdatePlan(r.Context(), &p); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &p)
}

func (a *API) adminArchivePlan(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "planID", id.PrefixPlan)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.engine.ArchivePlan(r.Context(), planID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) adminDeletePlan(w http.ResponseWriter, r *http.Request) {
	planID, err := pathID(r, "planID", id.PrefixPlan)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.engine.DeletePlan(r.Context(), planID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// adminSeedCatalog inserts the built-in catalog plans whose slugs are missing.
func (a *API) adminSeedCatalog(w http.ResponseWriter, r *http.Request) {
	n, err := a.engine.SeedCatalog(r.Context(), plan.DefaultCatalog())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": n})
}

// ──────────────────────────────────────────────────
// Coupons
// ──────────────────────────────────────────────────

func (a *API) adminListCoupons(w http.ResponseWriter, r *http.Request) {
	csv, err := wantsCSV(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit, offset, err := page(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	opts := coupon.ListOpts{Active: boolParam(r, "active"), Limit: limit, Offset: offset}
	if csv {
		opts.Limit, opts.Offset = 0, 0
	}

	coupons, err := a.engine.ListCoupons(r.Context(), opts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if csv {
		a.writeCSV(w, r, "coupons", func(w http.ResponseWriter) error { return export.WriteCoupons(w, coupons) })
		return
	}
	writeJSON(w, http.StatusOK, list[*coupon.Coupon]{Data: coupons, Limit: limit, Offset: offset})
}

func (a *API) adminCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var c coupon.Coupon
	if err := decode(w, r, &c); err != nil {
		a.fail(w, r, err)
		return
	}
	c.ID = id.Nil
	if err := a.engine.CreateCoupon(r.Context(), &c); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, &c)
}

func (a *API) adminGetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := a.engine.GetCoupon(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) adminUpdateCoupon(w http.ResponseWriter, r *http.Request) {
	couponID, err := pathID(r, "couponID", id.PrefixCoupon)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var c coupon.Coupon
	if err := decode(w, r, &c); err != nil {
		a.fail(w, r, err)
		return
	}
	c.ID = couponID
	if err := a.engine.UpdateCoupon(r.Context(), &c); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &c)
}

func (a *API) adminDeleteCoupon(w http.ResponseWriter, r *http.Request) {
	couponID, err := pathID(r, "couponID", id.PrefixCoupon)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.engine.DeleteCoupon(r.Context(), couponID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ──────────────────────────────────────────────────
// Payment methods
// ──────────────────────────────────────────────────

func (a *API) adminListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := a.engine.ListPaymentMethods(r.Context(), false)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list[*paymethod.Config]{Data: methods})
}

func (a *API) adminUpsertPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var cfg paymethod.Config
	if err := decode(w, r, &cfg); err != nil {
		a.fail(w, r, err)
		return
	}
	cfg.Code = chi.URLParam(r, "code")
	if err := a.engine.UpsertPaymentMethod(r.Context(), &cfg); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &cfg)
}

func (a *API) adminDeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.DeletePaymentMethod(r.Context(), chi.URLParam(r, "code")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) adminSeedPaymentMethods(w http.ResponseWriter, r *http.Request) {
	n, err := a.engine.SeedPaymentMethods(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": n})
}

// ──────────────────────────────────────────────────
// Templates and settings
// ──────────────────────────────────────────────────

func (a *API) adminListTemplates(w http.ResponseWriter, r *http.Request) {
	tpls, err := a.engine.ListTemplates(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list[*notify.Template]{Data: tpls})
}

func (a *API) adminGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := a.engine.GetTemplate(r.Context(), notify.Type(chi.URLParam(r, "type")))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) adminPutTemplate(w http.ResponseWriter, r *http.Request) {
	var t notify.Template
	if err := decode(w, r, &t); err != nil {
		a.fail(w, r, err)
		return
	}
	t.Type = notify.Type(chi.URLParam(r, "type"))
	if err := a.engine.UpsertTemplate(r.Context(), &t); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &t)
}

func (a *API) adminDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.DeleteTemplate(r.Context(), notify.Type(chi.URLParam(r, "type"))); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) adminListSettings(w http.ResponseWriter, r *http.Request) {
	all, err := a.engine.ListSettings(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list[*settings.Setting]{Data: all})
}

func (a *API) adminGetSetting(w http.ResponseWriter, r *http.Request) {
	s, err := a.engine.GetSetting(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// adminPutSetting stores the raw JSON body as the setting value.
func (a *API) adminPutSetting(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !json.Valid(body) {
		a.fail(w, r, fmt.Errorf("%w: body is not JSON", errBadRequest))
		return
	}
	s, err := a.engine.PutSetting(r.Context(), chi.URLParam(r, "key"), json.RawMessage(body))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ──────────────────────────────────────────────────
// Subscriptions and payments
// ──────────────────────────────────────────────────

func (a *API) adminListSubscriptions(w http.ResponseWriter, r *http.Request) {
	csv, err := wantsCSV(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit, offset, err := page(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	opts := subscription.ListOpts{
		UserID: q.Get("user_id"),
		Status: subscription.Status(q.Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	if raw := q.Get("plan_id"); raw != "" {
		if opts.PlanID, err = id.ParsePlanID(raw); err != nil {
			a.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}
	if opts.ExpiresBefore, err = timeParam(r, "expires_before"); err != nil {
		a.fail(w, r, err)
		return
	}
	if csv {
		opts.Limit, opts.Offset = 0, 0
	}

	subs, err := a.engine.ListSubscriptions(r.Context(), opts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if csv {
		a.writeCSV(w, r, "subscriptions", func(w http.ResponseWriter) error { return export.WriteSubscriptions(w, subs) })
		return
	}
	writeJSON(w, http.StatusOK, list[*subscription.Subscription]{Data: subs, Limit: limit, Offset: offset})
}

func (a *API) adminGetSubscription(w http.ResponseWriter, r *http.Request) {
	subID, err := pathID(r, "subscriptionID", id.PrefixSubscription)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	sub, err := a.engine.GetSubscription(r.Context(), subID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (a *API) adminCancelSubscription(w http.ResponseWriter, r *http.Request) {
	subID, err := pathID(r, "subscriptionID", id.PrefixSubscription)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	sub, err := a.engine.CancelSubscription(r.Context(), subID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

type extendRequest struct {
	Days int `json:"days"`
}

func (a *API) adminExtendSubscription(w http.ResponseWriter, r *http.Request) {
	subID, err := pathID(r, "subscriptionID", id.PrefixSubscription)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req extendRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	sub, err := a.engine.ExtendSubscription(r.Context(), subID, req.Days)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (a *API) adminListPayments(w http.ResponseWriter, r *http.Request) {
	csv, err := wantsCSV(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit, offset, err := page(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	opts := payment.ListOpts{
		UserID: q.Get("user_id"),
		Status: payment.Status(q.Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	if opts.From, err = timeParam(r, "from"); err != nil {
		a.fail(w, r, err)
		return
	}
	if opts.To, err = timeParam(r, "to"); err != nil {
		a.fail(w, r, err)
		return
	}
	if csv {
		opts.Limit, opts.Offset = 0, 0
	}

	payments, err := a.engine.ListPayments(r.Context(), opts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if csv {
		a.writeCSV(w, r, "payments", func(w http.ResponseWriter) error { return export.WritePayments(w, payments) })
		return
	}
	writeJSON(w, http.StatusOK, list[*payment.Payment]{Data: payments, Limit: limit, Offset: offset})
}

func (a *API) adminGetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := pathID(r, "paymentID", id.PrefixPayment)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.engine.GetPayment(r.Context(), paymentID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) adminRefundPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := pathID(r, "paymentID", id.PrefixPayment)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.engine.RefundPayment(r.Context(), paymentID); err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.engine.GetPayment(r.Context(), paymentID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) adminListEmailLogs(w http.ResponseWriter, r *http.Request) {
	csv, err := wantsCSV(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit, offset, err := page(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	opts := notify.EmailLogOpts{
		UserID: q.Get("user_id"),
		Type:   notify.Type(q.Get("type")),
		Status: notify.EmailStatus(q.Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	if csv {
		opts.Limit, opts.Offset = 0, 0
	}

	logs, err := a.engine.ListEmailLogs(r.Context(), opts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if csv {
		a.writeCSV(w, r, "email-logs", func(w http.ResponseWriter) error { return export.WriteEmailLogs(w, logs) })
		return
	}
	writeJSON(w, http.StatusOK, list[*notify.EmailLog]{Data: logs, Limit: limit, Offset: offset})
}

// ──────────────────────────────────────────────────
// Users
// ──────────────────────────────────────────────────

func (a *API) adminUserAccess(w http.ResponseWriter, r *http.Request) {
	snap, err := a.engine.Access(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type notifyRequest struct {
	Type notify.Type `json:"type"`
}

// adminNotifyUser delivers a notification outside the billing hooks,
// such as the welcome message after sign-up.
func (a *API) adminNotifyUser(w http.ResponseWriter, r *http.Request) {
	if a.notifier == nil {
		a.fail(w, r, errNoNotifier)
		return
	}
	var req notifyRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if !req.Type.Valid() {
		a.fail(w, r, cashier.ValidationError{Field: "type", Message: fmt.Sprintf("unknown notification type %q", req.Type)})
		return
	}
	if err := a.notifier.Deliver(r.Context(), chi.URLParam(r, "userID"), req.Type, notify.Data{}); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) writeCSV(w http.ResponseWriter, r *http.Request, name string, write func(http.ResponseWriter) error) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.csv"`,
		name, a.engine.Now().Format(time.DateOnly)))
	if err := write(w); err != nil {
		a.logger.Error("api: csv export failed", "export", name, "path", r.URL.Path, "error", err)
	}
}
