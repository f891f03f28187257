// Package sqlmodel holds the grove row models shared by the postgres and
// sqlite stores. JSON-valued columns are carried as raw bytes so each
// dialect can store them in its native JSON or TEXT column.
package sqlmodel

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/cashier/coupon"
	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/notify"
	"github.com/xraph/cashier/payment"
	"github.com/xraph/cashier/paymethod"
	"github.com/xraph/cashier/plan"
	"github.com/xraph/cashier/pricing"
	"github.com/xraph/cashier/settings"
	"github.com/xraph/cashier/subscription"
	"github.com/xraph/cashier/trial"
	"github.com/xraph/cashier/types"
)

// Table names.
const (
	TablePlans          = "cashier_plans"
	TableSubscriptions  = "cashier_subscriptions"
	TableTrials         = "cashier_trials"
	TableCoupons        = "cashier_coupons"
	TablePayments       = "cashier_payments"
	TablePaymentMethods = "cashier_payment_methods"
	TableUsage          = "cashier_usage"
	TableTemplates      = "cashier_email_templates"
	TableEmailLogs      = "cashier_email_logs"
	TableNotifications  = "cashier_notifications"
	TableSettings       = "cashier_settings"
)

func marshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}

func unmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// ==================== Plan ====================

type PlanModel struct {
	grove.BaseModel `grove:"table:cashier_plans"`

	ID            string          `grove:"id,pk"`
	Name          string          `grove:"name"`
	Slug          string          `grove:"slug"`
	Description   string          `grove:"description"`
	PriceAmount   int64           `grove:"price_amount"`
	Currency      string          `grove:"currency"`
	BillingPeriod string          `grove:"billing_period"`
	DurationDays  int             `grove:"duration_days"`
	Tier          int             `grove:"tier"`
	Status        string          `grove:"status"`
	TrialEnabled  bool            `grove:"trial_enabled"`
	TrialDays     int             `grove:"trial_days"`
	Discount      json.RawMessage `grove:"discount"`
	Features      json.RawMessage `grove:"features"`
	Limits        json.RawMessage `grove:"limits"`
	Metadata      json.RawMessage `grove:"metadata"`
	CreatedAt     time.Time       `grove:"created_at"`
	UpdatedAt     time.Time       `grove:"updated_at"`
}

func ToPlanModel(p *plan.Plan) *PlanModel {
	return &PlanModel{
		ID:            p.ID.String(),
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		PriceAmount:   p.Price.Amount,
		Currency:      p.Price.Currency,
		BillingPeriod: string(p.BillingPeriod),
		DurationDays:  p.DurationDays,
		Tier:          p.Tier,
		Status:        string(p.Status),
		TrialEnabled:  p.TrialEnabled,
		TrialDays:     p.TrialDays,
		Discount:      marshal(p.Discount),
		Features:      marshal(p.Features),
		Limits:        marshal(p.Limits),
		Metadata:      marshal(p.Metadata),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func FromPlanModel(m *PlanModel) (*plan.Plan, error) {
	planID, err := id.ParsePlanID(m.ID)
	if err != nil {
		return nil, err
	}

	p := &plan.Plan{
		Entity:        types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:            planID,
		Name:          m.Name,
		Slug:          m.Slug,
		Description:   m.Description,
		Price:         types.Money{Amount: m.PriceAmount, Currency: m.Currency},
		BillingPeriod: plan.BillingPeriod(m.BillingPeriod),
		DurationDays:  m.DurationDays,
		Tier:          m.Tier,
		Status:        plan.Status(m.Status),
		TrialEnabled:  m.TrialEnabled,
		TrialDays:     m.TrialDays,
		Features:      map[string]bool{},
		Limits:        map[string]plan.Limit{},
	}
	if err := unmarshal(m.Discount, &p.Discount); err != nil {
		return nil, err
	}
	if err := unmarshal(m.Features, &p.Features); err != nil {
		return nil, err
	}
	if err := unmarshal(m.Limits, &p.Limits); err != nil {
		return nil, err
	}
	if err := unmarshal(m.Metadata, &p.Metadata); err != nil {
		return nil, err
	}
	return p, nil
}

// ==================== Subscription ====================

type SubscriptionModel struct {
	grove.BaseModel `grove:"table:cashier_subscriptions"`

	ID            string          `grove:"id,pk"`
	UserID        string          `grove:"user_id"`
	PlanID        string          `grove:"plan_id"`
	Status        string          `grove:"status"`
	StartsAt      time.Time       `grove:"starts_at"`
	ExpiresAt     time.Time       `grove:"expires_at"`
	CanceledAt    *time.Time      `grove:"canceled_at"`
	PaymentMethod string          `grove:"payment_method"`
	PaymentRef    string          `grove:"payment_ref"`
	PaymentID     string          `grove:"payment_id"`
	IsTrial       bool            `grove:"is_trial"`
	Metadata      json.RawMessage `grove:"metadata"`
	CreatedAt     time.Time       `grove:"created_at"`
	UpdatedAt     time.Time       `grove:"updated_at"`
}

func ToSubscriptionModel(s *subscription.Subscription) *SubscriptionModel {
	return &SubscriptionModel{
		ID:            s.ID.String(),
		UserID:        s.UserID,
		PlanID:        s.PlanID.String(),
		Status:        string(s.Status),
		StartsAt:      s.StartsAt,
		ExpiresAt:     s.ExpiresAt,
		CanceledAt:    s.CanceledAt,
		PaymentMethod: s.PaymentMethod,
		PaymentRef:    s.PaymentRef,
		PaymentID:     s.PaymentID.String(),
		IsTrial:       s.IsTrial,
		Metadata:      marshal(s.Metadata),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func FromSubscriptionModel(m *SubscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, err
	}
	planID, err := id.ParsePlanID(m.PlanID)
	if err != nil {
		return nil, err
	}
	paymentID, err := id.ParseOptional(m.PaymentID, id.PrefixPayment)
	if err != nil {
		return nil, err
	}

	s := &subscription.Subscription{
		Entity:        types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:            subID,
		UserID:        m.UserID,
		PlanID:        planID,
		Status:        subscription.Status(m.Status),
		StartsAt:      m.StartsAt,
		ExpiresAt:     m.ExpiresAt,
		CanceledAt:    m.CanceledAt,
		PaymentMethod: m.PaymentMethod,
		PaymentRef:    m.PaymentRef,
		PaymentID:     paymentID,
		IsTrial:       m.IsTrial,
	}
	if err := unmarshal(m.Metadata, &s.Metadata); err != nil {
		return nil, err
	}
	return s, nil
}

// ==================== Trial ====================

type TrialModel struct {
	grove.BaseModel `grove:"table:cashier_trials"`

	ID                      string    `grove:"id,pk"`
	UserID                  string    `grove:"user_id"`
	PlanID                  string    `grove:"plan_id"`
	Status                  string    `grove:"status"`
	StartsAt                time.Time `grove:"starts_at"`
	ExpiresAt               time.Time `grove:"expires_at"`
	ConvertedSubscriptionID string    `grove:"converted_subscription_id"`
	CreatedAt               time.Time `grove:"created_at"`
	UpdatedAt               time.Time `grove:"updated_at"`
}

func ToTrialModel(t *trial.Trial) *TrialModel {
	return &TrialModel{
		ID:                      t.ID.String(),
		UserID:                  t.UserID,
		PlanID:                  t.PlanID.String(),
		Status:                  string(t.Status),
		StartsAt:                t.StartsAt,
		ExpiresAt:               t.ExpiresAt,
		ConvertedSubscriptionID: t.ConvertedSubscriptionID.String(),
		CreatedAt:               t.CreatedAt,
		UpdatedAt:               t.UpdatedAt,
	}
}

func FromTrialModel(m *TrialModel) (*trial.Trial, error) {
	trialID, err := id.ParseTrialID(m.ID)
	if err != nil {
		return nil, err
	}
	planID, err := id.ParsePlanID(m.PlanID)
	if err != nil {
		return nil, err
	}
	converted, err := id.ParseOptional(m.ConvertedSubscriptionID, id.PrefixSubscription)
	if err != nil {
		return nil, err
	}

	return &trial.Trial{
		Entity:                  types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:                      trialID,
		UserID:                  m.UserID,
		PlanID:                  planID,
		Status:                  trial.Status(m.Status),
		StartsAt:                m.StartsAt,
		ExpiresAt:               m.ExpiresAt,
		ConvertedSubscriptionID: converted,
	}, nil
}

// ==================== Coupon ====================

type CouponModel struct {
	grove.BaseModel `grove:"table:cashier_coupons"`

	ID             string          `grove:"id,pk"`
	Code           string          `grove:"code"`
	Description    string          `grove:"description"`
	Type           string          `grove:"type"`
	Percent        int64           `grove:"percent"`
	AmountValue    int64           `grove:"amount_value"`
	AmountCurrency string          `grove:"amount_currency"`
	MaxUses        int             `grove:"max_uses"`
	UsedCount      int             `grove:"used_count"`
	ValidFrom      *time.Time      `grove:"valid_from"`
	ExpiresAt      *time.Time      `grove:"expires_at"`
	Active         bool            `grove:"active"`
	PlanIDs        json.RawMessage `grove:"plan_ids"`
	CreatedAt      time.Time       `grove:"created_at"`
	UpdatedAt      time.Time       `grove:"updated_at"`
}

func ToCouponModel(c *coupon.Coupon) *CouponModel {
	return &CouponModel{
		ID:             c.ID.String(),
		Code:           c.Code,
		Description:    c.Description,
		Type:           string(c.Type),
		Percent:        int64(c.Percent),
		AmountValue:    c.Amount.Amount,
		AmountCurrency: c.Amount.Currency,
		MaxUses:        c.MaxUses,
		UsedCount:      c.UsedCount,
		ValidFrom:      c.ValidFrom,
		ExpiresAt:      c.ExpiresAt,
		Active:         c.Active,
		PlanIDs:        marshal(id.Strings(c.PlanIDs)),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func FromCouponModel(m *CouponModel) (*coupon.Coupon, error) {
	couponID, err := id.ParseCouponID(m.ID)
	if err != nil {
		return nil, err
	}

	var planIDs []string
	if err := unmarshal(m.PlanIDs, &planIDs); err != nil {
		return nil, err
	}
	c := &coupon.Coupon{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          couponID,
		Code:        m.Code,
		Description: m.Description,
		Type:        coupon.CouponType(m.Type),
		Percent:     types.Rate(m.Percent),
		Amount:      types.Money{Amount: m.AmountValue, Currency: m.AmountCurrency},
		MaxUses:     m.MaxUses,
		UsedCount:   m.UsedCount,
		ValidFrom:   m.ValidFrom,
		ExpiresAt:   m.ExpiresAt,
		Active:      m.Active,
	}
	for _, s := range planIDs {
		pid, err := id.ParsePlanID(s)
		if err != nil {
			return nil, err
		}
		c.PlanIDs = append(c.PlanIDs, pid)
	}
	return c, nil
}

// ==================== Payment ====================

type PaymentModel struct {
	grove.BaseModel `grove:"table:cashier_payments"`

	ID             string          `grove:"id,pk"`
	UserID         string          `grove:"user_id"`
	PlanID         string          `grove:"plan_id"`
	SubscriptionID string          `grove:"subscription_id"`
	Amount         int64           `grove:"amount"`
	Subtotal       int64           `grove:"subtotal"`
	Fee            int64           `grove:"fee"`
	Discount       int64           `grove:"discount"`
	Currency       string          `grove:"currency"`
	Method         string          `grove:"method"`
	Status         string          `grove:"status"`
	CouponID       string          `grove:"coupon_id"`
	CouponCode     string          `grove:"coupon_code"`
	GatewayRef     string          `grove:"gateway_ref"`
	FailureReason  string          `grove:"failure_reason"`
	LineItems      json.RawMessage `grove:"line_items"`
	PaidAt         *time.Time      `grove:"paid_at"`
	RefundedAt     *time.Time      `grove:"refunded_at"`
	Metadata       json.RawMessage `grove:"metadata"`
	CreatedAt      time.Time       `grove:"created_at"`
	UpdatedAt      time.Time       `grove:"updated_at"`
}

func ToPaymentModel(p *payment.Payment) *PaymentModel {
	return &PaymentModel{
		ID:             p.ID.String(),
		UserID:         p.UserID,
		PlanID:         p.PlanID.String(),
		SubscriptionID: p.SubscriptionID.String(),
		Amount:         p.Amount.Amount,
		Subtotal:       p.Subtotal.Amount,
		Fee:            p.Fee.Amount,
		Discount:       p.Discount.Amount,
		Currency:       p.Currency,
		Method:         p.Method,
		Status:         string(p.Status),
		CouponID:       p.CouponID.String(),
		CouponCode:     p.CouponCode,
		GatewayRef:     p.GatewayRef,
		FailureReason:  p.FailureReason,
		LineItems:      marshal(p.LineItems),
		PaidAt:         p.PaidAt,
		RefundedAt:     p.RefundedAt,
		Metadata:       marshal(p.Metadata),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func FromPaymentModel(m *PaymentModel) (*payment.Payment, error) {
	paymentID, err := id.ParsePaymentID(m.ID)
	if err != nil {
		return nil, err
	}
	planID, err := id.ParsePlanID(m.PlanID)
	if err != nil {
		return nil, err
	}
	subID, err := id.ParseOptional(m.SubscriptionID, id.PrefixSubscription)
	if err != nil {
		return nil, err
	}
	couponID, err := id.ParseOptional(m.CouponID, id.PrefixCoupon)
	if err != nil {
		return nil, err
	}

	money := func(v int64) types.Money { return types.Money{Amount: v, Currency: m.Currency} }
	p := &payment.Payment{
		Entity:         types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:             paymentID,
		UserID:         m.UserID,
		PlanID:         planID,
		SubscriptionID: subID,
		Amount:         money(m.Amount),
		Subtotal:       money(m.Subtotal),
		Fee:            money(m.Fee),
		Discount:       money(m.Discount),
		Currency:       m.Currency,
		Method:         m.Method,
		Status:         payment.Status(m.Status),
		CouponID:       couponID,
		CouponCode:     m.CouponCode,
		GatewayRef:     m.GatewayRef,
		FailureReason:  m.FailureReason,
		PaidAt:         m.PaidAt,
		RefundedAt:     m.RefundedAt,
	}
	var items []pricing.LineItem
	if err := unmarshal(m.LineItems, &items); err != nil {
		return nil, err
	}
	p.LineItems = items
	if err := unmarshal(m.Metadata, &p.Metadata); err != nil {
		return nil, err
	}
	return p, nil
}

// ==================== Payment method ====================

type PaymentMethodModel struct {
	grove.BaseModel `grove:"table:cashier_payment_methods"`

	ID         string          `grove:"id,pk"`
	Code       string          `grove:"code"`
	Name       string          `grove:"name"`
	FeePercent int64           `grove:"fee_percent"`
	FixedFee   int64           `grove:"fixed_fee"`
	MinAmount  int64           `grove:"min_amount"`
	MaxAmount  int64           `grove:"max_amount"`
	Currency   string          `grove:"currency"`
	Countries  json.RawMessage `grove:"countries"`
	Enabled    bool            `grove:"enabled"`
	SortOrder  int             `grove:"sort_order"`
	CreatedAt  time.Time       `grove:"created_at"`
	UpdatedAt  time.Time       `grove:"updated_at"`
}

func ToPaymentMethodModel(c *paymethod.Config) *PaymentMethodModel {
	currency := c.FixedFee.Currency
	for _, m := range []types.Money{c.MinAmount, c.MaxAmount} {
		if currency == "" {
			currency = m.Currency
		}
	}
	return &PaymentMethodModel{
		ID:         c.ID.String(),
		Code:       c.Code,
		Name:       c.Name,
		FeePercent: int64(c.FeePercent),
		FixedFee:   c.FixedFee.Amount,
		MinAmount:  c.MinAmount.Amount,
		MaxAmount:  c.MaxAmount.Amount,
		Currency:   currency,
		Countries:  marshal(c.Countries),
		Enabled:    c.Enabled,
		SortOrder:  c.SortOrder,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func FromPaymentMethodModel(m *PaymentMethodModel) (*paymethod.Config, error) {
	methodID, err := id.ParseOptional(m.ID, id.PrefixPaymentMethod)
	if err != nil {
		return nil, err
	}

	money := func(v int64) types.Money { return types.Money{Amount: v, Currency: m.Currency} }
	c := &paymethod.Config{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:         methodID,
		Code:       m.Code,
		Name:       m.Name,
		FeePercent: types.Rate(m.FeePercent),
		FixedFee:   money(m.FixedFee),
		MinAmount:  money(m.MinAmount),
		MaxAmount:  money(m.MaxAmount),
		Enabled:    m.Enabled,
		SortOrder:  m.SortOrder,
	}
	if err := unmarshal(m.Countries, &c.Countries); err != nil {
		return nil, err
	}
	return c, nil
}

// ==================== Usage ====================

type UsageModel struct {
	grove.BaseModel `grove:"table:cashier_usage"`

	UserID      string    `grove:"user_id,pk"`
	Key         string    `grove:"key,pk"`
	WindowStart time.Time `grove:"window_start,pk"`
	Count       int64     `grove:"count"`
	UpdatedAt   time.Time `grove:"updated_at"`
}

// ==================== Notifications ====================

type TemplateModel struct {
	grove.BaseModel `grove:"table:cashier_email_templates"`

	ID        string    `grove:"id,pk"`
	Type      string    `grove:"type"`
	Subject   string    `grove:"subject"`
	HTMLBody  string    `grove:"html_body"`
	TextBody  string    `grove:"text_body"`
	Enabled   bool      `grove:"enabled"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func ToTemplateModel(t *notify.Template) *TemplateModel {
	return &TemplateModel{
		ID:        t.ID.String(),
		Type:      string(t.Type),
		Subject:   t.Subject,
		HTMLBody:  t.HTMLBody,
		TextBody:  t.TextBody,
		Enabled:   t.Enabled,
		UpdatedAt: t.UpdatedAt,
	}
}

func FromTemplateModel(m *TemplateModel) (*notify.Template, error) {
	tplID, err := id.ParseTemplateID(m.ID)
	if err != nil {
		return nil, err
	}
	return &notify.Template{
		ID:        tplID,
		Type:      notify.Type(m.Type),
		Subject:   m.Subject,
		HTMLBody:  m.HTMLBody,
		TextBody:  m.TextBody,
		Enabled:   m.Enabled,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

type EmailLogModel struct {
	grove.BaseModel `grove:"table:cashier_email_logs"`

	ID         string    `grove:"id,pk"`
	UserID     string    `grove:"user_id"`
	Type       string    `grove:"type"`
	Recipient  string    `grove:"recipient"`
	Subject    string    `grove:"subject"`
	Status     string    `grove:"status"`
	ProviderID string    `grove:"provider_id"`
	Error      string    `grove:"error"`
	SentAt     time.Time `grove:"sent_at"`
}

func ToEmailLogModel(l *notify.EmailLog) *EmailLogModel {
	return &EmailLogModel{
		ID:         l.ID.String(),
		UserID:     l.UserID,
		Type:       string(l.Type),
		Recipient:  l.To,
		Subject:    l.Subject,
		Status:     string(l.Status),
		ProviderID: l.ProviderID,
		Error:      l.Error,
		SentAt:     l.SentAt,
	}
}

func FromEmailLogModel(m *EmailLogModel) (*notify.EmailLog, error) {
	logID, err := id.ParseEmailLogID(m.ID)
	if err != nil {
		return nil, err
	}
	return &notify.EmailLog{
		ID:         logID,
		UserID:     m.UserID,
		Type:       notify.Type(m.Type),
		To:         m.Recipient,
		Subject:    m.Subject,
		Status:     notify.EmailStatus(m.Status),
		ProviderID: m.ProviderID,
		Error:      m.Error,
		SentAt:     m.SentAt,
	}, nil
}

type NotificationModel struct {
	grove.BaseModel `grove:"table:cashier_notifications"`

	ID        string     `grove:"id,pk"`
	UserID    string     `grove:"user_id"`
	Type      string     `grove:"type"`
	Title     string     `grove:"title"`
	Body      string     `grove:"body"`
	IsRead    bool       `grove:"is_read"`
	ReadAt    *time.Time `grove:"read_at"`
	CreatedAt time.Time  `grove:"created_at"`
}

func ToNotificationModel(n *notify.Notification) *NotificationModel {
	return &NotificationModel{
		ID:        n.ID.String(),
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Body:      n.Body,
		IsRead:    n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func FromNotificationModel(m *NotificationModel) (*notify.Notification, error) {
	nID, err := id.ParseNotificationID(m.ID)
	if err != nil {
		return nil, err
	}
	return &notify.Notification{
		ID:        nID,
		UserID:    m.UserID,
		Type:      notify.Type(m.Type),
		Title:     m.Title,
		Body:      m.Body,
		Read:      m.IsRead,
		ReadAt:    m.ReadAt,
		CreatedAt: m.CreatedAt,
	}, nil
}

// ==================== Settings ====================

type SettingModel struct {
	grove.BaseModel `grove:"table:cashier_settings"`

	Key       string          `grove:"key,pk"`
	Value     json.RawMessage `grove:"value"`
	UpdatedAt time.Time       `grove:"updated_at"`
}

func ToSettingModel(s *settings.Setting) *SettingModel {
	return &SettingModel{Key: s.Key, Value: s.Value, UpdatedAt: s.UpdatedAt}
}

func FromSettingModel(m *SettingModel) *settings.Setting {
	return &settings.Setting{Key: m.Key, Value: m.Value, UpdatedAt: m.UpdatedAt}
}

// Convert maps a slice of rows through fn.
func Convert[M any, T any](rows []M, fn func(*M) (T, error)) ([]T, error) {
	out := make([]T, len(rows))
	for i := range rows {
		v, err := fn(&rows[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
