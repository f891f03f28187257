package mongo

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

// ==================== Plan models ====================

type planModel struct {
	grove.BaseModel `grove:"table:cashier_plans"`

	ID            string                `grove:"id,pk"          bson:"_id"`
	Name          string                `grove:"name"           bson:"name"`
	Slug          string                `grove:"slug"           bson:"slug"`
	Description   string                `grove:"description"    bson:"description"`
	PriceAmount   int64                 `grove:"price_amount"   bson:"price_amount"`
	Currency      string                `grove:"currency"       bson:"currency"`
	BillingPeriod string                `grove:"billing_period" bson:"billing_period"`
	DurationDays  int                   `grove:"duration_days"  bson:"duration_days"`
	Tier          int                   `grove:"tier"           bson:"tier"`
	Status        string                `grove:"status"         bson:"status"`
	TrialEnabled  bool                  `grove:"trial_enabled"  bson:"trial_enabled"`
	TrialDays     int                   `grove:"trial_days"     bson:"trial_days"`
	Discount      *discountModel        `grove:"discount"       bson:"discount,omitempty"`
	Features      map[string]bool       `grove:"features"       bson:"features"`
	Limits        map[string]limitModel `grove:"limits"         bson:"limits"`
	Metadata      map[string]string     `grove:"metadata"       bson:"metadata,omitempty"`
	CreatedAt     time.Time             `grove:"created_at"     bson:"created_at"`
	UpdatedAt     time.Time             `grove:"updated_at"     bson:"updated_at"`
}

type discountModel struct {
	Percent   int64     `bson:"percent"`
	StartsAt  time.Time `bson:"starts_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type limitModel struct {
	Max    int64  `bson:"max"`
	Period string `bson:"period"`
}

func toPlanModel(p *plan.Plan) *planModel {
	m := &planModel{
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
		Features:      p.Features,
		Limits:        make(map[string]limitModel, len(p.Limits)),
		Metadata:      p.Metadata,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.Discount != nil {
		m.Discount = &discountModel{
			Percent:   int64(p.Discount.Percent),
			StartsAt:  p.Discount.StartsAt,
			ExpiresAt: p.Discount.ExpiresAt,
		}
	}
	for k, l := range p.Limits {
		m.Limits[k] = limitModel{Max: l.Max, Period: string(l.Period)}
	}
	return m
}

func fromPlanModel(m *planModel) (*plan.Plan, error) {
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
		Features:      m.Features,
		Limits:        make(map[string]plan.Limit, len(m.Limits)),
		Metadata:      m.Metadata,
	}
	if p.Features == nil {
		p.Features = map[string]bool{}
	}
	if m.Discount != nil {
		p.Discount = &plan.Discount{
			Percent:   types.Rate(m.Discount.Percent),
			StartsAt:  m.Discount.StartsAt,
			ExpiresAt: m.Discount.ExpiresAt,
		}
	}
	for k, l := range m.Limits {
		p.Limits[k] = plan.Limit{Max: l.Max, Period: plan.Period(l.Period)}
	}
	return p, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:cashier_subscriptions"`

	ID            string            `grove:"id,pk"          bson:"_id"`
	UserID        string            `grove:"user_id"        bson:"user_id"`
	PlanID        string            `grove:"plan_id"        bson:"plan_id"`
	Status        string            `grove:"status"         bson:"status"`
	StartsAt      time.Time         `grove:"starts_at"      bson:"starts_at"`
	ExpiresAt     time.Time         `grove:"expires_at"     bson:"expires_at"`
	CanceledAt    *time.Time        `grove:"canceled_at"    bson:"canceled_at,omitempty"`
	PaymentMethod string            `grove:"payment_method" bson:"payment_method"`
	PaymentRef    string            `grove:"payment_ref"    bson:"payment_ref"`
	PaymentID     string            `grove:"payment_id"     bson:"payment_id"`
	IsTrial       bool              `grove:"is_trial"       bson:"is_trial"`
	Metadata      map[string]string `grove:"metadata"       bson:"metadata,omitempty"`
	CreatedAt     time.Time         `grove:"created_at"     bson:"created_at"`
	UpdatedAt     time.Time         `grove:"updated_at"     bson:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
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
		Metadata:      s.Metadata,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
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
	return &subscription.Subscription{
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
		Metadata:      m.Metadata,
	}, nil
}

// ==================== Trial models ====================

type trialModel struct {
	grove.BaseModel `grove:"table:cashier_trials"`

	ID                      string    `grove:"id,pk"                     bson:"_id"`
	UserID                  string    `grove:"user_id"                   bson:"user_id"`
	PlanID                  string    `grove:"plan_id"                   bson:"plan_id"`
	Status                  string    `grove:"status"                    bson:"status"`
	StartsAt                time.Time `grove:"starts_at"                 bson:"starts_at"`
	ExpiresAt               time.Time `grove:"expires_at"                bson:"expires_at"`
	ConvertedSubscriptionID string    `grove:"converted_subscription_id" bson:"converted_subscription_id"`
	CreatedAt               time.Time `grove:"created_at"                bson:"created_at"`
	UpdatedAt               time.Time `grove:"updated_at"                bson:"updated_at"`
}

func toTrialModel(t *trial.Trial) *trialModel {
	return &trialModel{
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

func fromTrialModel(m *trialModel) (*trial.Trial, error) {
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

// ==================== Coupon models ====================

type couponModel struct {
	grove.BaseModel `grove:"table:cashier_coupons"`

	ID             string     `grove:"id,pk"           bson:"_id"`
	Code           string     `grove:"code"            bson:"code"`
	Description    string     `grove:"description"     bson:"description"`
	Type           string     `grove:"type"            bson:"type"`
	Percent        int64      `grove:"percent"         bson:"percent"`
	AmountValue    int64      `grove:"amount_value"    bson:"amount_value"`
	AmountCurrency string     `grove:"amount_currency" bson:"amount_currency"`
	MaxUses        int        `grove:"max_uses"        bson:"max_uses"`
	UsedCount      int        `grove:"used_count"      bson:"used_count"`
	ValidFrom      *time.Time `grove:"valid_from"      bson:"valid_from,omitempty"`
	ExpiresAt      *time.Time `grove:"expires_at"      bson:"expires_at,omitempty"`
	Active         bool       `grove:"active"          bson:"active"`
	PlanIDs        []string   `grove:"plan_ids"        bson:"plan_ids"`
	CreatedAt      time.Time  `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"      bson:"updated_at"`
}

func toCouponModel(c *coupon.Coupon) *couponModel {
	return &couponModel{
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
		PlanIDs:        id.Strings(c.PlanIDs),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func fromCouponModel(m *couponModel) (*coupon.Coupon, error) {
	couponID, err := id.ParseCouponID(m.ID)
	if err != nil {
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
	for _, s := range m.PlanIDs {
		pid, err := id.ParsePlanID(s)
		if err != nil {
			return nil, err
		}
		c.PlanIDs = append(c.PlanIDs, pid)
	}
	return c, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:cashier_payments"`

	ID             string            `grove:"id,pk"           bson:"_id"`
	UserID         string            `grove:"user_id"         bson:"user_id"`
	PlanID         string            `grove:"plan_id"         bson:"plan_id"`
	SubscriptionID string            `grove:"subscription_id" bson:"subscription_id"`
	Amount         int64             `grove:"amount"          bson:"amount"`
	Subtotal       int64             `grove:"subtotal"        bson:"subtotal"`
	Fee            int64             `grove:"fee"             bson:"fee"`
	Discount       int64             `grove:"discount"        bson:"discount"`
	Currency       string            `grove:"currency"        bson:"currency"`
	Method         string            `grove:"method"          bson:"method"`
	Status         string            `grove:"status"          bson:"status"`
	CouponID       string            `grove:"coupon_id"       bson:"coupon_id"`
	CouponCode     string            `grove:"coupon_code"     bson:"coupon_code"`
	GatewayRef     string            `grove:"gateway_ref"     bson:"gateway_ref,omitempty"`
	FailureReason  string            `grove:"failure_reason"  bson:"failure_reason"`
	LineItems      []lineItemModel   `grove:"line_items"      bson:"line_items"`
	PaidAt         *time.Time        `grove:"paid_at"         bson:"paid_at,omitempty"`
	RefundedAt     *time.Time        `grove:"refunded_at"     bson:"refunded_at,omitempty"`
	Metadata       map[string]string `grove:"metadata"        bson:"metadata,omitempty"`
	CreatedAt      time.Time         `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time         `grove:"updated_at"      bson:"updated_at"`
}

type lineItemModel struct {
	Type        string `bson:"type"`
	Description string `bson:"description"`
	Amount      int64  `bson:"amount"`
	Currency    string `bson:"currency"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	items := make([]lineItemModel, len(p.LineItems))
	for i, li := range p.LineItems {
		items[i] = lineItemModel{
			Type:        string(li.Type),
			Description: li.Description,
			Amount:      li.Amount.Amount,
			Currency:    li.Amount.Currency,
		}
	}
	return &paymentModel{
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
		LineItems:      items,
		PaidAt:         p.PaidAt,
		RefundedAt:     p.RefundedAt,
		Metadata:       p.Metadata,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
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
		Metadata:       m.Metadata,
	}
	for _, li := range m.LineItems {
		p.LineItems = append(p.LineItems, pricing.LineItem{
			Type:        pricing.LineItemType(li.Type),
			Description: li.Description,
			Amount:      types.Money{Amount: li.Amount, Currency: li.Currency},
		})
	}
	return p, nil
}

// ==================== Payment method models ====================

type paymentMethodModel struct {
	grove.BaseModel `grove:"table:cashier_payment_methods"`

	ID         string    `grove:"id,pk"       bson:"_id"`
	Code       string    `grove:"code"        bson:"code"`
	Name       string    `grove:"name"        bson:"name"`
	FeePercent int64     `grove:"fee_percent" bson:"fee_percent"`
	FixedFee   int64     `grove:"fixed_fee"   bson:"fixed_fee"`
	MinAmount  int64     `grove:"min_amount"  bson:"min_amount"`
	MaxAmount  int64     `grove:"max_amount"  bson:"max_amount"`
	Currency   string    `grove:"currency"    bson:"currency"`
	Countries  []string  `grove:"countries"   bson:"countries"`
	Enabled    bool      `grove:"enabled"     bson:"enabled"`
	SortOrder  int       `grove:"sort_order"  bson:"sort_order"`
	CreatedAt  time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"  bson:"updated_at"`
}

func toPaymentMethodModel(c *paymethod.Config) *paymentMethodModel {
	currency := c.FixedFee.Currency
	if currency == "" {
		currency = c.MinAmount.Currency
	}
	if currency == "" {
		currency = c.MaxAmount.Currency
	}
	return &paymentMethodModel{
		ID:         c.ID.String(),
		Code:       c.Code,
		Name:       c.Name,
		FeePercent: int64(c.FeePercent),
		FixedFee:   c.FixedFee.Amount,
		MinAmount:  c.MinAmount.Amount,
		MaxAmount:  c.MaxAmount.Amount,
		Currency:   currency,
		Countries:  c.Countries,
		Enabled:    c.Enabled,
		SortOrder:  c.SortOrder,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func fromPaymentMethodModel(m *paymentMethodModel) (*paymethod.Config, error) {
	methodID, err := id.ParseOptional(m.ID, id.PrefixPaymentMethod)
	if err != nil {
		return nil, err
	}
	money := func(v int64) types.Money { return types.Money{Amount: v, Currency: m.Currency} }
	return &paymethod.Config{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:         methodID,
		Code:       m.Code,
		Name:       m.Name,
		FeePercent: types.Rate(m.FeePercent),
		FixedFee:   money(m.FixedFee),
		MinAmount:  money(m.MinAmount),
		MaxAmount:  money(m.MaxAmount),
		Countries:  m.Countries,
		Enabled:    m.Enabled,
		SortOrder:  m.SortOrder,
	}, nil
}

// ==================== Usage models ====================

// usageModel is keyed by user, limit and window start so the counter can
// be upserted with $inc.
type usageModel struct {
	grove.BaseModel `grove:"table:cashier_usage"`

	ID          string    `grove:"id,pk"        bson:"_id"`
	UserID      string    `grove:"user_id"      bson:"user_id"`
	Key         string    `grove:"key"          bson:"key"`
	WindowStart time.Time `grove:"window_start" bson:"window_start"`
	Count       int64     `grove:"count"        bson:"count"`
	UpdatedAt   time.Time `grove:"updated_at"   bson:"updated_at"`
}

// ==================== Notification models ====================

type templateModel struct {
	grove.BaseModel `grove:"table:cashier_email_templates"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	Type      string    `grove:"type"       bson:"type"`
	Subject   string    `grove:"subject"    bson:"subject"`
	HTMLBody  string    `grove:"html_body"  bson:"html_body"`
	TextBody  string    `grove:"text_body"  bson:"text_body"`
	Enabled   bool      `grove:"enabled"    bson:"enabled"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func fromTemplateModel(m *templateModel) (*notify.Template, error) {
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

type emailLogModel struct {
	grove.BaseModel `grove:"table:cashier_email_logs"`

	ID         string    `grove:"id,pk"       bson:"_id"`
	UserID     string    `grove:"user_id"     bson:"user_id"`
	Type       string    `grove:"type"        bson:"type"`
	Recipient  string    `grove:"recipient"   bson:"recipient"`
	Subject    string    `grove:"subject"     bson:"subject"`
	Status     string    `grove:"status"      bson:"status"`
	ProviderID string    `grove:"provider_id" bson:"provider_id"`
	Error      string    `grove:"error"       bson:"error"`
	SentAt     time.Time `grove:"sent_at"     bson:"sent_at"`
}

func toEmailLogModel(l *notify.EmailLog) *emailLogModel {
	return &emailLogModel{
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

func fromEmailLogModel(m *emailLogModel) (*notify.EmailLog, error) {
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

type notificationModel struct {
	grove.BaseModel `grove:"table:cashier_notifications"`

	ID        string     `grove:"id,pk"      bson:"_id"`
	UserID    string     `grove:"user_id"    bson:"user_id"`
	Type      string     `grove:"type"       bson:"type"`
	Title     string     `grove:"title"      bson:"title"`
	Body      string     `grove:"body"       bson:"body"`
	Read      bool       `grove:"is_read"    bson:"is_read"`
	ReadAt    *time.Time `grove:"read_at"    bson:"read_at,omitempty"`
	CreatedAt time.Time  `grove:"created_at" bson:"created_at"`
}

func toNotificationModel(n *notify.Notification) *notificationModel {
	return &notificationModel{
		ID:        n.ID.String(),
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func fromNotificationModel(m *notificationModel) (*notify.Notification, error) {
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
		Read:      m.Read,
		ReadAt:    m.ReadAt,
		CreatedAt: m.CreatedAt,
	}, nil
}

// ==================== Settings models ====================

// settingModel stores the JSON value as a string so documents stay
// readable from the mongo shell.
type settingModel struct {
	grove.BaseModel `grove:"table:cashier_settings"`

	Key       string    `grove:"key,pk"     bson:"_id"`
	Value     string    `grove:"value"      bson:"value"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func fromSettingModel(m *settingModel) *settings.Setting {
	return &settings.Setting{Key: m.Key, Value: json.RawMessage(m.Value), UpdatedAt: m.UpdatedAt}
}
