package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// Data is the template context for every notification.
type Data struct {
	UserID     string
	Name       string
	PlanName   string
	Amount     string
	ExpiresAt  string
	DaysLeft   int
	CouponCode string
	Reason     string
	LimitKey   string
}

// Rendered is a template applied to Data.
type Rendered struct {
	Subject  string
	HTMLBody string
	TextBody string
}

var defaults = map[Type]Template{
	TypeWelcome: {
		Subject:  "Welcome{{if .Name}}, {{.Name}}{{end}}!",
		TextBody: "Thanks for joining. Browse the plans any time to unlock more features.",
	},
	TypeTrialStarted: {
		Subject:  "Your {{.PlanName}} trial has started",
		TextBody: "Enjoy {{.PlanName}} until {{.ExpiresAt}}.",
	},
	TypeTrialExpiring: {
		Subject:  "Your trial ends in {{.DaysLeft}} day(s)",
		TextBody: "Your {{.PlanName}} trial ends on {{.ExpiresAt}}. Subscribe to keep your features.",
	},
	TypeTrialExpired: {
		Subject:  "Your trial has ended",
		TextBody: "Your {{.PlanName}} trial has ended. Subscribe any time to continue.",
	},
	TypeSubscriptionActivated: {
		Subject:  "{{.PlanName}} is now active",
		TextBody: "Your {{.PlanName}} subscription is active until {{.ExpiresAt}}.",
	},
	TypeSubscriptionExpiring: {
		Subject:  "Your subscription ends in {{.DaysLeft}} day(s)",
		TextBody: "Your {{.PlanName}} subscription ends on {{.ExpiresAt}}. Renew to keep your features.",
	},
	TypeSubscriptionExpired: {
		Subject:  "Your subscription has expired",
		TextBody: "Your {{.PlanName}} subscription has expired.",
	},
	TypeSubscriptionCanceled: {
		Subject:  "Your subscription was canceled",
		TextBody: "Your {{.PlanName}} subscription was canceled.",
	},
	TypePaymentSucceeded: {
		Subject:  "Payment received",
		TextBody: "We received your payment of {{.Amount}} for {{.PlanName}}.",
	},
	TypePaymentFailed: {
		Subject:  "Payment failed",
		TextBody: "Your payment of {{.Amount}} for {{.PlanName}} failed{{if .Reason}}: {{.Reason}}{{end}}.",
	},
	TypePaymentRefunded: {
		Subject:  "Payment refunded",
		TextBody: "Your payment of {{.Amount}} has been refunded.",
	},
	TypeCouponRedeemed: {
		Subject:  "Coupon {{.CouponCode}} applied",
		TextBody: "Coupon {{.CouponCode}} was applied to your purchase.",
	},
	TypeLimitReached: {
		Subject:  "You reached your {{.LimitKey}} limit",
		TextBody: "You have used all of your {{.LimitKey}} for now. Upgrade to get more.",
	},
}

// DefaultTemplate returns the built-in template for t.
func DefaultTemplate(t Type) (*Template, bool) {
	d, ok := defaults[t]
	if !ok {
		return nil, false
	}
	d.Type = t
	d.Enabled = true
	return &d, true
}

// Render applies tpl to data. The subject and text body use text/template,
// the HTML body html/template. An empty HTML body is derived from the text.
func Render(tpl *Template, data Data) (Rendered, error) {
	var out Rendered

	subject, err := renderText(string(tpl.Type)+".subject", tpl.Subject, data)
	if err != nil {
		return out, err
	}
	out.Subject = strings.TrimSpace(subject)

	if out.TextBody, err = renderText(string(tpl.Type)+".text", tpl.TextBody, data); err != nil {
		return out, err
	}

	htmlSrc := tpl.HTMLBody
	if htmlSrc == "" {
		htmlSrc = "<p>" + tpl.TextBody + "</p>"
	}
	h, err := htmltemplate.New(string(tpl.Type) + ".html").Parse(htmlSrc)
	if err != nil {
		return out, fmt.Errorf("notify: parse %s html: %w", tpl.Type, err)
	}
	var buf bytes.Buffer
	if err := h.Execute(&buf, data); err != nil {
		return out, fmt.Errorf("notify: render %s html: %w", tpl.Type, err)
	}
	out.HTMLBody = buf.String()
	return out, nil
}

func renderText(name, src string, data Data) (string, error) {
	t, err := texttemplate.New(name).Parse(src)
	if err != nil {
		return "", fmt.Errorf("notify: parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", name, err)
	}
	return buf.String(), nil
}
