// Package paymethod describes the payment methods offered at checkout and
// the processing fee each one adds.
package paymethod

import (
	"errors"
	"strings"

	"github.com/xraph/cashier/id"
	"github.com/xraph/cashier/types"
)

// Well-known method codes.
const (
	CodeMada         = "mada"
	CodeVisa         = "visa"
	CodeMastercard   = "mastercard"
	CodeApplePay     = "apple_pay"
	CodeSTCPay       = "stc_pay"
	CodeBankTransfer = "bank_transfer"
)

// Config is one row of the payment-method configuration.
type Config struct {
	types.Entity
	ID         id.PaymentMethodID `json:"id"`
	Code       string             `json:"code"`
	Name       string             `json:"name"`
	FeePercent types.Rate         `json:"fee_percent"`
	FixedFee   types.Money        `json:"fixed_fee"`
	Countries  []string           `json:"countries,omitempty"`
	MinAmount  types.Money        `json:"min_amount"`
	MaxAmount  types.Money        `json:"max_amount"`
	Enabled    bool               `json:"enabled"`
	SortOrder  int                `json:"sort_order"`
}

// Fee is the processing fee charged on subtotal.
func (c *Config) Fee(subtotal types.Money) types.Money {
	fee := c.FeePercent.Of(subtotal)
	if c.FixedFee.Amount != 0 {
		fee.Amount += c.FixedFee.Amount
	}
	return fee
}

// Supports reports whether the method can be used from country for amount.
// Empty Countries means all countries; zero bounds are open. A method
// limited to some countries never matches an unknown (empty) country.
func (c *Config) Supports(country string, amount types.Money) bool {
	if !c.Enabled {
		return false
	}
	if len(c.Countries) > 0 {
		found := false
		for _, cc := range c.Countries {
			if strings.EqualFold(cc, country) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.MinAmount.IsPositive() && amount.Amount < c.MinAmount.Amount {
		return false
	}
	if c.MaxAmount.IsPositive() && amount.Amount > c.MaxAmount.Amount {
		return false
	}
	return true
}

func (c *Config) Validate() error {
	var errs []error
	if c.Code == "" {
		errs = append(errs, errors.New("paymethod: code is required"))
	}
	if !c.FeePercent.Valid() {
		errs = append(errs, errors.New("paymethod: fee percent out of range"))
	}
	if c.FixedFee.IsNegative() {
		errs = append(errs, errors.New("paymethod: fixed fee must not be negative"))
	}
	if c.MinAmount.IsPositive() && c.MaxAmount.IsPositive() && c.MaxAmount.Amount < c.MinAmount.Amount {
		errs = append(errs, errors.New("paymethod: max amount below min amount"))
	}
	return errors.Join(errs...)
}

// Defaults is the method set seeded for a Saudi deployment.
func Defaults() []*Config {
	sa := []string{"SA"}
	return []*Config{
		{Code: CodeMada, Name: "mada", FeePercent: 175, Countries: sa, Enabled: true, SortOrder: 1},
		{Code: CodeApplePay, Name: "Apple Pay", FeePercent: 290, Enabled: true, SortOrder: 2},
		{Code: CodeVisa, Name: "Visa", FeePercent: 290, Enabled: true, SortOrder: 3},
		{Code: CodeMastercard, Name: "Mastercard", FeePercent: 290, Enabled: true, SortOrder: 4},
		{Code: CodeSTCPay, Name: "STC Pay", FeePercent: 200, Countries: sa, Enabled: true, SortOrder: 5},
		{Code: CodeBankTransfer, Name: "Bank transfer", Countries: sa, MinAmount: types.SAR(10000), Enabled: false, SortOrder: 6},
	}
}
