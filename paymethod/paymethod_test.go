package paymethod

import (
	"testing"

	"github.com/xraph/cashier/types"
)

func TestFee(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		in   types.Money
		want types.Money
	}{
		{"2.9% of 80.00", Config{FeePercent: 290}, types.SAR(8000), types.SAR(232)},
		{"percent plus fixed", Config{FeePercent: 290, FixedFee: types.SAR(100)}, types.SAR(8000), types.SAR(332)},
		{"free method", Config{}, types.SAR(8000), types.SAR(0)},
		{"zero subtotal", Config{FeePercent: 290}, types.SAR(0), types.SAR(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Fee(tt.in); !got.Equal(tt.want) {
				t.Errorf("Fee: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSupports(t *testing.T) {
	cfg := Config{
		Enabled:   true,
		Countries: []string{"SA", "AE"},
		MinAmount: types.SAR(1000),
		MaxAmount: types.SAR(100000),
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		country string
		amount  types.Money
		want    bool
	}{
		{"supported", nil, "sa", types.SAR(5000), true},
		{"other country", nil, "EG", types.SAR(5000), false},
		{"no country given", nil, "", types.SAR(5000), false},
		{"no country, all countries", func(c *Config) { c.Countries = nil }, "", types.SAR(5000), true},
		{"below min", nil, "SA", types.SAR(999), false},
		{"above max", nil, "SA", types.SAR(100001), false},
		{"disabled", func(c *Config) { c.Enabled = false }, "SA", types.SAR(5000), false},
		{"all countries", func(c *Config) { c.Countries = nil }, "EG", types.SAR(5000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			if tt.mutate != nil {
				tt.mutate(&c)
			}
			if got := c.Supports(tt.country, tt.amount); got != tt.want {
				t.Errorf("Supports: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultsValid(t *testing.T) {
	for _, c := range Defaults() {
		if err := c.Validate(); err != nil {
			t.Errorf("%s: %v", c.Code, err)
		}
	}
}
