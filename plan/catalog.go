package plan

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/xraph/cashier/types"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Currency string         `yaml:"currency"`
	Plans    []catalogEntry `yaml:"plans"`
}

type catalogEntry struct {
	Slug          string           `yaml:"slug"`
	Name          string           `yaml:"name"`
	Description   string           `yaml:"description"`
	Tier          int              `yaml:"tier"`
	Price         string           `yaml:"price"`
	Currency      string           `yaml:"currency"`
	BillingPeriod BillingPeriod    `yaml:"billing_period"`
	DurationDays  int              `yaml:"duration_days"`
	TrialEnabled  bool             `yaml:"trial_enabled"`
	TrialDays     int              `yaml:"trial_days"`
	Features      []string         `yaml:"features"`
	Limits        map[string]Limit `yaml:"limits"`
}

// DefaultCatalog returns the built-in free/basic/premium/vip/elite plans.
// The returned plans have no IDs; they are assigned when stored.
func DefaultCatalog() []*Plan {
	plans, err := LoadCatalog(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("plan: embedded catalog: %v", err))
	}
	return plans
}

// LoadCatalog decodes a YAML plan catalog.
func LoadCatalog(r io.Reader) ([]*Plan, error) {
	var f catalogFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("plan: decode catalog: %w", err)
	}
	if f.Currency == "" {
		f.Currency = types.DefaultCurrency
	}

	plans := make([]*Plan, 0, len(f.Plans))
	seen := make(map[string]bool, len(f.Plans))
	for _, e := range f.Plans {
		if seen[e.Slug] {
			return nil, fmt.Errorf("plan: catalog: duplicate slug %q", e.Slug)
		}
		seen[e.Slug] = true

		currency := e.Currency
		if currency == "" {
			currency = f.Currency
		}
		price, err := types.ParseMajor(e.Price, currency)
		if err != nil {
			return nil, fmt.Errorf("plan: catalog %s: %w", e.Slug, err)
		}

		p := &Plan{
			Name:          e.Name,
			Slug:          e.Slug,
			Description:   e.Description,
			Price:         price,
			BillingPeriod: e.BillingPeriod,
			DurationDays:  e.DurationDays,
			Tier:          e.Tier,
			Status:        StatusActive,
			TrialEnabled:  e.TrialEnabled,
			TrialDays:     e.TrialDays,
			Features:      make(map[string]bool, len(e.Features)),
			Limits:        e.Limits,
		}
		if p.BillingPeriod == "" {
			p.BillingPeriod = BillingMonthly
		}
		for _, key := range e.Features {
			p.Features[key] = true
		}
		if p.Limits == nil {
			p.Limits = map[string]Limit{}
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("plan: catalog %s: %w", e.Slug, err)
		}
		plans = append(plans, p)
	}
	return plans, nil
}
