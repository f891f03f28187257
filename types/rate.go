package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Rate is a percentage expressed in basis points: 10000 = 100%, 290 = 2.9%.
type Rate int64

// Basis points for common rates.
const (
	RateZero Rate = 0
	RateFull Rate = 10000
)

// Percent builds a Rate from a whole percentage (20 → 20%).
func Percent(p int64) Rate { return Rate(p * 100) }

// ParsePercent parses a decimal percentage string such as "2.9" or "20".
// At most two decimal places are accepted.
func ParsePercent(s string) (Rate, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("rate: parse %q: more than 2 decimals", s)
	}
	frac += strings.Repeat("0", 2-len(frac))

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rate: parse %q: %w", s, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rate: parse %q: %w", s, err)
	}
	r := Rate(w*100 + f)
	if !r.Valid() {
		return 0, fmt.Errorf("rate: parse %q: out of range", s)
	}
	return r, nil
}

// Valid reports whether the rate lies within [0%, 100%].
func (r Rate) Valid() bool { return r >= RateZero && r <= RateFull }

// IsZero reports whether the rate is 0%.
func (r Rate) IsZero() bool { return r == 0 }

// Percent returns the rate as a float percentage, for display only.
func (r Rate) Percent() float64 { return float64(r) / 100 }

// String formats the rate as "2.90%".
func (r Rate) String() string {
	return fmt.Sprintf("%d.%02d%%", int64(r)/100, int64(r)%100)
}

// Of returns the portion of m given by the rate, rounded half away from
// zero to the smallest currency unit.
func (r Rate) Of(m Money) Money {
	num := m.Amount * int64(r)
	q := num / int64(RateFull)
	rem := num % int64(RateFull)
	if rem < 0 {
		rem = -rem
	}
	if rem*2 >= int64(RateFull) {
		if num < 0 {
			q--
		} else {
			q++
		}
	}
	return Money{Amount: q, Currency: m.Currency}
}

// Complement returns 100% minus r.
func (r Rate) Complement() Rate { return RateFull - r }
