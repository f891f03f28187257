// Package settings holds runtime-editable system settings stored as JSON
// documents keyed by name.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by stores for an unknown key.
var ErrNotFound = errors.New("cashier: setting not found")

// Well-known keys.
const (
	KeyEmail   = "email"
	KeyGeneral = "general"
)

type Setting struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// EmailSettings controls outbound email.
type EmailSettings struct {
	Enabled      bool   `json:"enabled"`
	FromAddress  string `json:"from_address"`
	FromName     string `json:"from_name"`
	ReplyTo      string `json:"reply_to,omitempty"`
	ReminderDays int    `json:"reminder_days"`
}

// From renders the sender header.
func (e EmailSettings) From() string {
	if e.FromName == "" {
		return e.FromAddress
	}
	return fmt.Sprintf("%s <%s>", e.FromName, e.FromAddress)
}

// GeneralSettings are deployment-wide defaults.
type GeneralSettings struct {
	Currency     string `json:"currency"`
	SupportEmail string `json:"support_email,omitempty"`
	WebhookURL   string `json:"webhook_url,omitempty"`
}

// DefaultEmail is used until an admin stores email settings.
func DefaultEmail() EmailSettings {
	return EmailSettings{Enabled: false, ReminderDays: 3}
}

// LoadEmail reads email settings, falling back to DefaultEmail.
func LoadEmail(ctx context.Context, st Store) (EmailSettings, error) {
	out := DefaultEmail()
	return out, load(ctx, st, KeyEmail, &out)
}

// LoadGeneral reads general settings, falling back to DefaultGeneral.
func LoadGeneral(ctx context.Context, st Store) (GeneralSettings, error) {
	out := DefaultGeneral()
	return out, load(ctx, st, KeyGeneral, &out)
}

func load(ctx context.Context, st Store, key string, v any) error {
	s, err := st.GetSetting(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return Decode(s, v)
}

// DefaultGeneral is used until an admin stores general settings.
func DefaultGeneral() GeneralSettings {
	return GeneralSettings{Currency: "sar"}
}

// Decode unmarshals a setting into v.
func Decode(s *Setting, v any) error {
	if err := json.Unmarshal(s.Value, v); err != nil {
		return fmt.Errorf("settings: decode %s: %w", s.Key, err)
	}
	return nil
}

// Encode builds a setting from v.
func Encode(key string, v any) (*Setting, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("settings: encode %s: %w", key, err)
	}
	return &Setting{Key: key, Value: raw, UpdatedAt: time.Now().UTC()}, nil
}

// Store persists settings. Method names match store.Store so any backend
// satisfies it directly.
type Store interface {
	GetSetting(ctx context.Context, key string) (*Setting, error)
	PutSetting(ctx context.Context, s *Setting) error
	ListSettings(ctx context.Context) ([]*Setting, error)
}
