package settings

import "testing"

func TestEncodeDecode(t *testing.T) {
	in := EmailSettings{Enabled: true, FromAddress: "billing@example.com", FromName: "Billing", ReminderDays: 5}
	s, err := Encode(KeyEmail, in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var out EmailSettings
	if err := Decode(s, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
	if got := out.From(); got != "Billing <billing@example.com>" {
		t.Errorf("From: got %q", got)
	}
}

func TestDecodeInvalid(t *testing.T) {
	var out GeneralSettings
	if err := Decode(&Setting{Key: KeyGeneral, Value: []byte("[")}, &out); err == nil {
		t.Fatal("expected error")
	}
}
