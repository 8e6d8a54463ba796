package util

import (
	"reflect"
	"testing"
)

func TestNormalizeWaID(t *testing.T) {
	if got := NormalizeWaID(" +919876543210 "); got != "919876543210" {
		t.Fatalf("unexpected normalization: %q", got)
	}
	if got := NormalizeWaID("919876543210"); got != "919876543210" {
		t.Fatalf("bare digits should pass through, got %q", got)
	}
}

func TestPhoneVariantsWithCountryPrefix(t *testing.T) {
	got := PhoneVariants("919876543210")
	want := []string{"919876543210", "+919876543210", "9876543210", "+9876543210"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("variants mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestPhoneVariantsForeignNumber(t *testing.T) {
	got := PhoneVariants("15551234567")
	want := []string{"15551234567", "+15551234567"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("variants mismatch:\n got %v\nwant %v", got, want)
	}
}

func TestDigitsOnly(t *testing.T) {
	if got := DigitsOnly("+91 98765-43210"); got != "919876543210" {
		t.Fatalf("unexpected digits: %q", got)
	}
}

func TestCampaignIDPrefixes(t *testing.T) {
	if id := NewEmailCampaignID(); len(id) < 5 || id[:4] != "emc_" {
		t.Fatalf("bad email campaign id: %q", id)
	}
	if id := NewWhatsAppCampaignID(); len(id) < 5 || id[:4] != "wac_" {
		t.Fatalf("bad whatsapp campaign id: %q", id)
	}
}
