package order

import (
	"errors"
	"strings"
	"testing"
)

func TestActivateSupportedProviders(t *testing.T) {
	for provider, prefix := range map[string]string{
		"Netflix":   "NFLX",
		"Spotify":   "SPTF",
		"Microsoft": "MSFT",
	} {
		act, err := activate(provider, "1_month", 14.99, "USD")
		if err != nil {
			t.Fatalf("%s: %v", provider, err)
		}
		if !strings.HasPrefix(act.Code, prefix+"-") {
			t.Errorf("%s code = %s, want prefix %s-", provider, act.Code, prefix)
		}
		if act.TransactionID == "" {
			t.Errorf("%s: missing transaction id", provider)
		}
		if act.ExpiresAt == nil {
			t.Errorf("%s: 1_month code must expire", provider)
		}
	}
}

func TestActivateLifetimeNeverExpires(t *testing.T) {
	act, err := activate("Microsoft", "lifetime", 69.99, "USD")
	if err != nil {
		t.Fatal(err)
	}
	if act.ExpiresAt != nil {
		t.Errorf("lifetime code expires at %v, want never", act.ExpiresAt)
	}
}

func TestActivateUnsupportedProvider(t *testing.T) {
	for _, provider := range []string{"PlayStation", "Xbox", "Steam", "Disney"} {
		if _, err := activate(provider, "1_month", 24.99, "USD"); !errors.Is(err, ErrUnsupportedProvider) {
			t.Errorf("%s: err = %v, want ErrUnsupportedProvider", provider, err)
		}
	}
}

func TestActivateRejectsNonPositiveAmount(t *testing.T) {
	if _, err := activate("Netflix", "1_month", 0, "USD"); err == nil {
		t.Error("expected an error for a zero amount")
	}
}

func TestActivationCodesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		act, err := activate("Netflix", "1_month", 14.99, "USD")
		if err != nil {
			t.Fatal(err)
		}
		if seen[act.Code] {
			t.Fatalf("duplicate code %s", act.Code)
		}
		seen[act.Code] = true
	}
}
