package rates

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConvertWithSeededCache(t *testing.T) {
	source := NewSource("http://unused.invalid")
	source.Seed(map[string]float64{"TND": 1.0, "USD": 0.3125, "EUR": 0.2857})

	usd, err := source.Convert(45.00, "USD")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(usd-14.0625) > 0.0001 {
		t.Errorf("45 TND = %.4f USD, want 14.0625", usd)
	}

	if _, err := source.Convert(10, "GBP"); err == nil {
		t.Error("expected an error for an unsupported currency")
	}
}

func TestRatesFetchAndCache(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		json.NewEncoder(w).Encode(map[string]any{
			"rates": map[string]float64{"USD": 0.31, "EUR": 0.29},
		})
	}))
	defer server.Close()

	source := NewSource(server.URL)

	first, err := source.Rates()
	if err != nil {
		t.Fatal(err)
	}
	if first["USD"] != 0.31 {
		t.Errorf("USD rate = %f", first["USD"])
	}
	if first["TND"] != 1.0 {
		t.Error("base currency missing from fetched rates")
	}

	// second call within the TTL must come from cache
	if _, err := source.Rates(); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Errorf("rate API hit %d times, want 1", hits)
	}
}

func TestRatesFallbackWhenUnreachable(t *testing.T) {
	source := NewSource("http://127.0.0.1:1/unreachable")

	all, err := source.Rates()
	if err != nil {
		t.Fatal(err)
	}
	if all["TND"] != 1.0 {
		t.Errorf("fallback TND = %f, want 1", all["TND"])
	}
	if math.Abs(all["USD"]-1.0/3.2) > 0.0001 {
		t.Errorf("fallback USD = %f, want %f", all["USD"], 1.0/3.2)
	}
}

func TestStaleCacheBeatsFetchFailure(t *testing.T) {
	source := NewSource("http://127.0.0.1:1/unreachable")
	source.Seed(map[string]float64{"TND": 1.0, "USD": 0.5})
	source.ttl = 0 // force a refresh attempt

	all, err := source.Rates()
	if err != nil {
		t.Fatal(err)
	}
	if all["USD"] != 0.5 {
		t.Errorf("USD = %f, want stale 0.5", all["USD"])
	}
}
