package rates

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const defaultCacheDuration = 5 * time.Minute

// last-resort factors when the rate API is unreachable and the cache is cold
var defaultRates = map[string]float64{
	"TND": 1.0,
	"USD": 3.2, // 1 USD = 3.2 TND
	"EUR": 3.5, // 1 EUR = 3.5 TND
}

type apiResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Source fetches currency conversion rates with the store's local currency
// (TND) as base, caching results between calls.
type Source struct {
	URL  string
	HTTP *http.Client

	mu        sync.Mutex
	cache     map[string]float64
	fetchedAt time.Time
	ttl       time.Duration
}

func NewSource(url string) *Source {
	return &Source{
		URL:  url,
		HTTP: &http.Client{Timeout: 10 * time.Second},
		ttl:  defaultCacheDuration,
	}
}

// fetch pulls the latest TND-based rates from the API. The API reports
// 1 TND = v target, so v is the factor from TND into the target currency.
func (s *Source) fetch() (map[string]float64, error) {
	resp, err := s.HTTP.Get(s.URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate source: status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var data apiResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}
	if len(data.Rates) == 0 {
		return nil, fmt.Errorf("rate source: empty rates")
	}

	data.Rates["TND"] = 1.0
	return data.Rates, nil
}

// Rates returns the TND→currency factor map, refreshing the cache when stale.
// A cold cache with an unreachable API falls back to the built-in defaults.
func (s *Source) Rates() (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil && time.Since(s.fetchedAt) < s.ttl {
		return s.cache, nil
	}

	fetched, err := s.fetch()
	if err != nil {
		if s.cache != nil {
			return s.cache, nil // stale beats nothing
		}
		inverted := make(map[string]float64, len(defaultRates))
		for k, v := range defaultRates {
			inverted[k] = 1.0 / v
		}
		return inverted, nil
	}

	s.cache = fetched
	s.fetchedAt = time.Now()
	return s.cache, nil
}

// Convert turns an amount in TND into the target currency.
func (s *Source) Convert(amount float64, to string) (float64, error) {
	all, err := s.Rates()
	if err != nil {
		return 0, err
	}
	factor, ok := all[to]
	if !ok {
		return 0, fmt.Errorf("unsupported currency %s", to)
	}
	return amount * factor, nil
}

// Seed primes the cache, mainly for tests and offline runs.
func (s *Source) Seed(rates map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = rates
	s.fetchedAt = time.Now()
}
