package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Activation simulates the provider-side purchase of one subscription and
// returns the transaction id and the activation code to hand the buyer.
type Activation struct {
	TransactionID string
	Code          string
	ExpiresAt     *time.Time
}

// code prefixes for the providers we can actually fulfill against
var codePrefixes = map[string]string{
	"Netflix":   "NFLX",
	"Spotify":   "SPTF",
	"Microsoft": "MSFT",
}

var durationMonths = map[string]int{
	"1_month":   1,
	"3_months":  3,
	"6_months":  6,
	"12_months": 12,
	// lifetime has no expiry
}

// activate performs the (simulated) international purchase for one line item.
// Providers without an integration abort fulfillment of the remaining items.
func activate(provider, duration string, amount float64, currency string) (*Activation, error) {
	prefix, ok := codePrefixes[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("invalid %s amount %.2f %s", provider, amount, currency)
	}

	raw := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	act := &Activation{
		TransactionID: uuid.New().String(),
		Code:          fmt.Sprintf("%s-%s-%s", prefix, raw[:4], raw[4:8]),
	}

	if months, ok := durationMonths[duration]; ok {
		expires := time.Now().AddDate(0, months, 0)
		act.ExpiresAt = &expires
	}

	return act, nil
}
