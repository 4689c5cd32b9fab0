package flouci

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Hosted-checkout statuses reported by the gateway.
const (
	StatusCompleted = "COMPLETED"
	StatusPending   = "PENDING"
	StatusFailed    = "FAILED"
)

const defaultTimeout = 10 * time.Second

// Client talks to the Flouci payment gateway over its JSON API.
type Client struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	HTTP      *http.Client
}

func NewClient(baseURL, apiKey, secretKey string) *Client {
	return &Client{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		SecretKey: secretKey,
		HTTP:      &http.Client{Timeout: defaultTimeout},
	}
}

// Sign computes the keyed hash the gateway expects: HMAC-SHA256 over
// "ref|amount|apiKey" with the shared secret. The same scheme authenticates
// inbound webhooks, where amount carries the reported status instead.
func (c *Client) Sign(ref, amount string) string {
	mac := hmac.New(sha256.New, []byte(c.SecretKey))
	fmt.Fprintf(mac, "%s|%s|%s", ref, amount, c.APIKey)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an inbound webhook signature in constant time.
func (c *Client) VerifySignature(ref, amount, signature string) bool {
	return hmac.Equal([]byte(c.Sign(ref, amount)), []byte(signature))
}

type Session struct {
	PaymentID  string `json:"payment_id"`
	PaymentURL string `json:"payment_url"`
}

// Initiate opens a hosted payment session for one order. amount is in TND.
func (c *Client) Initiate(orderRef string, amount float64) (*Session, error) {
	payload := map[string]any{
		"app_token":             c.APIKey,
		"app_secret":            c.SecretKey,
		"amount":                amount,
		"accept_card":           true,
		"session_timeout_secs":  1800,
		"developer_tracking_id": orderRef,
		"signature":             c.Sign(orderRef, fmt.Sprintf("%.2f", amount)),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTP.Post(c.BaseURL+"/payment/init", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("flouci init: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flouci init: status %s", resp.Status)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("flouci init: %w", err)
	}
	if session.PaymentID == "" || session.PaymentURL == "" {
		return nil, fmt.Errorf("flouci init: incomplete session response")
	}
	return &session, nil
}

// Status queries the current state of a payment session.
func (c *Client) Status(paymentID string) (string, error) {
	req, err := http.NewRequest("GET", c.BaseURL+"/payment/verify/"+paymentID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("flouci verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("flouci verify: status %s", resp.Status)
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("flouci verify: %w", err)
	}
	return result.Status, nil
}
