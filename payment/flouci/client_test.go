package flouci

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSignDeterministic(t *testing.T) {
	c := NewClient("http://unused.invalid", "key", "secret")

	a := c.Sign("ORD-000042", "80.50")
	b := c.Sign("ORD-000042", "80.50")
	if a != b {
		t.Error("same input must produce the same signature")
	}
	if a == c.Sign("ORD-000043", "80.50") {
		t.Error("different refs must not collide")
	}
	if len(a) != 64 { // hex sha256
		t.Errorf("signature length = %d, want 64", len(a))
	}
}

func TestVerifySignature(t *testing.T) {
	c := NewClient("http://unused.invalid", "key", "secret")

	sig := c.Sign("pay_123", StatusCompleted)
	if !c.VerifySignature("pay_123", StatusCompleted, sig) {
		t.Error("valid signature rejected")
	}
	if c.VerifySignature("pay_123", StatusCompleted, "deadbeef") {
		t.Error("forged signature accepted")
	}
	if c.VerifySignature("pay_123", StatusFailed, sig) {
		t.Error("signature for another status accepted")
	}

	other := NewClient("http://unused.invalid", "key", "other-secret")
	if other.VerifySignature("pay_123", StatusCompleted, sig) {
		t.Error("signature verified under a different secret")
	}
}

func TestInitiate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payment/init" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatal(err)
		}
		if payload["developer_tracking_id"] != "ORD-000007" {
			t.Errorf("tracking id = %v", payload["developer_tracking_id"])
		}
		if payload["signature"] == "" {
			t.Error("missing signature")
		}
		json.NewEncoder(w).Encode(map[string]string{
			"payment_id":  "pay_abc",
			"payment_url": "https://pay.example/pay_abc",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "key", "secret")
	session, err := c.Initiate("ORD-000007", 80.50)
	if err != nil {
		t.Fatal(err)
	}
	if session.PaymentID != "pay_abc" || session.PaymentURL != "https://pay.example/pay_abc" {
		t.Errorf("session = %+v", session)
	}
}

func TestInitiateGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(server.URL, "key", "secret")
	if _, err := c.Initiate("ORD-000007", 80.50); err == nil {
		t.Error("expected an error from a 503 gateway")
	}
}

func TestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payment/verify/pay_abc" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("auth header = %s", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(map[string]string{"status": StatusCompleted})
	}))
	defer server.Close()

	c := NewClient(server.URL, "key", "secret")
	status, err := c.Status("pay_abc")
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", status)
	}
}
