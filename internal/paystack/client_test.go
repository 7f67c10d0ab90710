package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "sk_test", 5*time.Second)
}

func TestClient_ChargeSuccess(t *testing.T) {
	t.Parallel()

	var got map[string]any
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/charge_authorization" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"status":true,"message":"Charge attempted","data":{"status":"success","reference":"order-1-payment","gateway_response":"Approved"}}`))
	})

	res, err := client.Charge(context.Background(), ChargeRequest{
		Email:             "ada@example.com",
		Amount:            300000,
		AuthorizationCode: "AUTH_x",
		Reference:         "order-1-payment",
		Metadata:          map[string]string{"type": MetadataCardPayment, "order_id": "1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Reference != "order-1-payment" {
		t.Errorf("unexpected result %+v", res)
	}
	if got["amount"].(float64) != 300000 {
		t.Errorf("expected amount in request body, got %v", got["amount"])
	}
}

func TestClient_ChargeDeclined(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":true,"message":"Charge attempted","data":{"status":"failed","reference":"r","gateway_response":"Insufficient Funds"}}`))
	})

	res, err := client.Charge(context.Background(), ChargeRequest{Amount: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || res.Message != "Insufficient Funds" {
		t.Errorf("expected declined charge, got %+v", res)
	}
}

func TestClient_NonSuccessStatusReturnsAPIError(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid authorization code"}`))
	})

	_, err := client.Charge(context.Background(), ChargeRequest{Amount: 1})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Invalid authorization code" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestClient_TransferFlow(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/transferrecipient":
			if body["type"] != "nuban" {
				t.Errorf("expected nuban recipient, got %v", body["type"])
			}
			_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"recipient_code":"RCP_1"}}`))
		case "/transfer":
			if body["source"] != "balance" || body["reason"] != "tx-1" {
				t.Errorf("unexpected transfer body %v", body)
			}
			_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"reference":"withdrawal-tx-1","transfer_code":"TRF_1","status":"pending"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	code, err := client.CreateTransferRecipient(context.Background(), RecipientRequest{
		Name: "Ada", AccountNumber: "0123456789", BankCode: "058", Currency: "NGN",
	})
	if err != nil || code != "RCP_1" {
		t.Fatalf("expected RCP_1, got %q (%v)", code, err)
	}

	transfer, err := client.InitiateTransfer(context.Background(), TransferRequest{
		Amount: 200000, Recipient: code, Reason: "tx-1", Reference: "withdrawal-tx-1", Currency: "NGN",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transfer.TransferCode != "TRF_1" {
		t.Errorf("unexpected transfer %+v", transfer)
	}
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"event":"charge.success","data":{}}`)
	sig := Sign("secret", body)

	if !VerifySignature("secret", body, sig) {
		t.Error("expected valid signature")
	}
	if VerifySignature("other", body, sig) {
		t.Error("expected signature under another secret to fail")
	}
	if VerifySignature("secret", append(body, ' '), sig) {
		t.Error("expected tampered body to fail")
	}
	if VerifySignature("secret", body, "not-hex") {
		t.Error("expected malformed signature to fail")
	}
}

func TestParseEvent_MetadataShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantType string
	}{
		{"object", `{"event":"charge.success","data":{"reference":"r","metadata":{"type":"card_payment","order_id":7}}}`, "card_payment"},
		{"empty string", `{"event":"charge.success","data":{"reference":"r","metadata":""}}`, ""},
		{"null", `{"event":"charge.success","data":{"reference":"r","metadata":null}}`, ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ev, err := ParseEvent([]byte(tc.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			charge, err := ev.Charge()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := charge.Metadata.Get("type"); got != tc.wantType {
				t.Errorf("expected type %q, got %q", tc.wantType, got)
			}
		})
	}
}
