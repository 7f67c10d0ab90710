// Package paystack is a minimal client for the Paystack API covering the
// calls the payment coordinator makes: charging a stored authorization,
// creating transfer recipients and initiating transfers.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.paystack.co"

// APIError is returned for non-2xx responses and for envelopes with
// status=false.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack: status %d: %s", e.StatusCode, e.Message)
}

// Client talks to the Paystack REST API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates a client authenticated with secretKey.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// envelope is the wrapper every Paystack response uses.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 || !env.Status {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// ChargeRequest charges a previously stored card authorization.
type ChargeRequest struct {
	Email             string            `json:"email"`
	Amount            int64             `json:"amount"`
	AuthorizationCode string            `json:"authorization_code"`
	Reference         string            `json:"reference,omitempty"`
	Currency          string            `json:"currency,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// ChargeResult is the outcome of a charge the gateway accepted for
// processing. Success is false when the card was declined.
type ChargeResult struct {
	Success   bool
	Reference string
	Message   string
}

// Charge calls /transaction/charge_authorization.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	var data struct {
		Status          string `json:"status"`
		Reference       string `json:"reference"`
		GatewayResponse string `json:"gateway_response"`
	}

	if err := c.post(ctx, "/transaction/charge_authorization", req, &data); err != nil {
		return nil, err
	}

	result := &ChargeResult{
		Success:   data.Status == "success",
		Reference: data.Reference,
		Message:   data.GatewayResponse,
	}
	if result.Reference == "" {
		result.Reference = req.Reference
	}
	return result, nil
}

// RecipientRequest describes a bank account to pay out to.
type RecipientRequest struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Currency      string `json:"currency"`
}

// CreateTransferRecipient calls /transferrecipient and returns the
// recipient code.
func (c *Client) CreateTransferRecipient(ctx context.Context, req RecipientRequest) (string, error) {
	body := struct {
		Type string `json:"type"`
		RecipientRequest
	}{Type: "nuban", RecipientRequest: req}

	var data struct {
		RecipientCode string `json:"recipient_code"`
	}

	if err := c.post(ctx, "/transferrecipient", body, &data); err != nil {
		return "", err
	}
	return data.RecipientCode, nil
}

// TransferRequest pays out from the integration balance. Reason carries the
// withdrawal transaction id so webhooks can be matched back to it.
type TransferRequest struct {
	Amount    int64  `json:"amount"`
	Recipient string `json:"recipient"`
	Reason    string `json:"reason"`
	Reference string `json:"reference,omitempty"`
	Currency  string `json:"currency"`
}

// Transfer is the gateway's view of an initiated transfer.
type Transfer struct {
	Reference    string `json:"reference"`
	TransferCode string `json:"transfer_code"`
	Status       string `json:"status"`
}

// InitiateTransfer calls /transfer.
func (c *Client) InitiateTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	body := struct {
		Source string `json:"source"`
		TransferRequest
	}{Source: "balance", TransferRequest: req}

	var transfer Transfer
	if err := c.post(ctx, "/transfer", body, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}
