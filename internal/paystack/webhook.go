package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SignatureHeader carries the hex HMAC-SHA512 of the request body.
const SignatureHeader = "X-Paystack-Signature"

// Event names handled by the webhook.
const (
	EventChargeSuccess    = "charge.success"
	EventTransferSuccess  = "transfer.success"
	EventTransferFailed   = "transfer.failed"
	EventTransferReversed = "transfer.reversed"
)

// Metadata types set on charges this service initiates.
const (
	MetadataCardPayment       = "card_payment"
	MetadataOrderCancellation = "order_cancellation"
	MetadataCreditAccount     = "credit_account"
	MetadataAddCard           = "add_card"
)

// VerifySignature reports whether signature matches body under secret.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// Sign returns the signature Paystack would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Event is a webhook delivery.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Authorization is the reusable card a charge was made with.
type Authorization struct {
	AuthorizationCode string `json:"authorization_code"`
	Signature         string `json:"signature"`
	Last4             string `json:"last4"`
	Brand             string `json:"brand"`
	ExpMonth          string `json:"exp_month"`
	ExpYear           string `json:"exp_year"`
	Reusable          bool   `json:"reusable"`
}

// Metadata is the free-form object attached to a charge. Paystack sends an
// empty string when none was set.
type Metadata map[string]any

// UnmarshalJSON accepts an object, null or a string.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] != '{' {
		*m = nil
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = raw
	return nil
}

// Get returns the value under key as a string.
func (m Metadata) Get(key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// ChargeData is the payload of charge.success.
type ChargeData struct {
	Reference     string        `json:"reference"`
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	Status        string        `json:"status"`
	Metadata      Metadata      `json:"metadata"`
	Authorization Authorization `json:"authorization"`
	Customer      struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// TransferData is the payload of transfer events.
type TransferData struct {
	Reference    string `json:"reference"`
	TransferCode string `json:"transfer_code"`
	Amount       int64  `json:"amount"`
	Reason       string `json:"reason"`
	Status       string `json:"status"`
}

// ParseEvent decodes a webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if ev.Event == "" {
		return nil, fmt.Errorf("decode event: missing event name")
	}
	return &ev, nil
}

// Charge decodes the event data as a charge.
func (e *Event) Charge() (*ChargeData, error) {
	var data ChargeData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("decode charge: %w", err)
	}
	return &data, nil
}

// Transfer decodes the event data as a transfer.
func (e *Event) Transfer() (*TransferData, error) {
	var data TransferData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("decode transfer: %w", err)
	}
	return &data, nil
}
