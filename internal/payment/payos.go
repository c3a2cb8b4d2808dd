// Package payment wraps the PayOS payment gateway.  The client is
// constructed once at startup and passed into the coordinator by
// reference; nothing in this package reaches for global state, so
// tests can substitute the Gateway interface with a double.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultBaseURL is the production PayOS merchant API endpoint.
const DefaultBaseURL = "https://api-merchant.payos.vn"

// ErrGatewayUnavailable is returned by every operation when the
// client is missing its credentials.  The coordinator treats this as
// fatal for the checkout: it never proceeds as if payment succeeded.
var ErrGatewayUnavailable = errors.New("payment gateway not configured")

// ErrSignatureInvalid is returned when a webhook payload fails
// checksum verification.  Callers must reject the webhook outright
// with no side effects; verification never fails open.
var ErrSignatureInvalid = errors.New("webhook signature verification failed")

// ErrGatewayRejected is returned when the gateway answers with a
// non-zero result code.
var ErrGatewayRejected = errors.New("gateway rejected the request")

// LinkRequest describes a hosted payment link to create.  Amounts are
// in the gateway's smallest currency unit.
type LinkRequest struct {
	OrderCode   int64
	Amount      int64
	Description string
	BuyerName   string
	BuyerEmail  string
	BuyerPhone  string
	ReturnURL   string
	CancelURL   string
}

// Link is the result of creating a payment link.
type Link struct {
	CheckoutURL string
	QRCode      string
}

// WebhookData is the typed, verified content of a gateway webhook.
// The raw payload is duck-typed JSON; modelling it with explicit
// fields keeps the boundary honest.
type WebhookData struct {
	OrderCode int64  `json:"orderCode"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	Code      string `json:"code"`
	Desc      string `json:"desc"`
	Success   bool   `json:"-"`
}

// PaymentInfo is the gateway's view of a payment session, returned by
// GetPaymentStatus.
type PaymentInfo struct {
	OrderCode  int64  `json:"orderCode"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amountPaid"`
	Status     string `json:"status"` // PENDING, PROCESSING, PAID, CANCELLED
}

// Gateway is the surface the reservation coordinator depends on.
type Gateway interface {
	CreateLink(ctx context.Context, req LinkRequest) (*Link, error)
	VerifyWebhook(raw []byte) (*WebhookData, error)
	GetPaymentStatus(ctx context.Context, orderCode int64) (*PaymentInfo, error)
	CancelPayment(ctx context.Context, orderCode int64, reason string) error
}

// Client talks to the PayOS REST API.  A zero credential disables the
// client: every method fails fast with ErrGatewayUnavailable rather
// than letting a checkout continue unpaid.
type Client struct {
	clientID    string
	apiKey      string
	checksumKey string
	baseURL     string
	http        *http.Client
}

// NewClient builds a PayOS client.  baseURL may be empty to use the
// production endpoint; this is how tests point the client at a stub
// server.
func NewClient(clientID, apiKey, checksumKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		clientID:    clientID,
		apiKey:      apiKey,
		checksumKey: checksumKey,
		baseURL:     baseURL,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) configured() bool {
	return c != nil && c.clientID != "" && c.apiKey != "" && c.checksumKey != ""
}

// apiEnvelope is the common wrapper PayOS puts around responses.
type apiEnvelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// CreateLink asks the gateway for a hosted checkout page.  The
// request body is signed with the checksum key over the five core
// fields in alphabetical order, per the gateway contract.
func (c *Client) CreateLink(ctx context.Context, req LinkRequest) (*Link, error) {
	if !c.configured() {
		return nil, ErrGatewayUnavailable
	}
	signing := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		req.Amount, req.CancelURL, req.Description, req.OrderCode, req.ReturnURL)
	body := map[string]interface{}{
		"orderCode":   req.OrderCode,
		"amount":      req.Amount,
		"description": req.Description,
		"buyerName":   req.BuyerName,
		"buyerEmail":  req.BuyerEmail,
		"buyerPhone":  req.BuyerPhone,
		"returnUrl":   req.ReturnURL,
		"cancelUrl":   req.CancelURL,
		"signature":   Sign(c.checksumKey, signing),
	}
	var env apiEnvelope
	if err := c.post(ctx, "/v2/payment-requests", body, &env); err != nil {
		return nil, err
	}
	if env.Code != "00" {
		return nil, fmt.Errorf("%w: code=%s desc=%s", ErrGatewayRejected, env.Code, env.Desc)
	}
	var data struct {
		CheckoutURL string `json:"checkoutUrl"`
		QRCode      string `json:"qrCode"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode link response: %w", err)
	}
	return &Link{CheckoutURL: data.CheckoutURL, QRCode: data.QRCode}, nil
}

// VerifyWebhook authenticates a raw webhook body and returns its
// typed data.  The signature is an HMAC-SHA256 of the data object's
// fields serialized as sorted key=value pairs (see signature.go).  A
// payload that fails verification is rejected with
// ErrSignatureInvalid and must cause no state change in the caller.
func (c *Client) VerifyWebhook(raw []byte) (*WebhookData, error) {
	if !c.configured() {
		return nil, ErrGatewayUnavailable
	}
	var payload struct {
		Code      string          `json:"code"`
		Desc      string          `json:"desc"`
		Success   bool            `json:"success"`
		Data      json.RawMessage `json:"data"`
		Signature string          `json:"signature"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if payload.Signature == "" || len(payload.Data) == 0 {
		return nil, ErrSignatureInvalid
	}
	ok, err := VerifyData(c.checksumKey, payload.Data, payload.Signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSignatureInvalid
	}
	var data WebhookData
	if err := json.Unmarshal(payload.Data, &data); err != nil {
		return nil, fmt.Errorf("decode webhook data: %w", err)
	}
	data.Success = payload.Success && payload.Code == "00"
	return &data, nil
}

// GetPaymentStatus queries the gateway for the state of a payment
// session.  The coordinator uses it to decide whether a refund is
// owed when a webhook arrives for an already-expired hold.
func (c *Client) GetPaymentStatus(ctx context.Context, orderCode int64) (*PaymentInfo, error) {
	if !c.configured() {
		return nil, ErrGatewayUnavailable
	}
	var env apiEnvelope
	if err := c.get(ctx, fmt.Sprintf("/v2/payment-requests/%d", orderCode), &env); err != nil {
		return nil, err
	}
	if env.Code != "00" {
		return nil, fmt.Errorf("%w: code=%s desc=%s", ErrGatewayRejected, env.Code, env.Desc)
	}
	var info PaymentInfo
	if err := json.Unmarshal(env.Data, &info); err != nil {
		return nil, fmt.Errorf("decode payment info: %w", err)
	}
	return &info, nil
}

// CancelPayment voids a payment session at the gateway.  Used when a
// hold loses the confirm race after money was captured, or when a
// user abandons checkout explicitly.
func (c *Client) CancelPayment(ctx context.Context, orderCode int64, reason string) error {
	if !c.configured() {
		return ErrGatewayUnavailable
	}
	body := map[string]interface{}{"cancellationReason": reason}
	var env apiEnvelope
	if err := c.post(ctx, fmt.Sprintf("/v2/payment-requests/%d/cancel", orderCode), body, &env); err != nil {
		return err
	}
	if env.Code != "00" {
		return fmt.Errorf("%w: code=%s desc=%s", ErrGatewayRejected, env.Code, env.Desc)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-api-key", c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway request: unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
