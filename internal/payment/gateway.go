package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rizki-dev/backend-warung/internal/obs"
	"github.com/rizki-dev/backend-warung/internal/resilience"
)

// Gateway implements Provider against an HTTP payment gateway. Requests go
// through the resilient client so a flapping gateway trips the breaker
// instead of piling up retries.
type Gateway struct {
	BaseURL string
	APIKey  string
	HTTP    resilience.HTTPClient
	Verify  Sandbox
}

type gatewayChargeBody struct {
	BillID    string `json:"bill_id"`
	Amount    int64  `json:"amount_minor"`
	Currency  string `json:"currency"`
	Method    string `json:"method"`
	Reference string `json:"reference,omitempty"`
}

type gatewayChargeResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	PaidAt        int64  `json:"paid_at"`
}

// Charge posts the charge to the upstream gateway.
func (g Gateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if strings.TrimSpace(g.BaseURL) == "" {
		return ChargeResult{}, errors.New("payment: gateway base url not configured")
	}
	if req.AmountMinor <= 0 {
		return ChargeResult{}, errors.New("payment: amount must be positive")
	}

	body, err := json.Marshal(gatewayChargeBody{
		BillID:    req.BillID,
		Amount:    req.AmountMinor,
		Currency:  req.Currency,
		Method:    req.Method,
		Reference: req.Reference,
	})
	if err != nil {
		return ChargeResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(g.BaseURL, "/")+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return ChargeResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.APIKey)

	resp, err := g.HTTP.Do(ctx, httpReq)
	if err != nil {
		countCharge("gateway", "error")
		return ChargeResult{}, fmt.Errorf("payment: charge request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		countCharge("gateway", "rejected")
		return ChargeResult{}, fmt.Errorf("payment: gateway returned %s", resp.Status)
	}

	var decoded gatewayChargeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		countCharge("gateway", "error")
		return ChargeResult{}, fmt.Errorf("payment: decode charge response: %w", err)
	}

	status := normaliseStatus(decoded.Status)
	countCharge("gateway", strings.ToLower(status))
	return ChargeResult{
		Provider:      "gateway",
		TransactionID: decoded.TransactionID,
		Status:        status,
		PaidAtUnix:    decoded.PaidAt,
	}, nil
}

// VerifyCallback delegates to the shared HMAC scheme.
func (g Gateway) VerifyCallback(r *http.Request, body []byte) (CallbackResult, error) {
	return g.Verify.VerifyCallback(r, body)
}

func countCharge(provider, result string) {
	if obs.PaymentChargeTotal != nil {
		obs.PaymentChargeTotal.WithLabelValues(provider, result).Inc()
	}
}
