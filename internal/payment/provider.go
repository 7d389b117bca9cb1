package payment

import (
	"context"
	"net/http"
)

// Charge statuses normalised across providers.
const (
	StatusPaid     = "PAID"
	StatusPending  = "PENDING"
	StatusFailed   = "FAILED"
	StatusExpired  = "EXPIRED"
	StatusRefunded = "REFUNDED"
)

// ChargeRequest captures the information required to charge a bill.
type ChargeRequest struct {
	BillID      string
	AmountMinor int64
	Currency    string
	Method      string
	Reference   string
}

// ChargeResult is the normalised provider response for a charge attempt.
type ChargeResult struct {
	Provider      string
	TransactionID string
	Status        string
	PaidAtUnix    int64
}

// CallbackResult contains the normalised data extracted from a settlement
// callback after signature verification.
type CallbackResult struct {
	Valid           bool
	BillID          string
	AmountMinor     int64
	Status          string
	ProviderPayload []byte
	Err             error
}

// Provider abstracts the operations required from an upstream payment gateway.
type Provider interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	VerifyCallback(r *http.Request, body []byte) (CallbackResult, error)
}
