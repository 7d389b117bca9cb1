package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	_ Provider = Sandbox{}
	_ Provider = Gateway{}
)

// Sandbox implements Provider without performing a network call. Charges
// settle immediately unless the method asks for a failure, which lets
// integration tests drive both branches of the settlement flow.
type Sandbox struct {
	SecretKey string
	Now       func() time.Time
}

func (s Sandbox) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Charge synthesises a deterministic settlement result.
func (s Sandbox) Charge(_ context.Context, req ChargeRequest) (ChargeResult, error) {
	if strings.TrimSpace(req.BillID) == "" {
		return ChargeResult{}, errors.New("bill id is required")
	}
	if req.AmountMinor <= 0 {
		return ChargeResult{}, errors.New("amount must be positive")
	}
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if strings.HasPrefix(method, "fail") {
		return ChargeResult{
			Provider:      "sandbox",
			TransactionID: fmt.Sprintf("SBX-%s", req.BillID),
			Status:        StatusFailed,
		}, nil
	}
	return ChargeResult{
		Provider:      "sandbox",
		TransactionID: fmt.Sprintf("SBX-%s", req.BillID),
		Status:        StatusPaid,
		PaidAtUnix:    s.now().Unix(),
	}, nil
}

// VerifyCallback validates the sandbox signature and normalises the payload.
// The signature is hex(hmac-sha512(billID + status + amount, secret)).
func (s Sandbox) VerifyCallback(_ *http.Request, body []byte) (CallbackResult, error) {
	var payload struct {
		BillID      string `json:"bill_id"`
		AmountMinor int64  `json:"amount_minor"`
		Status      string `json:"status"`
		Signature   string `json:"signature"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return CallbackResult{Valid: false, Err: err}, nil
	}
	if payload.BillID == "" {
		return CallbackResult{Valid: false, Err: errors.New("missing bill id")}, nil
	}

	expected := s.computeSignature(payload.BillID, payload.Status, payload.AmountMinor)
	provided := strings.TrimSpace(payload.Signature)
	if expected == "" || provided == "" || !hmac.Equal([]byte(expected), []byte(provided)) {
		return CallbackResult{Valid: false, Err: errors.New("invalid signature")}, nil
	}

	return CallbackResult{
		Valid:           true,
		BillID:          payload.BillID,
		AmountMinor:     payload.AmountMinor,
		Status:          normaliseStatus(payload.Status),
		ProviderPayload: body,
	}, nil
}

func (s Sandbox) computeSignature(billID, status string, amount int64) string {
	key := strings.TrimSpace(s.SecretKey)
	if key == "" {
		return ""
	}
	mac := hmac.New(sha512.New, []byte(key))
	mac.Write([]byte(billID))
	mac.Write([]byte(status))
	fmt.Fprintf(mac, "%d", amount)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignCallback produces a signed callback body, used by the seeder and tests.
func (s Sandbox) SignCallback(billID, status string, amount int64) []byte {
	payload := map[string]any{
		"bill_id":      billID,
		"amount_minor": amount,
		"status":       status,
		"signature":    s.computeSignature(billID, status, amount),
	}
	data, _ := json.Marshal(payload)
	return data
}

func normaliseStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid", "settlement", "capture":
		return StatusPaid
	case "pending":
		return StatusPending
	case "failed", "deny", "cancel":
		return StatusFailed
	case "expired":
		return StatusExpired
	case "refunded":
		return StatusRefunded
	default:
		return StatusPending
	}
}
