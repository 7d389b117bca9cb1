package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rizki-dev/backend-warung/internal/resilience"
)

func TestSandboxChargeSettles(t *testing.T) {
	sbx := Sandbox{SecretKey: "secret", Now: func() time.Time { return time.Unix(1700000000, 0) }}

	res, err := sbx.Charge(context.Background(), ChargeRequest{
		BillID: "bill-1", AmountMinor: 132000, Currency: "IDR", Method: "qris",
	})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, res.Status)
	require.Equal(t, "SBX-bill-1", res.TransactionID)
	require.EqualValues(t, 1700000000, res.PaidAtUnix)
}

func TestSandboxChargeFailureMethod(t *testing.T) {
	sbx := Sandbox{SecretKey: "secret"}

	res, err := sbx.Charge(context.Background(), ChargeRequest{
		BillID: "bill-2", AmountMinor: 5000, Method: "fail_card",
	})
	require.NoError(t, err)
	require.Equal(t, StatusFailed, res.Status)
}

func TestSandboxChargeRejectsBadInput(t *testing.T) {
	sbx := Sandbox{SecretKey: "secret"}

	_, err := sbx.Charge(context.Background(), ChargeRequest{BillID: " ", AmountMinor: 100})
	require.Error(t, err)

	_, err = sbx.Charge(context.Background(), ChargeRequest{BillID: "bill", AmountMinor: 0})
	require.Error(t, err)
}

func TestSandboxCallbackRoundTrip(t *testing.T) {
	sbx := Sandbox{SecretKey: "secret"}

	body := sbx.SignCallback("bill-3", "settlement", 99000)
	res, err := sbx.VerifyCallback(nil, body)
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.Equal(t, "bill-3", res.BillID)
	require.Equal(t, StatusPaid, res.Status)
	require.EqualValues(t, 99000, res.AmountMinor)
}

func TestSandboxCallbackRejectsTamperedBody(t *testing.T) {
	sbx := Sandbox{SecretKey: "secret"}

	body := sbx.SignCallback("bill-4", "settlement", 99000)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	payload["amount_minor"] = 1
	tampered, err := json.Marshal(payload)
	require.NoError(t, err)

	res, err := sbx.VerifyCallback(nil, tampered)
	require.NoError(t, err)
	require.False(t, res.Valid)
}

func TestGatewayChargeParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/charges", r.URL.Path)
		require.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"transaction_id": "tx-9",
			"status":         "settlement",
			"paid_at":        1700000001,
		})
	}))
	t.Cleanup(srv.Close)

	gw := Gateway{
		BaseURL: srv.URL,
		APIKey:  "key-123",
		HTTP:    resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 2},
	}
	res, err := gw.Charge(context.Background(), ChargeRequest{
		BillID: "bill-9", AmountMinor: 42000, Currency: "IDR", Method: "qris",
	})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, res.Status)
	require.Equal(t, "tx-9", res.TransactionID)
}

func TestGatewayChargeRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"transaction_id": "tx-1", "status": "paid"})
	}))
	t.Cleanup(srv.Close)

	gw := Gateway{
		BaseURL: srv.URL,
		HTTP: resilience.HTTPClient{
			Client:      srv.Client(),
			MaxAttempts: 3,
			BaseBackoff: time.Millisecond,
		},
	}
	res, err := gw.Charge(context.Background(), ChargeRequest{BillID: "bill-1", AmountMinor: 1000})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, res.Status)
	require.Equal(t, 2, calls)
}
