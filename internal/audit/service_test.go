package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/rizki-dev/backend-warung/internal/common"
	"github.com/rizki-dev/backend-warung/internal/obs"
)

type stubStore struct {
	lastInsert Entry
	called     bool
}

func (s *stubStore) InsertAuditLog(_ context.Context, e Entry) (Entry, error) {
	s.called = true
	s.lastInsert = e
	return e, nil
}

func (s *stubStore) ListAuditLogs(context.Context, int32, int32) ([]Entry, error) {
	return nil, nil
}

func TestServiceRecord(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: true, SamplingRate: 1}
	userID := uuid.NewString()

	req := httptest.NewRequest(http.MethodPost, "https://api.test/api/v1/admin/webhooks?status=active", nil)
	req.Header.Set("User-Agent", "tester")
	req.Header.Set("X-Request-ID", "req-123")
	req.RemoteAddr = "10.0.0.2:54321"
	ctx := common.WithUserID(req.Context(), userID)
	ctx = obs.WithRoutePattern(ctx, "/api/v1/admin/webhooks")
	req = req.WithContext(ctx)

	if err := svc.Record(req.Context(), Actor{Kind: ActorKindUser, UserID: &userID}, "", "", "", req, http.StatusCreated, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !store.called {
		t.Fatal("expected store to be called")
	}
	got := store.lastInsert
	if got.ActorKind != string(ActorKindUser) {
		t.Fatalf("actor kind = %q", got.ActorKind)
	}
	if got.ActorUserID.String() != userID {
		t.Fatalf("actor user id = %s, want %s", got.ActorUserID, userID)
	}
	if got.Action != "POST /api/v1/admin/webhooks" {
		t.Fatalf("action = %q", got.Action)
	}
	if got.ResourceType != "admin.webhooks" {
		t.Fatalf("resource type = %q", got.ResourceType)
	}
	if got.Status != http.StatusCreated {
		t.Fatalf("status = %d", got.Status)
	}
	if got.RequestID != "req-123" {
		t.Fatalf("request id = %q", got.RequestID)
	}
	if len(got.Metadata) == 0 {
		t.Fatal("expected metadata from query string")
	}
}

func TestServiceRecordDisabled(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: false}
	req := httptest.NewRequest(http.MethodGet, "https://api.test/api/v1/bills", nil)
	if err := svc.Record(req.Context(), Actor{}, "", "", "", req, http.StatusOK, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if store.called {
		t.Fatal("disabled service must not write")
	}
}

func TestMiddlewareRecordsAfterHandler(t *testing.T) {
	store := &stubStore{}
	svc := &Service{Store: store, Enabled: true}
	recorder := HTTPRecorder{Service: svc}

	handler := recorder.Middleware(HTTPConfig{Action: "bill.pay", ResourceType: "bills"})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))

	req := httptest.NewRequest(http.MethodPost, "https://api.test/api/v1/bills/abc/pay", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !store.called {
		t.Fatal("expected audit entry")
	}
	if store.lastInsert.Action != "bill.pay" {
		t.Fatalf("action = %q", store.lastInsert.Action)
	}
	if store.lastInsert.Status != http.StatusAccepted {
		t.Fatalf("status = %d", store.lastInsert.Status)
	}
}
