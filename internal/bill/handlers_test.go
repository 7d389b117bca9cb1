package bill

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCreateRejectsOutOfRangeLineItems(t *testing.T) {
	h := &Handler{Svc: &Service{}}

	cases := []struct {
		name string
		item map[string]any
	}{
		{"quantity above limit", map[string]any{"dish_name": "Nasi Goreng", "quantity": 1001, "unit_price": 25000}},
		{"unit price above limit", map[string]any{"dish_name": "Nasi Goreng", "quantity": 1, "unit_price": 10000001}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, err := json.Marshal(map[string]any{
				"reservation_id": uuid.NewString(),
				"items":          []map[string]any{tc.item},
			})
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/operator/bills", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			h.Create(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateRejectsTooManyLineItems(t *testing.T) {
	h := &Handler{Svc: &Service{}}

	items := make([]map[string]any, 201)
	for i := range items {
		items[i] = map[string]any{"dish_name": "Teh Manis", "quantity": 1, "unit_price": 5000}
	}
	body, err := json.Marshal(map[string]any{
		"reservation_id": uuid.NewString(),
		"items":          items,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/operator/bills", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
