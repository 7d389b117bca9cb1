package bill

import (
	"errors"
	"io"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rizki-dev/backend-warung/internal/billing"
	"github.com/rizki-dev/backend-warung/internal/common"
)

// Handler exposes billing endpoints.
type Handler struct {
	Svc           *Service
	DefaultTaxBps int32
}

type createPayload struct {
	ReservationID string        `json:"reservation_id" validate:"required,uuid"`
	Items         []itemPayload `json:"items" validate:"required,min=1,max=200,dive"`
	TaxRate       *float64      `json:"tax_rate" validate:"omitempty,min=0,max=100"`
	Notes         string        `json:"notes" validate:"omitempty,max=500"`
}

type itemPayload struct {
	DishName  string  `json:"dish_name" validate:"required,max=200"`
	Quantity  int     `json:"quantity" validate:"required,min=1,max=1000"`
	UnitPrice float64 `json:"unit_price" validate:"min=0,max=10000000"`
	PromoID   string  `json:"promo_id" validate:"omitempty,uuid"`
}

type payPayload struct {
	Method string `json:"method" validate:"required,max=50"`
}

type billView struct {
	Bill
	Lines []Line `json:"lines"`
}

// Create handles POST /api/v1/operator/bills.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "bill service not configured", nil)
		return
	}
	var payload createPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.RenderError(w, err)
		return
	}
	reservationID, _ := uuid.Parse(payload.ReservationID)

	in := CreateInput{
		ReservationID: reservationID,
		Notes:         payload.Notes,
		TaxBps:        h.DefaultTaxBps,
	}
	if payload.TaxRate != nil {
		in.TaxBps = int32(billing.PercentToBps(*payload.TaxRate))
	}
	for _, it := range payload.Items {
		item := ItemInput{
			DishName:  it.DishName,
			Qty:       it.Quantity,
			UnitPrice: toMinor(it.UnitPrice),
		}
		if it.PromoID != "" {
			id, err := uuid.Parse(it.PromoID)
			if err == nil {
				item.DealID = &id
			}
		}
		in.Items = append(in.Items, item)
	}

	created, lines, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": billView{Bill: created, Lines: lines}})
}

// Get handles GET /api/v1/bills/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid bill id", nil)
		return
	}
	b, lines, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.canView(r, b) {
		common.JSONError(w, http.StatusForbidden, common.CodeForbidden, "not your bill", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": billView{Bill: b, Lines: lines}})
}

// GetByReservation handles GET /api/v1/reservations/{id}/bill.
func (h *Handler) GetByReservation(w http.ResponseWriter, r *http.Request) {
	reservationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid reservation id", nil)
		return
	}
	b, lines, err := h.Svc.GetByReservation(r.Context(), reservationID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.canView(r, b) {
		common.JSONError(w, http.StatusForbidden, common.CodeForbidden, "not your bill", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": billView{Bill: b, Lines: lines}})
}

// Pay handles POST /api/v1/bills/{id}/pay.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid bill id", nil)
		return
	}
	var payload payPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.RenderError(w, err)
		return
	}
	existing, err := h.Svc.Store.GetBill(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.canView(r, existing) {
		common.JSONError(w, http.StatusForbidden, common.CodeForbidden, "not your bill", nil)
		return
	}
	settled, err := h.Svc.Pay(r.Context(), id, payload.Method)
	if err != nil {
		if errors.Is(err, ErrPaymentDeclined) {
			common.JSON(w, http.StatusPaymentRequired, map[string]any{"data": settled})
			return
		}
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": settled})
}

// Callback handles POST /api/v1/payments/callback from the gateway.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Svc.Provider == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "payment provider not configured", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "unreadable body", nil)
		return
	}
	result, err := h.Svc.Provider.VerifyCallback(r, body)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "callback verification failed", nil)
		return
	}
	if !result.Valid {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "invalid callback signature", nil)
		return
	}
	settled, err := h.Svc.SettleFromCallback(r.Context(), result)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"bill_id": settled.ID, "status": settled.Status}})
}

func (h *Handler) canView(r *http.Request, b Bill) bool {
	ctx := r.Context()
	if common.HasRole(ctx, "admin") {
		return true
	}
	raw, ok := common.UserID(ctx)
	if !ok {
		return false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return false
	}
	if id == b.DinerID {
		return true
	}
	if common.HasRole(ctx, "operator") && h.Svc != nil && h.Svc.Auth != nil {
		return h.Svc.Auth.AuthorizeOwner(ctx, b.RestaurantID) == nil
	}
	return false
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "bill not found", nil)
	case errors.Is(err, ErrReservationMissing):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "reservation not found", nil)
	case errors.Is(err, ErrForbidden):
		common.JSONError(w, http.StatusForbidden, common.CodeForbidden, "not your restaurant", nil)
	case errors.Is(err, ErrAlreadyExists):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, "reservation already has a bill", nil)
	case errors.Is(err, ErrAlreadyPaid):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, "bill is already paid", nil)
	case errors.Is(err, ErrNotCheckedIn):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, "reservation is not checked in", nil)
	case errors.Is(err, ErrEmptyItems):
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "at least one item is required", nil)
	default:
		common.RenderError(w, err)
	}
}

func toMinor(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
