package reservation

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rizki-dev/backend-warung/internal/common"
)

// Handler exposes booking endpoints.
type Handler struct {
	Svc *Service
}

type createPayload struct {
	RestaurantID string `json:"restaurant_id" validate:"required,uuid"`
	PartySize    int    `json:"party_size" validate:"required,min=1,max=50"`
	SlotAt       string `json:"slot_at" validate:"required"`
	Notes        string `json:"notes" validate:"omitempty,max=500"`
}

// Create handles POST /api/v1/reservations.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "reservation service not configured", nil)
		return
	}
	dinerID, ok := callerID(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "authentication required", nil)
		return
	}
	var payload createPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.RenderError(w, err)
		return
	}
	slotAt, err := time.Parse(time.RFC3339, payload.SlotAt)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "slot_at must be RFC 3339", nil)
		return
	}
	restaurantID, _ := uuid.Parse(payload.RestaurantID)

	created, err := h.Svc.Create(r.Context(), CreateInput{
		RestaurantID: restaurantID,
		DinerID:      dinerID,
		PartySize:    payload.PartySize,
		SlotAt:       slotAt,
		Notes:        payload.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// Get handles GET /api/v1/reservations/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid reservation id", nil)
		return
	}
	resv, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dinerID, _ := callerID(r)
	if resv.DinerID != dinerID && !common.HasRole(r.Context(), "operator") && !common.HasRole(r.Context(), "admin") {
		common.JSONError(w, http.StatusForbidden, common.CodeForbidden, "not your reservation", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": resv})
}

// ListMine handles GET /api/v1/reservations.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	dinerID, ok := callerID(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "authentication required", nil)
		return
	}
	rows, err := h.Svc.ListForDiner(r.Context(), dinerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Cancel handles POST /api/v1/reservations/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid reservation id", nil)
		return
	}
	caller, _ := callerID(r)
	if common.HasRole(r.Context(), "operator") || common.HasRole(r.Context(), "admin") {
		caller = uuid.Nil
	}
	resv, err := h.Svc.Cancel(r.Context(), id, caller)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": resv})
}

// CheckIn handles POST /api/v1/operator/reservations/{id}/checkin.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.operatorTransition(w, r, h.Svc.CheckIn)
}

// Complete handles POST /api/v1/operator/reservations/{id}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.operatorTransition(w, r, h.Svc.Complete)
}

// ListForRestaurant handles GET /api/v1/operator/restaurants/{id}/reservations.
func (h *Handler) ListForRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid restaurant id", nil)
		return
	}
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "date must be YYYY-MM-DD", nil)
			return
		}
		day = parsed
	}
	rows, err := h.Svc.ListForRestaurant(r.Context(), restaurantID, day)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (h *Handler) operatorTransition(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) (Reservation, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid reservation id", nil)
		return
	}
	resv, err := fn(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": resv})
}

func callerID(r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "reservation not found", nil)
	case errors.Is(err, ErrSlotFull):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, "slot is fully booked", nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, common.CodeConflict, "reservation is not in a valid state for this action", nil)
	case errors.Is(err, ErrPastSlot):
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "slot must be in the future", nil)
	case errors.Is(err, ErrForbidden):
		common.JSONError(w, http.StatusForbidden, common.CodeForbidden, "not your reservation", nil)
	default:
		common.RenderError(w, err)
	}
}
