package promo

import (
	"errors"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rizki-dev/backend-warung/internal/billing"
	"github.com/rizki-dev/backend-warung/internal/common"
)

// Handler exposes deal catalog endpoints: public listing for the customer
// app and operator management plus a dry-run preview.
type Handler struct {
	Svc *Service
}

type dealPayload struct {
	Title         string  `json:"title" validate:"required,max=200"`
	DiscountType  string  `json:"discount_type" validate:"required,oneof=percentage flat_amount bogo"`
	DiscountValue float64 `json:"discount_value"`
	Active        *bool   `json:"is_active"`
}

type dealView struct {
	ID            string  `json:"id"`
	RestaurantID  string  `json:"restaurant_id"`
	Title         string  `json:"title"`
	DiscountType  string  `json:"discount_type"`
	DiscountValue float64 `json:"discount_value"`
	Active        bool    `json:"is_active"`
}

type previewRequest struct {
	RestaurantID string        `json:"restaurant_id" validate:"required,uuid"`
	TaxRate      float64       `json:"tax_rate"`
	Items        []previewItem `json:"items" validate:"required,min=1,max=200,dive"`
}

type previewItem struct {
	DishName  string  `json:"dish_name" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,min=1,max=1000"`
	UnitPrice float64 `json:"unit_price" validate:"min=0,max=10000000"`
	PromoID   *string `json:"promo_id,omitempty"`
}

func toView(d Deal) dealView {
	return dealView{
		ID:            d.ID.String(),
		RestaurantID:  d.RestaurantID.String(),
		Title:         d.Title,
		DiscountType:  d.Kind,
		DiscountValue: d.DiscountValue(),
		Active:        d.Active,
	}
}

// ListPublic returns the restaurant's active deals for the customer app.
func (h *Handler) ListPublic(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid restaurant id", nil)
		return
	}
	deals, err := h.Svc.List(r.Context(), restaurantID, true)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to list promos", nil)
		return
	}
	views := make([]dealView, 0, len(deals))
	for _, d := range deals {
		views = append(views, toView(d))
	}
	common.JSONData(w, http.StatusOK, views)
}

// ListForOperator returns all deals including deactivated ones.
func (h *Handler) ListForOperator(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid restaurant id", nil)
		return
	}
	deals, err := h.Svc.List(r.Context(), restaurantID, false)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to list promos", nil)
		return
	}
	views := make([]dealView, 0, len(deals))
	for _, d := range deals {
		views = append(views, toView(d))
	}
	common.JSONData(w, http.StatusOK, views)
}

// Create registers a new deal for the restaurant.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid restaurant id", nil)
		return
	}
	var payload dealPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.RenderError(w, err)
		return
	}
	deal, err := h.Svc.Create(r.Context(), restaurantID, toInput(payload))
	if err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			common.JSONError(w, http.StatusForbidden, common.CodeForbidden, "not your restaurant", nil)
		case errors.Is(err, ErrInvalidKind):
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid discount value for type", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to create promo", nil)
		}
		return
	}
	common.JSONData(w, http.StatusCreated, toView(deal))
}

// Update rewrites an existing deal's rule.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	dealID, err := uuid.Parse(chi.URLParam(r, "dealID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid promo id", nil)
		return
	}
	var payload dealPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.RenderError(w, err)
		return
	}
	deal, err := h.Svc.Update(r.Context(), dealID, toInput(payload))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "promo not found", nil)
		case errors.Is(err, ErrForbidden):
			common.JSONError(w, http.StatusForbidden, common.CodeForbidden, "not your restaurant", nil)
		case errors.Is(err, ErrInvalidKind):
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid discount value for type", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to update promo", nil)
		}
		return
	}
	common.JSONData(w, http.StatusOK, toView(deal))
}

// Deactivate turns a deal off. Bills referencing it keep rendering, with
// zero discount, so stale references on open tabs never error.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	dealID, err := uuid.Parse(chi.URLParam(r, "dealID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid promo id", nil)
		return
	}
	deal, err := h.Svc.Deactivate(r.Context(), dealID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "promo not found", nil)
		case errors.Is(err, ErrForbidden):
			common.JSONError(w, http.StatusForbidden, common.CodeForbidden, "not your restaurant", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to deactivate promo", nil)
		}
		return
	}
	common.JSONData(w, http.StatusOK, toView(deal))
}

// Preview runs the billing engine against the posted items without
// persisting anything.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RenderError(w, err)
		return
	}
	restaurantID, err := uuid.Parse(req.RestaurantID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid restaurant id", nil)
		return
	}
	catalog, err := h.Svc.Catalog(r.Context(), restaurantID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to load promos", nil)
		return
	}
	items := make([]billing.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, billing.Item{
			DishName:  it.DishName,
			Qty:       it.Quantity,
			UnitPrice: toMinor(it.UnitPrice),
			DealID:    it.PromoID,
		})
	}
	summary := billing.Compute(items, catalog, billing.PercentToBps(req.TaxRate))
	common.JSONData(w, http.StatusOK, map[string]any{
		"subtotal":                summary.Subtotal,
		"discount_total":          summary.Discount,
		"subtotal_after_discount": summary.SubtotalAfterDiscount,
		"tax_amount":              summary.Tax,
		"total":                   summary.Total,
		"lines":                   billing.ComputeLines(items, catalog),
	})
}

func toInput(p dealPayload) Input {
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	return Input{Title: p.Title, Kind: p.DiscountType, DiscountValue: p.DiscountValue, Active: active}
}

func toMinor(amount float64) billing.Money {
	if amount <= 0 {
		return 0
	}
	return billing.Money(math.Round(amount * 100))
}
