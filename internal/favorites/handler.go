package favorites

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/rizki-dev/backend-warung/internal/common"
)

type Handler struct {
	Svc *Service
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	dinerID, ok := callerID(w, r)
	if !ok {
		return
	}
	favs, err := h.Svc.List(r.Context(), dinerID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to list favorites", nil)
		return
	}
	if favs == nil {
		favs = []Favorite{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": favs})
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RestaurantID string `json:"restaurant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request body", nil)
		return
	}
	restaurantID, err := uuid.Parse(req.RestaurantID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid restaurant id", nil)
		return
	}
	dinerID, ok := callerID(w, r)
	if !ok {
		return
	}
	favored, err := h.Svc.Toggle(r.Context(), dinerID, restaurantID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "failed to toggle favorite", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"restaurant_id": restaurantID,
		"favorited":     favored,
	}})
}

func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "authentication required", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "invalid user id", nil)
		return uuid.Nil, false
	}
	return id, true
}
