package restaurant

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rizki-dev/backend-warung/internal/common"
)

// ErrNotOwner indicates the caller is not the operator who owns the restaurant.
var ErrNotOwner = errors.New("restaurant: caller does not own this restaurant")

// OwnerResolver resolves the owning operator for a restaurant.
type OwnerResolver interface {
	OwnerID(ctx context.Context, restaurantID uuid.UUID) (uuid.UUID, error)
}

// Guard authorizes operator access to restaurant-scoped resources. Admins
// always pass; operators only for restaurants they own.
type Guard struct {
	Owners OwnerResolver
}

// AuthorizeOwner verifies the authenticated caller owns the restaurant.
func (g Guard) AuthorizeOwner(ctx context.Context, restaurantID uuid.UUID) error {
	if g.Owners == nil {
		return errors.New("restaurant: guard not configured")
	}
	if common.HasRole(ctx, "admin") {
		return nil
	}
	raw, ok := common.UserID(ctx)
	if !ok {
		return ErrNotOwner
	}
	caller, err := uuid.Parse(raw)
	if err != nil {
		return ErrNotOwner
	}
	owner, err := g.Owners.OwnerID(ctx, restaurantID)
	if err != nil {
		return err
	}
	if owner != caller {
		return ErrNotOwner
	}
	return nil
}

// RequireOwner guards route subtrees keyed by a restaurant {id} URL parameter.
func (g Guard) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid restaurant id", nil)
			return
		}
		if err := g.AuthorizeOwner(r.Context(), id); err != nil {
			switch {
			case errors.Is(err, ErrNotOwner):
				common.JSONError(w, http.StatusForbidden, common.CodeForbidden, "not your restaurant", nil)
			case errors.Is(err, ErrNotFound):
				common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "restaurant not found", nil)
			default:
				common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "authorization check failed", nil)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}
