package restaurant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rizki-dev/backend-warung/internal/common"
)

type fakeOwners struct {
	owners map[uuid.UUID]uuid.UUID
}

func (f fakeOwners) OwnerID(_ context.Context, restaurantID uuid.UUID) (uuid.UUID, error) {
	owner, ok := f.owners[restaurantID]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return owner, nil
}

func operatorCtx(userID uuid.UUID, roles ...string) context.Context {
	ctx := common.WithUserID(context.Background(), userID.String())
	return common.WithRoles(ctx, roles)
}

func TestGuardAuthorizeOwner(t *testing.T) {
	restaurantID := uuid.New()
	owner := uuid.New()
	guard := Guard{Owners: fakeOwners{owners: map[uuid.UUID]uuid.UUID{restaurantID: owner}}}

	require.NoError(t, guard.AuthorizeOwner(operatorCtx(owner, "operator"), restaurantID))

	err := guard.AuthorizeOwner(operatorCtx(uuid.New(), "operator"), restaurantID)
	require.ErrorIs(t, err, ErrNotOwner)

	// admins bypass ownership
	require.NoError(t, guard.AuthorizeOwner(operatorCtx(uuid.New(), "admin"), restaurantID))

	err = guard.AuthorizeOwner(operatorCtx(owner, "operator"), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRequireOwnerMiddleware(t *testing.T) {
	restaurantID := uuid.New()
	owner := uuid.New()
	guard := Guard{Owners: fakeOwners{owners: map[uuid.UUID]uuid.UUID{restaurantID: owner}}}

	r := chi.NewRouter()
	r.Route("/operator/restaurants/{id}", func(rr chi.Router) {
		rr.Use(guard.RequireOwner)
		rr.Get("/deals", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	cases := []struct {
		name string
		ctx  context.Context
		path string
		want int
	}{
		{"owner", operatorCtx(owner, "operator"), "/operator/restaurants/" + restaurantID.String() + "/deals", http.StatusOK},
		{"foreign operator", operatorCtx(uuid.New(), "operator"), "/operator/restaurants/" + restaurantID.String() + "/deals", http.StatusForbidden},
		{"admin", operatorCtx(uuid.New(), "admin"), "/operator/restaurants/" + restaurantID.String() + "/deals", http.StatusOK},
		{"unknown restaurant", operatorCtx(owner, "operator"), "/operator/restaurants/" + uuid.NewString() + "/deals", http.StatusNotFound},
		{"bad id", operatorCtx(owner, "operator"), "/operator/restaurants/nope/deals", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil).WithContext(tc.ctx)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			require.Equal(t, tc.want, rec.Code)
		})
	}
}
