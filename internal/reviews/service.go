package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("review not found")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrAlreadyReviewed = errors.New("restaurant already reviewed by this user")
	ErrNotVisited      = errors.New("review requires a completed reservation")
)

// Review is a diner's rating of a restaurant they have visited.
type Review struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	DinerID      uuid.UUID `json:"diner_id"`
	Rating       int32     `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stats summarises ratings for one restaurant.
type Stats struct {
	RestaurantID  uuid.UUID `json:"restaurant_id"`
	ReviewCount   int64     `json:"review_count"`
	AverageRating float64   `json:"average_rating"`
}

// Store defines the persistence operations for reviews.
type Store interface {
	CreateReview(ctx context.Context, restaurantID, dinerID uuid.UUID, rating int32, comment string) (Review, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, limit, offset int32) ([]Review, error)
	GetStats(ctx context.Context, restaurantID uuid.UUID) (Stats, error)
	DeleteReview(ctx context.Context, id, dinerID uuid.UUID) error
	HasReview(ctx context.Context, restaurantID, dinerID uuid.UUID) (bool, error)
}

// VisitChecker reports whether a diner has completed a reservation at the
// restaurant. Reviews are restricted to diners who actually showed up.
type VisitChecker interface {
	HasCompletedVisit(ctx context.Context, restaurantID, dinerID uuid.UUID) (bool, error)
}

// Service applies review rules on top of the store.
type Service struct {
	Store  Store
	Visits VisitChecker
}

func (s *Service) Create(ctx context.Context, restaurantID, dinerID uuid.UUID, rating int32, comment string) (Review, error) {
	if s == nil || s.Store == nil {
		return Review{}, errors.New("reviews service not configured")
	}
	if rating < 1 || rating > 5 {
		return Review{}, ErrInvalidRating
	}
	if s.Visits != nil {
		visited, err := s.Visits.HasCompletedVisit(ctx, restaurantID, dinerID)
		if err != nil {
			return Review{}, err
		}
		if !visited {
			return Review{}, ErrNotVisited
		}
	}
	exists, err := s.Store.HasReview(ctx, restaurantID, dinerID)
	if err != nil {
		return Review{}, err
	}
	if exists {
		return Review{}, ErrAlreadyReviewed
	}
	return s.Store.CreateReview(ctx, restaurantID, dinerID, rating, strings.TrimSpace(comment))
}

func (s *Service) List(ctx context.Context, restaurantID uuid.UUID, page, limit int32) ([]Review, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("reviews service not configured")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit
	return s.Store.ListByRestaurant(ctx, restaurantID, limit, offset)
}

func (s *Service) Stats(ctx context.Context, restaurantID uuid.UUID) (Stats, error) {
	if s == nil || s.Store == nil {
		return Stats{}, errors.New("reviews service not configured")
	}
	return s.Store.GetStats(ctx, restaurantID)
}

// Delete removes the diner's own review.
func (s *Service) Delete(ctx context.Context, id, dinerID uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("reviews service not configured")
	}
	return s.Store.DeleteReview(ctx, id, dinerID)
}
