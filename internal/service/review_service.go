package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/order-service/internal/domain"
	"github.com/spec-kit/order-service/internal/repository"
)

var ErrReviewNotFound = errors.New("review not found")

// ReviewService exposes the admin view over customer reviews.
type ReviewService struct {
	reviews repository.ReviewRepository
}

// NewReviewService constructs the service.
func NewReviewService(reviews repository.ReviewRepository) *ReviewService {
	return &ReviewService{reviews: reviews}
}

// List returns reviews, optionally only the published ones.
func (s *ReviewService) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]domain.Review, error) {
	return s.reviews.List(ctx, publishedOnly, limit, offset)
}

// SetPublished toggles whether a review appears publicly.
func (s *ReviewService) SetPublished(ctx context.Context, id int64, published bool) error {
	if err := s.reviews.SetPublished(ctx, id, published); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrReviewNotFound
		}
		return err
	}
	return nil
}
