package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/order-service/internal/domain"
)

type stubReviews struct {
	reviews    []domain.Review
	publishErr error
	published  map[int64]bool
}

func (s *stubReviews) Create(_ context.Context, review *domain.Review) error {
	review.ID = int64(len(s.reviews) + 1)
	s.reviews = append(s.reviews, *review)
	return nil
}

func (s *stubReviews) List(_ context.Context, publishedOnly bool, _, _ int) ([]domain.Review, error) {
	var out []domain.Review
	for _, review := range s.reviews {
		if publishedOnly && !review.Published {
			continue
		}
		out = append(out, review)
	}
	return out, nil
}

func (s *stubReviews) SetPublished(_ context.Context, id int64, published bool) error {
	if s.publishErr != nil {
		return s.publishErr
	}
	if s.published == nil {
		s.published = make(map[int64]bool)
	}
	s.published[id] = published
	return nil
}

func (s *stubReviews) Count(context.Context) (int64, error) {
	return int64(len(s.reviews)), nil
}

func TestReviewListFiltersUnpublished(t *testing.T) {
	repo := &stubReviews{reviews: []domain.Review{
		{ID: 1, Rating: 5, Published: true},
		{ID: 2, Rating: 2},
	}}
	svc := NewReviewService(repo)

	all, err := svc.List(context.Background(), false, 20, 0)
	if err != nil || len(all) != 2 {
		t.Fatalf("all = %v (%v)", all, err)
	}
	published, err := svc.List(context.Background(), true, 20, 0)
	if err != nil || len(published) != 1 || published[0].ID != 1 {
		t.Fatalf("published = %v (%v)", published, err)
	}
}

func TestSetPublishedMapsMissingRow(t *testing.T) {
	repo := &stubReviews{publishErr: pgx.ErrNoRows}
	svc := NewReviewService(repo)

	if err := svc.SetPublished(context.Background(), 42, true); !errors.Is(err, ErrReviewNotFound) {
		t.Fatalf("got %v, want ErrReviewNotFound", err)
	}
}
