package dto

import (
	"time"

	"github.com/spec-kit/order-service/internal/domain"
)

// ReviewResponse is the admin-facing review representation.
type ReviewResponse struct {
	ID         int64     `json:"id"`
	UserChatID int64     `json:"user_chat_id"`
	OrderID    *int64    `json:"order_id,omitempty"`
	Rating     int       `json:"rating"`
	Comment    *string   `json:"comment,omitempty"`
	Published  bool      `json:"published"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewReviewResponses maps a slice of domain reviews.
func NewReviewResponses(reviews []domain.Review) []ReviewResponse {
	out := make([]ReviewResponse, 0, len(reviews))
	for _, review := range reviews {
		out = append(out, ReviewResponse{
			ID:         review.ID,
			UserChatID: review.UserChatID,
			OrderID:    review.OrderID,
			Rating:     review.Rating,
			Comment:    review.Comment,
			Published:  review.Published,
			CreatedAt:  review.CreatedAt,
		})
	}
	return out
}

// ReviewPublishRequest payload for POST /admin/reviews/:id/publish.
type ReviewPublishRequest struct {
	Published bool `json:"published"`
}
