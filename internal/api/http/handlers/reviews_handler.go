package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-service/internal/api/dto"
	"github.com/spec-kit/order-service/internal/service"
	apperrors "github.com/spec-kit/order-service/pkg/util"
)

// ReviewsHandler exposes the admin review endpoints.
type ReviewsHandler struct {
	reviews *service.ReviewService
}

// NewReviewsHandler constructs handler.
func NewReviewsHandler(reviewService *service.ReviewService) *ReviewsHandler {
	return &ReviewsHandler{reviews: reviewService}
}

// List handles GET /admin/reviews.
func (h *ReviewsHandler) List(c *fiber.Ctx) error {
	publishedOnly := c.QueryBool("published", false)
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	reviews, err := h.reviews.List(c.UserContext(), publishedOnly, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReviewResponses(reviews)})
}

// Publish handles POST /admin/reviews/:id/publish.
func (h *ReviewsHandler) Publish(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(http.StatusBadRequest, "invalid review id")
	}

	var req dto.ReviewPublishRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	if err := h.reviews.SetPublished(c.UserContext(), int64(id), req.Published); err != nil {
		if errors.Is(err, service.ErrReviewNotFound) {
			return apperrors.NewNotFound("review", fiber.Map{"id": id})
		}
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id, "published": req.Published}})
}
