package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-service/internal/api/dto"
	"github.com/spec-kit/order-service/internal/domain"
	"github.com/spec-kit/order-service/internal/service"
	apperrors "github.com/spec-kit/order-service/pkg/util"
)

// OrdersHandler exposes the admin order endpoints.
type OrdersHandler struct {
	orders *service.OrderService
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(orderService *service.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orderService}
}

// List handles GET /admin/orders.
func (h *OrdersHandler) List(c *fiber.Ctx) error {
	status := c.Query("status")
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	orders, err := h.orders.List(c.UserContext(), status, limit, offset)
	if err != nil {
		if errors.Is(err, service.ErrUnknownStatus) {
			return apperrors.NewValidationError("unknown status filter", fiber.Map{"status": status})
		}
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponses(orders)})
}

// Get handles GET /admin/orders/:id.
func (h *OrdersHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(http.StatusBadRequest, "invalid order id")
	}

	order, err := h.orders.Get(c.UserContext(), int64(id))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return apperrors.NewNotFound("order", fiber.Map{"id": id})
		}
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponse(*order)})
}

// UpdateStatus handles POST /admin/orders/:id/status.
func (h *OrdersHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(http.StatusBadRequest, "invalid order id")
	}

	var req dto.OrderStatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	next := domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if next == "" {
		return fiber.NewError(http.StatusBadRequest, "status required")
	}

	order, err := h.orders.Transition(c.UserContext(), int64(id), next, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownStatus):
			return apperrors.NewValidationError("unknown status", fiber.Map{"status": req.Status})
		case errors.Is(err, service.ErrOrderNotFound):
			return apperrors.NewNotFound("order", fiber.Map{"id": id})
		case errors.Is(err, service.ErrIllegalTransition):
			return apperrors.NewIllegalTransition(err.Error(), fiber.Map{"id": id, "status": req.Status})
		case errors.Is(err, service.ErrTransitionConflict):
			return apperrors.NewConflict("order changed concurrently", fiber.Map{"id": id})
		}
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrderResponse(*order)})
}
