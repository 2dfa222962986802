package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-service/internal/api/dto"
	"github.com/spec-kit/order-service/internal/service"
)

// BroadcastHandler fans an announcement out to every known user.
type BroadcastHandler struct {
	orders *service.OrderService
	wait   time.Duration
}

// NewBroadcastHandler constructs handler. wait bounds how long the request
// blocks for delivery outcomes before reporting the rest as pending.
func NewBroadcastHandler(orderService *service.OrderService, wait time.Duration) *BroadcastHandler {
	if wait <= 0 {
		wait = 10 * time.Second
	}
	return &BroadcastHandler{orders: orderService, wait: wait}
}

// Send handles POST /admin/broadcast.
func (h *BroadcastHandler) Send(c *fiber.Ctx) error {
	var req dto.BroadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Text) == "" {
		return fiber.NewError(http.StatusBadRequest, "text required")
	}

	handle, recipients, err := h.orders.Broadcast(c.UserContext(), req.Text)
	if err != nil {
		return err
	}
	if recipients == 0 {
		return c.JSON(fiber.Map{"data": dto.BroadcastResponse{}})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.wait)
	defer cancel()
	tally := handle.Wait(ctx)

	return c.JSON(fiber.Map{"data": dto.BroadcastResponse{
		Recipients: recipients,
		Delivered:  tally.Delivered,
		Failed:     tally.Failed,
		Pending:    tally.Pending,
	}})
}
