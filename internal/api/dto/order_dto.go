package dto

import (
	"time"

	"github.com/spec-kit/order-service/internal/domain"
)

// OrderResponse is the admin-facing order representation.
type OrderResponse struct {
	ID          int64      `json:"id"`
	UserChatID  int64      `json:"user_chat_id"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	PhotoRef    *string    `json:"photo_ref,omitempty"`
	Address     *string    `json:"address,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Urgency     *string    `json:"urgency,omitempty"`
	Status      string     `json:"status"`
	AdminNote   *string    `json:"admin_note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewOrderResponse maps a domain order.
func NewOrderResponse(order domain.Order) OrderResponse {
	return OrderResponse{
		ID:          order.ID,
		UserChatID:  order.UserChatID,
		Category:    order.Category,
		Description: order.Description,
		PhotoRef:    order.PhotoRef,
		Address:     order.Address,
		Phone:       order.Phone,
		Urgency:     order.Urgency,
		Status:      string(order.Status),
		AdminNote:   order.AdminNote,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
		CompletedAt: order.CompletedAt,
	}
}

// NewOrderResponses maps a slice of domain orders.
func NewOrderResponses(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, NewOrderResponse(order))
	}
	return out
}

// OrderStatusUpdateRequest payload for POST /admin/orders/:id/status.
type OrderStatusUpdateRequest struct {
	Status string  `json:"status"`
	Note   *string `json:"note,omitempty"`
}

// BroadcastRequest payload for POST /admin/broadcast.
type BroadcastRequest struct {
	Text string `json:"text"`
}

// BroadcastResponse reports the delivery tally of a broadcast.
type BroadcastResponse struct {
	Recipients int `json:"recipients"`
	Delivered  int `json:"delivered"`
	Failed     int `json:"failed"`
	Pending    int `json:"pending"`
}
