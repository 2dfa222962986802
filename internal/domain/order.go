package domain

import "time"

// OrderStatus enumerates lifecycle states for service orders.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusAccepted   OrderStatus = "accepted"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// AllowedTransitions is the order lifecycle graph. Status changes are legal
// only along these edges; completed and cancelled are terminal.
var AllowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNew:        {OrderStatusAccepted, OrderStatusCancelled},
	OrderStatusAccepted:   {OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInProgress: {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

// CanTransition reports whether moving from current to next is a legal edge.
func CanTransition(current, next OrderStatus) bool {
	for _, candidate := range AllowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether the value names a known status.
func IsValidStatus(s OrderStatus) bool {
	_, ok := AllowedTransitions[s]
	return ok
}

// Order is the aggregate for a committed service request. Orders are created
// at conversation commit and mutated only through the status machine.
type Order struct {
	ID          int64
	UserChatID  int64
	Category    string
	Description string
	PhotoRef    *string
	Address     *string
	Phone       *string
	Urgency     *string
	Status      OrderStatus
	AdminNote   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}
