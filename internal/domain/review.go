package domain

import "time"

// Review is user feedback, optionally tied to an order. The order reference
// is weak: purging an order must not cascade to its reviews. Immutable after
// creation except for the publish flag.
type Review struct {
	ID         int64
	UserChatID int64
	OrderID    *int64
	Rating     int
	Comment    *string
	Published  bool
	CreatedAt  time.Time
}
