// Package content supplies the prompts, category list and informational
// texts the conversation side renders. It is a pure lookup with no state.
package content

import (
	"fmt"
	"strings"

	"github.com/spec-kit/order-service/internal/domain"
)

// Category is one selectable service type.
type Category struct {
	Slug  string
	Label string
}

// Catalog is the content provider consumed by the session manager.
type Catalog struct {
	categories []Category
	bySlug     map[string]Category
}

// NewCatalog builds the default service catalog.
func NewCatalog() *Catalog {
	categories := []Category{
		{Slug: "septic_pumping", Label: "septic pumping"},
		{Slug: "cesspool_cleaning", Label: "cesspool cleaning"},
		{Slug: "drain_cleaning", Label: "drain cleaning"},
		{Slug: "pipe_flushing", Label: "high-pressure pipe flushing"},
		{Slug: "video_inspection", Label: "pipe video inspection"},
		{Slug: "waste_removal", Label: "liquid waste removal"},
	}
	bySlug := make(map[string]Category, len(categories))
	for _, c := range categories {
		bySlug[c.Slug] = c
	}
	return &Catalog{categories: categories, bySlug: bySlug}
}

// Categories returns the fixed enumerated category set.
func (c *Catalog) Categories() []Category {
	return c.categories
}

// CategoryBySlug resolves a category selection; ok is false for
// unrecognized input.
func (c *Catalog) CategoryBySlug(slug string) (Category, bool) {
	cat, ok := c.bySlug[slug]
	return cat, ok
}

// Welcome is the /start greeting.
func (c *Catalog) Welcome() string {
	return "Welcome to the service desk. Send \"new order\" to request a visit, " +
		"\"my orders\" to track existing requests, or \"help\" for the full list of commands."
}

// Help lists recognized commands.
func (c *Catalog) Help() string {
	return "Available commands:\n" +
		"new order - create a service request\n" +
		"my orders - show your requests and their status\n" +
		"review - leave a review\n" +
		"prices - show the price list\n" +
		"faq - frequently asked questions\n" +
		"cancel - abort the current operation"
}

// CategoryPrompt asks for the service category.
func (c *Catalog) CategoryPrompt() string {
	var b strings.Builder
	b.WriteString("Creating a new order. Choose a service category:\n")
	for _, cat := range c.categories {
		fmt.Fprintf(&b, "- %s\n", cat.Label)
	}
	return b.String()
}

// DetailsPrompt asks for the problem description.
func (c *Catalog) DetailsPrompt(category string) string {
	return fmt.Sprintf("Selected: %s.\nDescribe the problem (a photo also works). "+
		"You can additionally pick an urgency: today, tomorrow, this week.", category)
}

// ContactPrompt asks for a reachable phone number.
func (c *Catalog) ContactPrompt() string {
	return "Send a contact phone number, e.g. +79101234567. " +
		"Optionally add the site address on the next line."
}

// ConfirmPrompt renders the collected order summary.
func (c *Catalog) ConfirmPrompt(summary string) string {
	return "Please check the order details:\n\n" + summary + "\n\nReply \"confirm\" to submit or \"cancel\" to discard."
}

// OrderCommitted acknowledges a created order.
func (c *Catalog) OrderCommitted(orderID int64) string {
	return fmt.Sprintf("Order #%04d created. Our dispatcher will contact you shortly. "+
		"Track it via \"my orders\".", orderID)
}

// OrderCancelled acknowledges a discarded intake.
func (c *Catalog) OrderCancelled() string {
	return "Order creation cancelled."
}

// CommitRetry is shown when the store write fails; collected data is kept.
func (c *Catalog) CommitRetry() string {
	return "Could not save your order right now. Nothing was lost - reply \"confirm\" to try again."
}

// StatusLine renders one order for the "my orders" view.
func (c *Catalog) StatusLine(order domain.Order) string {
	line := fmt.Sprintf("#%04d %s - %s", order.ID, order.Category, statusLabel(order.Status))
	if order.AdminNote != nil && *order.AdminNote != "" {
		line += " (dispatcher: " + *order.AdminNote + ")"
	}
	return line
}

// StatusChanged renders the notification sent when staff moves an order.
func (c *Catalog) StatusChanged(orderID int64, status domain.OrderStatus, note string) string {
	text := fmt.Sprintf("Your order #%04d is now: %s", orderID, statusLabel(status))
	if note != "" {
		text += "\nComment: " + note
	}
	return text
}

// NewOrderAlert renders the staff alert for a freshly committed order.
func (c *Catalog) NewOrderAlert(order domain.Order) string {
	text := fmt.Sprintf("New order #%04d\nCategory: %s\nDetails: %s", order.ID, order.Category, order.Description)
	if order.Phone != nil && *order.Phone != "" {
		text += "\nPhone: " + *order.Phone
	}
	if order.Address != nil && *order.Address != "" {
		text += "\nAddress: " + *order.Address
	}
	if order.Urgency != nil && *order.Urgency != "" {
		text += "\nUrgency: " + *order.Urgency
	}
	return text
}

// ReviewInvite is appended to the completion notification.
func (c *Catalog) ReviewInvite() string {
	return "We would appreciate your feedback - send \"review\" to rate the visit."
}

// ReviewPrompt starts the review flow.
func (c *Catalog) ReviewPrompt() string {
	return "Rate our service from 1 to 5."
}

// ReviewCommentPrompt asks for an optional comment.
func (c *Catalog) ReviewCommentPrompt() string {
	return "Thanks! Add a comment, or reply \"skip\"."
}

// ReviewRetry is shown when storing the review fails; the rating is kept.
func (c *Catalog) ReviewRetry() string {
	return "Could not save your review right now. Please send your comment again."
}

// NoOrdersYet is the empty "my orders" view.
func (c *Catalog) NoOrdersYet() string {
	return "You have no orders yet. Send \"new order\" to create one."
}

// OrdersUnavailable is shown when the order list cannot be loaded.
func (c *Catalog) OrdersUnavailable() string {
	return "Could not load your orders right now. Please try again later."
}

// NothingToCancel answers a cancel with no operation in flight.
func (c *Catalog) NothingToCancel() string {
	return "Nothing to cancel."
}

// ReviewThanks acknowledges a stored review.
func (c *Catalog) ReviewThanks() string {
	return "Your review has been recorded. Thank you!"
}

// Prices returns the static price list.
func (c *Catalog) Prices() string {
	return "Price list:\n" +
		"septic pumping - from 1500 per m3\n" +
		"cesspool cleaning - from 2000 per visit\n" +
		"drain cleaning - from 2500 per blockage\n" +
		"high-pressure pipe flushing - from 3000 per run\n" +
		"pipe video inspection - from 2000 per survey\n" +
		"liquid waste removal - from 1200 per m3\n" +
		"Exact quote after the dispatcher reviews your order."
}

// FAQ returns the frequently-asked-questions text.
func (c *Catalog) FAQ() string {
	return "FAQ:\n" +
		"How fast do you arrive? Usually within 24 hours, urgent visits the same day.\n" +
		"How do I pay? Cash or card on completion.\n" +
		"Can I cancel? Yes, any time before the crew departs - just contact the dispatcher."
}

// Unrecognized is the fallback for input that maps to no command.
func (c *Catalog) Unrecognized() string {
	return "Sorry, I did not understand that. Send \"help\" for the list of commands."
}

// SubmitLimited explains the duplicate-submission policy.
func (c *Catalog) SubmitLimited() string {
	return "You already submitted an order recently. Please wait before creating another one, " +
		"or contact the dispatcher about the existing request."
}

// SessionExpired is shown when a stale session was evicted.
func (c *Catalog) SessionExpired() string {
	return "Your previous order draft expired. Send \"new order\" to start again."
}

func statusLabel(status domain.OrderStatus) string {
	switch status {
	case domain.OrderStatusNew:
		return "new"
	case domain.OrderStatusAccepted:
		return "accepted"
	case domain.OrderStatusInProgress:
		return "crew on the way"
	case domain.OrderStatusCompleted:
		return "completed"
	case domain.OrderStatusCancelled:
		return "cancelled"
	default:
		return string(status)
	}
}
