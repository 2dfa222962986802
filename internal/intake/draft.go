package intake

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spec-kit/order-service/internal/domain"
)

// phonePattern is the reachable-contact policy: optional leading plus, 10-15
// digits.
var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

// NormalizePhone strips common formatting and reports whether the remainder
// satisfies the contact policy.
func NormalizePhone(raw string) (string, bool) {
	cleaned := phoneSeparators.Replace(strings.TrimSpace(raw))
	return cleaned, phonePattern.MatchString(cleaned)
}

// ValidPhone reports whether the string satisfies the contact policy.
func ValidPhone(raw string) bool {
	_, ok := NormalizePhone(raw)
	return ok
}

// Draft accumulates order fields across intake steps. It is a value type
// replaced wholesale on each accepted step; no call site mutates a shared
// draft in place.
type Draft struct {
	CategorySlug string
	Category     string
	Description  string
	PhotoRef     string
	Urgency      string
	Phone        string
	Address      string
}

// WithCategory returns a copy with the category selection applied.
func (d Draft) WithCategory(slug, label string) Draft {
	d.CategorySlug = slug
	d.Category = label
	return d
}

// WithDetails returns a copy with description and/or photo applied.
func (d Draft) WithDetails(description, photoRef string) Draft {
	d.Description = strings.TrimSpace(description)
	if photoRef != "" {
		d.PhotoRef = photoRef
	}
	return d
}

// WithUrgency returns a copy with the urgency quick-select applied.
func (d Draft) WithUrgency(urgency string) Draft {
	d.Urgency = urgency
	return d
}

// WithContact returns a copy with phone and optional address applied.
func (d Draft) WithContact(phone, address string) Draft {
	d.Phone = strings.TrimSpace(phone)
	d.Address = strings.TrimSpace(address)
	return d
}

// HasDetails reports whether the details step received any content.
func (d Draft) HasDetails() bool {
	return d.Description != "" || d.PhotoRef != ""
}

// Summary renders the collected fields for the confirmation step.
func (d Draft) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Service: %s\n", d.Category)
	fmt.Fprintf(&b, "Details: %s", d.Description)
	if d.PhotoRef != "" {
		b.WriteString("\nPhoto: attached")
	}
	if d.Urgency != "" {
		fmt.Fprintf(&b, "\nUrgency: %s", d.Urgency)
	}
	if d.Phone != "" {
		fmt.Fprintf(&b, "\nPhone: %s", d.Phone)
	}
	if d.Address != "" {
		fmt.Fprintf(&b, "\nAddress: %s", d.Address)
	}
	return b.String()
}

// ToOrder builds the order row committed at confirmation.
func (d Draft) ToOrder(chatID int64) *domain.Order {
	order := &domain.Order{
		UserChatID:  chatID,
		Category:    d.Category,
		Description: d.Description,
		Status:      domain.OrderStatusNew,
	}
	if d.PhotoRef != "" {
		photo := d.PhotoRef
		order.PhotoRef = &photo
	}
	if d.Phone != "" {
		phone := d.Phone
		order.Phone = &phone
	}
	if d.Address != "" {
		address := d.Address
		order.Address = &address
	}
	if d.Urgency != "" {
		urgency := d.Urgency
		order.Urgency = &urgency
	}
	return order
}
