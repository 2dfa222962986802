package bot

import (
	"strconv"
	"strings"

	"github.com/spec-kit/order-service/internal/content"
	"github.com/spec-kit/order-service/internal/intake"
)

// Decoder turns raw transport events into conversation signals. Decoding is
// stateless; the session manager decides what a signal means in context.
type Decoder struct {
	catalog *content.Catalog
}

// NewDecoder constructs a decoder over the category catalog.
func NewDecoder(catalog *content.Catalog) *Decoder {
	return &Decoder{catalog: catalog}
}

// Decode classifies one event.
func (d *Decoder) Decode(ev Event) intake.Signal {
	if ev.Callback != "" {
		return d.decodeCallback(ev.Callback)
	}
	return d.decodeText(ev)
}

func (d *Decoder) decodeCallback(data string) intake.Signal {
	switch {
	case data == "confirm":
		return intake.Signal{Kind: intake.SignalConfirm}
	case data == "cancel":
		return intake.Signal{Kind: intake.SignalCancel}
	case strings.HasPrefix(data, "cat:"):
		return intake.Signal{Kind: intake.SignalCategory, Value: strings.TrimPrefix(data, "cat:")}
	case strings.HasPrefix(data, "urgency:"):
		return intake.Signal{Kind: intake.SignalUrgency, Value: strings.TrimPrefix(data, "urgency:")}
	case strings.HasPrefix(data, "rate:"):
		if rating, err := strconv.Atoi(strings.TrimPrefix(data, "rate:")); err == nil {
			return intake.Signal{Kind: intake.SignalRating, Rating: rating}
		}
	}
	return intake.Signal{Kind: intake.SignalUnknown}
}

func (d *Decoder) decodeText(ev Event) intake.Signal {
	trimmed := strings.TrimSpace(ev.Text)
	lowered := strings.ToLower(strings.TrimPrefix(trimmed, "/"))

	switch lowered {
	case "start":
		return intake.Signal{Kind: intake.SignalStart}
	case "help":
		return intake.Signal{Kind: intake.SignalHelp}
	case "new order", "new", "order":
		return intake.Signal{Kind: intake.SignalNewOrder}
	case "my orders", "orders":
		return intake.Signal{Kind: intake.SignalMyOrders}
	case "review":
		return intake.Signal{Kind: intake.SignalReview}
	case "prices", "price list":
		return intake.Signal{Kind: intake.SignalPrices}
	case "faq":
		return intake.Signal{Kind: intake.SignalFAQ}
	case "cancel":
		return intake.Signal{Kind: intake.SignalCancel}
	case "confirm":
		return intake.Signal{Kind: intake.SignalConfirm}
	case "today", "tomorrow", "this week":
		return intake.Signal{Kind: intake.SignalUrgency, Value: lowered}
	}

	for _, cat := range d.catalog.Categories() {
		if strings.EqualFold(trimmed, cat.Label) {
			return intake.Signal{Kind: intake.SignalCategory, Value: cat.Slug}
		}
	}

	if trimmed == "" && ev.PhotoRef == "" {
		return intake.Signal{Kind: intake.SignalUnknown}
	}
	return intake.Signal{Kind: intake.SignalText, Text: trimmed, PhotoRef: ev.PhotoRef}
}
