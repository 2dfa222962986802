package intake

// SignalKind is the closed set of recognized inbound signal categories.
// Decoding happens once at the transport boundary; handlers never re-parse
// raw text.
type SignalKind int

const (
	SignalUnknown SignalKind = iota
	SignalStart
	SignalHelp
	SignalNewOrder
	SignalCategory
	SignalText
	SignalUrgency
	SignalConfirm
	SignalCancel
	SignalMyOrders
	SignalReview
	SignalRating
	SignalPrices
	SignalFAQ
)

// Signal is one decoded inbound event. Value carries the structured payload
// for category/urgency/rating selections; Text and PhotoRef carry free-form
// input.
type Signal struct {
	Kind     SignalKind
	Text     string
	PhotoRef string
	Value    string
	Rating   int
}
