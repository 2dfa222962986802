package intake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/order-service/internal/content"
	"github.com/spec-kit/order-service/internal/dispatch"
	"github.com/spec-kit/order-service/internal/domain"
	"github.com/spec-kit/order-service/internal/observability"
)

type fakeUsers struct {
	mu        sync.Mutex
	users     map[int64]*domain.User
	upsertErr error
	phones    map[int64]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[int64]*domain.User), phones: make(map[int64]string)}
}

func (f *fakeUsers) Upsert(_ context.Context, profile domain.Profile) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	user, ok := f.users[profile.ChatID]
	if !ok {
		user = &domain.User{ID: int64(len(f.users) + 1), ChatID: profile.ChatID}
		f.users[profile.ChatID] = user
	}
	user.FullName = profile.FullName
	user.Username = profile.Username
	return user, nil
}

func (f *fakeUsers) SetPhone(_ context.Context, chatID int64, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phones[chatID] = phone
	if user, ok := f.users[chatID]; ok {
		user.Phone = &phone
	}
	return nil
}

func (f *fakeUsers) setKnownPhone(chatID int64, phone string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[chatID] = &domain.User{ID: chatID, ChatID: chatID, Phone: &phone}
}

type fakeOrders struct {
	mu        sync.Mutex
	orders    []domain.Order
	createErr error
}

func (f *fakeOrders) Create(_ context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	order.ID = int64(len(f.orders) + 1)
	order.Status = domain.OrderStatusNew
	order.CreatedAt = time.Now()
	f.orders = append(f.orders, *order)
	return nil
}

func (f *fakeOrders) ListByUser(_ context.Context, chatID int64, limit, _ int) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, order := range f.orders {
		if order.UserChatID == chatID && len(out) < limit {
			out = append(out, order)
		}
	}
	return out, nil
}

type fakeReviews struct {
	mu        sync.Mutex
	reviews   []domain.Review
	createErr error
}

func (f *fakeReviews) Create(_ context.Context, review *domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	review.ID = int64(len(f.reviews) + 1)
	f.reviews = append(f.reviews, *review)
	return nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	intents []dispatch.Intent
}

func (f *fakeNotifier) Dispatch(intent dispatch.Intent) *dispatch.Future {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, intent)
	return nil
}

func (f *fakeNotifier) sentTo(chatID int64) []dispatch.Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []dispatch.Intent
	for _, intent := range f.intents {
		if intent.ChatID == chatID {
			out = append(out, intent)
		}
	}
	return out
}

type fakeLimiter struct {
	mu     sync.Mutex
	allow  bool
	marked []int64
}

func (f *fakeLimiter) Allow(context.Context, int64) (bool, error) {
	return f.allow, nil
}

func (f *fakeLimiter) MarkSubmitted(_ context.Context, chatID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, chatID)
	return nil
}

type fixture struct {
	manager  *Manager
	users    *fakeUsers
	orders   *fakeOrders
	reviews  *fakeReviews
	notifier *fakeNotifier
	limiter  *fakeLimiter
	clock    *time.Time
}

func newFixture(cfg Config) *fixture {
	users := newFakeUsers()
	orders := &fakeOrders{}
	reviews := &fakeReviews{}
	notifier := &fakeNotifier{}
	limiter := &fakeLimiter{allow: true}

	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	manager := NewManager(cfg, Deps{
		Users:        users,
		Orders:       orders,
		Reviews:      reviews,
		Limiter:      limiter,
		Catalog:      content.NewCatalog(),
		Notifier:     notifier,
		AdminChatIDs: []int64{900, 901},
		Logger:       zap.NewNop(),
		Metrics:      observability.NewMetrics(),
	})

	now := time.Now()
	manager.now = func() time.Time { return now }
	return &fixture{
		manager:  manager,
		users:    users,
		orders:   orders,
		reviews:  reviews,
		notifier: notifier,
		limiter:  limiter,
		clock:    &now,
	}
}

func (f *fixture) send(t *testing.T, chatID int64, sig Signal) string {
	t.Helper()
	profile := domain.Profile{ChatID: chatID, FullName: "Test User"}
	return f.manager.Handle(context.Background(), profile, sig)
}

func TestOrderIntakeHappyPath(t *testing.T) {
	f := newFixture(Config{RequireContact: true})
	const chatID = int64(100)

	reply := f.send(t, chatID, Signal{Kind: SignalNewOrder})
	if !strings.Contains(reply, "category") {
		t.Fatalf("expected category prompt, got %q", reply)
	}
	reply = f.send(t, chatID, Signal{Kind: SignalCategory, Value: "drain_cleaning"})
	if !strings.Contains(reply, "drain cleaning") {
		t.Fatalf("expected details prompt naming the category, got %q", reply)
	}
	reply = f.send(t, chatID, Signal{Kind: SignalText, Text: "kitchen drain clogged"})
	if !strings.Contains(reply, "phone") {
		t.Fatalf("expected contact prompt, got %q", reply)
	}
	reply = f.send(t, chatID, Signal{Kind: SignalText, Text: "+79101234567\n12 Main St"})
	if !strings.Contains(reply, "kitchen drain clogged") || !strings.Contains(reply, "+79101234567") {
		t.Fatalf("confirmation must show the collected summary, got %q", reply)
	}
	reply = f.send(t, chatID, Signal{Kind: SignalConfirm})
	if !strings.Contains(reply, "#0001") {
		t.Fatalf("expected committed acknowledgement, got %q", reply)
	}

	if len(f.orders.orders) != 1 {
		t.Fatalf("stored %d orders, want 1", len(f.orders.orders))
	}
	order := f.orders.orders[0]
	if order.UserChatID != chatID || order.Category != "drain cleaning" || order.Description != "kitchen drain clogged" {
		t.Fatalf("order mismatch: %+v", order)
	}
	if order.Phone == nil || *order.Phone != "+79101234567" {
		t.Fatalf("phone not captured: %+v", order.Phone)
	}
	if order.Address == nil || *order.Address != "12 Main St" {
		t.Fatalf("address not captured: %+v", order.Address)
	}
	if f.users.phones[chatID] != "+79101234567" {
		t.Fatal("phone must be persisted to the user record")
	}
	if f.manager.LiveSessions() != 0 {
		t.Fatal("session must end after commit")
	}
	for _, adminID := range []int64{900, 901} {
		alerts := f.notifier.sentTo(adminID)
		if len(alerts) != 1 || !strings.Contains(alerts[0].Text, "drain cleaning") {
			t.Fatalf("admin %d alerts = %+v", adminID, alerts)
		}
	}
}

func TestInvalidInputKeepsStateAndData(t *testing.T) {
	f := newFixture(Config{RequireContact: true})
	const chatID = int64(101)

	f.send(t, chatID, Signal{Kind: SignalNewOrder})
	f.send(t, chatID, Signal{Kind: SignalCategory, Value: "septic_pumping"})
	f.send(t, chatID, Signal{Kind: SignalText, Text: "tank overflowing"})

	// Garbage phone re-prompts without losing the draft.
	reply := f.send(t, chatID, Signal{Kind: SignalText, Text: "call me maybe"})
	if !strings.Contains(reply, "phone") {
		t.Fatalf("expected contact re-prompt, got %q", reply)
	}
	reply = f.send(t, chatID, Signal{Kind: SignalText, Text: "+79105554433"})
	if !strings.Contains(reply, "tank overflowing") {
		t.Fatalf("draft lost after invalid input: %q", reply)
	}

	// Unknown category at select state re-prompts too.
	f2 := newFixture(Config{})
	f2.send(t, chatID, Signal{Kind: SignalNewOrder})
	reply = f2.send(t, chatID, Signal{Kind: SignalCategory, Value: "time_travel"})
	if !strings.Contains(reply, "category") {
		t.Fatalf("expected category re-prompt, got %q", reply)
	}
	if f2.manager.LiveSessions() != 1 {
		t.Fatal("session must survive invalid input")
	}
}

func TestNewOrderResumesExistingSession(t *testing.T) {
	f := newFixture(Config{RequireContact: true})
	const chatID = int64(102)

	f.send(t, chatID, Signal{Kind: SignalNewOrder})
	f.send(t, chatID, Signal{Kind: SignalCategory, Value: "video_inspection"})

	// A second trigger resumes at the current step instead of starting over.
	reply := f.send(t, chatID, Signal{Kind: SignalNewOrder})
	if !strings.Contains(reply, "pipe video inspection") {
		t.Fatalf("expected resume at details step, got %q", reply)
	}
	if f.manager.LiveSessions() != 1 {
		t.Fatalf("live sessions = %d, want 1", f.manager.LiveSessions())
	}
}

func TestContactSkippedWhenPhoneOnFile(t *testing.T) {
	f := newFixture(Config{RequireContact: true})
	const chatID = int64(103)
	f.users.setKnownPhone(chatID, "+79100000001")

	f.send(t, chatID, Signal{Kind: SignalNewOrder})
	f.send(t, chatID, Signal{Kind: SignalCategory, Value: "septic_pumping"})
	reply := f.send(t, chatID, Signal{Kind: SignalText, Text: "septic full"})
	if !strings.Contains(reply, "+79100000001") {
		t.Fatalf("expected confirmation with stored phone, got %q", reply)
	}

	f.send(t, chatID, Signal{Kind: SignalConfirm})
	order := f.orders.orders[0]
	if order.Phone == nil || *order.Phone != "+79100000001" {
		t.Fatalf("stored phone not reused: %+v", order.Phone)
	}
}

func TestContactSkippedWhenPolicyDisabled(t *testing.T) {
	f := newFixture(Config{RequireContact: false})
	const chatID = int64(104)

	f.send(t, chatID, Signal{Kind: SignalNewOrder})
	f.send(t, chatID, Signal{Kind: SignalCategory, Value: "waste_removal"})
	reply := f.send(t, chatID, Signal{Kind: SignalText, Text: "pickup needed"})
	if !strings.Contains(reply, "pickup needed") || strings.Contains(strings.ToLower(reply), "phone number") {
		t.Fatalf("expected direct confirmation, got %q", reply)
	}

	f.send(t, chatID, Signal{Kind: SignalConfirm})
	if f.orders.orders[0].Phone != nil {
		t.Fatal("no phone must be recorded when contact step is skipped by policy")
	}
}

func TestCommitFailureKeepsSessionForRetry(t *testing.T) {
	f := newFixture(Config{})
	const chatID = int64(105)

	f.send(t, chatID, Signal{Kind: SignalNewOrder})
	f.send(t, chatID, Signal{Kind: SignalCategory, Value: "drain_cleaning"})
	f.send(t, chatID, Signal{Kind: SignalText, Text: "slow drain"})

	f.orders.createErr = errors.New("storage down")
	reply := f.send(t, chatID, Signal{Kind: SignalConfirm})
	if !strings.Contains(reply, "Nothing was lost") {
		t.Fatalf("expected retry message, got %q", reply)
	}
	if f.manager.LiveSessions() != 1 {
		t.Fatal("session must survive a failed commit")
	}

	f.orders.createErr = nil
	reply = f.send(t, chatID, Signal{Kind: SignalConfirm})
	if !strings.Contains(reply, "#0001") {
		t.Fatalf("retry should commit, got %q", reply)
	}
	if len(f.orders.orders) != 1 {
		t.Fatalf("stored %d orders, want 1", len(f.orders.orders))
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newFixture(Config{})
	const chatID = int64(106)

	if reply := f.send(t, chatID, Signal{Kind: SignalCancel}); !strings.Contains(reply, "Nothing to cancel") {
		t.Fatalf("cancel without session should be a calm no-op, got %q", reply)
	}

	f.send(t, chatID, Signal{Kind: SignalNewOrder})
	if reply := f.send(t, chatID, Signal{Kind: SignalCancel}); !strings.Contains(reply, "cancelled") {
		t.Fatalf("expected cancellation acknowledgement, got %q", reply)
	}
	if f.manager.LiveSessions() != 0 {
		t.Fatal("session must be gone after cancel")
	}
	if reply := f.send(t, chatID, Signal{Kind: SignalCancel}); !strings.Contains(reply, "Nothing to cancel") {
		t.Fatalf("second cancel should be a no-op, got %q", reply)
	}
	if len(f.orders.orders) != 0 {
		t.Fatal("cancelled intake must not store an order")
	}
}

func TestSubmitLimitBlocksNewOrder(t *testing.T) {
	f := newFixture(Config{SubmitLimitEnabled: true})
	f.limiter.allow = false
	const chatID = int64(107)

	reply := f.send(t, chatID, Signal{Kind: SignalNewOrder})
	if !strings.Contains(reply, "already submitted") {
		t.Fatalf("expected limit message, got %q", reply)
	}
	if f.manager.LiveSessions() != 0 {
		t.Fatal("no session must be created when blocked")
	}
}

func TestSubmitMarkedAfterCommit(t *testing.T) {
	f := newFixture(Config{SubmitLimitEnabled: true})
	const chatID = int64(108)

	f.send(t, chatID, Signal{Kind: SignalNewOrder})
	f.send(t, chatID, Signal{Kind: SignalCategory, Value: "drain_cleaning"})
	f.send(t, chatID, Signal{Kind: SignalText, Text: "blocked pipe"})
	f.send(t, chatID, Signal{Kind: SignalText, Text: "+79101112233"})
	f.send(t, chatID, Signal{Kind: SignalConfirm})

	if len(f.limiter.marked) != 1 || f.limiter.marked[0] != chatID {
		t.Fatalf("marked = %v, want [%d]", f.limiter.marked, chatID)
	}
}

func TestEvictStaleNotifiesAndFreesUser(t *testing.T) {
	f := newFixture(Config{SessionTTL: 10 * time.Minute})
	const chatID = int64(109)

	f.send(t, chatID, Signal{Kind: SignalNewOrder})
	*f.clock = f.clock.Add(11 * time.Minute)

	if evicted := f.manager.EvictStale(context.Background()); evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}
	if f.manager.LiveSessions() != 0 {
		t.Fatal("stale session must be removed")
	}
	expiry := f.notifier.sentTo(chatID)
	if len(expiry) != 1 || !strings.Contains(expiry[0].Text, "expired") {
		t.Fatalf("expiry notice = %+v", expiry)
	}
	if evicted := f.manager.EvictStale(context.Background()); evicted != 0 {
		t.Fatalf("second eviction pass must be a no-op, got %d", evicted)
	}

	// The user can start cleanly afterwards.
	reply := f.send(t, chatID, Signal{Kind: SignalNewOrder})
	if !strings.Contains(reply, "category") {
		t.Fatalf("expected fresh intake, got %q", reply)
	}
}

func TestStaleSessionExpiresOnNextMessage(t *testing.T) {
	f := newFixture(Config{SessionTTL: 10 * time.Minute})
	const chatID = int64(110)

	f.send(t, chatID, Signal{Kind: SignalNewOrder})
	*f.clock = f.clock.Add(11 * time.Minute)

	reply := f.send(t, chatID, Signal{Kind: SignalCategory, Value: "drain_cleaning"})
	if !strings.Contains(reply, "expired") {
		t.Fatalf("expected expiry notice, got %q", reply)
	}
	if f.manager.LiveSessions() != 0 {
		t.Fatal("stale session must be dropped on contact")
	}
}

func TestReviewFlow(t *testing.T) {
	f := newFixture(Config{})
	const chatID = int64(111)

	reply := f.send(t, chatID, Signal{Kind: SignalReview})
	if !strings.Contains(reply, "1 to 5") {
		t.Fatalf("expected rating prompt, got %q", reply)
	}

	// Out-of-range ratings re-prompt.
	if reply := f.send(t, chatID, Signal{Kind: SignalText, Text: "9"}); !strings.Contains(reply, "1 to 5") {
		t.Fatalf("expected rating re-prompt, got %q", reply)
	}

	f.send(t, chatID, Signal{Kind: SignalText, Text: "4"})
	reply = f.send(t, chatID, Signal{Kind: SignalText, Text: "skip"})
	if !strings.Contains(reply, "Thank you") {
		t.Fatalf("expected thanks, got %q", reply)
	}

	if len(f.reviews.reviews) != 1 {
		t.Fatalf("stored %d reviews, want 1", len(f.reviews.reviews))
	}
	review := f.reviews.reviews[0]
	if review.Rating != 4 || review.Comment != nil || review.UserChatID != chatID {
		t.Fatalf("review mismatch: %+v", review)
	}
}

func TestMyOrdersListsRecent(t *testing.T) {
	f := newFixture(Config{})
	const chatID = int64(112)

	if reply := f.send(t, chatID, Signal{Kind: SignalMyOrders}); !strings.Contains(reply, "no orders") {
		t.Fatalf("expected empty view, got %q", reply)
	}

	f.send(t, chatID, Signal{Kind: SignalNewOrder})
	f.send(t, chatID, Signal{Kind: SignalCategory, Value: "septic_pumping"})
	f.send(t, chatID, Signal{Kind: SignalText, Text: "full tank"})
	f.send(t, chatID, Signal{Kind: SignalText, Text: "+79107654321"})
	f.send(t, chatID, Signal{Kind: SignalConfirm})

	reply := f.send(t, chatID, Signal{Kind: SignalMyOrders})
	if !strings.Contains(reply, "#0001") || !strings.Contains(reply, "septic pumping") {
		t.Fatalf("orders view = %q", reply)
	}
}
