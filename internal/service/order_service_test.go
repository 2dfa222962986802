package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/order-service/internal/content"
	"github.com/spec-kit/order-service/internal/dispatch"
	"github.com/spec-kit/order-service/internal/domain"
	"github.com/spec-kit/order-service/internal/observability"
)

type stubOrders struct {
	mu        sync.Mutex
	byID      map[int64]*domain.Order
	updateErr error
	updates   []string
}

func newStubOrders(orders ...*domain.Order) *stubOrders {
	s := &stubOrders{byID: make(map[int64]*domain.Order)}
	for _, order := range orders {
		s.byID[order.ID] = order
	}
	return s
}

func (s *stubOrders) Create(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order.ID = int64(len(s.byID) + 1)
	s.byID[order.ID] = order
	return nil
}

func (s *stubOrders) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *order
	return &copied, nil
}

func (s *stubOrders) ListRecent(context.Context, int, int) ([]domain.Order, error) {
	return nil, nil
}

func (s *stubOrders) ListByStatus(_ context.Context, status domain.OrderStatus, _, _ int) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, order := range s.byID {
		if order.Status == status {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *stubOrders) ListByUser(context.Context, int64, int, int) ([]domain.Order, error) {
	return nil, nil
}

func (s *stubOrders) UpdateStatusAndNote(_ context.Context, id int64, from, next domain.OrderStatus, note *string, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	order, ok := s.byID[id]
	if !ok || order.Status != from {
		return pgx.ErrNoRows
	}
	order.Status = next
	order.CompletedAt = completedAt
	if note != nil {
		order.AdminNote = note
	}
	s.updates = append(s.updates, string(from)+"->"+string(next))
	return nil
}

func (s *stubOrders) ListPendingOlderThan(context.Context, time.Time, int) ([]domain.Order, error) {
	return nil, nil
}

func (s *stubOrders) CountByStatus(context.Context) (map[domain.OrderStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[domain.OrderStatus]int64)
	for _, order := range s.byID {
		counts[order.Status]++
	}
	return counts, nil
}

type stubUsers struct {
	chatIDs []int64
}

func (s *stubUsers) Upsert(context.Context, domain.Profile) (*domain.User, error) { return nil, nil }
func (s *stubUsers) GetByChatID(context.Context, int64) (*domain.User, error)     { return nil, pgx.ErrNoRows }
func (s *stubUsers) SetPhone(context.Context, int64, string) error                { return nil }
func (s *stubUsers) ListChatIDs(context.Context) ([]int64, error)                 { return s.chatIDs, nil }
func (s *stubUsers) Count(context.Context) (int64, error)                         { return int64(len(s.chatIDs)), nil }

type capturingNotifier struct {
	mu      sync.Mutex
	intents []dispatch.Intent
}

func (n *capturingNotifier) Dispatch(intent dispatch.Intent) *dispatch.Future {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intents = append(n.intents, intent)
	return nil
}

func (n *capturingNotifier) Broadcast(intents []dispatch.Intent) *dispatch.BroadcastHandle {
	for _, intent := range intents {
		n.Dispatch(intent)
	}
	d := dispatch.New(zap.NewNop(), observability.NewMetrics(), dispatch.Options{})
	return d.Broadcast(intents)
}

func newOrderService(orders *stubOrders, users *stubUsers, notifier Notifier) *OrderService {
	return NewOrderService(OrderDependencies{
		OrderRepo: orders,
		UserRepo:  users,
		Catalog:   content.NewCatalog(),
		Notifier:  notifier,
		Logger:    zap.NewNop(),
	})
}

func TestTransitionWalksTheStatusGraph(t *testing.T) {
	orders := newStubOrders(&domain.Order{ID: 1, UserChatID: 55, Category: "drain cleaning", Status: domain.OrderStatusNew})
	notifier := &capturingNotifier{}
	svc := newOrderService(orders, &stubUsers{}, notifier)
	ctx := context.Background()

	for _, next := range []domain.OrderStatus{
		domain.OrderStatusAccepted,
		domain.OrderStatusInProgress,
		domain.OrderStatusCompleted,
	} {
		order, err := svc.Transition(ctx, 1, next, nil)
		if err != nil {
			t.Fatalf("Transition to %s: %v", next, err)
		}
		if order.Status != next {
			t.Fatalf("status = %s, want %s", order.Status, next)
		}
	}

	if orders.byID[1].CompletedAt == nil {
		t.Fatal("completion must set the timestamp")
	}
	if len(notifier.intents) != 3 {
		t.Fatalf("sent %d notifications, want 3", len(notifier.intents))
	}
	for _, intent := range notifier.intents {
		if intent.ChatID != 55 {
			t.Fatalf("notification sent to %d, want 55", intent.ChatID)
		}
	}
	if last := notifier.intents[2].Text; !strings.Contains(last, "review") {
		t.Fatalf("completion notice should invite a review, got %q", last)
	}
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	orders := newStubOrders(&domain.Order{ID: 1, UserChatID: 55, Status: domain.OrderStatusNew})
	notifier := &capturingNotifier{}
	svc := newOrderService(orders, &stubUsers{}, notifier)

	_, err := svc.Transition(context.Background(), 1, domain.OrderStatusCompleted, nil)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("got %v, want ErrIllegalTransition", err)
	}
	if orders.byID[1].Status != domain.OrderStatusNew {
		t.Fatal("rejected transition must not persist")
	}
	if len(notifier.intents) != 0 {
		t.Fatal("rejected transition must not notify")
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	svc := newOrderService(newStubOrders(), &stubUsers{}, &capturingNotifier{})
	_, err := svc.Transition(context.Background(), 1, domain.OrderStatus("archived"), nil)
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("got %v, want ErrUnknownStatus", err)
	}
}

func TestTransitionMissingOrder(t *testing.T) {
	svc := newOrderService(newStubOrders(), &stubUsers{}, &capturingNotifier{})
	_, err := svc.Transition(context.Background(), 99, domain.OrderStatusAccepted, nil)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("got %v, want ErrOrderNotFound", err)
	}
}

func TestTransitionReportsLostRace(t *testing.T) {
	orders := newStubOrders(&domain.Order{ID: 1, UserChatID: 55, Status: domain.OrderStatusNew})
	svc := newOrderService(orders, &stubUsers{}, &capturingNotifier{})

	// Another actor moves the row between the read and the write; the
	// compare-and-set reports zero rows while the order still exists.
	orders.updateErr = pgx.ErrNoRows
	_, err := svc.Transition(context.Background(), 1, domain.OrderStatusAccepted, nil)
	if !errors.Is(err, ErrTransitionConflict) {
		t.Fatalf("got %v, want ErrTransitionConflict", err)
	}
}

func TestTransitionSucceedsWhenChannelDown(t *testing.T) {
	orders := newStubOrders(&domain.Order{ID: 1, UserChatID: 55, Status: domain.OrderStatusNew})
	// A real dispatcher with no running consumer fails every dispatch fast.
	down := dispatch.New(zap.NewNop(), observability.NewMetrics(), dispatch.Options{})
	svc := newOrderService(orders, &stubUsers{}, down)

	order, err := svc.Transition(context.Background(), 1, domain.OrderStatusAccepted, nil)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if order.Status != domain.OrderStatusAccepted || orders.byID[1].Status != domain.OrderStatusAccepted {
		t.Fatal("persisted state must win even when the notification fails")
	}
}

func TestTransitionRecordsNote(t *testing.T) {
	orders := newStubOrders(&domain.Order{ID: 1, UserChatID: 55, Status: domain.OrderStatusNew})
	notifier := &capturingNotifier{}
	svc := newOrderService(orders, &stubUsers{}, notifier)

	note := "crew assigned for tomorrow morning"
	order, err := svc.Transition(context.Background(), 1, domain.OrderStatusAccepted, &note)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if order.AdminNote == nil || *order.AdminNote != note {
		t.Fatalf("note not applied: %+v", order.AdminNote)
	}
	if !strings.Contains(notifier.intents[0].Text, note) {
		t.Fatal("notification must carry the dispatcher comment")
	}
}

func TestListRejectsUnknownStatusFilter(t *testing.T) {
	svc := newOrderService(newStubOrders(), &stubUsers{}, &capturingNotifier{})
	if _, err := svc.List(context.Background(), "archived", 10, 0); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("got %v, want ErrUnknownStatus", err)
	}
}

func TestBroadcastTargetsEveryKnownUser(t *testing.T) {
	users := &stubUsers{chatIDs: []int64{1, 2, 3}}
	notifier := &capturingNotifier{}
	svc := newOrderService(newStubOrders(), users, notifier)

	_, recipients, err := svc.Broadcast(context.Background(), "maintenance window tonight")
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if recipients != 3 {
		t.Fatalf("recipients = %d, want 3", recipients)
	}
	if len(notifier.intents) != 3 {
		t.Fatalf("submitted %d intents, want 3", len(notifier.intents))
	}
}
