package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/order-service/internal/content"
	"github.com/spec-kit/order-service/internal/dispatch"
	"github.com/spec-kit/order-service/internal/domain"
	"github.com/spec-kit/order-service/internal/repository"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrUnknownStatus      = errors.New("unknown order status")
	ErrIllegalTransition  = errors.New("illegal status transition")
	ErrTransitionConflict = errors.New("order changed concurrently")
)

// Notifier submits outbound intents without blocking the caller.
type Notifier interface {
	Dispatch(intent dispatch.Intent) *dispatch.Future
	Broadcast(intents []dispatch.Intent) *dispatch.BroadcastHandle
}

// OrderService coordinates admin-side order workflows. Status changes
// persist first; the customer notification is submitted afterwards and its
// delivery outcome never affects the result of the transition.
type OrderService struct {
	orders   repository.OrderRepository
	users    repository.UserRepository
	catalog  *content.Catalog
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// OrderDependencies bundles collaborators for the order service.
type OrderDependencies struct {
	OrderRepo repository.OrderRepository
	UserRepo  repository.UserRepository
	Catalog   *content.Catalog
	Notifier  Notifier
	Logger    *zap.Logger
}

// NewOrderService constructs the service.
func NewOrderService(deps OrderDependencies) *OrderService {
	return &OrderService{
		orders:   deps.OrderRepo,
		users:    deps.UserRepo,
		catalog:  deps.Catalog,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// Get fetches a single order.
func (s *OrderService) Get(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// List returns recent orders, optionally narrowed to one status.
func (s *OrderService) List(ctx context.Context, status string, limit, offset int) ([]domain.Order, error) {
	if status == "" {
		return s.orders.ListRecent(ctx, limit, offset)
	}
	parsed := domain.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if !domain.IsValidStatus(parsed) {
		return nil, ErrUnknownStatus
	}
	return s.orders.ListByStatus(ctx, parsed, limit, offset)
}

// Transition moves an order along the status graph. The write is a
// compare-and-set against the status the caller observed, so two racing
// transitions cannot both win.
func (s *OrderService) Transition(ctx context.Context, id int64, next domain.OrderStatus, note *string) (*domain.Order, error) {
	if !domain.IsValidStatus(next) {
		return nil, ErrUnknownStatus
	}
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(order.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, order.Status, next)
	}

	var completedAt *time.Time
	if next == domain.OrderStatusCompleted {
		done := s.now()
		completedAt = &done
	}
	if err := s.orders.UpdateStatusAndNote(ctx, id, order.Status, next, note, completedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The row moved under us; report missing vs conflict.
			if _, getErr := s.Get(ctx, id); errors.Is(getErr, ErrOrderNotFound) {
				return nil, ErrOrderNotFound
			}
			return nil, ErrTransitionConflict
		}
		return nil, err
	}

	order.Status = next
	order.CompletedAt = completedAt
	order.UpdatedAt = s.now()
	if note != nil {
		order.AdminNote = note
	}

	s.notifyCustomer(order, next, note)
	return order, nil
}

// ListPendingOlderThan surfaces orders that have sat in "new" past the
// cutoff, for the daily staff digest.
func (s *OrderService) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	return s.orders.ListPendingOlderThan(ctx, cutoff, limit)
}

// Broadcast fans one message out to every known user and returns a handle
// the caller can wait on for the delivery tally.
func (s *OrderService) Broadcast(ctx context.Context, text string) (*dispatch.BroadcastHandle, int, error) {
	chatIDs, err := s.users.ListChatIDs(ctx)
	if err != nil {
		return nil, 0, err
	}
	intents := make([]dispatch.Intent, 0, len(chatIDs))
	for _, chatID := range chatIDs {
		intents = append(intents, dispatch.Intent{ChatID: chatID, Text: text})
	}
	return s.notifier.Broadcast(intents), len(intents), nil
}

func (s *OrderService) notifyCustomer(order *domain.Order, next domain.OrderStatus, note *string) {
	if s.notifier == nil {
		return
	}
	noteText := ""
	if note != nil {
		noteText = *note
	}
	text := s.catalog.StatusChanged(order.ID, next, noteText)
	if next == domain.OrderStatusCompleted {
		text += "\n" + s.catalog.ReviewInvite()
	}
	s.notifier.Dispatch(dispatch.Intent{
		ChatID:        order.UserChatID,
		Text:          text,
		CorrelationID: fmt.Sprintf("order-%d-%s", order.ID, next),
	})
	s.logger.Info("status notification submitted",
		zap.Int64("order_id", order.ID),
		zap.String("status", string(next)),
		zap.Int64("chat_id", order.UserChatID))
}
