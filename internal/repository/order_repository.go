package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/order-service/internal/domain"
)

const orderColumns = `id, user_chat_id, category, description, photo_ref, address, phone,
        urgency, status, admin_note, created_at, updated_at, completed_at`

// OrderRepository encapsulates order persistence. Status mutations go
// through UpdateStatusAndNote only; the status machine owns the legality
// check.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListRecent(ctx context.Context, limit, offset int) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]domain.Order, error)
	ListByUser(ctx context.Context, chatID int64, limit, offset int) ([]domain.Order, error)
	UpdateStatusAndNote(ctx context.Context, id int64, from, next domain.OrderStatus, note *string, completedAt *time.Time) error
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error)
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error)
}

type orderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository instantiates repository.
func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepository{pool: pool}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	const query = `
        INSERT INTO orders (user_chat_id, category, description, photo_ref, address, phone, urgency, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	if order.Status == "" {
		order.Status = domain.OrderStatusNew
	}
	return r.pool.QueryRow(ctx, query,
		order.UserChatID,
		order.Category,
		order.Description,
		order.PhotoRef,
		order.Address,
		order.Phone,
		order.Urgency,
		order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	var order domain.Order
	if err := r.pool.QueryRow(ctx, query, id).Scan(orderFields(&order)...); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListRecent(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
        ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, normalizeLimit(limit), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *orderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, status, normalizeLimit(limit), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *orderRepository) ListByUser(ctx context.Context, chatID int64, limit, offset int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_chat_id=$1
        ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, chatID, normalizeLimit(limit), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

// UpdateStatusAndNote persists status, note and timestamps in one
// compare-and-set statement: the row moves only if it is still in the
// expected source status, so racing transitions cannot skip the legality
// check. Zero rows affected maps to pgx.ErrNoRows.
func (r *orderRepository) UpdateStatusAndNote(ctx context.Context, id int64, from, next domain.OrderStatus, note *string, completedAt *time.Time) error {
	const query = `
        UPDATE orders SET status=$1, admin_note=COALESCE($2, admin_note),
            completed_at=$3, updated_at=NOW()
        WHERE id=$4 AND status=$5`
	cmd, err := r.pool.Exec(ctx, query, next, note, completedAt, id, from)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListPendingOlderThan returns still-new orders created before cutoff.
func (r *orderRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
        WHERE status=$1 AND created_at < $2
        ORDER BY created_at ASC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, domain.OrderStatusNew, cutoff, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *orderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	const query = `SELECT status, COUNT(*) FROM orders GROUP BY status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int64)
	for rows.Next() {
		var status domain.OrderStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func orderFields(order *domain.Order) []any {
	return []any{
		&order.ID,
		&order.UserChatID,
		&order.Category,
		&order.Description,
		&order.PhotoRef,
		&order.Address,
		&order.Phone,
		&order.Urgency,
		&order.Status,
		&order.AdminNote,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.CompletedAt,
	}
}

func scanOrders(rows pgx.Rows) ([]domain.Order, error) {
	var result []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(orderFields(&order)...); err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	return result, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
