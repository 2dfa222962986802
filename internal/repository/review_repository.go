package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/order-service/internal/domain"
)

// ReviewRepository encapsulates review persistence.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	List(ctx context.Context, publishedOnly bool, limit, offset int) ([]domain.Review, error)
	SetPublished(ctx context.Context, id int64, published bool) error
	Count(ctx context.Context) (int64, error)
}

type reviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository instantiates repository.
func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &reviewRepository{pool: pool}
}

func (r *reviewRepository) Create(ctx context.Context, review *domain.Review) error {
	const query = `
        INSERT INTO reviews (user_chat_id, order_id, rating, comment)
        VALUES ($1,$2,$3,$4)
        RETURNING id, published, created_at`
	return r.pool.QueryRow(ctx, query,
		review.UserChatID,
		review.OrderID,
		review.Rating,
		review.Comment,
	).Scan(&review.ID, &review.Published, &review.CreatedAt)
}

func (r *reviewRepository) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]domain.Review, error) {
	query := `SELECT id, user_chat_id, order_id, rating, comment, published, created_at FROM reviews`
	if publishedOnly {
		query += ` WHERE published=TRUE`
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, normalizeLimit(limit), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Review
	for rows.Next() {
		var review domain.Review
		if err := rows.Scan(
			&review.ID,
			&review.UserChatID,
			&review.OrderID,
			&review.Rating,
			&review.Comment,
			&review.Published,
			&review.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, review)
	}
	return result, rows.Err()
}

func (r *reviewRepository) SetPublished(ctx context.Context, id int64, published bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE reviews SET published=$1 WHERE id=$2`, published, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *reviewRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reviews`).Scan(&count)
	return count, err
}
