package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/order-service/internal/domain"
)

// UserRepository encapsulates end-user persistence.
type UserRepository interface {
	Upsert(ctx context.Context, profile domain.Profile) (*domain.User, error)
	GetByChatID(ctx context.Context, chatID int64) (*domain.User, error)
	SetPhone(ctx context.Context, chatID int64, phone string) error
	ListChatIDs(ctx context.Context) ([]int64, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

// Upsert creates the user on first contact and bumps last activity after
// that. Empty profile fields never overwrite values already on file.
func (r *userRepository) Upsert(ctx context.Context, profile domain.Profile) (*domain.User, error) {
	const query = `
        INSERT INTO users (chat_id, full_name, username)
        VALUES ($1, $2, $3)
        ON CONFLICT (chat_id) DO UPDATE SET
            full_name      = COALESCE(NULLIF(EXCLUDED.full_name, ''), users.full_name),
            username       = COALESCE(NULLIF(EXCLUDED.username, ''), users.username),
            last_active_at = NOW()
        RETURNING id, chat_id, full_name, username, phone, first_seen_at, last_active_at`
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, profile.ChatID, profile.FullName, profile.Username).Scan(
		&user.ID,
		&user.ChatID,
		&user.FullName,
		&user.Username,
		&user.Phone,
		&user.FirstSeenAt,
		&user.LastActiveAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByChatID(ctx context.Context, chatID int64) (*domain.User, error) {
	const query = `
        SELECT id, chat_id, full_name, username, phone, first_seen_at, last_active_at
        FROM users WHERE chat_id=$1`
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, chatID).Scan(
		&user.ID,
		&user.ChatID,
		&user.FullName,
		&user.Username,
		&user.Phone,
		&user.FirstSeenAt,
		&user.LastActiveAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) SetPhone(ctx context.Context, chatID int64, phone string) error {
	const query = `UPDATE users SET phone=$1, last_active_at=NOW() WHERE chat_id=$2`
	_, err := r.pool.Exec(ctx, query, phone, chatID)
	return err
}

func (r *userRepository) ListChatIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT chat_id FROM users ORDER BY chat_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
