package repository

import (
	"context"
	"time"

	"kinotalks/internal/logger"
	"kinotalks/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PasswordResetRepository struct {
	db *pgxpool.Pool
}

func NewPasswordResetRepository(db *pgxpool.Pool) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

type PasswordResetRepo interface {
	Upsert(ctx context.Context, userID int64, tokenValue string, expiresAt time.Time) error
	GetByToken(ctx context.Context, tokenValue string) (*models.PasswordResetToken, error)
	Delete(ctx context.Context, id int64) error
	CountByUser(ctx context.Context, userID int64) (int, error)
}

// Upsert создаёт токен сброса, атомарно вытесняя прежний токен пользователя.
// UNIQUE (user_id) гарантирует инвариант «один живой токен» на уровне БД —
// два конкурентных запроса сброса не оставят двух токенов.
func (r *PasswordResetRepository) Upsert(ctx context.Context, userID int64, tokenValue string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO password_reset_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id)
		DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, created_at = now()
	`, userID, tokenValue, expiresAt)
	if err != nil {
		logger.Log.Error("Ошибка сохранения токена сброса", zap.Error(err), zap.Int64("user_id", userID))
	}
	return err
}

// GetByToken ищет токен по его значению, включая просроченные —
// просроченный токен сервис обязан удалить, а не молча проигнорировать.
func (r *PasswordResetRepository) GetByToken(ctx context.Context, tokenValue string) (*models.PasswordResetToken, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM password_reset_tokens
		WHERE token = $1
	`, tokenValue)

	var t models.PasswordResetToken
	if err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PasswordResetRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM password_reset_tokens WHERE id = $1`, id)
	return err
}

func (r *PasswordResetRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM password_reset_tokens WHERE user_id = $1`,
		userID,
	).Scan(&n)
	return n, err
}
