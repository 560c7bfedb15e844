package models

import "time"

// PasswordResetToken — одноразовый токен восстановления пароля.
// На пользователя в любой момент существует не больше одного живого токена:
// в БД стоит UNIQUE (user_id), повторный запрос атомарно перезаписывает старый.
type PasswordResetToken struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
