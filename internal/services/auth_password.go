package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"kinotalks/internal/logger"
	"kinotalks/internal/repository"
	"kinotalks/internal/utils"

	"go.uber.org/zap"
)

var (
	// Отсутствующий и просроченный токен снаружи неразличимы — намеренно
	ErrResetTokenInvalid = errors.New("неверный или просроченный токен")
	ErrPasswordTooShort  = errors.New("пароль должен быть не короче 6 символов")
)

const minPasswordLen = 6

type PasswordService struct {
	repo      repository.PasswordResetRepo
	users     UserRepo
	publisher EventPublisher
	appURL    string // фронтовый URL, ссылка вида /reset-password?token=...
	tokenTTL  time.Duration
}

func NewPasswordService(
	repo repository.PasswordResetRepo,
	users UserRepo,
	publisher EventPublisher,
	appURL string,
	tokenTTL time.Duration,
) *PasswordService {
	if tokenTTL <= 0 {
		tokenTTL = 30 * time.Minute
	}
	return &PasswordService{
		repo:      repo,
		users:     users,
		publisher: publisher,
		appURL:    strings.TrimRight(appURL, "/"),
		tokenTTL:  tokenTTL,
	}
}

// RequestReset выпускает одноразовый токен и публикует событие для письма.
// Возвращает nil всегда: ответ клиенту одинаков для существующей и
// несуществующей почты, чтобы нельзя было перебором выяснить наличие аккаунта.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	logger.Log.Info("Запрос на сброс пароля", zap.String("email", email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		// Не раскрываем наличие почты пользователю, но логируем для нас:
		logger.Log.Warn("Не удалось найти пользователя по email при запросе сброса",
			zap.String("email", email),
			zap.Error(err),
		)
		return nil
	}

	// Криптостойкий непрозрачный токен — единственный ключ поиска при сбросе
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		logger.Log.Error("Ошибка генерации токена для сброса", zap.Error(err), zap.Int64("user_id", user.ID))
		return nil
	}
	tokenValue := base64.RawURLEncoding.EncodeToString(raw)

	expires := time.Now().Add(s.tokenTTL)
	// Upsert по user_id вытесняет прежний токен — инвариант «один живой токен»
	if err := s.repo.Upsert(ctx, user.ID, tokenValue, expires); err != nil {
		logger.Log.Error("Ошибка сохранения токена сброса пароля",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		return nil
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.appURL, tokenValue)
	if err := s.publisher.PublishPasswordReset(context.WithoutCancel(ctx), user.Email, resetLink); err != nil {
		logger.Log.Error("Не удалось опубликовать PasswordResetRequested",
			zap.Int64("user_id", user.ID),
			zap.String("email", email),
			zap.Error(err),
		)
		// Не фейлим намеренно — ответ клиенту всегда одинаков
	}

	logger.Log.Info("Письмо со ссылкой на сброс пароля поставлено на отправку",
		zap.Int64("user_id", user.ID),
		zap.String("email", email),
		zap.Time("expires_at", expires),
	)
	return nil
}

// ResetPassword подтверждает токен и устанавливает новый пароль.
// Токен одноразовый: успешный сброс удаляет его.
func (s *PasswordService) ResetPassword(ctx context.Context, tokenValue, newPassword string) error {
	logger.Log.Info("Попытка сброса пароля по токену")

	if strings.TrimSpace(tokenValue) == "" {
		return ErrResetTokenInvalid
	}
	if len(newPassword) < minPasswordLen {
		logger.Log.Warn("Слишком короткий новый пароль")
		return ErrPasswordTooShort
	}

	rec, err := s.repo.GetByToken(ctx, tokenValue)
	if err != nil {
		logger.Log.Warn("Токен сброса не найден", zap.Error(err))
		return ErrResetTokenInvalid
	}

	if rec.IsExpired(time.Now()) {
		// Просроченный токен инертен: удаляем при первом же обращении
		if err := s.repo.Delete(ctx, rec.ID); err != nil {
			logger.Log.Error("Не удалось удалить просроченный токен",
				zap.Int64("token_id", rec.ID),
				zap.Error(err),
			)
		}
		logger.Log.Warn("Попытка сброса по просроченному токену", zap.Int64("user_id", rec.UserID))
		return ErrResetTokenInvalid
	}

	user, err := s.users.GetUserByID(ctx, rec.UserID)
	if err != nil {
		// Токен без владельца — нарушение целостности, наружу отдаём тот же ответ
		logger.Log.Error("Пользователь не найден для токена сброса",
			zap.Int64("user_id", rec.UserID),
			zap.Error(err),
		)
		return ErrResetTokenInvalid
	}

	pwHash, err := utils.HashPassword(newPassword)
	if err != nil {
		logger.Log.Error("Ошибка генерации хеша пароля", zap.Error(err), zap.Int64("user_id", user.ID))
		return err
	}

	if err := s.users.UpdateUserPassword(ctx, user.ID, pwHash); err != nil {
		logger.Log.Error("Ошибка обновления пароля пользователя",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		return err
	}

	if err := s.repo.Delete(ctx, rec.ID); err != nil {
		logger.Log.Warn("Не удалось удалить использованный токен сброса",
			zap.Error(err),
			zap.Int64("token_id", rec.ID),
			zap.Int64("user_id", user.ID),
		)
	}

	logger.Log.Info("Пароль успешно сброшен", zap.Int64("user_id", user.ID))
	return nil
}
