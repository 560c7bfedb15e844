package services

import (
	"context"
	"errors"

	"kinotalks/internal/logger"
	"kinotalks/internal/models"
	"kinotalks/internal/token"
	"kinotalks/internal/utils"

	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("неверный e-mail или пароль")
	ErrDuplicateEmail     = errors.New("адрес электронной почты уже зарегистрирован")
	ErrDuplicateNickname  = errors.New("никнейм уже занят")
)

type AuthService struct {
	repo      UserRepo
	publisher EventPublisher
	codec     *token.Codec
}

type UserRepo interface {
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	IsNicknameTaken(ctx context.Context, nickname string) (bool, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error
	GetAllUsersPaginated(ctx context.Context, limit, offset int) ([]*models.User, int, error)
}

// EventPublisher отдаёт доменные события брокеру. Доставка — забота брокера,
// сервис публикацию не дожидается и запрос из-за неё не роняет.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *models.User) error
	PublishPasswordReset(ctx context.Context, email, resetLink string) error
}

func NewAuthService(repo UserRepo, publisher EventPublisher, codec *token.Codec) *AuthService {
	return &AuthService{repo: repo, publisher: publisher, codec: codec}
}

// RegisterUser создаёт пользователя, публикует UserRegistered и выпускает токен.
func (s *AuthService) RegisterUser(ctx context.Context, input *models.User, plainPassword string) (string, error) {
	logger.Log.Info("Регистрация пользователя (service)", zap.String("nickname", input.Nickname), zap.String("email", input.Email))

	if exists, err := s.repo.IsEmailTaken(ctx, input.Email); exists || err != nil {
		if err != nil {
			logger.Log.Error("Ошибка проверки email", zap.Error(err))
			return "", err
		}
		return "", ErrDuplicateEmail
	}
	if exists, err := s.repo.IsNicknameTaken(ctx, input.Nickname); exists || err != nil {
		if err != nil {
			logger.Log.Error("Ошибка проверки nickname", zap.Error(err))
			return "", err
		}
		return "", ErrDuplicateNickname
	}

	hashed, err := utils.HashPassword(plainPassword)
	if err != nil {
		logger.Log.Error("Ошибка хеширования пароля", zap.Error(err))
		return "", err
	}

	input.PasswordHash = hashed
	input.Role = token.DefaultRole

	if err := s.repo.CreateUser(ctx, input); err != nil {
		logger.Log.Error("Ошибка создания пользователя", zap.Error(err))
		return "", err
	}

	// Письмо приветствия уходит асинхронно; сбой публикации не отменяет регистрацию
	if err := s.publisher.PublishUserRegistered(context.WithoutCancel(ctx), input); err != nil {
		logger.Log.Error("Не удалось опубликовать UserRegistered",
			zap.String("email", input.Email),
			zap.Error(err),
		)
	}

	jwt, err := s.codec.Issue(input.Email, input.Role)
	if err != nil {
		logger.Log.Error("Ошибка выпуска токена", zap.Error(err))
		return "", err
	}

	logger.Log.Info("Пользователь зарегистрирован (service)", zap.String("nickname", input.Nickname))
	return jwt, nil
}

// LoginUser проверяет учётные данные и выпускает токен.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (string, *models.User, error) {
	logger.Log.Info("Попытка входа (service)", zap.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Log.Warn("Пользователь не найден (service)", zap.String("email", email), zap.Error(err))
		return "", nil, ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		logger.Log.Warn("Неверный пароль (service)", zap.String("email", email))
		return "", nil, ErrInvalidCredentials
	}

	jwt, err := s.codec.Issue(user.Email, user.Role)
	if err != nil {
		logger.Log.Error("Ошибка выпуска токена", zap.Error(err))
		return "", nil, err
	}

	logger.Log.Info("Вход выполнен (service)", zap.String("email", email), zap.String("role", user.Role))
	return jwt, user, nil
}

func (s *AuthService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Log.Warn("Пользователь не найден по email (service)", zap.String("email", email), zap.Error(err))
	}
	return user, err
}

func (s *AuthService) GetUsersPaginated(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	return s.repo.GetAllUsersPaginated(ctx, limit, offset)
}
