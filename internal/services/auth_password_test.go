package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"kinotalks/internal/models"
	"kinotalks/internal/utils"
)

type mockResetRepo struct {
	byUser map[int64]*models.PasswordResetToken
	nextID int64
}

func newMockResetRepo() *mockResetRepo {
	return &mockResetRepo{byUser: map[int64]*models.PasswordResetToken{}}
}

func (m *mockResetRepo) Upsert(ctx context.Context, userID int64, tokenValue string, expiresAt time.Time) error {
	m.nextID++
	m.byUser[userID] = &models.PasswordResetToken{
		ID:        m.nextID,
		UserID:    userID,
		Token:     tokenValue,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (m *mockResetRepo) GetByToken(ctx context.Context, tokenValue string) (*models.PasswordResetToken, error) {
	for _, rec := range m.byUser {
		if rec.Token == tokenValue {
			return rec, nil
		}
	}
	return nil, errors.New("no rows")
}

func (m *mockResetRepo) Delete(ctx context.Context, id int64) error {
	for userID, rec := range m.byUser {
		if rec.ID == id {
			delete(m.byUser, userID)
			return nil
		}
	}
	return nil
}

func (m *mockResetRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	if _, ok := m.byUser[userID]; ok {
		return 1, nil
	}
	return 0, nil
}

func newPasswordFixture() (*PasswordService, *mockResetRepo, *mockUserRepo, *mockPublisher) {
	resets := newMockResetRepo()
	users := newMockUserRepo()
	pub := &mockPublisher{}
	svc := NewPasswordService(resets, users, pub, "http://localhost:3000", 30*time.Minute)
	return svc, resets, users, pub
}

func TestRequestReset_PublishesLinkWithToken(t *testing.T) {
	svc, resets, users, pub := newPasswordFixture()
	users.usersByEmail["alice@x.com"] = &models.User{ID: 7, Email: "alice@x.com"}
	users.usersByID[7] = users.usersByEmail["alice@x.com"]

	if err := svc.RequestReset(context.Background(), "Alice@X.com"); err != nil {
		t.Fatalf("неожиданная ошибка запроса сброса: %v", err)
	}

	rec, ok := resets.byUser[7]
	if !ok {
		t.Fatal("токен сброса не сохранён")
	}
	if len(pub.resets) != 1 {
		t.Fatalf("ожидалось одно событие сброса, получено %d", len(pub.resets))
	}

	ev := pub.resets[0]
	if ev.RecipientEmail != "alice@x.com" {
		t.Fatalf("не тот получатель: %q", ev.RecipientEmail)
	}
	want := "http://localhost:3000/reset-password?token=" + rec.Token
	if ev.ResetLink != want {
		t.Fatalf("неверная ссылка сброса: %q, ожидалась %q", ev.ResetLink, want)
	}
	if !rec.ExpiresAt.After(time.Now()) {
		t.Fatal("свежий токен не должен быть просроченным")
	}
}

func TestRequestReset_UnknownEmailSilent(t *testing.T) {
	svc, resets, _, pub := newPasswordFixture()

	// Неизвестная почта неотличима от известной: nil без событий и токенов
	if err := svc.RequestReset(context.Background(), "ghost@x.com"); err != nil {
		t.Fatalf("для неизвестной почты ошибки быть не должно: %v", err)
	}
	if len(pub.resets) != 0 {
		t.Fatal("для неизвестной почты событие публиковаться не должно")
	}
	if len(resets.byUser) != 0 {
		t.Fatal("для неизвестной почты токен создаваться не должен")
	}
}

func TestRequestReset_SupersedesPreviousToken(t *testing.T) {
	svc, resets, users, pub := newPasswordFixture()
	users.usersByEmail["alice@x.com"] = &models.User{ID: 7, Email: "alice@x.com"}
	users.usersByID[7] = users.usersByEmail["alice@x.com"]

	if err := svc.RequestReset(context.Background(), "alice@x.com"); err != nil {
		t.Fatalf("первый запрос: %v", err)
	}
	first := resets.byUser[7].Token

	if err := svc.RequestReset(context.Background(), "alice@x.com"); err != nil {
		t.Fatalf("второй запрос: %v", err)
	}
	second := resets.byUser[7].Token

	if first == second {
		t.Fatal("повторный запрос должен выпускать новый токен")
	}
	if n, _ := resets.CountByUser(context.Background(), 7); n != 1 {
		t.Fatalf("у пользователя должен остаться ровно один живой токен, найдено %d", n)
	}
	// Старый токен вытеснен и больше не работает
	if err := svc.ResetPassword(context.Background(), first, "newsecret"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("вытесненный токен должен отвергаться: %v", err)
	}
	if len(pub.resets) != 2 {
		t.Fatalf("каждый запрос публикует своё событие, получено %d", len(pub.resets))
	}
}

func TestResetPassword_SuccessAndSingleUse(t *testing.T) {
	svc, resets, users, _ := newPasswordFixture()
	oldHash, _ := utils.HashPassword("oldsecret")
	users.usersByEmail["alice@x.com"] = &models.User{ID: 7, Email: "alice@x.com", PasswordHash: oldHash}
	users.usersByID[7] = users.usersByEmail["alice@x.com"]

	if err := svc.RequestReset(context.Background(), "alice@x.com"); err != nil {
		t.Fatalf("запрос сброса: %v", err)
	}
	tok := resets.byUser[7].Token

	if err := svc.ResetPassword(context.Background(), tok, "newsecret"); err != nil {
		t.Fatalf("сброс по валидному токену: %v", err)
	}

	newHash, ok := users.updatedPasswords[7]
	if !ok {
		t.Fatal("пароль пользователя не обновлён")
	}
	if !utils.CheckPasswordHash("newsecret", newHash) {
		t.Fatal("новый хеш не соответствует новому паролю")
	}
	if n, _ := resets.CountByUser(context.Background(), 7); n != 0 {
		t.Fatal("использованный токен должен быть удалён")
	}

	// Токен одноразовый: второе применение отвергается
	if err := svc.ResetPassword(context.Background(), tok, "thirdsecret"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("повторное применение токена должно давать ErrResetTokenInvalid: %v", err)
	}
}

func TestResetPassword_ExpiredTokenDeleted(t *testing.T) {
	svc, resets, users, _ := newPasswordFixture()
	users.usersByID[7] = &models.User{ID: 7, Email: "alice@x.com"}

	resets.byUser[7] = &models.PasswordResetToken{
		ID:        1,
		UserID:    7,
		Token:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	err := svc.ResetPassword(context.Background(), "stale-token", "newsecret")
	if !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("просроченный токен должен давать ErrResetTokenInvalid: %v", err)
	}
	if n, _ := resets.CountByUser(context.Background(), 7); n != 0 {
		t.Fatal("просроченный токен должен удаляться при первом обращении")
	}
	if len(users.updatedPasswords) != 0 {
		t.Fatal("по просроченному токену пароль меняться не должен")
	}
}

func TestResetPassword_ShortPassword(t *testing.T) {
	svc, resets, users, _ := newPasswordFixture()
	users.usersByEmail["alice@x.com"] = &models.User{ID: 7, Email: "alice@x.com"}
	users.usersByID[7] = users.usersByEmail["alice@x.com"]

	if err := svc.RequestReset(context.Background(), "alice@x.com"); err != nil {
		t.Fatalf("запрос сброса: %v", err)
	}
	tok := resets.byUser[7].Token

	if err := svc.ResetPassword(context.Background(), tok, "12345"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("короткий пароль должен давать ErrPasswordTooShort: %v", err)
	}
	// Токен не тратится на отклонённую попытку
	if err := svc.ResetPassword(context.Background(), tok, "123456"); err != nil {
		t.Fatalf("после отклонённой попытки токен должен оставаться рабочим: %v", err)
	}
}

func TestResetPassword_EmptyAndUnknownToken(t *testing.T) {
	svc, _, _, _ := newPasswordFixture()

	if err := svc.ResetPassword(context.Background(), "   ", "newsecret"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("пустой токен должен давать ErrResetTokenInvalid: %v", err)
	}
	if err := svc.ResetPassword(context.Background(), "no-such-token", "newsecret"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("неизвестный токен должен давать ErrResetTokenInvalid: %v", err)
	}
}

func TestResetPassword_TokenIsOpaqueURLSafe(t *testing.T) {
	svc, resets, users, _ := newPasswordFixture()
	users.usersByEmail["alice@x.com"] = &models.User{ID: 7, Email: "alice@x.com"}
	users.usersByID[7] = users.usersByEmail["alice@x.com"]

	if err := svc.RequestReset(context.Background(), "alice@x.com"); err != nil {
		t.Fatalf("запрос сброса: %v", err)
	}
	tok := resets.byUser[7].Token
	if len(tok) < 40 {
		t.Fatalf("токен подозрительно короткий: %d символов", len(tok))
	}
	if strings.ContainsAny(tok, "+/=?&") {
		t.Fatalf("токен должен быть URL-безопасным, получено %q", tok)
	}
}
