package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"kinotalks/internal/logger"
	"kinotalks/internal/middleware"
	"kinotalks/internal/models"
	"kinotalks/internal/services"
	"kinotalks/internal/token"
	"kinotalks/internal/utils"

	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

type stubUserRepo struct {
	usersByEmail map[string]*models.User
	usersByID    map[int64]*models.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		usersByEmail: map[string]*models.User{},
		usersByID:    map[int64]*models.User{},
	}
}

func (s *stubUserRepo) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	_, ok := s.usersByEmail[email]
	return ok, nil
}

func (s *stubUserRepo) IsNicknameTaken(ctx context.Context, nickname string) (bool, error) {
	for _, u := range s.usersByEmail {
		if u.Nickname == nickname {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = int64(len(s.usersByEmail) + 1)
	s.usersByEmail[user.Email] = user
	s.usersByID[user.ID] = user
	return nil
}

func (s *stubUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := s.usersByEmail[email]
	if !ok {
		return nil, errors.New("no rows")
	}
	return u, nil
}

func (s *stubUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, ok := s.usersByID[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return u, nil
}

func (s *stubUserRepo) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	if u, ok := s.usersByID[userID]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (s *stubUserRepo) GetAllUsersPaginated(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	out := make([]*models.User, 0, len(s.usersByID))
	for _, u := range s.usersByID {
		out = append(out, u)
	}
	return out, len(out), nil
}

type stubPublisher struct {
	registered int
	resets     int
}

func (s *stubPublisher) PublishUserRegistered(ctx context.Context, user *models.User) error {
	s.registered++
	return nil
}

func (s *stubPublisher) PublishPasswordReset(ctx context.Context, email, resetLink string) error {
	s.resets++
	return nil
}

func newAuthHandlerFixture() (*AuthHandler, *stubUserRepo, *stubPublisher) {
	repo := newStubUserRepo()
	pub := &stubPublisher{}
	codec := token.NewCodec("test-secret", time.Hour)
	svc := services.NewAuthService(repo, pub, codec)
	return NewAuthHandler(svc, 24*time.Hour, false), repo, pub
}

func authCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.AuthCookieName {
			return c
		}
	}
	return nil
}

func TestRegister_SetsCookieAndPublishes(t *testing.T) {
	handler, _, pub := newAuthHandlerFixture()

	body := `{"name":"Алиса","nickname":"alice","email":"alice@x.com","password":"secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("ожидался 201, получен %d: %s", rec.Code, rec.Body.String())
	}
	if pub.registered != 1 {
		t.Fatalf("регистрация должна публиковать одно событие, опубликовано %d", pub.registered)
	}

	c := authCookie(rec)
	if c == nil || c.Value == "" {
		t.Fatal("регистрация должна ставить cookie auth_token")
	}
	if !c.HttpOnly || c.Path != "/" {
		t.Fatalf("cookie должна быть HttpOnly с Path=/: %+v", c)
	}
	if strings.Contains(rec.Body.String(), "secret123") {
		t.Fatal("пароль не должен попадать в ответ")
	}
}

func TestRegister_DuplicateEmailConflict(t *testing.T) {
	handler, repo, _ := newAuthHandlerFixture()
	repo.usersByEmail["alice@x.com"] = &models.User{ID: 1, Nickname: "alice", Email: "alice@x.com"}

	body := `{"nickname":"alice2","email":"alice@x.com","password":"secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("дубликат email должен давать 409, получен %d", rec.Code)
	}
}

func TestLogin_SuccessAndFailure(t *testing.T) {
	handler, repo, _ := newAuthHandlerFixture()
	hash, _ := utils.HashPassword("secret123")
	repo.usersByEmail["alice@x.com"] = &models.User{ID: 1, Nickname: "alice", Email: "alice@x.com", PasswordHash: hash, Role: "USER"}
	repo.usersByID[1] = repo.usersByEmail["alice@x.com"]

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"alice@x.com","password":"secret123"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}
	if c := authCookie(rec); c == nil || c.Value == "" {
		t.Fatal("вход должен ставить cookie auth_token")
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"alice@x.com","password":"wrong"}`))
	rec = httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("неверный пароль должен давать 401, получен %d", rec.Code)
	}
	if c := authCookie(rec); c != nil {
		t.Fatal("при неудачном входе cookie ставиться не должна")
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	handler, _, _ := newAuthHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", rec.Code)
	}
	c := authCookie(rec)
	if c == nil {
		t.Fatal("выход должен перезаписывать cookie auth_token")
	}
	if c.Value != "" || c.MaxAge >= 0 {
		t.Fatalf("cookie должна гаситься (пустое значение, MaxAge<0): %+v", c)
	}
}

func TestMe_RequiresContextUser(t *testing.T) {
	handler, repo, _ := newAuthHandlerFixture()
	repo.usersByEmail["alice@x.com"] = &models.User{ID: 1, Nickname: "alice", Email: "alice@x.com", Role: "USER"}
	repo.usersByID[1] = repo.usersByEmail["alice@x.com"]

	// Без пользователя в контексте — 401
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.Me(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("без аутентификации ожидался 401, получен %d", rec.Code)
	}

	ctx := context.WithValue(context.Background(), middleware.ContextUserEmail, "alice@x.com")
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil).WithContext(ctx)
	rec = httptest.NewRecorder()
	handler.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"nickname":"alice"`) {
		t.Fatalf("в профиле должен быть nickname: %s", rec.Body.String())
	}
}
