package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kinotalks/internal/logger"
	"kinotalks/internal/middleware"
	"kinotalks/internal/models"
	"kinotalks/internal/services"
	helpers "kinotalks/internal/utils/helpers"

	"go.uber.org/zap"
)

type AuthHandler struct {
	authService  *services.AuthService
	cookieTTL    time.Duration
	secureCookie bool
}

func NewAuthHandler(authService *services.AuthService, cookieTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		cookieTTL:    cookieTTL,
		secureCookie: secureCookie,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Register godoc
// @Summary Регистрация нового пользователя
// @Description Создаёт аккаунт, выпускает токен и ставит cookie. Приветственное письмо уходит асинхронно через очередь.
// @Tags auth
// @Accept json
// @Produce json
// @Param input body registerRequest true "Данные регистрации"
// @Success 201 {object} loginResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("Ошибка декодирования JSON в Register", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Nickname) == "" || req.Password == "" {
		helpers.Error(w, http.StatusBadRequest, "Нужны email, nickname и password")
		return
	}

	user := &models.User{
		Name:     req.Name,
		Nickname: req.Nickname,
		Email:    req.Email,
	}

	jwt, err := h.authService.RegisterUser(r.Context(), user, req.Password)
	if err != nil {
		switch err {
		case services.ErrDuplicateEmail, services.ErrDuplicateNickname:
			log.Warn("Конфликт регистрации", zap.String("email", maskEmail(req.Email)), zap.Error(err))
			helpers.Error(w, http.StatusConflict, err.Error())
		default:
			log.Error("Ошибка регистрации пользователя", zap.Error(err))
			helpers.Error(w, http.StatusBadRequest, "Не удалось зарегистрировать пользователя")
		}
		return
	}

	h.setAuthCookie(w, jwt)
	helpers.JSON(w, http.StatusCreated, loginResponse{
		Token:    jwt,
		Nickname: user.Nickname,
		Email:    user.Email,
		Role:     user.Role,
	})
}

// Login godoc
// @Summary Авторизация пользователя
// @Description Проверяет учётные данные, выпускает токен и ставит cookie auth_token.
// @Tags auth
// @Accept json
// @Produce json
// @Param input body loginRequest true "Данные для входа"
// @Success 200 {object} loginResponse
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("Ошибка декодирования JSON в Login", zap.Error(err))
		helpers.Error(w, http.StatusBadRequest, "Невалидный JSON")
		return
	}

	jwt, user, err := h.authService.LoginUser(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Warn("Ошибка входа пользователя", zap.String("email", maskEmail(req.Email)), zap.Error(err))
		helpers.Error(w, http.StatusUnauthorized, services.ErrInvalidCredentials.Error())
		return
	}

	h.setAuthCookie(w, jwt)
	helpers.JSON(w, http.StatusOK, loginResponse{
		Token:    jwt,
		Nickname: user.Nickname,
		Email:    user.Email,
		Role:     user.Role,
	})
}

// Logout godoc
// @Summary Выход (сброс cookie)
// @Description Токены stateless, на сервере ничего не хранится — выход просто гасит cookie.
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearAuthCookie(w)
	helpers.JSON(w, http.StatusOK, map[string]string{"message": "Выход выполнен"})
}

// Me godoc
// @Summary Профиль текущего пользователя
// @Tags auth
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} models.UserProfileResponse
// @Failure 401 {object} map[string]string
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	email, ok := middleware.UserEmailFromContext(r.Context())
	if !ok {
		helpers.Error(w, http.StatusUnauthorized, "Требуется аутентификация")
		return
	}

	user, err := h.authService.GetUserByEmail(r.Context(), email)
	if err != nil {
		log.Warn("Профиль не найден", zap.String("email", maskEmail(email)), zap.Error(err))
		helpers.Error(w, http.StatusNotFound, "Пользователь не найден")
		return
	}

	helpers.JSON(w, http.StatusOK, models.UserProfileResponse{
		ID:        user.ID,
		Name:      user.Name,
		Nickname:  user.Nickname,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	})
}

// GetUsers godoc
// @Summary Получить всех пользователей (только администратор)
// @Tags admin-users
// @Security ApiKeyAuth
// @Produce json
// @Param page query int false "Номер страницы (начиная с 1)"
// @Param page_size query int false "Размер страницы"
// @Success 200 {array} models.UserProfileResponse
// @Failure 403 {object} map[string]string
// @Router /auth/admin/users [get]
func (h *AuthHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	users, total, err := h.authService.GetUsersPaginated(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		logger.WithCtx(r.Context()).Error("Ошибка получения пользователей", zap.Error(err))
		helpers.Error(w, http.StatusInternalServerError, "Не удалось получить пользователей")
		return
	}

	out := make([]models.UserProfileResponse, 0, len(users))
	for _, u := range users {
		out = append(out, models.UserProfileResponse{
			ID:        u.ID,
			Name:      u.Name,
			Nickname:  u.Nickname,
			Email:     u.Email,
			Role:      u.Role,
			CreatedAt: u.CreatedAt,
		})
	}

	helpers.JSON(w, http.StatusOK, map[string]any{
		"users": out,
		"total": total,
		"page":  page,
	})
}

func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, jwt string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    jwt,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// maskEmail прячет локальную часть адреса в логах.
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
