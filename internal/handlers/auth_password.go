package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"kinotalks/internal/logger"
	"kinotalks/internal/services"
	helpers "kinotalks/internal/utils/helpers"

	"go.uber.org/zap"
)

type PasswordHandler struct {
	svc *services.PasswordService
}

func NewPasswordHandler(svc *services.PasswordService) *PasswordHandler {
	return &PasswordHandler{svc: svc}
}

type forgotReq struct {
	Email string `json:"email"`
}

type resetReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// Forgot godoc
// @Summary Запрос восстановления пароля
// @Description Публикует событие для письма со ссылкой сброса. Ответ всегда одинаковый, даже если e-mail не найден.
// @Tags password
// @Accept json
// @Produce json
// @Param input body forgotReq true "Email пользователя"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /auth/forgot-password [post]
func (h *PasswordHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req forgotReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		log.Warn("Невалидный payload в Forgot")
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}

	// Не раскрываем, существует ли email — всегда возвращаем 200
	if err := h.svc.RequestReset(r.Context(), req.Email); err != nil {
		// Ошибку логируем, но клиенту отвечаем одинаково
		log.Error("Сбой при запросе восстановления пароля", zap.String("email_masked", maskEmail(req.Email)), zap.Error(err))
	} else {
		log.Info("Запрошено восстановление пароля", zap.String("email_masked", maskEmail(req.Email)))
	}

	helpers.JSON(w, http.StatusOK, map[string]string{"message": "If the email exists, a reset link has been sent."})
}

// Reset godoc
// @Summary Сброс пароля по токену
// @Description Устанавливает новый пароль по одноразовому токену из письма.
// @Tags password
// @Accept json
// @Produce json
// @Param input body resetReq true "Токен и новый пароль"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /auth/reset-password [post]
func (h *PasswordHandler) Reset(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req resetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Token) == "" || strings.TrimSpace(req.NewPassword) == "" {
		log.Warn("Невалидный payload в Reset")
		helpers.Error(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		log.Warn("Не удалось сбросить пароль по токену", zap.Error(err))
		if errors.Is(err, services.ErrPasswordTooShort) {
			helpers.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		// Несуществующий и просроченный токен отвечают одинаково
		helpers.Error(w, http.StatusBadRequest, services.ErrResetTokenInvalid.Error())
		return
	}

	log.Info("Пароль успешно сброшен")
	helpers.JSON(w, http.StatusOK, map[string]string{"message": "Password has been reset."})
}
