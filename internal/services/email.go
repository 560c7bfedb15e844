package services

import (
	"errors"
	"fmt"
	"strconv"

	"kinotalks/internal/config"
	helpers "kinotalks/internal/utils/helpers"

	"gopkg.in/gomail.v2"
)

// ErrDelivery — транспорт отверг письмо (кривой адрес, SMTP недоступен).
// Ошибка не гасится здесь: потребитель очереди по ней дедлеттерит сообщение.
var ErrDelivery = errors.New("не удалось доставить письмо")

// smtpDialer — то, что умеет *gomail.Dialer; в тестах подменяется заглушкой.
type smtpDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender рендерит шаблонные письма и отдаёт их SMTP-транспорту.
type EmailSender struct {
	dialer   smtpDialer
	from     string
	frontURL string
}

func NewEmailSender(cfg *config.Config) *EmailSender {
	port, err := strconv.Atoi(cfg.SMTPPort)
	if err != nil {
		port = 587
	}

	from := cfg.MailFrom
	if from == "" {
		from = cfg.SMTPUser
	}

	return &EmailSender{
		dialer:   gomail.NewDialer(cfg.SMTPHost, port, cfg.SMTPUser, cfg.SMTPPassword),
		from:     from,
		frontURL: cfg.FrontendURL,
	}
}

// SendWelcome отправляет приветственное письмо новому пользователю.
func (s *EmailSender) SendWelcome(to, name string) error {
	html := helpers.BuildWelcomeHTML(name, s.frontURL+"/")
	return s.send(to, "Добро пожаловать в Kinotalks!", html)
}

// SendPasswordReset отправляет письмо со ссылкой на сброс пароля.
func (s *EmailSender) SendPasswordReset(to, resetLink string) error {
	html := helpers.BuildPasswordResetHTML(resetLink)
	return s.send(to, "Восстановление пароля", html)
}

func (s *EmailSender) send(to, subject, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}
