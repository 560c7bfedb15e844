package models

import "time"

// События домена «пользователь». Имена json-полей — это wire-формат обмена
// с остальными сервисами платформы, менять нельзя.

type UserRegisteredEvent struct {
	Nickname  string    `json:"nickname"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

type PasswordResetEvent struct {
	RecipientEmail string `json:"recipientEmail"`
	ResetLink      string `json:"resetLink"`
}
