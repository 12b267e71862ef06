package model

import (
	"strings"
	"time"
)

// Роли пользователя (Identity)
const (
	RoleTutor   = "tutor"
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User - учётная запись (Identity), к которой 1:1 привязаны профили Tutor и Student
type User struct {
	ID            UserID    `json:"id"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Role          string    `json:"role"`
	TelegramID    int64     `json:"telegram_id"` // 0 - Telegram не привязан
	PasswordHash  string    `json:"-"`
	IsPlaceholder bool      `json:"is_placeholder"` // создан автоматически по заявке
	CreatedAt     time.Time `json:"created_at"`
}

// DisplayName возвращает имя для заголовков и уведомлений
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
