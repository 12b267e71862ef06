package model

import (
	"slices"
	"time"
)

type TutorStatus string

const (
	TutorStatusActive   TutorStatus = "active"
	TutorStatusInactive TutorStatus = "inactive"
	TutorStatusPending  TutorStatus = "pending"
)

// Tutor - профиль преподавателя. Порядок Availability значим: первый слот
// считается слотом по умолчанию, а при равенстве покрытия побеждает более ранний.
type Tutor struct {
	ID              TutorID     `json:"id"`
	UserID          UserID      `json:"user_id"`
	Name            string      `json:"name"`
	Subjects        []string    `json:"subjects"`
	Availability    []TimeSlot  `json:"availability"`
	Status          TutorStatus `json:"status"`
	ExperienceYears float64     `json:"experience_years"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Teaches проверяет предмет с учётом регистра
func (t *Tutor) Teaches(subject string) bool {
	return slices.Contains(t.Subjects, subject)
}

// IsAssignable - активных и ожидающих подтверждения учителей можно назначать
func (t *Tutor) IsAssignable() bool {
	return t.Status == TutorStatusActive || t.Status == TutorStatusPending
}

// DefaultSlot возвращает первый слот доступности или жёсткий дефолт
func (t *Tutor) DefaultSlot() TimeSlot {
	if len(t.Availability) > 0 {
		return t.Availability[0]
	}
	return DefaultTimeSlot()
}
