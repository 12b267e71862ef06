package model

import (
	"slices"
	"time"
)

type ClassStatus string

const (
	ClassStatusScheduled   ClassStatus = "scheduled"
	ClassStatusCancelled   ClassStatus = "cancelled"
	ClassStatusCompleted   ClassStatus = "completed"
	ClassStatusRescheduled ClassStatus = "rescheduled"
)

// Class - еженедельное занятие одного учителя по одному предмету в одном слоте
type Class struct {
	ID          ClassID     `json:"id"`
	TutorID     TutorID     `json:"tutor_id"`
	Subject     string      `json:"subject"`
	Schedule    TimeSlot    `json:"schedule"`
	Status      ClassStatus `json:"status"`
	Title       string      `json:"title"`
	SessionLink string      `json:"session_link"`
	Students    []StudentID `json:"students"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// SubjectKey возвращает нормализованный предмет класса
func (c *Class) SubjectKey() SubjectKey {
	return NewSubjectKey(c.Subject)
}

// HasStudent проверяет, записан ли ученик
func (c *Class) HasStudent(id StudentID) bool {
	return slices.Contains(c.Students, id)
}
