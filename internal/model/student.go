package model

import "time"

// Student - профиль ученика. TutorID - "основной" закреплённый учитель,
// не зависящий от записи в конкретные классы.
type Student struct {
	ID           StudentID  `json:"id"`
	UserID       UserID     `json:"user_id"`
	Name         string     `json:"name"`
	Subjects     []string   `json:"subjects"`
	Availability []TimeSlot `json:"availability"`
	TutorID      *TutorID   `json:"tutor_id"` // nil - учитель не закреплён
	CreatedAt    time.Time  `json:"created_at"`
}

// AvailableAt проверяет пересечение доступности ученика со слотом
func (s *Student) AvailableAt(slot TimeSlot) bool {
	return OverlapsAny(s.Availability, slot)
}

// PrimarySubject возвращает первый предмет ученика
func (s *Student) PrimarySubject() (string, bool) {
	if len(s.Subjects) == 0 {
		return "", false
	}
	return s.Subjects[0], true
}
