package model

import "strings"

// SubjectKey - нормализованное название предмета (trim + lower case).
// Используется для группировки заявок и поиска классов; фильтр учителей
// по предмету остаётся регистрозависимым.
type SubjectKey string

// NewSubjectKey нормализует название предмета
func NewSubjectKey(subject string) SubjectKey {
	return SubjectKey(strings.ToLower(strings.TrimSpace(subject)))
}

func (k SubjectKey) String() string {
	return string(k)
}
