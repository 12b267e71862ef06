package service

import "errors"

var (
	// NotFound: отсутствующая сущность. В батчах фиксируется в отчёте и пропускается.
	ErrApplicationNotFound = errors.New("application not found")
	ErrTutorNotFound       = errors.New("tutor not found")
	ErrStudentNotFound     = errors.New("student not found")

	// ErrNoCandidate - нет подходящего учителя или слота; ожидаемый бизнес-исход, не сбой
	ErrNoCandidate = errors.New("no candidate")

	// ErrReferentialCorruption - ссылка на учителя указывает на id пользователя
	// или не разрешается вовсе
	ErrReferentialCorruption = errors.New("referential corruption")

	// ErrDanglingReference - в составе класса есть id несуществующего ученика.
	// Только логируется, автоматически не удаляется.
	ErrDanglingReference = errors.New("dangling reference")

	// ErrNoSubject - в заявке нет ни одного предмета
	ErrNoSubject = errors.New("application has no subject")
)
