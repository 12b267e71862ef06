package service

import (
	"context"

	"github.com/Freeeeeet/tutor_matching/internal/model"
)

// Контракты хранилища. Get* возвращают (nil, nil), если запись не найдена.
// Реализации: internal/repository (PostgreSQL) и internal/repository/memory.

type UserStore interface {
	GetByID(ctx context.Context, id model.UserID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
}

type TutorStore interface {
	GetByID(ctx context.Context, id model.TutorID) (*model.Tutor, error)
	GetByUserID(ctx context.Context, userID model.UserID) (*model.Tutor, error)
	// ListBySubject возвращает учителей с предметом (с учётом регистра) в любом статусе
	ListBySubject(ctx context.Context, subject string) ([]*model.Tutor, error)
	// AddStudent добавляет ученика в собственный список учителя, повтор - no-op
	AddStudent(ctx context.Context, tutorID model.TutorID, studentID model.StudentID) error
	// ListStudentIDs возвращает собственный список учеников учителя в порядке добавления
	ListStudentIDs(ctx context.Context, tutorID model.TutorID) ([]model.StudentID, error)
}

type StudentStore interface {
	GetByID(ctx context.Context, id model.StudentID) (*model.Student, error)
	GetByUserID(ctx context.Context, userID model.UserID) (*model.Student, error)
	Create(ctx context.Context, student *model.Student) error
	UpdateAvailability(ctx context.Context, id model.StudentID, availability []model.TimeSlot) error
	SetTutor(ctx context.Context, id model.StudentID, tutorID model.TutorID) error
	// ListUnassigned возвращает учеников без закреплённого учителя в порядке создания
	ListUnassigned(ctx context.Context) ([]*model.Student, error)
}

type ClassStore interface {
	// ListByTutor возвращает классы учителя в порядке создания
	ListByTutor(ctx context.Context, tutorID model.TutorID) ([]*model.Class, error)
	ListAll(ctx context.Context) ([]*model.Class, error)
	// CreateOrGet вставляет класс с уникальностью по (tutor, subject key, slot).
	// При конфликте возвращает существующий класс и created == false.
	CreateOrGet(ctx context.Context, class *model.Class) (stored *model.Class, created bool, err error)
	// AddStudent записывает ученика в класс; added == false, если он уже был записан
	AddStudent(ctx context.Context, classID model.ClassID, studentID model.StudentID) (added bool, err error)
	UpdateMetadata(ctx context.Context, classID model.ClassID, title, sessionLink string) error
	UpdateTutor(ctx context.Context, classID model.ClassID, tutorID model.TutorID) error
	CountEnrolledStudents(ctx context.Context, tutorID model.TutorID) (int, error)
}

type ApplicationStore interface {
	GetByID(ctx context.Context, id model.ApplicationID) (*model.Application, error)
	ListByStatus(ctx context.Context, status model.ApplicationStatus) ([]*model.Application, error)
	UpdateAssignment(ctx context.Context, id model.ApplicationID, status model.ApplicationStatus, assignment *model.TutorAssignment) error
	// SetUser привязывает заявку к учётной записи, чтобы повторное разрешение находило ту же
	SetUser(ctx context.Context, id model.ApplicationID, userID model.UserID) error
}

// Stores собирает все хранилища, нужные сервисам
type Stores struct {
	Users        UserStore
	Tutors       TutorStore
	Students     StudentStore
	Classes      ClassStore
	Applications ApplicationStore
}
