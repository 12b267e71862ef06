package service

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Freeeeeet/tutor_matching/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fallbackTutorName - заголовок класса, если имя учителя не нашлось нигде
const fallbackTutorName = "Group"

// placeholderTitle - автоматически сгенерированный заголовок вида "Math - 64b7f0c2e4a1d3f5b6c7d8e9"
var placeholderTitle = regexp.MustCompile(`[0-9a-fA-F]{24}$`)

// MeetingConfig задаёт канонический хост ссылок на занятия
type MeetingConfig struct {
	Host       string
	RoomPrefix string
}

// Enrollment - результат EnsureClass
type Enrollment struct {
	Class        *model.Class
	ClassCreated bool
	StudentAdded bool
}

// EnrollmentResolver находит или создаёт класс учителя по предмету (и слоту)
// и записывает в него ученика. Повторный вызов с теми же аргументами ничего не меняет.
type EnrollmentResolver struct {
	users   UserStore
	classes ClassStore
	locker  TutorLocker
	meeting MeetingConfig
	logger  *zap.Logger
}

func NewEnrollmentResolver(stores Stores, locker TutorLocker, meeting MeetingConfig, logger *zap.Logger) *EnrollmentResolver {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &EnrollmentResolver{
		users:   stores.Users,
		classes: stores.Classes,
		locker:  locker,
		meeting: meeting,
		logger:  logger,
	}
}

// EnsureClass возвращает класс учителя по предмету, в составе которого есть ученик.
//
// При заданном slot предпочитается класс с тем же расписанием. Если найден класс
// по предмету, но с другим расписанием, и ученика в нём нет, создаётся новый класс
// в slot: расписание существующего класса не меняется ради нового ученика.
// Без slot новый класс создаётся в первом слоте доступности учителя или в слоте по умолчанию.
func (r *EnrollmentResolver) EnsureClass(ctx context.Context, tutor *model.Tutor, student *model.Student, subject string, slot *model.TimeSlot) (*Enrollment, error) {
	unlock, err := r.locker.Lock(ctx, tutor.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	classes, err := r.classes.ListByTutor(ctx, tutor.ID)
	if err != nil {
		return nil, fmt.Errorf("list tutor classes: %w", err)
	}

	match := findClass(classes, model.NewSubjectKey(subject), student.ID, slot)

	if match == nil {
		schedule := tutor.DefaultSlot()
		if slot != nil {
			schedule = *slot
		}
		return r.createClass(ctx, tutor, student, subject, schedule, classes)
	}

	if match.HasStudent(student.ID) {
		return &Enrollment{Class: match}, nil
	}

	if slot != nil && !match.Schedule.Equal(*slot) {
		r.logger.Info("Existing class has another schedule, creating class for requested slot",
			zap.String("class_id", match.ID.String()),
			zap.String("class_slot", match.Schedule.String()),
			zap.String("requested_slot", slot.String()))
		return r.createClass(ctx, tutor, student, subject, *slot, classes)
	}

	return r.enroll(ctx, tutor, student, match, classes)
}

// findClass ищет класс по предмету. При заданном слоте сначала ищется точное совпадение
// расписания; среди остальных совпадений по предмету предпочитается класс, где ученик уже есть.
func findClass(classes []*model.Class, subject model.SubjectKey, studentID model.StudentID, slot *model.TimeSlot) *model.Class {
	var bySubject []*model.Class
	for _, c := range classes {
		if c.SubjectKey() == subject {
			bySubject = append(bySubject, c)
		}
	}

	if slot != nil {
		for _, c := range bySubject {
			if c.Schedule.Equal(*slot) {
				return c
			}
		}
	}

	for _, c := range bySubject {
		if c.HasStudent(studentID) {
			return c
		}
	}

	if len(bySubject) > 0 {
		return bySubject[0]
	}
	return nil
}

func (r *EnrollmentResolver) createClass(ctx context.Context, tutor *model.Tutor, student *model.Student, subject string, schedule model.TimeSlot, siblings []*model.Class) (*Enrollment, error) {
	class := &model.Class{
		TutorID:     tutor.ID,
		Subject:     subject,
		Schedule:    schedule,
		Status:      model.ClassStatusScheduled,
		Title:       subject + " - " + r.displayName(ctx, tutor, siblings),
		SessionLink: r.newSessionLink(),
		Students:    []model.StudentID{student.ID},
	}

	stored, created, err := r.classes.CreateOrGet(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("create class: %w", err)
	}

	if created {
		r.logger.Info("Class created",
			zap.String("class_id", stored.ID.String()),
			zap.String("tutor_id", tutor.ID.String()),
			zap.String("subject", subject),
			zap.String("slot", schedule.String()))
		return &Enrollment{Class: stored, ClassCreated: true, StudentAdded: true}, nil
	}

	// класс на этот слот успел создать другой процесс
	if stored.HasStudent(student.ID) {
		return &Enrollment{Class: stored}, nil
	}
	return r.enroll(ctx, tutor, student, stored, siblings)
}

// enroll дописывает ученика и попутно чинит заголовок-заглушку и ссылку на занятие
func (r *EnrollmentResolver) enroll(ctx context.Context, tutor *model.Tutor, student *model.Student, class *model.Class, siblings []*model.Class) (*Enrollment, error) {
	added, err := r.classes.AddStudent(ctx, class.ID, student.ID)
	if err != nil {
		return nil, fmt.Errorf("add student to class: %w", err)
	}
	if !class.HasStudent(student.ID) {
		class.Students = append(class.Students, student.ID)
	}

	title, link := class.Title, class.SessionLink
	if IsPlaceholderTitle(title) {
		title = class.Subject + " - " + r.displayName(ctx, tutor, siblings)
	}
	if !r.IsCanonicalLink(link) {
		link = r.newSessionLink()
	}

	if title != class.Title || link != class.SessionLink {
		if err := r.classes.UpdateMetadata(ctx, class.ID, title, link); err != nil {
			return nil, fmt.Errorf("repair class metadata: %w", err)
		}
		r.logger.Info("Class metadata repaired",
			zap.String("class_id", class.ID.String()),
			zap.String("title", title),
			zap.String("session_link", link))
		class.Title, class.SessionLink = title, link
	}

	return &Enrollment{Class: class, StudentAdded: added}, nil
}

// TutorName возвращает отображаемое имя учителя
func (r *EnrollmentResolver) TutorName(ctx context.Context, tutor *model.Tutor) string {
	classes, err := r.classes.ListByTutor(ctx, tutor.ID)
	if err != nil {
		r.logger.Warn("Failed to list classes for tutor name", zap.String("tutor_id", tutor.ID.String()), zap.Error(err))
	}
	return r.displayName(ctx, tutor, classes)
}

// displayName: имя пользователя -> имя в профиле -> имя из заголовка соседнего класса -> "Group"
func (r *EnrollmentResolver) displayName(ctx context.Context, tutor *model.Tutor, siblings []*model.Class) string {
	if !tutor.UserID.IsZero() {
		user, err := r.users.GetByID(ctx, tutor.UserID)
		if err != nil {
			r.logger.Warn("Failed to load tutor user", zap.String("tutor_id", tutor.ID.String()), zap.Error(err))
		}
		if user != nil {
			if name := user.DisplayName(); name != "" {
				return name
			}
		}
	}

	if name := strings.TrimSpace(tutor.Name); name != "" {
		return name
	}

	for _, c := range siblings {
		if name := nameFromTitle(c.Title); name != "" {
			return name
		}
	}

	return fallbackTutorName
}

// nameFromTitle достаёт имя из заголовка "Предмет - Имя", если это не заглушка
func nameFromTitle(title string) string {
	if IsPlaceholderTitle(title) {
		return ""
	}
	_, name, ok := strings.Cut(title, " - ")
	if !ok {
		return ""
	}
	name = strings.TrimSpace(name)
	if name == fallbackTutorName {
		return ""
	}
	return name
}

// IsPlaceholderTitle проверяет, что заголовок заканчивается 24-символьным hex id
func IsPlaceholderTitle(title string) bool {
	return placeholderTitle.MatchString(strings.TrimSpace(title))
}

// IsCanonicalLink проверяет, что ссылка ведёт на канонический хост встреч
func (r *EnrollmentResolver) IsCanonicalLink(link string) bool {
	if strings.TrimSpace(link) == "" {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), r.meeting.Host)
}

func (r *EnrollmentResolver) newSessionLink() string {
	return fmt.Sprintf("https://%s/%s-%s", r.meeting.Host, r.meeting.RoomPrefix, uuid.NewString())
}
