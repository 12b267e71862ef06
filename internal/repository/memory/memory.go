// Package memory - хранилища сервисов в памяти для тестов и dry-run.
// Значения копируются на входе и выходе, вызывающий не держит ссылок на состояние.
package memory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_matching/internal/model"
	"github.com/Freeeeeet/tutor_matching/internal/service"
)

var errNotFound = errors.New("record not found")

// =============================================================================
// DB - общее состояние всех хранилищ
// =============================================================================

type DB struct {
	mu           sync.RWMutex
	users        map[model.UserID]*model.User
	tutors       map[model.TutorID]*model.Tutor
	tutorRosters map[model.TutorID][]model.StudentID
	students     map[model.StudentID]*model.Student
	classes      map[model.ClassID]*model.Class
	applications map[model.ApplicationID]*model.Application

	// порядок вставки: выборки детерминированы, как ORDER BY created_at
	userOrder    []model.UserID
	studentOrder []model.StudentID
	classOrder   []model.ClassID
	appOrder     []model.ApplicationID
	tutorOrder   []model.TutorID

	now func() time.Time
}

func New() *DB {
	return &DB{
		users:        make(map[model.UserID]*model.User),
		tutors:       make(map[model.TutorID]*model.Tutor),
		tutorRosters: make(map[model.TutorID][]model.StudentID),
		students:     make(map[model.StudentID]*model.Student),
		classes:      make(map[model.ClassID]*model.Class),
		applications: make(map[model.ApplicationID]*model.Application),
		now:          time.Now,
	}
}

// Stores возвращает все хранилища поверх этой DB
func (db *DB) Stores() service.Stores {
	return service.Stores{
		Users:        (*Users)(db),
		Tutors:       (*Tutors)(db),
		Students:     (*Students)(db),
		Classes:      (*Classes)(db),
		Applications: (*Applications)(db),
	}
}

// =============================================================================
// ЗАПОЛНЕНИЕ - прямые вставки для тестов и фикстур
// =============================================================================

func (db *DB) PutUser(u model.User) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.users[u.ID]; !ok {
		db.userOrder = append(db.userOrder, u.ID)
	}
	db.users[u.ID] = copyUser(&u)
}

func (db *DB) PutTutor(t model.Tutor) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.tutors[t.ID]; !ok {
		db.tutorOrder = append(db.tutorOrder, t.ID)
	}
	db.tutors[t.ID] = copyTutor(&t)
}

func (db *DB) PutStudent(s model.Student) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.students[s.ID]; !ok {
		db.studentOrder = append(db.studentOrder, s.ID)
	}
	db.students[s.ID] = copyStudent(&s)
}

// PutClass сохраняет класс как есть, в обход уникальности: так в тестах
// воспроизводятся исторические данные (дубли, id пользователя в tutor_id, висячие ученики)
func (db *DB) PutClass(c model.Class) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.classes[c.ID]; !ok {
		db.classOrder = append(db.classOrder, c.ID)
	}
	db.classes[c.ID] = copyClass(&c)
}

func (db *DB) PutApplication(a model.Application) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.applications[a.ID]; !ok {
		db.appOrder = append(db.appOrder, a.ID)
	}
	db.applications[a.ID] = copyApplication(&a)
}

// DeleteStudent удаляет ученика, не трогая составы классов
func (db *DB) DeleteStudent(id model.StudentID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.students, id)
	db.studentOrder = slices.DeleteFunc(db.studentOrder, func(s model.StudentID) bool { return s == id })
}

// TutorRoster возвращает собственный список учеников учителя
func (db *DB) TutorRoster(id model.TutorID) []model.StudentID {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return slices.Clone(db.tutorRosters[id])
}

// ClassCount возвращает число классов
func (db *DB) ClassCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.classes)
}

// =============================================================================
// USERS
// =============================================================================

type Users DB

var _ service.UserStore = (*Users)(nil)

func (s *Users) GetByID(_ context.Context, id model.UserID) (*model.User, error) {
	db := (*DB)(s)
	db.mu.RLock()
	defer db.mu.RUnlock()
	if u, ok := db.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	db := (*DB)(s)
	db.mu.RLock()
	defer db.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	for _, id := range db.userOrder {
		if u := db.users[id]; strings.ToLower(u.Email) == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (s *Users) Create(_ context.Context, user *model.User) error {
	db := (*DB)(s)
	db.mu.Lock()
	defer db.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = model.NewUserID()
	}
	user.CreatedAt = db.now()
	db.users[user.ID] = copyUser(user)
	db.userOrder = append(db.userOrder, user.ID)
	return nil
}

// =============================================================================
// TUTORS
// =============================================================================

type Tutors DB

var _ service.TutorStore = (*Tutors)(nil)

func (s *Tutors) GetByID(_ context.Context, id model.TutorID) (*model.Tutor, error) {
	db := (*DB)(s)
	db.mu.RLock()
	defer db.mu.RUnlock()
	if t, ok := db.tutors[id]; ok {
		return copyTutor(t), nil
	}
	return nil, nil
}

func (s *Tutors) GetByUserID(_ context.Context, userID model.UserID) (*model.Tutor, error) {
	db := (*DB)(s)
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, id := range db.tutorOrder {
		if t := db.tutors[id]; t.UserID == userID {
			return copyTutor(t), nil
		}
	}
	return nil, nil
}

func (s *Tutors) ListBySubject(_ context.Context, subject string) ([]*model.Tutor, error) {
	db := (*DB)(s)
	db.mu.RLock()
	defer db.mu.RUnlock()
	var tutors []*model.Tutor
	for _, id := range db.tutorOrder {
		if t := db.tutors[id]; t.Teaches(subject) {
			tutors = append(tutors, copyTutor(t))
		}
	}
	return tutors, nil
}

func (s *Tutors) AddStudent(_ context.Context, tutorID model.TutorID, studentID model.StudentID) error {
	db := (*DB)(s)
	db.mu.Lock()
	defer db.mu.Unlock()
	if !slices.Contains(db.tutorRosters[tutorID], studentID) {
		db.tutorRosters[tutorID] = append(db.tutorRosters[tutorID], studentID)
	}
	return nil
}

func (s *Tutors) ListStudentIDs(_ context.Context, tutorID model.TutorID) ([]model.StudentID, error) {
	db := (*DB)(s)
	db.mu.RLock()
	defer db.mu.RUnlock()
	return slices.Clone(db.tutorRosters[tutorID]), nil
}

// =============================================================================
// STUDENTS
// =============================================================================

type Students DB

var _ service.StudentStore = (*Students)(nil)

func (s *Students) GetByID(_ context.Context, id model.StudentID) (*model.Student, error) {
	db := (*DB)(s)
	db.mu.RLock()
	defer db.mu.RUnlock()
	if st, ok := db.students[id]; ok {
		return copyStudent(st), nil
	}
	return nil, nil
}

func (s *Students) GetByUserID(_ context.Context, userID model.UserID) (*model.Student, error) {
	db := (*DB)(s)
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, id := range db.studentOrder {
		if st := db.students[id]; st.UserID == userID {
			return copyStudent(st), nil
		}
	}
	return nil, nil
}

func (s *Students) Create(_ context.Context, student *model.Student) error {
	db := (*DB)(s)
	db.mu.Lock()
	defer db.mu.Unlock()
	if student.ID.IsZero() {
		student.ID = model.NewStudentID()
	}
	student.CreatedAt = db.now()
	db.students[student.ID] = copyStudent(student)
	db.studentOrder = append(db.studentOrder, student.ID)
	return nil
}

func (s *Students) UpdateAvailability(_ context.Context, id model.StudentID, availability []model.TimeSlot) error {
	db := (*DB)(s)
	db.mu.Lock()
	defer db.mu.Unlock()
	st, ok := db.students[id]
	if !ok {
		return errNotFound
	}
	st.Availability = slices.Clone(availability)
	return nil
}

func (s *Students) SetTutor(_ context.Context, id model.StudentID, tutorID model.TutorID) error {
	db := (*DB)(s)
	db.mu.Lock()
	defer db.mu.Unlock()
	st, ok := db.students[id]
	if !ok {
		return errNotFound
	}
	st.TutorID = &tutorID
	return nil
}

func (s *Students) ListUnassigned(_ context.Context) ([]*model.Student, error) {
	db := (*DB)(s)
	db.mu.RLock()
	defer db.mu.RUnlock()
	var students []*model.Student
	for _, id := range db.studentOrder {
		if st := db.students[id]; st.TutorID == nil {
			students = append(students, copyStudent(st))
		}
	}
	return students, nil
}

// =============================================================================
// CLASSES
// =============================================================================

type Classes DB

var _ service.ClassStore = (*Classes)(nil)

func (s *Classes) ListByTutor(_ context.Context, tutorID model.TutorID) ([]*model.Class, error) {
	db := (*DB)(s)
	db.mu.RLock()
	defer db.mu.RUnlock()
	var classes []*model.Class
	for _, id := range db.classOrder {
		if c := db.classes[id]; c.TutorID == tutorID {
			classes = append(classes, copyClass(c))
		}
	}
	return classes, nil
}

func (s *Classes) ListAll(_ context.Context) ([]*model.Class, error) {
	db := (*DB)(s)
	db.mu.RLock()
	defer db.mu.RUnlock()
	classes := make([]*model.Class, 0, len(db.classOrder))
	for _, id := range db.classOrder {
		classes = append(classes, copyClass(db.classes[id]))
	}
	return classes, nil
}

func (s *Classes) CreateOrGet(_ context.Context, class *model.Class) (*model.Class, bool, error) {
	db := (*DB)(s)
	db.mu.Lock()
	defer db.mu.Unlock()

	// уникальность (tutor_id, subject_key, slot)
	for _, id := range db.classOrder {
		existing := db.classes[id]
		if existing.TutorID == class.TutorID &&
			existing.SubjectKey() == class.SubjectKey() &&
			existing.Schedule.Key() == class.Schedule.Key() {
			return copyClass(existing), false, nil
		}
	}

	stored := copyClass(class)
	if stored.ID.IsZero() {
		stored.ID = model.NewClassID()
	}
	stored.CreatedAt = db.now()
	stored.UpdatedAt = stored.CreatedAt
	stored.Students = dedupe(stored.Students)
	db.classes[stored.ID] = stored
	db.classOrder = append(db.classOrder, stored.ID)
	return copyClass(stored), true, nil
}

func (s *Classes) AddStudent(_ context.Context, classID model.ClassID, studentID model.StudentID) (bool, error) {
	db := (*DB)(s)
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.classes[classID]
	if !ok {
		return false, errNotFound
	}
	if c.HasStudent(studentID) {
		return false, nil
	}
	c.Students = append(c.Students, studentID)
	c.UpdatedAt = db.now()
	return true, nil
}

func (s *Classes) UpdateMetadata(_ context.Context, classID model.ClassID, title, sessionLink string) error {
	db := (*DB)(s)
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.classes[classID]
	if !ok {
		return errNotFound
	}
	c.Title = title
	c.SessionLink = sessionLink
	c.UpdatedAt = db.now()
	return nil
}

func (s *Classes) UpdateTutor(_ context.Context, classID model.ClassID, tutorID model.TutorID) error {
	db := (*DB)(s)
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.classes[classID]
	if !ok {
		return errNotFound
	}
	c.TutorID = tutorID
	c.UpdatedAt = db.now()
	return nil
}

func (s *Classes) CountEnrolledStudents(_ context.Context, tutorID model.TutorID) (int, error) {
	db := (*DB)(s)
	db.mu.RLock()
	defer db.mu.RUnlock()
	total := 0
	for _, c := range db.classes {
		if c.TutorID == tutorID {
			total += len(c.Students)
		}
	}
	return total, nil
}

// =============================================================================
// APPLICATIONS
// =============================================================================

type Applications DB

var _ service.ApplicationStore = (*Applications)(nil)

func (s *Applications) GetByID(_ context.Context, id model.ApplicationID) (*model.Application, error) {
	db := (*DB)(s)
	db.mu.RLock()
	defer db.mu.RUnlock()
	if a, ok := db.applications[id]; ok {
		return copyApplication(a), nil
	}
	return nil, nil
}

func (s *Applications) ListByStatus(_ context.Context, status model.ApplicationStatus) ([]*model.Application, error) {
	db := (*DB)(s)
	db.mu.RLock()
	defer db.mu.RUnlock()
	var apps []*model.Application
	for _, id := range db.appOrder {
		if a := db.applications[id]; a.Status == status {
			apps = append(apps, copyApplication(a))
		}
	}
	return apps, nil
}

func (s *Applications) UpdateAssignment(_ context.Context, id model.ApplicationID, status model.ApplicationStatus, assignment *model.TutorAssignment) error {
	db := (*DB)(s)
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.applications[id]
	if !ok {
		return errNotFound
	}
	a.Status = status
	if assignment != nil {
		assigned := *assignment
		a.TutorAssignment = &assigned
	} else {
		a.TutorAssignment = nil
	}
	a.UpdatedAt = db.now()
	return nil
}

func (s *Applications) SetUser(_ context.Context, id model.ApplicationID, userID model.UserID) error {
	db := (*DB)(s)
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.applications[id]
	if !ok {
		return errNotFound
	}
	a.UserID = &userID
	a.UpdatedAt = db.now()
	return nil
}

// =============================================================================
// КОПИРОВАНИЕ
// =============================================================================

func copyUser(u *model.User) *model.User {
	c := *u
	return &c
}

func copyTutor(t *model.Tutor) *model.Tutor {
	c := *t
	c.Subjects = slices.Clone(t.Subjects)
	c.Availability = slices.Clone(t.Availability)
	return &c
}

func copyStudent(s *model.Student) *model.Student {
	c := *s
	c.Subjects = slices.Clone(s.Subjects)
	c.Availability = slices.Clone(s.Availability)
	if s.TutorID != nil {
		id := *s.TutorID
		c.TutorID = &id
	}
	return &c
}

func copyClass(cl *model.Class) *model.Class {
	c := *cl
	c.Students = slices.Clone(cl.Students)
	return &c
}

func copyApplication(a *model.Application) *model.Application {
	c := *a
	c.Subjects = slices.Clone(a.Subjects)
	c.Availability = slices.Clone(a.Availability)
	if a.UserID != nil {
		id := *a.UserID
		c.UserID = &id
	}
	if a.TutorAssignment != nil {
		ta := *a.TutorAssignment
		c.TutorAssignment = &ta
	}
	return &c
}

func dedupe(ids []model.StudentID) []model.StudentID {
	out := make([]model.StudentID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
