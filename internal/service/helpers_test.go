package service_test

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Freeeeeet/tutor_matching/internal/model"
	"github.com/Freeeeeet/tutor_matching/internal/repository/memory"
	"github.com/Freeeeeet/tutor_matching/internal/service"
)

const meetingHost = "meet.example.org"

func slot(day, start, end string) model.TimeSlot {
	return model.TimeSlot{Day: day, StartTime: start, EndTime: end}
}

var (
	mon10 = slot("Monday", "10:00", "11:00")
	tue15 = slot("Tuesday", "15:00", "16:00")
	wed09 = slot("Wednesday", "09:00", "10:00")
)

type harness struct {
	db          *memory.DB
	stores      service.Stores
	resolver    *service.EnrollmentResolver
	students    *service.StudentResolver
	assignments *service.AssignmentService
	repairs     *service.RepairService
	notifier    *recordingNotifier
}

func newHarness() *harness {
	db := memory.New()
	stores := db.Stores()
	logger := zap.NewNop()
	notifier := &recordingNotifier{}

	resolver := service.NewEnrollmentResolver(stores, service.NewLocalLocker(),
		service.MeetingConfig{Host: meetingHost, RoomPrefix: "room"}, logger)
	students := service.NewStudentResolver(stores, logger)

	return &harness{
		db:          db,
		stores:      stores,
		resolver:    resolver,
		students:    students,
		assignments: service.NewAssignmentService(stores, resolver, students, notifier, logger),
		repairs:     service.NewRepairService(stores, resolver, students, logger),
		notifier:    notifier,
	}
}

// addTutor создаёт учителя вместе с его пользователем
func (h *harness) addTutor(first, last string, subjects []string, availability []model.TimeSlot, exp float64) *model.Tutor {
	user := model.User{ID: model.NewUserID(), FirstName: first, LastName: last, Role: model.RoleTutor}
	h.db.PutUser(user)

	tutor := model.Tutor{
		ID:              model.NewTutorID(),
		UserID:          user.ID,
		Subjects:        subjects,
		Availability:    availability,
		Status:          model.TutorStatusActive,
		ExperienceYears: exp,
	}
	h.db.PutTutor(tutor)
	return &tutor
}

func (h *harness) addStudent(name string, subjects []string, availability ...model.TimeSlot) *model.Student {
	user := model.User{ID: model.NewUserID(), FirstName: name, Role: model.RoleStudent}
	h.db.PutUser(user)

	student := model.Student{
		ID:           model.NewStudentID(),
		UserID:       user.ID,
		Name:         name,
		Subjects:     subjects,
		Availability: availability,
	}
	h.db.PutStudent(student)
	return &student
}

func (h *harness) addApplication(first, email, subject string, availability ...model.TimeSlot) *model.Application {
	app := model.Application{
		ID:           model.NewApplicationID(),
		Status:       model.ApplicationStatusSelected,
		FirstName:    first,
		LastName:     "Applicant",
		Email:        email,
		Availability: availability,
	}
	if subject != "" {
		app.Subjects = []model.ApplicationSubject{{Name: subject, Medium: "English"}}
	}
	h.db.PutApplication(app)
	return &app
}

func (h *harness) application(id model.ApplicationID) *model.Application {
	app, _ := h.stores.Applications.GetByID(context.Background(), id)
	return app
}

func (h *harness) classes(tutorID model.TutorID) []*model.Class {
	classes, _ := h.stores.Classes.ListByTutor(context.Background(), tutorID)
	return classes
}

// studentFor находит ученика заявки через привязанного пользователя, иначе по email
func (h *harness) studentFor(app *model.Application) *model.Student {
	ctx := context.Background()
	if stored := h.application(app.ID); stored != nil && stored.UserID != nil {
		student, _ := h.stores.Students.GetByUserID(ctx, *stored.UserID)
		return student
	}
	user, _ := h.stores.Users.GetByEmail(ctx, app.Email)
	if user == nil {
		return nil
	}
	student, _ := h.stores.Students.GetByUserID(ctx, user.ID)
	return student
}

type recordingNotifier struct {
	mu         sync.Mutex
	applicants []service.ApplicantNotice
	tutors     []service.TutorNotice
	err        error
}

func (n *recordingNotifier) NotifyApplicant(_ context.Context, notice service.ApplicantNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.applicants = append(n.applicants, notice)
	return n.err
}

func (n *recordingNotifier) NotifyTutor(_ context.Context, notice service.TutorNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tutors = append(n.tutors, notice)
	return n.err
}
