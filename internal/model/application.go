package model

import (
	"strings"
	"time"
)

type ApplicationStatus string

const (
	ApplicationStatusPending          ApplicationStatus = "pending"
	ApplicationStatusTeleVerification ApplicationStatus = "tele-verification"
	ApplicationStatusPanelInterview   ApplicationStatus = "panel-interview"
	ApplicationStatusSelected         ApplicationStatus = "selected"
	ApplicationStatusRejected         ApplicationStatus = "rejected"
	ApplicationStatusWaitlist         ApplicationStatus = "waitlist"
)

// ApplicationSubject - предмет из заявки
type ApplicationSubject struct {
	Name   string `json:"name"`
	Medium string `json:"medium"`
}

// TutorAssignment - результат назначения, записываемый обратно в заявку
type TutorAssignment struct {
	Tutor       TutorID  `json:"tutor"`
	MeetingLink string   `json:"meeting_link"`
	Schedule    TimeSlot `json:"schedule"`
}

// Application - заявка из приёмной кампании. Создаётся вне этого модуля,
// здесь меняются только Status и TutorAssignment.
type Application struct {
	ID              ApplicationID        `json:"id"`
	UserID          *UserID              `json:"user_id"`
	Status          ApplicationStatus    `json:"status"`
	FirstName       string               `json:"first_name"`
	LastName        string               `json:"last_name"`
	Email           string               `json:"email"`
	Phone           string               `json:"phone"`
	Subjects        []ApplicationSubject `json:"subjects"`
	Availability    []TimeSlot           `json:"availability"`
	TutorAssignment *TutorAssignment     `json:"tutor_assignment"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// PrimarySubject возвращает первый указанный предмет
func (a *Application) PrimarySubject() (string, bool) {
	for _, s := range a.Subjects {
		if name := strings.TrimSpace(s.Name); name != "" {
			return name, true
		}
	}
	return "", false
}

// SubjectNames возвращает названия предметов без пустых
func (a *Application) SubjectNames() []string {
	names := make([]string, 0, len(a.Subjects))
	for _, s := range a.Subjects {
		if name := strings.TrimSpace(s.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// FullName возвращает имя заявителя
func (a *Application) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}
