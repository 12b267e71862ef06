package service

import (
	"context"

	"github.com/Freeeeeet/tutor_matching/internal/model"
)

// ApplicantNotice - письмо заявителю о назначенном учителе
type ApplicantNotice struct {
	Email       string
	Name        string
	Subject     string
	TutorName   string
	Schedule    model.TimeSlot
	MeetingLink string
}

// TutorNotice - сообщение учителю о новых учениках в классе
type TutorNotice struct {
	TelegramID  int64
	TutorName   string
	Subject     string
	Schedule    model.TimeSlot
	MeetingLink string
	Students    []string
}

// Notifier доставляет уведомления. Ошибки доставки только логируются вызывающим.
type Notifier interface {
	NotifyApplicant(ctx context.Context, notice ApplicantNotice) error
	NotifyTutor(ctx context.Context, notice TutorNotice) error
}

type noopNotifier struct{}

func (noopNotifier) NotifyApplicant(context.Context, ApplicantNotice) error { return nil }
func (noopNotifier) NotifyTutor(context.Context, TutorNotice) error         { return nil }
