// Package notify доставляет уведомления о назначениях: письма заявителям
// через SendGrid и сообщения учителям в Telegram.
package notify

import (
	"context"
	"errors"

	"github.com/Freeeeeet/tutor_matching/internal/service"
)

// Multi рассылает уведомление всем каналам и собирает их ошибки
type Multi []service.Notifier

var _ service.Notifier = Multi(nil)

func (m Multi) NotifyApplicant(ctx context.Context, notice service.ApplicantNotice) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyApplicant(ctx, notice); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyTutor(ctx context.Context, notice service.TutorNotice) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyTutor(ctx, notice); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
