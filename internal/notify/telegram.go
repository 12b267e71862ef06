package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/Freeeeeet/tutor_matching/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Telegram пишет учителю о новых учениках в классе
type Telegram struct {
	bot    *bot.Bot
	logger *zap.Logger
}

var _ service.Notifier = (*Telegram)(nil)

// NewTelegram создаёт клиента без вызова getMe: рассылка не должна падать на старте без сети
func NewTelegram(token string, logger *zap.Logger, opts ...bot.Option) (*Telegram, error) {
	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Telegram{bot: b, logger: logger}, nil
}

// NotifyApplicant - заявителям пишет почта
func (t *Telegram) NotifyApplicant(context.Context, service.ApplicantNotice) error {
	return nil
}

// NotifyTutor отправляет учителю сообщение со списком записанных учеников
func (t *Telegram) NotifyTutor(ctx context.Context, notice service.TutorNotice) error {
	if notice.TelegramID == 0 {
		return nil
	}

	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    notice.TelegramID,
		Text:      tutorText(notice),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	t.logger.Debug("Tutor notified in Telegram",
		zap.Int64("telegram_id", notice.TelegramID),
		zap.Int("students", len(notice.Students)))
	return nil
}

func tutorText(n service.TutorNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📚 <b>%s</b>: new students in your class\n", html.EscapeString(n.Subject))
	fmt.Fprintf(&b, "🗓 %s, %s-%s\n",
		html.EscapeString(n.Schedule.Day), html.EscapeString(n.Schedule.StartTime), html.EscapeString(n.Schedule.EndTime))
	if n.MeetingLink != "" {
		fmt.Fprintf(&b, "🔗 %s\n", html.EscapeString(n.MeetingLink))
	}
	b.WriteString("\n")
	for _, name := range n.Students {
		if name = strings.TrimSpace(name); name == "" {
			name = "(no name)"
		}
		fmt.Fprintf(&b, "• %s\n", html.EscapeString(name))
	}
	return b.String()
}
